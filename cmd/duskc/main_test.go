package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain registers this binary's own entry point as the "duskc" command
// testscript.Run's scripts invoke, so each .txtar case runs against the
// real CLI wiring (flags, exit codes, stdout) without a separate build step.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"duskc": run,
	}))
}

func TestDuskcScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{Dir: "testdata"})
}
