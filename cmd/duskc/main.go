// cmd/duskc is the CLI driver (spec.md §6): an external collaborator that
// reads a source file, invokes the core compiler, and writes the
// resulting assembly text. File I/O, argument parsing, and logging are
// explicitly out of this module's core scope (spec.md §1) — this file is
// the thin shell spec.md says surrounds it.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/CNCSMonster/duskphantom/internal/compile"
	"github.com/CNCSMonster/duskphantom/internal/errors"
	"github.com/CNCSMonster/duskphantom/internal/transform"
)

// buildVersion is read from DUSKC_VERSION (spec.md §6: "Only the
// build-time version constant is read, embedded into the .ident
// directive"), validated as semver; an invalid or unset value falls back
// to a per-run build id so .ident still uniquely identifies the binary
// that produced a given assembly file.
func buildVersion() string {
	v := os.Getenv("DUSKC_VERSION")
	if v == "" {
		return "dev+" + uuid.NewString()
	}
	if !semver.IsValid(v) {
		return "dev+" + uuid.NewString()
	}
	return v
}

func main() {
	os.Exit(run())
}

// run builds and executes the root command, returning the process exit
// code. Split out from main so cmd/duskc's testscript harness can invoke
// it in-process via testscript.RunMain.
func run() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		optLevel    int
		output      string
		emitWorkers int
		colorMode   string
	)

	root := &cobra.Command{
		Use:   "duskc",
		Short: "duskc — a RISC-V 64GC ahead-of-time compiler",
	}

	build := &cobra.Command{
		Use:   "build <source.json>",
		Short: "Compile a serialized AST to RV64GC assembly text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useColor := colorMode == "always" || (colorMode == "auto" && isatty.IsTerminal(os.Stderr.Fd()))
			color.NoColor = !useColor

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			mod, err := compile.ParseWireModule(data)
			if err != nil {
				return reportError(errors.New(errors.InputError, "duskc", err.Error()))
			}

			if optLevel < 0 || optLevel > 3 {
				return reportError(errors.New(errors.InputError, "duskc", "optimization level must be 0-3"))
			}

			text, err := compile.Module(mod, compile.Options{
				Level:         transform.Level(optLevel),
				Version:       buildVersion(),
				GlobalWorkers: emitWorkers,
				FuncWorkers:   emitWorkers,
			})
			if err != nil {
				return reportError(err)
			}

			if output == "" || output == "-" {
				fmt.Print(text)
				return nil
			}
			if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			return nil
		},
	}
	build.Flags().IntVarP(&optLevel, "opt-level", "O", 0, "optimization level (0-3)")
	build.Flags().StringVarP(&output, "output", "o", "", "output assembly file path (default stdout)")
	build.Flags().IntVar(&emitWorkers, "emit-workers", 1, "emission worker count")
	build.Flags().StringVar(&colorMode, "color", "auto", "diagnostic color: auto, always, never")

	root.AddCommand(build)
	return root
}

// reportError prints a single-line diagnostic (spec.md §7: "error: <kind>:
// <message>") and returns a non-nil error so cobra's Execute exits
// non-zero, matching spec.md §6's "non-zero on compile error with a single
// line diagnostic."
func reportError(err error) error {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintln(os.Stderr, err.Error())
	return err
}
