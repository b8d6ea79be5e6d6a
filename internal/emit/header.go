package emit

import "fmt"

// fileHeader is spec.md §4.I's file header: `.file`, `.option pic`, the
// RV64GC attribute line, `unaligned_access 0`, `stack_align 16`.
func fileHeader() string {
	return "" +
		"\t.file\t\"duskc\"\n" +
		"\t.option pic\n" +
		"\t.attribute arch, \"rv64imafdc\"\n" +
		"\t.attribute unaligned_access, 0\n" +
		"\t.attribute stack_align, 16\n"
}

// fileFooter is spec.md §4.I's closing directives: the `.ident` build
// string (spec.md §6: "the build-time version constant is read, embedded
// into the .ident directive") and the GNU-stack note.
func fileFooter(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("\t.ident\t\"compiler: (visionfive2) %s\"\n"+
		"\t.section\t.note.GNU-stack,\"\",@progbits\n", version)
}
