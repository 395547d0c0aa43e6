// Command rose is the driver CLI spec.md §6 treats as an external
// collaborator to the VM core: "run"/"repl" wrap Interpret, "compile"
// and "disassemble" exercise the front end and pkg/bytecode's
// disassembler without persisting a binary chunk format (spec.md §6:
// "Chunk binary layout ... in-process only; not persisted"), and
// "version" reports the build.
package main

import (
	"os"

	"github.com/roselang/rose/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
