package vm

import (
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/roselang/rose/pkg/bytecode"
	"github.com/roselang/rose/pkg/gc"
	"github.com/roselang/rose/pkg/loader"
	"github.com/roselang/rose/pkg/value"
)

// isFatalIOError reports whether err originated from a failed
// include/import source read, which spec.md §7 treats as a fatal
// (process-exiting) condition rather than a recoverable runtime error.
func isFatalIOError(err error) bool {
	_, ok := err.(*loader.NotFoundError)
	return ok
}

// isFatalOOMError reports whether err is the allocator refusing an
// allocation past WithMaxBytes, which spec.md §7 treats the same way
// as a fatal I/O error: unrecoverable, not a script-level bug.
func isFatalOOMError(err error) bool {
	return errors.Is(err, gc.ErrOutOfMemory)
}

// metaString reads the top-level Chunk metadata contract (spec.md §6:
// "constants[0..2] hold [is_package_bool, exe_dir_string,
// source_dir_string]"), returning "" if the slot is absent or not a
// String — which a Chunk compiled without INCLUDE/IMPORT in scope is
// free to omit.
func metaString(chunk *bytecode.Chunk, idx int) string {
	if idx < 0 || idx >= len(chunk.Constants) {
		return ""
	}
	val := chunk.Constants[idx]
	if !val.IsObj() {
		return ""
	}
	s, ok := val.AsObj().(*value.String)
	if !ok {
		return ""
	}
	return s.Value
}

// doInclude implements the INCLUDE opcode: pop a String path, resolve
// it against the current chunk's source directory, compile and run it
// with 0 arguments.
func (v *VM) doInclude(frame *CallFrame) error {
	pathVal := v.pop()
	path, ok := stringOperand(pathVal)
	if !ok {
		return v.runtimeError("Include path must be a string.")
	}
	chunk := v.chunkOf(frame)
	scriptDir := metaString(chunk, 2)
	resolved := v.loader.ResolveInclude(scriptDir, path)
	return v.loadAndRun(resolved, filepath.Dir(resolved))
}

// doImport implements the IMPORT opcode: pop a String package name,
// resolve it under <exeDir>/packages/<name>/, compile and run it.
func (v *VM) doImport(frame *CallFrame) error {
	nameVal := v.pop()
	name, ok := stringOperand(nameVal)
	if !ok {
		return v.runtimeError("Import name must be a string.")
	}
	chunk := v.chunkOf(frame)
	exeDir := metaString(chunk, 1)
	if exeDir == "" {
		exeDir = v.exeDir
	}
	resolved := v.loader.ResolveImport(exeDir, name)
	return v.loadAndRun(resolved, filepath.Dir(resolved))
}

func (v *VM) loadAndRun(path, scriptDir string) error {
	source, err := v.loader.Read(path)
	if err != nil {
		return err
	}
	v.log.Debug("module load", zap.String("vm_id", v.id.String()), zap.String("path", path))
	if v.compile == nil {
		return v.runtimeError("No compiler configured for include/import.")
	}
	fn, err := v.compile(source, scriptDir, v.exeDir)
	if err != nil {
		return v.runtimeError("Compile error in '%s': %s", path, err.Error())
	}
	closure := v.NewClosure(fn)
	v.push(value.FromObj(closure))
	return v.callValue(value.FromObj(closure), 0)
}

func stringOperand(val value.Value) (string, bool) {
	if !isString(val) {
		return "", false
	}
	return asString(val).Value, true
}
