// Package vm implements the bytecode virtual machine: the value
// stack, the call-frame stack, the open-upvalue list, the global and
// interned-string tables, the decode/dispatch loop over the
// instruction set, the native-function bridge, and the
// mark-and-sweep garbage collector that cooperates with every
// allocation path (spec.md §4, §5).
//
// The VM is a value an embedder owns — not a process-wide singleton
// (spec.md §9 design note): two *VM instances never share state, each
// with its own stacks, tables, and object list.
package vm

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/roselang/rose/pkg/bytecode"
	"github.com/roselang/rose/pkg/gc"
	"github.com/roselang/rose/pkg/loader"
	"github.com/roselang/rose/pkg/table"
	"github.com/roselang/rose/pkg/value"
)

const (
	// StackMax is the fixed value-stack size: 64 frames x 256 slots
	// per frame, matching spec.md §4.1's recommendation.
	StackMax = FramesMax * 256
	// FramesMax is the fixed call-frame stack size.
	FramesMax = 64
)

// CallFrame is one activation record: the active Closure, the
// instruction pointer (a byte offset into the Closure's Function's
// Chunk), and the base slot of this frame within the value stack —
// slot 0 holds the callee itself, followed by `arity` argument slots
// (spec.md §4.1).
type CallFrame struct {
	Closure *value.Closure
	IP      int
	Slots   int // base index into vm.stack
}

// CompileFunc is the shape the external compiler the VM calls into to
// satisfy the INCLUDE/IMPORT opcodes and the top-level Interpret entry
// point must have (spec.md §1: "the compiler is specified only
// through the shape of the Function it produces"). source is the
// program text; scriptDir/exeDir seed the well-known constant slots
// (spec.md §6) a top-level Chunk carries.
type CompileFunc func(source, scriptDir, exeDir string) (*value.Function, error)

// InterpretResult is the outcome of Interpret, mirroring the three
// driver exit paths in spec.md §6/§7.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
	InterpretIOError
)

// VM is a single, independently-owned interpreter instance.
type VM struct {
	stack      [StackMax]value.Value
	stackTop   int
	frames     [FramesMax]CallFrame
	frameCount int

	openUpvalues *value.Upvalue // head of the decreasing-address open-upvalue list

	globals *table.Table
	strings *table.Interner
	objects value.Obj // head of the intrusive all-objects list

	constructorName *value.String
	destructorName  *value.String

	alloc *gc.Allocator
	grayStack []value.Obj
	fatalErr  error // set by track() when an allocation exceeds MaxBytes; dispatch halts on it

	compile CompileFunc
	fs      afero.Fs
	loader  *loader.Loader
	exeDir  string
	stdout  io.Writer

	log *zap.Logger
	id  uuid.UUID
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithCompiler sets the external compiler Interpret/INCLUDE/IMPORT
// call into. Without one, Interpret returns InterpretCompileError and
// INCLUDE/IMPORT raise a runtime error — the VM core can still run
// pre-built *value.Function values via Call directly, which is how
// the core's own tests exercise it without a front end.
func WithCompiler(c CompileFunc) Option { return func(v *VM) { v.compile = c } }

// WithFilesystem sets the afero.Fs the module loader reads source
// files from for INCLUDE/IMPORT. Defaults to afero.NewOsFs().
func WithFilesystem(fs afero.Fs) Option { return func(v *VM) { v.fs = fs } }

// WithLogger sets the structured logger the VM reports GC cycles and
// module loads to. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *VM) {
		if l != nil {
			v.log = l
		}
	}
}

// WithStressGC forces a collection on every allocation, for exercising
// the "GC safety" testable property (spec.md §8).
func WithStressGC() Option { return func(v *VM) { v.alloc.StressGC = true } }

// WithMaxBytes bounds the VM's accounted heap; exceeding it is a
// fatal out-of-memory condition (spec.md §7).
func WithMaxBytes(n int64) Option { return func(v *VM) { v.alloc.MaxBytes = n } }

// WithStdout sets the writer PRINT writes to. Defaults to os.Stdout;
// tests substitute a bytes.Buffer to assert on program output.
func WithStdout(w io.Writer) Option { return func(v *VM) { v.stdout = w } }

// New constructs and initializes a VM (the embedding API's init_vm):
// it resets the stacks, allocates the intern and global tables, interns
// the distinguished "construct"/"destruct" names, and registers the
// built-in native library.
func New(opts ...Option) *VM {
	v := &VM{
		globals: table.New(),
		strings: table.NewInterner(),
		alloc:   gc.New(),
		fs:      afero.NewOsFs(),
		stdout:  os.Stdout,
		log:     zap.NewNop(),
		id:      uuid.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.loader = loader.New(v.fs)
	v.constructorName = v.InternString(bytecode.ConstructorName)
	v.destructorName = v.InternString(bytecode.DestructorName)
	v.registerStdlib()
	return v
}

// Free releases all VM-owned memory (the embedding API's free_vm):
// the globals table, the intern table, the distinguished name
// symbols, and the object list are all cleared, leaving the VM
// unusable until reconstructed with New.
func (v *VM) Free() {
	v.globals = nil
	v.strings = nil
	v.constructorName = nil
	v.destructorName = nil
	v.objects = nil
	v.openUpvalues = nil
	v.stackTop = 0
	v.frameCount = 0
}

// ID returns this VM instance's run id, for correlating log output
// across multiple concurrently-embedded engines.
func (v *VM) ID() uuid.UUID { return v.id }

// Interpret compiles source via the configured CompileFunc, wraps the
// result in a Closure, pushes it as frame 0, and runs it to
// completion (spec.md §6's `interpret`).
func (v *VM) Interpret(source, scriptDir, exeDir string) InterpretResult {
	if v.compile == nil {
		v.log.Error("interpret called with no compiler configured")
		return InterpretCompileError
	}
	v.exeDir = exeDir
	fn, err := v.compile(source, scriptDir, exeDir)
	if err != nil {
		v.log.Warn("compile error", zap.Error(err))
		return InterpretCompileError
	}
	return v.run(fn)
}

// run wraps fn in a Closure, pushes it as frame 0, and drives the
// dispatch loop, translating any runtime error into the driver-facing
// InterpretRuntimeError result (spec.md §7).
func (v *VM) run(fn *value.Function) InterpretResult {
	closure := v.NewClosure(fn)
	v.push(value.FromObj(closure))
	if err := v.call(closure, 0); err != nil {
		v.reportRuntimeError(err)
		return InterpretRuntimeError
	}
	if err := v.dispatch(); err != nil {
		if isFatalIOError(err) || isFatalOOMError(err) {
			v.log.Error("fatal error", zapErr(err))
			v.reportRuntimeError(err)
			return InterpretIOError
		}
		v.reportRuntimeError(err)
		return InterpretRuntimeError
	}
	v.pop()
	return InterpretOK
}

// Call invokes a pre-built closure directly with the given arguments,
// bypassing Interpret/the compiler entirely. This is how the VM
// core's own tests exercise closures, classes, and upvalues without a
// front end — spec.md §1 treats the compiler as an external
// collaborator, so the core must be independently drivable.
func (v *VM) Call(closure *value.Closure, args ...value.Value) (value.Value, error) {
	base := v.stackTop
	v.push(value.FromObj(closure))
	for _, a := range args {
		v.push(a)
	}
	if err := v.call(closure, len(args)); err != nil {
		v.stackTop = base
		return value.Nil, err
	}
	if err := v.dispatch(); err != nil {
		v.stackTop = base
		return value.Nil, err
	}
	result := v.stack[v.stackTop-1]
	v.stackTop = base
	return result, nil
}

// StackTop returns the value currently on top of the stack, or Nil if
// empty. Mirrors the teacher's debugging convenience of the same
// name.
func (v *VM) StackTop() value.Value {
	if v.stackTop == 0 {
		return value.Nil
	}
	return v.stack[v.stackTop-1]
}

// push and pop are the unchecked hot-path stack primitives spec.md
// §4.1 calls for: "push/pop do not check bounds in hot paths; callers
// ensure chunks are well-formed via the compiler." They are also part
// of the embedding API natives can use directly.
func (v *VM) push(val value.Value) {
	v.stack[v.stackTop] = val
	v.stackTop++
}

func (v *VM) pop() value.Value {
	v.stackTop--
	return v.stack[v.stackTop]
}

func (v *VM) peek(distance int) value.Value {
	return v.stack[v.stackTop-1-distance]
}

// Push and Pop are the exported, embedding-API spellings of push/pop
// for native functions (spec.md §6).
func (v *VM) Push(val value.Value) { v.push(val) }
func (v *VM) Pop() value.Value     { return v.pop() }

// GetGlobal reads a global variable by name, the embedding-side
// counterpart of DefineGlobal.
func (v *VM) GetGlobal(name string) (value.Value, bool) {
	return v.globals.Get(v.InternString(name))
}

// DefineGlobal interns name and sets it in the globals table
// (spec.md §6 `define_global`).
func (v *VM) DefineGlobal(name string, val value.Value) {
	v.globals.Set(v.InternString(name), val)
}

func (v *VM) currentFrame() *CallFrame { return &v.frames[v.frameCount-1] }

func (v *VM) readByte(f *CallFrame) byte {
	b := f.Closure.Function.Chunk.(*bytecode.Chunk).Code[f.IP]
	f.IP++
	return b
}

func (v *VM) readU32(f *CallFrame) uint32 {
	code := f.Closure.Function.Chunk.(*bytecode.Chunk).Code
	n := uint32(code[f.IP]) | uint32(code[f.IP+1])<<8 | uint32(code[f.IP+2])<<16 | uint32(code[f.IP+3])<<24
	f.IP += 4
	return n
}

func (v *VM) readU16BE(f *CallFrame) uint16 {
	code := f.Closure.Function.Chunk.(*bytecode.Chunk).Code
	n := uint16(code[f.IP])<<8 | uint16(code[f.IP+1])
	f.IP += 2
	return n
}

func (v *VM) readConstant(f *CallFrame, idx uint32) value.Value {
	return f.Closure.Function.Chunk.(*bytecode.Chunk).Constants[idx]
}

func (v *VM) chunkOf(f *CallFrame) *bytecode.Chunk {
	return f.Closure.Function.Chunk.(*bytecode.Chunk)
}

func typeName(val value.Value) string {
	if k, ok := val.ObjKind(); ok {
		return k.String()
	}
	switch val.Kind() {
	case value.ValNil:
		return "nil"
	case value.ValBool:
		return "bool"
	case value.ValNumber:
		return "number"
	case value.ValNative:
		return "native"
	default:
		return "value"
	}
}
