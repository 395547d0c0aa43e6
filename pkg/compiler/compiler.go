// Package compiler walks the pkg/ast node set the parser produces and
// emits pkg/bytecode.Chunk instructions, one *funcScope per compiled
// function (nested for closures, exactly as clox's C compiler nests
// Compiler structs on the C stack — here as a Go linked list via
// `enclosing`). It resolves locals and upvalues, tracks scope depth,
// and is the sole producer of the vm.CompileFunc the VM core needs to
// run anything (spec.md §1: "the compiler is specified only through
// the shape of the Function it produces").
package compiler

import (
	"fmt"

	"github.com/roselang/rose/pkg/ast"
	"github.com/roselang/rose/pkg/bytecode"
	"github.com/roselang/rose/pkg/parser"
	"github.com/roselang/rose/pkg/value"
	"github.com/roselang/rose/pkg/vm"
)

// objectHeap is the subset of *vm.VM the compiler needs to allocate
// heap objects (Functions, Strings) through the same allocator and
// interning table the running program will use, rather than
// maintaining a second, disconnected heap.
type objectHeap interface {
	InternString(s string) *value.String
	NewFunction() *value.Function
}

type funcType int

const (
	funcTypeScript funcType = iota
	funcTypeFunction
	funcTypeMethod
	funcTypeConstructor
)

// local is one entry in a funcScope's local-variable stack.
type local struct {
	name       string
	depth      int // -1 while being declared, before its initializer runs
	isCaptured bool
}

// upvalRef records how a funcScope's Nth upvalue is sourced: from the
// immediately enclosing function's locals (isLocal) or from that
// function's own upvalue array (recursively).
type upvalRef struct {
	index   int
	isLocal bool
}

// funcScope is the compiler's per-function compilation state, chained
// to its lexically enclosing function's scope exactly as clox chains
// `Compiler* enclosing`.
type funcScope struct {
	enclosing  *funcScope
	fn         *value.Function
	chunk      *bytecode.Chunk
	fnType     funcType
	locals     []local
	scopeDepth int
	upvalues   []upvalRef
}

// classScope tracks whether the class currently being compiled has a
// superclass, needed to know whether `super` resolves.
type classScope struct {
	enclosing     *classScope
	hasSuperclass bool
}

// Compiler compiles rose source into a top-level *value.Function,
// allocating every heap object it needs (Strings, Functions) through
// the vm.VM it was constructed with so the compiled program shares one
// heap and one intern table with the VM that will run it.
type Compiler struct {
	heap    objectHeap
	current *funcScope
	class   *classScope
	errs    []string
}

// New returns a Compiler that allocates through heap (normally a *vm.VM).
func New(heap objectHeap) *Compiler {
	return &Compiler{heap: heap}
}

// CompileFunc returns a vm.CompileFunc closure bound to this
// Compiler's heap, the shape vm.WithCompiler and the INCLUDE/IMPORT
// opcodes both need.
func CompileFunc(heap objectHeap) vm.CompileFunc {
	return func(source, scriptDir, exeDir string) (*value.Function, error) {
		c := &Compiler{heap: heap}
		return c.Compile(source, scriptDir, exeDir)
	}
}

// Compile parses source and emits a top-level Function whose Chunk's
// Constants[0..2] carry the module-loader metadata contract (spec.md
// §6): [is_package_bool, exe_dir_string, source_dir_string].
func (c *Compiler) Compile(source, scriptDir, exeDir string) (*value.Function, error) {
	stmts, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}

	fn := c.heap.NewFunction()
	chunk := bytecode.NewChunk()
	fn.Chunk = chunk
	c.current = &funcScope{fn: fn, chunk: chunk, fnType: funcTypeScript}
	c.current.locals = append(c.current.locals, local{name: "", depth: 0})

	chunk.AddConstant(value.Bool(false))
	chunk.AddConstant(value.FromObj(c.heap.InternString(exeDir)))
	chunk.AddConstant(value.FromObj(c.heap.InternString(scriptDir)))

	for _, s := range stmts {
		c.statement(s)
	}
	c.emitByte(byte(bytecode.OpNil), 0)
	c.emitByte(byte(bytecode.OpReturn), 0)

	if len(c.errs) > 0 {
		return nil, fmt.Errorf("%s", c.errs[0])
	}
	return fn, nil
}

func (c *Compiler) error(line int, msg string) {
	c.errs = append(c.errs, fmt.Sprintf("[line %d] Error: %s", line, msg))
}

// ---- low-level emit helpers ----

func (c *Compiler) emitByte(b byte, line int) { c.current.chunk.WriteByte(b, line) }

func (c *Compiler) emitOp(op bytecode.OpCode, line int) { c.current.chunk.WriteOp(op, line) }

func (c *Compiler) emitU32(v uint32, line int) { c.current.chunk.WriteU32(v, line) }

func (c *Compiler) emitConstantOp(op bytecode.OpCode, constIdx int, line int) {
	c.emitOp(op, line)
	c.emitU32(uint32(constIdx), line)
}

// emitJump writes op followed by a placeholder 2-byte offset, return
// the offset to patch once the jump target is known.
func (c *Compiler) emitJump(op bytecode.OpCode, line int) int {
	c.emitOp(op, line)
	return c.current.chunk.WriteU16BE(0xFFFF, line)
}

func (c *Compiler) patchJump(offset int) {
	jumpLen := len(c.current.chunk.Code) - (offset + 2)
	c.current.chunk.PatchU16BE(offset, uint16(jumpLen))
}

func (c *Compiler) emitLoop(loopStart int, line int) {
	c.emitOp(bytecode.OpLoop, line)
	back := len(c.current.chunk.Code) - loopStart + 2
	c.current.chunk.WriteU16BE(uint16(back), line)
}

func (c *Compiler) makeConstant(v value.Value) int {
	return c.current.chunk.AddConstant(v)
}

func (c *Compiler) internConstant(name string) int {
	return c.makeConstant(value.FromObj(c.heap.InternString(name)))
}

// ---- scope / local / upvalue bookkeeping ----
//
// This mirrors clox's Compiler: one flat `locals` slice per funcScope,
// a scopeDepth counter, and slot indices that exactly match the stack
// offsets GET_LOCAL/SET_LOCAL address at runtime — slot 0 is always
// the callee itself (a plain function) or the receiver (a method),
// reserved before any parameter is declared.

func (c *Compiler) beginScope() { c.current.scopeDepth++ }

// endScope pops every local declared in the scope being left. A local
// that was ever captured by a nested closure must be closed (its
// value copied off the stack into the Upvalue) rather than simply
// popped, so its closure keeps observing it after the slot is gone.
func (c *Compiler) endScope(line int) {
	c.current.scopeDepth--
	locals := c.current.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > c.current.scopeDepth {
		last := locals[len(locals)-1]
		if last.isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue, line)
		} else {
			c.emitOp(bytecode.OpPop, line)
		}
		locals = locals[:len(locals)-1]
	}
	c.current.locals = locals
}

// declareLocal records name as a new local in the current scope. At
// global scope (depth 0) it is a no-op: globals are resolved by name
// at runtime, not given a stack slot.
func (c *Compiler) declareLocal(name string) {
	if c.current.scopeDepth == 0 {
		return
	}
	for i := len(c.current.locals) - 1; i >= 0; i-- {
		l := c.current.locals[i]
		if l.depth != -1 && l.depth < c.current.scopeDepth {
			break
		}
		if l.name == name {
			c.error(0, fmt.Sprintf("already a variable named '%s' in this scope.", name))
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	c.current.locals = append(c.current.locals, local{name: name, depth: -1})
}

// markInitialized promotes the most recently declared local from
// "being declared" (depth -1) to the current scope depth, so it
// becomes visible to code compiled after it (including, for a named
// function declaration, the function's own recursive calls).
func (c *Compiler) markInitialized() {
	if c.current.scopeDepth == 0 {
		return
	}
	c.current.locals[len(c.current.locals)-1].depth = c.current.scopeDepth
}

// defineVariable finishes a variable declaration: a local just needs
// marking initialized (its value is already sitting in its slot); a
// global needs an explicit DEFINE_GLOBAL against the interned name.
func (c *Compiler) defineVariable(name string, line int) {
	if c.current.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	idx := c.internConstant(name)
	c.emitConstantOp(bytecode.OpDefineGlobal, idx, line)
}

// resolveLocal finds name among fs's own locals, searching innermost
// first so shadowing works.
func resolveLocal(fs *funcScope, name string) (int, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

// resolveUpvalue finds name in an enclosing function's locals or its
// own upvalues, recursively, threading an upvalue reference through
// every function scope between the reference and the local's true
// home — exactly the CLOSURE opcode's (is_local, index) pair chain.
func (c *Compiler) resolveUpvalue(fs *funcScope, name string) (int, bool) {
	if fs.enclosing == nil {
		return -1, false
	}
	if idx, ok := resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[idx].isCaptured = true
		return c.addUpvalue(fs, idx, true), true
	}
	if idx, ok := c.resolveUpvalue(fs.enclosing, name); ok {
		return c.addUpvalue(fs, idx, false), true
	}
	return -1, false
}

func (c *Compiler) addUpvalue(fs *funcScope, index int, isLocal bool) int {
	for i, u := range fs.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	fs.upvalues = append(fs.upvalues, upvalRef{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}

// compileVariable emits the read sequence for name: local, upvalue, or
// global, in that order of preference — shadowing a global with a
// local or upvalue of the same name is intentional.
func (c *Compiler) compileVariable(name string, line int) {
	if idx, ok := resolveLocal(c.current, name); ok {
		c.emitOp(bytecode.OpGetLocal, line)
		c.emitU32(uint32(idx), line)
		return
	}
	if idx, ok := c.resolveUpvalue(c.current, name); ok {
		c.emitOp(bytecode.OpGetUpvalue, line)
		c.emitByte(byte(idx), line)
		return
	}
	idx := c.internConstant(name)
	c.emitConstantOp(bytecode.OpGetGlobal, idx, line)
}

// compileAssign emits the write sequence for name, mirroring
// compileVariable's resolution order. The value to store must already
// be on top of the stack.
func (c *Compiler) compileAssign(name string, line int) {
	if idx, ok := resolveLocal(c.current, name); ok {
		c.emitOp(bytecode.OpSetLocal, line)
		c.emitU32(uint32(idx), line)
		return
	}
	if idx, ok := c.resolveUpvalue(c.current, name); ok {
		c.emitOp(bytecode.OpSetUpvalue, line)
		c.emitByte(byte(idx), line)
		return
	}
	idx := c.internConstant(name)
	c.emitConstantOp(bytecode.OpSetGlobal, idx, line)
}

// ---- statements ----

func (c *Compiler) statement(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.ExprStmt:
		c.expression(st.Expr)
		c.emitOp(bytecode.OpPop, st.Line())
	case *ast.PrintStmt:
		c.expression(st.Expr)
		c.emitOp(bytecode.OpPrint, st.Line())
	case *ast.VarStmt:
		c.varDeclStmt(st)
	case *ast.BlockStmt:
		c.beginScope()
		for _, inner := range st.Stmts {
			c.statement(inner)
		}
		c.endScope(st.Line())
	case *ast.IfStmt:
		c.ifStmt(st)
	case *ast.WhileStmt:
		c.whileStmt(st)
	case *ast.ReturnStmt:
		c.returnStmt(st)
	case *ast.FunStmt:
		c.funStmt(st)
	case *ast.ClassStmt:
		c.classStmt(st)
	case *ast.IncludeStmt:
		c.expression(st.Path)
		c.emitOp(bytecode.OpInclude, st.Line())
	case *ast.ImportStmt:
		c.expression(st.Name)
		c.emitOp(bytecode.OpImport, st.Line())
	default:
		c.error(s.Line(), fmt.Sprintf("unsupported statement %T", s))
	}
}

func (c *Compiler) varDeclStmt(s *ast.VarStmt) {
	c.declareLocal(s.Name)
	if s.Init != nil {
		c.expression(s.Init)
	} else {
		c.emitOp(bytecode.OpNil, s.Line())
	}
	c.defineVariable(s.Name, s.Line())
}

func (c *Compiler) ifStmt(s *ast.IfStmt) {
	line := s.Line()
	c.expression(s.Cond)
	thenJump := c.emitJump(bytecode.OpJumpIfFalse, line)
	c.emitOp(bytecode.OpPop, line)
	c.statement(s.Then)
	elseJump := c.emitJump(bytecode.OpJump, line)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop, line)
	if s.Else != nil {
		c.statement(s.Else)
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStmt(s *ast.WhileStmt) {
	line := s.Line()
	loopStart := len(c.current.chunk.Code)
	c.expression(s.Cond)
	exitJump := c.emitJump(bytecode.OpJumpIfFalse, line)
	c.emitOp(bytecode.OpPop, line)
	c.statement(s.Body)
	c.emitLoop(loopStart, line)
	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop, line)
}

func (c *Compiler) returnStmt(s *ast.ReturnStmt) {
	line := s.Line()
	if c.current.fnType == funcTypeScript {
		c.error(line, "can't return from top-level code.")
	}
	if s.Value == nil {
		if c.current.fnType == funcTypeConstructor {
			c.emitOp(bytecode.OpGetLocal, line)
			c.emitU32(0, line)
		} else {
			c.emitOp(bytecode.OpNil, line)
		}
	} else {
		if c.current.fnType == funcTypeConstructor {
			c.error(line, "can't return a value from a constructor.")
		}
		c.expression(s.Value)
	}
	c.emitOp(bytecode.OpReturn, line)
}

func (c *Compiler) funStmt(s *ast.FunStmt) {
	c.declareLocal(s.Name)
	if c.current.scopeDepth > 0 {
		c.markInitialized()
	}
	c.compileFunction(s, funcTypeFunction)
	c.defineVariable(s.Name, s.Line())
}

// compileFunction compiles decl into its own Function/Chunk, nesting
// a fresh funcScope off c.current the way clox nests Compiler structs
// on the C call stack. Slot 0 is reserved before anything else: the
// receiver ("this") for a method or constructor, unnamed otherwise.
// On return, the freshly compiled Function is wrapped in a CLOSURE
// instruction in the *enclosing* scope, followed by one (is_local,
// index) byte pair per upvalue the body captured.
func (c *Compiler) compileFunction(decl *ast.FunStmt, ft funcType) {
	fn := c.heap.NewFunction()
	fn.Arity = len(decl.Params)
	fn.Name = c.heap.InternString(decl.Name)
	chunk := bytecode.NewChunk()
	fn.Chunk = chunk
	// Copy the script chunk's Constants[0..2] metadata so INCLUDE/IMPORT
	// inside a function body resolve against the same directories.
	root := c.current
	for root.enclosing != nil {
		root = root.enclosing
	}
	for _, k := range root.chunk.Constants[:3] {
		chunk.AddConstant(k)
	}

	scope := &funcScope{enclosing: c.current, fn: fn, chunk: chunk, fnType: ft}
	receiver := ""
	if ft == funcTypeMethod || ft == funcTypeConstructor {
		receiver = "this"
	}
	scope.locals = append(scope.locals, local{name: receiver, depth: 0})
	c.current = scope

	c.beginScope()
	for _, p := range decl.Params {
		c.declareLocal(p)
		c.markInitialized()
	}
	for _, st := range decl.Body {
		c.statement(st)
	}
	line := decl.Line()
	if ft == funcTypeConstructor {
		c.emitOp(bytecode.OpGetLocal, line)
		c.emitU32(0, line)
	} else {
		c.emitOp(bytecode.OpNil, line)
	}
	c.emitOp(bytecode.OpReturn, line)

	upvals := c.current.upvalues
	fn.UpvalueCount = len(upvals)
	c.current = scope.enclosing

	constIdx := c.makeConstant(value.FromObj(fn))
	c.emitConstantOp(bytecode.OpClosure, constIdx, line)
	for _, u := range upvals {
		isLocal := byte(0)
		if u.isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal, line)
		c.emitByte(byte(u.index), line)
	}
}

// classStmt compiles a class declaration: CLASS to create the empty
// class object, an optional INHERIT against a resolved superclass
// (with "super" bound as a local/upvalue-capturable name for the
// class body's methods), then one CLOSURE+METHOD pair per method.
// `construct` compiles as funcTypeConstructor so `return <value>;`
// inside it is rejected at compile time (spec.md's constructor has no
// return value of its own — it always yields the new instance).
func (c *Compiler) classStmt(s *ast.ClassStmt) {
	line := s.Line()
	c.declareLocal(s.Name)
	nameConst := c.internConstant(s.Name)
	c.emitConstantOp(bytecode.OpClass, nameConst, line)
	c.defineVariable(s.Name, line)

	enclosingClass := c.class
	c.class = &classScope{enclosing: enclosingClass}

	if s.Superclass != nil {
		if s.Superclass.Name == s.Name {
			c.error(line, "a class can't inherit from itself.")
		}
		c.compileVariable(s.Superclass.Name, s.Superclass.Line())
		c.beginScope()
		c.addLocal("super")
		c.markInitialized()
		c.compileVariable(s.Name, line)
		c.emitOp(bytecode.OpInherit, line)
		c.class.hasSuperclass = true
	}

	c.compileVariable(s.Name, line)
	for _, m := range s.Methods {
		ft := funcTypeMethod
		if m.Name == bytecode.ConstructorName {
			ft = funcTypeConstructor
		}
		methodConst := c.internConstant(m.Name)
		c.compileFunction(m, ft)
		c.emitConstantOp(bytecode.OpMethod, methodConst, m.Line())
	}
	c.emitOp(bytecode.OpPop, line)

	if s.Superclass != nil {
		c.endScope(line)
	}
	c.class = enclosingClass
}

// ---- expressions ----

func (c *Compiler) expression(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.NumberExpr:
		idx := c.makeConstant(value.Number(ex.Value))
		c.emitConstantOp(bytecode.OpConstantLong, idx, ex.Line())
	case *ast.StringExpr:
		idx := c.internConstant(ex.Value)
		c.emitConstantOp(bytecode.OpConstantLong, idx, ex.Line())
	case *ast.BoolExpr:
		if ex.Value {
			c.emitOp(bytecode.OpTrue, ex.Line())
		} else {
			c.emitOp(bytecode.OpFalse, ex.Line())
		}
	case *ast.NilExpr:
		c.emitOp(bytecode.OpNil, ex.Line())
	case *ast.ArrayExpr:
		for _, el := range ex.Elements {
			c.expression(el)
		}
		c.emitOp(bytecode.OpArray, ex.Line())
		c.emitU32(uint32(len(ex.Elements)), ex.Line())
	case *ast.VariableExpr:
		c.compileVariable(ex.Name, ex.Line())
	case *ast.ThisExpr:
		if c.current.fnType != funcTypeMethod && c.current.fnType != funcTypeConstructor {
			c.error(ex.Line(), "can't use 'this' outside of a class.")
		}
		c.compileVariable("this", ex.Line())
	case *ast.SuperExpr:
		c.compileSuper(ex)
	case *ast.AssignExpr:
		c.expression(ex.Value)
		c.compileAssign(ex.Name, ex.Line())
	case *ast.UnaryExpr:
		c.expression(ex.Operand)
		switch ex.Op {
		case "-":
			c.emitOp(bytecode.OpNegate, ex.Line())
		case "!":
			c.emitOp(bytecode.OpNot, ex.Line())
		default:
			c.error(ex.Line(), fmt.Sprintf("unknown unary operator %q", ex.Op))
		}
	case *ast.BinaryExpr:
		c.compileBinary(ex)
	case *ast.LogicalExpr:
		c.compileLogical(ex)
	case *ast.CallExpr:
		c.expression(ex.Callee)
		for _, a := range ex.Args {
			c.expression(a)
		}
		c.emitOp(bytecode.OpCall, ex.Line())
		c.emitByte(byte(len(ex.Args)), ex.Line())
	case *ast.GetExpr:
		c.expression(ex.Object)
		idx := c.internConstant(ex.Name)
		c.emitConstantOp(bytecode.OpGetProperty, idx, ex.Line())
	case *ast.SetExpr:
		c.expression(ex.Object)
		c.expression(ex.Value)
		idx := c.internConstant(ex.Name)
		c.emitConstantOp(bytecode.OpSetProperty, idx, ex.Line())
	case *ast.InvokeExpr:
		c.expression(ex.Object)
		for _, a := range ex.Args {
			c.expression(a)
		}
		idx := c.internConstant(ex.Method)
		c.emitConstantOp(bytecode.OpInvoke, idx, ex.Line())
		c.emitByte(byte(len(ex.Args)), ex.Line())
	case *ast.SuperInvokeExpr:
		c.compileSuperInvoke(ex)
	default:
		c.error(e.Line(), fmt.Sprintf("unsupported expression %T", e))
	}
}

func (c *Compiler) compileBinary(ex *ast.BinaryExpr) {
	c.expression(ex.Left)
	c.expression(ex.Right)
	line := ex.Line()
	switch ex.Op {
	case "+":
		c.emitOp(bytecode.OpAdd, line)
	case "-":
		c.emitOp(bytecode.OpSubtract, line)
	case "*":
		c.emitOp(bytecode.OpMultiply, line)
	case "/":
		c.emitOp(bytecode.OpDivide, line)
	case ">":
		c.emitOp(bytecode.OpGreater, line)
	case "<":
		c.emitOp(bytecode.OpLess, line)
	case ">=":
		c.emitOp(bytecode.OpLess, line)
		c.emitOp(bytecode.OpNot, line)
	case "<=":
		c.emitOp(bytecode.OpGreater, line)
		c.emitOp(bytecode.OpNot, line)
	case "==":
		c.emitOp(bytecode.OpEqual, line)
	case "!=":
		c.emitOp(bytecode.OpEqual, line)
		c.emitOp(bytecode.OpNot, line)
	default:
		c.error(line, fmt.Sprintf("unknown binary operator %q", ex.Op))
	}
}

// compileLogical short-circuits `and`/`or` with jumps rather than
// always evaluating both operands — JUMP_IF_FALSE peeks, not pops, so
// the surviving branch's value is left on the stack as the result.
func (c *Compiler) compileLogical(ex *ast.LogicalExpr) {
	line := ex.Line()
	c.expression(ex.Left)
	if ex.Op == "and" {
		endJump := c.emitJump(bytecode.OpJumpIfFalse, line)
		c.emitOp(bytecode.OpPop, line)
		c.expression(ex.Right)
		c.patchJump(endJump)
		return
	}
	elseJump := c.emitJump(bytecode.OpJumpIfFalse, line)
	endJump := c.emitJump(bytecode.OpJump, line)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop, line)
	c.expression(ex.Right)
	c.patchJump(endJump)
}

// compileSuper emits `super.method` as GET_SUPER: push the receiver
// ("this"), push the resolved superclass (bound as "super" when the
// enclosing class was compiled), then GET_SUPER pops the superclass
// and binds method against the receiver still underneath it.
func (c *Compiler) compileSuper(ex *ast.SuperExpr) {
	c.checkSuperUsable(ex.Line())
	c.compileVariable("this", ex.Line())
	c.compileVariable("super", ex.Line())
	idx := c.internConstant(ex.Method)
	c.emitConstantOp(bytecode.OpGetSuper, idx, ex.Line())
}

// compileSuperInvoke emits `super.method(args)` as SUPER_INVOKE: the
// receiver, then the arguments, then the superclass on top — matching
// SUPER_INVOKE's "pop the superclass [then] invoke ... against the
// current receiver" (spec.md §4.6), with the receiver and arguments
// left in exactly the layout a subsequent CALL-style frame expects.
func (c *Compiler) compileSuperInvoke(ex *ast.SuperInvokeExpr) {
	c.checkSuperUsable(ex.Line())
	c.compileVariable("this", ex.Line())
	for _, a := range ex.Args {
		c.expression(a)
	}
	c.compileVariable("super", ex.Line())
	idx := c.internConstant(ex.Method)
	c.emitConstantOp(bytecode.OpSuperInvoke, idx, ex.Line())
	c.emitByte(byte(len(ex.Args)), ex.Line())
}

func (c *Compiler) checkSuperUsable(line int) {
	if c.class == nil {
		c.error(line, "can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error(line, "can't use 'super' in a class with no superclass.")
	}
}
