package compiler

import (
	"testing"

	"github.com/roselang/rose/pkg/bytecode"
	"github.com/roselang/rose/pkg/vm"
)

func chunkOf(t *testing.T, source string) *bytecode.Chunk {
	t.Helper()
	v := vm.New()
	c := New(v)
	fn, err := c.Compile(source, ".", ".")
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", source, err)
	}
	chunk, ok := fn.Chunk.(*bytecode.Chunk)
	if !ok {
		t.Fatalf("compiled Function carries no *bytecode.Chunk")
	}
	return chunk
}

func opsOf(chunk *bytecode.Chunk) []bytecode.OpCode {
	var ops []bytecode.OpCode
	for off := 0; off < len(chunk.Code); {
		ops = append(ops, bytecode.OpCode(chunk.Code[off]))
		off, _ = bytecode.DisassembleInstruction(chunk, off)
	}
	return ops
}

func TestCompileNumberLiteral(t *testing.T) {
	chunk := chunkOf(t, "1;")
	ops := opsOf(chunk)
	want := []bytecode.OpCode{bytecode.OpConstantLong, bytecode.OpPop, bytecode.OpNil, bytecode.OpReturn}
	if !equalOps(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
}

func TestCompileGlobalVarDeclaration(t *testing.T) {
	chunk := chunkOf(t, "var x = 42;")
	ops := opsOf(chunk)
	want := []bytecode.OpCode{bytecode.OpConstantLong, bytecode.OpDefineGlobal, bytecode.OpNil, bytecode.OpReturn}
	if !equalOps(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
}

func TestCompileLocalVarUsesGetSetLocal(t *testing.T) {
	chunk := chunkOf(t, "{ var x = 1; x = 2; }")
	ops := opsOf(chunk)
	found := false
	for _, op := range ops {
		if op == bytecode.OpSetLocal {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a SET_LOCAL instruction for a block-scoped assignment, got ops %v", ops)
	}
}

func TestCompileIfEmitsJumps(t *testing.T) {
	chunk := chunkOf(t, "if (true) { 1; } else { 2; }")
	ops := opsOf(chunk)
	hasJumpIfFalse, hasJump := false, false
	for _, op := range ops {
		if op == bytecode.OpJumpIfFalse {
			hasJumpIfFalse = true
		}
		if op == bytecode.OpJump {
			hasJump = true
		}
	}
	if !hasJumpIfFalse || !hasJump {
		t.Errorf("if/else should emit both JUMP_IF_FALSE and JUMP, got ops %v", ops)
	}
}

func TestCompileWhileEmitsLoop(t *testing.T) {
	chunk := chunkOf(t, "while (false) { 1; }")
	ops := opsOf(chunk)
	found := false
	for _, op := range ops {
		if op == bytecode.OpLoop {
			found = true
		}
	}
	if !found {
		t.Errorf("while should emit a LOOP instruction, got ops %v", ops)
	}
}

func TestCompileFunctionEmitsClosure(t *testing.T) {
	chunk := chunkOf(t, "fun greet() { return 1; }")
	ops := opsOf(chunk)
	found := false
	for _, op := range ops {
		if op == bytecode.OpClosure {
			found = true
		}
	}
	if !found {
		t.Errorf("a function declaration should emit CLOSURE, got ops %v", ops)
	}
}

func TestCompileClassEmitsClassAndMethod(t *testing.T) {
	chunk := chunkOf(t, "class Point { construct(x) { this.x = x; } }")
	ops := opsOf(chunk)
	hasClass, hasMethod := false, false
	for _, op := range ops {
		if op == bytecode.OpClass {
			hasClass = true
		}
		if op == bytecode.OpMethod {
			hasMethod = true
		}
	}
	if !hasClass || !hasMethod {
		t.Errorf("a class declaration should emit CLASS and METHOD, got ops %v", ops)
	}
}

func TestCompileSuperOutsideClassIsAnError(t *testing.T) {
	v := newTestVM()
	c := New(v)
	_, err := c.Compile("fun f() { super.go(); }", ".", ".")
	if err == nil {
		t.Errorf("expected a compile error for 'super' used outside a class")
	}
}

func TestCompileReturnFromTopLevelIsAnError(t *testing.T) {
	v := newTestVM()
	c := New(v)
	_, err := c.Compile("return 1;", ".", ".")
	if err == nil {
		t.Errorf("expected a compile error for 'return' at top level")
	}
}

func TestCompileConstructorReturnValueIsAnError(t *testing.T) {
	v := newTestVM()
	c := New(v)
	_, err := c.Compile("class C { construct() { return 1; } }", ".", ".")
	if err == nil {
		t.Errorf("expected a compile error for a constructor returning a value")
	}
}

func TestCompileArrayLiteralEmitsArrayOpWithCount(t *testing.T) {
	chunk := chunkOf(t, "[1, 2, 3];")
	ops := opsOf(chunk)
	found := false
	for off := 0; off < len(chunk.Code); {
		op := bytecode.OpCode(chunk.Code[off])
		next, _ := bytecode.DisassembleInstruction(chunk, off)
		if op == bytecode.OpArray {
			found = true
			count := uint32(chunk.Code[off+1]) | uint32(chunk.Code[off+2])<<8 |
				uint32(chunk.Code[off+3])<<16 | uint32(chunk.Code[off+4])<<24
			if count != 3 {
				t.Errorf("ARRAY operand = %d, want 3", count)
			}
		}
		off = next
	}
	if !found {
		t.Errorf("array literal should emit ARRAY, got ops %v", ops)
	}
}

func TestCompileMetadataConstantsReservedFirst(t *testing.T) {
	v := newTestVM()
	c := New(v)
	fn, err := c.Compile("1;", "/scripts", "/exe")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	chunk := fn.Chunk.(*bytecode.Chunk)
	if len(chunk.Constants) < 3 {
		t.Fatalf("expected at least 3 reserved constants, got %d", len(chunk.Constants))
	}
	if !chunk.Constants[0].IsBool() || chunk.Constants[0].AsBool() != false {
		t.Errorf("constants[0] should be the is_package flag, false by default")
	}
}

func equalOps(got, want []bytecode.OpCode) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func newTestVM() *vm.VM { return vm.New() }
