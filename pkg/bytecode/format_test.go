package bytecode

import (
	"strings"
	"testing"

	"github.com/roselang/rose/pkg/value"
)

func TestDisassembleConstant(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(value.Number(7))
	c.WriteOp(OpConstantLong, 1)
	c.WriteU32(uint32(idx), 1)
	c.WriteOp(OpReturn, 1)

	out := Disassemble(c, "test chunk")
	if !strings.Contains(out, "== test chunk ==") {
		t.Errorf("Disassemble output missing header: %q", out)
	}
	if !strings.Contains(out, "CONSTANT_LONG") {
		t.Errorf("Disassemble output missing CONSTANT_LONG: %q", out)
	}
	if !strings.Contains(out, "'7'") {
		t.Errorf("Disassemble output missing rendered constant: %q", out)
	}
}

func TestDisassembleInstructionAdvancesByOperandWidth(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpGetUpvalue, 1)
	c.WriteByte(2, 1)
	c.WriteOp(OpReturn, 2)

	next, line := DisassembleInstruction(c, 0)
	if next != 2 {
		t.Errorf("next offset after GET_UPVALUE = %d, want 2", next)
	}
	if !strings.Contains(line, "GET_UPVALUE") {
		t.Errorf("line = %q, missing GET_UPVALUE", line)
	}

	next2, line2 := DisassembleInstruction(c, next)
	if next2 != 3 {
		t.Errorf("next offset after RETURN = %d, want 3", next2)
	}
	if !strings.Contains(line2, "RETURN") {
		t.Errorf("line = %q, missing RETURN", line2)
	}
}

func TestDisassembleJumpShowsTarget(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpJump, 1)
	c.WriteU16BE(3, 1)
	c.WriteOp(OpReturn, 1)

	_, line := DisassembleInstruction(c, 0)
	if !strings.Contains(line, "-> 6") {
		t.Errorf("jump disassembly = %q, want it to show target offset 6", line)
	}
}

func TestDisassembleCallShowsArgCount(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpCall, 1)
	c.WriteByte(3, 1)

	_, line := DisassembleInstruction(c, 0)
	if !strings.Contains(line, "CALL") || !strings.Contains(line, "3") {
		t.Errorf("call disassembly = %q, want CALL and arg count 3", line)
	}
}
