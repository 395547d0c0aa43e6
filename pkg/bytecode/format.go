package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/roselang/rose/pkg/value"
)

// Disassemble renders every instruction in c as human-readable text,
// in the same spirit as the teacher's `smog disassemble` subcommand
// and `debug.c`'s disassembler in original_source/. It is a pure
// debugging aid; the VM never calls it.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for off := 0; off < len(c.Code); {
		var line string
		off, line = DisassembleInstruction(c, off)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// DisassembleInstruction formats the instruction at off and returns
// the offset of the next instruction.
func DisassembleInstruction(c *Chunk, off int) (int, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", off)
	if l := c.LineAt(off); l > 0 {
		fmt.Fprintf(&b, "%4d ", l)
	} else {
		b.WriteString("   | ")
	}

	op := OpCode(c.Code[off])
	switch op {
	case OpConstantLong, OpDefineGlobal, OpGetGlobal, OpSetGlobal,
		OpClosure, OpClass, OpGetProperty, OpSetProperty, OpMethod,
		OpGetSuper:
		idx := binary.LittleEndian.Uint32(c.Code[off+1 : off+5])
		next := off + 5
		fmt.Fprintf(&b, "%-16s %4d", op, idx)
		if int(idx) < len(c.Constants) {
			fmt.Fprintf(&b, " '%s'", c.Constants[idx].String())
		}
		// OpCLOSURE carries 2 more bytes per captured upvalue right
		// after the function constant index; the count lives on the
		// Function object the constant slot points at.
		if op == OpClosure && int(idx) < len(c.Constants) {
			if fn, ok := c.Constants[idx].AsObj().(*value.Function); ok {
				next += 2 * fn.UpvalueCount
			}
		}
		return next, b.String()
	case OpInvoke, OpSuperInvoke:
		idx := binary.LittleEndian.Uint32(c.Code[off+1 : off+5])
		argc := c.Code[off+5]
		next := off + 6
		fmt.Fprintf(&b, "%-16s %4d (%d args)", op, idx, argc)
		if int(idx) < len(c.Constants) {
			fmt.Fprintf(&b, " '%s'", c.Constants[idx].String())
		}
		return next, b.String()
	case OpJump, OpJumpIfFalse, OpLoop:
		offset := binary.BigEndian.Uint16(c.Code[off+1 : off+3])
		next := off + 3
		sign := 1
		if op == OpLoop {
			sign = -1
		}
		fmt.Fprintf(&b, "%-16s %4d -> %d", op, off, off+3+sign*int(offset))
		return next, b.String()
	case OpGetLocal, OpSetLocal:
		idx := binary.LittleEndian.Uint32(c.Code[off+1 : off+5])
		fmt.Fprintf(&b, "%-16s %4d", op, idx)
		return off + 5, b.String()
	case OpCall:
		argc := c.Code[off+1]
		fmt.Fprintf(&b, "%-16s %4d", op, argc)
		return off + 2, b.String()
	case OpGetUpvalue, OpSetUpvalue:
		idx := c.Code[off+1]
		fmt.Fprintf(&b, "%-16s %4d", op, idx)
		return off + 2, b.String()
	case OpArray:
		count := binary.LittleEndian.Uint32(c.Code[off+1 : off+5])
		fmt.Fprintf(&b, "%-16s %4d", op, count)
		return off + 5, b.String()
	default:
		b.WriteString(op.String())
		return off + 1, b.String()
	}
}
