package bytecode

import (
	"testing"

	"github.com/roselang/rose/pkg/value"
)

func TestChunkWriteByteTracksLines(t *testing.T) {
	c := NewChunk()
	off := c.WriteByte(byte(OpNil), 7)
	if off != 0 {
		t.Errorf("first WriteByte offset = %d, want 0", off)
	}
	if c.LineAt(0) != 7 {
		t.Errorf("LineAt(0) = %d, want 7", c.LineAt(0))
	}
}

func TestChunkWriteU32RoundTrips(t *testing.T) {
	c := NewChunk()
	c.WriteU32(0x01020304, 1)
	if len(c.Code) != 4 {
		t.Fatalf("WriteU32 should append 4 bytes, got %d", len(c.Code))
	}
	got := uint32(c.Code[0]) | uint32(c.Code[1])<<8 | uint32(c.Code[2])<<16 | uint32(c.Code[3])<<24
	if got != 0x01020304 {
		t.Errorf("decoded u32 = %#x, want %#x", got, 0x01020304)
	}
}

func TestChunkWriteAndPatchU16BE(t *testing.T) {
	c := NewChunk()
	off := c.WriteU16BE(0xFFFF, 1)
	c.PatchU16BE(off, 0x00AB)
	got := uint16(c.Code[off])<<8 | uint16(c.Code[off+1])
	if got != 0x00AB {
		t.Errorf("patched u16 = %#x, want %#x", got, 0x00AB)
	}
}

func TestChunkAddConstant(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(value.Number(42))
	if idx != 0 {
		t.Errorf("first AddConstant index = %d, want 0", idx)
	}
	idx2 := c.AddConstant(value.Number(43))
	if idx2 != 1 {
		t.Errorf("second AddConstant index = %d, want 1", idx2)
	}
}

func TestChunkLineAtOutOfRange(t *testing.T) {
	c := NewChunk()
	if c.LineAt(-1) != 0 {
		t.Errorf("LineAt(-1) should be 0")
	}
	if c.LineAt(100) != 0 {
		t.Errorf("LineAt(100) on an empty chunk should be 0")
	}
}

func TestOpCodeString(t *testing.T) {
	if OpAdd.String() != "ADD" {
		t.Errorf("OpAdd.String() = %q, want ADD", OpAdd.String())
	}
	unknown := OpCode(255)
	if unknown.String() != "UNKNOWN" {
		t.Errorf("unmapped OpCode.String() = %q, want UNKNOWN", unknown.String())
	}
}
