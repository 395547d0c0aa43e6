package bytecode

import "github.com/roselang/rose/pkg/value"

// Chunk is a compiled bytecode unit: a byte stream of instructions, a
// constant pool, and a best-effort per-instruction line table
// (spec.md §4.4, §9 — the line table is optional and may be stubbed;
// here it is always populated, one entry per emitted byte, operand
// bytes carrying the same line as their opcode, since the cost of
// doing so is negligible and it lets the VM report real line numbers
// in backtraces).
//
// By convention (spec.md §6), a top-level Chunk's Constants[0..2] hold
// `[is_package_bool, exe_dir_string, source_dir_string]`, consumed by
// the module loader on INCLUDE/IMPORT. The compiler is responsible for
// reserving those three slots first on any Chunk that opcode pair can
// execute from.
type Chunk struct {
	Code      []byte
	Constants []value.Value
	Lines     []int // Lines[i] is the source line of the instruction that Code[i] belongs to
}

// NewChunk returns an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// WriteByte appends a raw byte at the given source line and returns
// its offset.
func (c *Chunk) WriteByte(b byte, line int) int {
	off := len(c.Code)
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	return off
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) int {
	return c.WriteByte(byte(op), line)
}

// WriteU32 appends a 4-byte little-endian operand (constant/local index).
func (c *Chunk) WriteU32(v uint32, line int) {
	c.WriteByte(byte(v), line)
	c.WriteByte(byte(v>>8), line)
	c.WriteByte(byte(v>>16), line)
	c.WriteByte(byte(v>>24), line)
}

// WriteU16BE appends a 2-byte big-endian operand (branch offset),
// returning the offset of its first byte so the caller can patch it
// later (forward jumps are emitted with a placeholder and patched
// once the jump target is known).
func (c *Chunk) WriteU16BE(v uint16, line int) int {
	off := len(c.Code)
	c.WriteByte(byte(v>>8), line)
	c.WriteByte(byte(v), line)
	return off
}

// PatchU16BE overwrites the 2-byte big-endian operand at off.
func (c *Chunk) PatchU16BE(off int, v uint16) {
	c.Code[off] = byte(v >> 8)
	c.Code[off+1] = byte(v)
}

// AddConstant appends v to the constant pool and returns its index.
//
// The C original's discipline — push v on the VM's value stack before
// the append and pop it after, so a GC triggered by the pool's growth
// reallocation cannot collect v first — exists because the C
// allocator physically frees memory out from under a dangling
// pointer. In this Go port, the collector (pkg/gc via pkg/vm) only
// retires bookkeeping (the object list, the interner) for objects
// nothing reaches; it never deallocates Go memory, so a constant that
// is momentarily unreachable during this call cannot be a memory-
// safety bug here the way it is in C. It can still be a *logical*
// reachability bug — if the collector runs between allocating v and
// this call and nothing else roots v, a correct mark-sweep pass will
// (correctly, from its own point of view) drop v from the object
// list, and AddConstant would then be pooling a value whose backing
// object no longer appears reachable from any VM root. Callers that
// construct a fresh heap object specifically to become a constant
// (the compiler folding a literal, for instance) should therefore
// still call this before doing anything else that can allocate.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// LineAt returns the source line recorded for the byte at offset off
// (an opcode or one of its operand bytes), or 0 if off is outside the
// recorded code.
func (c *Chunk) LineAt(off int) int {
	if off < 0 || off >= len(c.Lines) {
		return 0
	}
	return c.Lines[off]
}
