package vm

import (
	"unsafe"

	"github.com/roselang/rose/pkg/value"
)

// captureUpvalue returns the open upvalue for the given stack slot,
// reusing one already in v.openUpvalues if one for this exact slot
// exists, else allocating and inserting a new one at the right
// position to keep the list in strictly decreasing slot-address
// order (spec.md invariant 4).
//
// "Slot address" here is the slot's index into v.stack, recovered from
// each open upvalue's Location pointer by slotIndex; the ordering
// property and the reuse-by-identity property are exactly the C
// original's, just keyed by index instead of pointer.
func (v *VM) captureUpvalue(slot int) *value.Upvalue {
	var prev *value.Upvalue
	cur := v.openUpvalues
	for cur != nil && slotIndex(cur, v) > slot {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && slotIndex(cur, v) == slot {
		return cur
	}
	created := value.NewUpvalue(&v.stack[slot])
	v.track(created, 0)
	created.Next = cur
	if prev == nil {
		v.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// slotIndex recovers the stack index an open upvalue's Location
// points at, via pointer arithmetic over the VM's fixed (never
// reallocated) stack array. Only valid while the upvalue is open.
func slotIndex(u *value.Upvalue, v *VM) int {
	elemSize := unsafe.Sizeof(v.stack[0])
	base := uintptr(unsafe.Pointer(&v.stack[0]))
	loc := uintptr(unsafe.Pointer(u.Location))
	return int((loc - base) / elemSize)
}

// closeUpvalues closes every open upvalue at or above fromSlot,
// copying each one's current value into private storage and removing
// it from the open list — the OP_CLOSE_UPVALUE and RETURN behavior
// spec.md §4.6/§4.7 describe. Because the list is kept in decreasing
// order, every upvalue that needs closing is a prefix of the list.
func (v *VM) closeUpvalues(fromSlot int) {
	for v.openUpvalues != nil && slotIndex(v.openUpvalues, v) >= fromSlot {
		u := v.openUpvalues
		u.Close()
		v.openUpvalues = u.Next
		u.Next = nil
	}
}
