package vm

import (
	"go.uber.org/zap"

	"github.com/roselang/rose/pkg/bytecode"
	"github.com/roselang/rose/pkg/value"
)

// collectGarbage runs one tri-color mark-and-sweep cycle (spec.md
// §4.5): mark every root, trace the gray stack to a fixed point, weak-
// sweep the string interner, sweep the object list, then recompute the
// next collection threshold. Called from track() whenever the
// allocator's byte accounting says to, or unconditionally under
// stress-GC.
func (v *VM) collectGarbage() {
	v.markRoots()
	v.traceReferences()
	v.sweepStrings()
	v.sweep()
	v.alloc.AfterCollect()
	v.log.Debug("gc cycle",
		zap.String("vm_id", v.id.String()),
		zap.Int64("bytes_allocated", v.alloc.BytesAllocated),
		zap.Int64("next_gc", v.alloc.NextGC))
}

// markRoots marks everything directly reachable from the VM itself,
// per spec.md §4.5 step 1 and the Root glossary entry: the live
// portion of the value stack, every active frame's closure, the open-
// upvalue list, the globals table, and the distinguished constructor/
// destructor name symbols.
func (v *VM) markRoots() {
	for i := 0; i < v.stackTop; i++ {
		v.markValue(v.stack[i])
	}
	for i := 0; i < v.frameCount; i++ {
		v.markObject(v.frames[i].Closure)
	}
	for u := v.openUpvalues; u != nil; u = u.Next {
		v.markObject(u)
	}
	v.globals.Each(func(_ *value.String, val value.Value) {
		v.markValue(val)
	})
	if v.constructorName != nil {
		v.markObject(v.constructorName)
	}
	if v.destructorName != nil {
		v.markObject(v.destructorName)
	}
}

func (v *VM) markValue(val value.Value) {
	if val.IsObj() {
		v.markObject(val.AsObj())
	}
}

// markObject marks obj if not already marked and pushes it onto the
// gray stack for later tracing. A nil interface value (e.g. an unset
// *value.String typed nil) must never reach here with a live
// concrete pointer; callers only pass objects they already know exist.
func (v *VM) markObject(obj value.Obj) {
	if obj == nil {
		return
	}
	h := objHeader(obj)
	if h.Marked {
		return
	}
	h.Marked = true
	v.grayStack = append(v.grayStack, obj)
}

// traceReferences drains the gray stack, marking each scanned
// object's referents by kind (spec.md §4.5 step 2).
func (v *VM) traceReferences() {
	for len(v.grayStack) > 0 {
		n := len(v.grayStack) - 1
		obj := v.grayStack[n]
		v.grayStack = v.grayStack[:n]
		v.blacken(obj)
	}
}

func (v *VM) blacken(obj value.Obj) {
	switch o := obj.(type) {
	case *value.String, *value.NativeFn:
		// no references to trace
	case *value.Function:
		if o.Name != nil {
			v.markObject(o.Name)
		}
		if chunk, ok := o.Chunk.(*bytecode.Chunk); ok {
			for _, c := range chunk.Constants {
				v.markValue(c)
			}
		}
	case *value.Closure:
		v.markObject(o.Function)
		for _, u := range o.Upvalues {
			if u != nil {
				v.markObject(u)
			}
		}
	case *value.Upvalue:
		if !o.IsOpen() {
			v.markValue(o.Closed)
		}
	case *value.Class:
		v.markObject(o.Name)
		v.methodsOf(o).Each(func(_ *value.String, val value.Value) {
			v.markValue(val)
		})
	case *value.Instance:
		v.markObject(o.Class)
		v.fieldsOf(o).Each(func(_ *value.String, val value.Value) {
			v.markValue(val)
		})
	case *value.BoundMethod:
		v.markValue(o.Receiver)
		v.markObject(o.Method)
	case *value.Array:
		for _, elt := range o.Elements {
			v.markValue(elt)
		}
	}
}

// sweepStrings removes any unmarked string from the interner before
// the general sweep frees it, per spec.md §4.5 step 3's weak-set
// discipline: a String that is otherwise unreachable must not survive
// in the intern table as a dangling entry.
func (v *VM) sweepStrings() {
	var obj value.Obj = v.objects
	for obj != nil {
		if s, ok := obj.(*value.String); ok && !objHeader(s).Marked {
			v.strings.Delete(s)
		}
		obj = objHeader(obj).Next
	}
}

// sweep walks the intrusive all-objects list, dropping every unmarked
// node and clearing the mark bit on survivors for the next cycle
// (spec.md §4.5 step 4).
func (v *VM) sweep() {
	var prev value.Obj
	obj := v.objects
	for obj != nil {
		h := objHeader(obj)
		if h.Marked {
			h.Marked = false
			prev = obj
			obj = h.Next
			continue
		}
		unreached := obj
		obj = h.Next
		if prev == nil {
			v.objects = obj
		} else {
			objHeader(prev).Next = obj
		}
		_ = unreached // Go's own GC reclaims it; nothing to free explicitly
	}
}
