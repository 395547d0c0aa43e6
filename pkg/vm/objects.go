package vm

import (
	"unsafe"

	"github.com/roselang/rose/pkg/table"
	"github.com/roselang/rose/pkg/value"
)

// track links a freshly allocated object into the VM's single
// allocation list (spec.md invariant 1: "every heap object is
// reachable from the VM's objects list until freed") and accounts its
// approximate size with the allocator, collecting first if the
// accounting says to. obj must not yet be reachable from anything
// else the caller cares about keeping alive across the collection
// this may trigger — which is why every New* helper below finishes
// linking obj into v.objects before doing anything else that
// allocates.
func (v *VM) track(obj value.Obj, size int64) {
	header := objHeader(obj)
	header.Next = v.objects
	v.objects = obj
	if should, err := v.alloc.Track(size); err != nil {
		v.log.Error("allocator out of memory", zapErr(err))
		if v.fatalErr == nil {
			v.fatalErr = err
		}
	} else if should {
		// obj is linked into v.objects above but not yet reachable from
		// any root the caller has established (it may still be sitting
		// in a local variable, mid-construction). Root it on the value
		// stack for the duration of this collection, matching the
		// push-before-append discipline spec.md §4.4/§4.5 call for.
		v.push(value.FromObj(obj))
		v.collectGarbage()
		v.pop()
	}
}

// objHeader reaches into obj's embedded Header by concrete type. The
// type switch is the "closed under a small set of kinds" dispatch
// spec.md §9 recommends in place of a virtual table: Obj.header() is
// unexported so only pkg/value itself could call it polymorphically,
// and pkg/value intentionally does not expose a polymorphic mutator
// for the mark bit or the next-pointer — every kind is named here
// explicitly instead.
func objHeader(o value.Obj) *value.Header {
	switch h := o.(type) {
	case *value.String:
		return &h.Header
	case *value.Function:
		return &h.Header
	case *value.Closure:
		return &h.Header
	case *value.Upvalue:
		return &h.Header
	case *value.Class:
		return &h.Header
	case *value.Instance:
		return &h.Header
	case *value.BoundMethod:
		return &h.Header
	case *value.Array:
		return &h.Header
	case *value.NativeFn:
		return &h.Header
	default:
		panic("vm: unknown object kind")
	}
}

// InternString returns the canonical *value.String for s, allocating
// and interning a new one if no equal string exists yet (spec.md
// §3's String invariant: "at construction the global string table is
// consulted; if an equal string exists ... the canonical object
// returned").
func (v *VM) InternString(s string) *value.String {
	hash := table.FNV1a32(s)
	if existing, ok := v.strings.FindString(s, hash); ok {
		return existing
	}
	str := value.NewString(s, hash)
	v.strings.Add(str)
	v.track(str, int64(unsafe.Sizeof(*str))+int64(len(s)))
	return str
}

// NewFunction allocates an (initially empty) Function for the
// compiler to populate. Functions are otherwise immutable once the
// compiler finishes with them (spec.md §3).
func (v *VM) NewFunction() *value.Function {
	fn := value.NewFunction()
	v.track(fn, int64(unsafe.Sizeof(*fn)))
	return fn
}

// NewClosure allocates a Closure over fn with a freshly zeroed
// upvalue array of the right length. The CLOSURE opcode handler pushes
// the closure (keeping it rooted while captureUpvalue allocates) and
// fills the array before the next instruction runs, satisfying
// spec.md invariant 3.
func (v *VM) NewClosure(fn *value.Function) *value.Closure {
	cl := value.NewClosure(fn)
	v.track(cl, int64(unsafe.Sizeof(*cl))+int64(cap(cl.Upvalues))*int64(unsafe.Sizeof((*value.Upvalue)(nil))))
	return cl
}

// NewClass allocates an empty class named name.
func (v *VM) NewClass(name *value.String) *value.Class {
	cl := value.NewClass(name, table.New())
	v.track(cl, int64(unsafe.Sizeof(*cl)))
	return cl
}

// NewInstance allocates an instance of class with an empty field table.
func (v *VM) NewInstance(class *value.Class) *value.Instance {
	inst := value.NewInstance(class, table.New())
	v.track(inst, int64(unsafe.Sizeof(*inst)))
	return inst
}

// NewBoundMethod allocates a bound method pairing receiver with method.
func (v *VM) NewBoundMethod(receiver value.Value, method *value.Closure) *value.BoundMethod {
	bm := value.NewBoundMethod(receiver, method)
	v.track(bm, int64(unsafe.Sizeof(*bm)))
	return bm
}

// NewArray allocates a first-class array object wrapping elements.
func (v *VM) NewArray(elements []value.Value) *value.Array {
	arr := value.NewArray(elements)
	v.track(arr, int64(unsafe.Sizeof(*arr))+int64(cap(elements))*int64(unsafe.Sizeof(value.Value{})))
	return arr
}

// NewNativeFn allocates a heap NativeFn object wrapping fn. It does
// not touch the globals table; DefineNative installs the result.
func (v *VM) NewNativeFn(name string, fn func(args []value.Value) (value.Value, error)) *value.NativeFn {
	nf := value.NewNativeFn(name, fn)
	v.track(nf, int64(unsafe.Sizeof(*nf)))
	return nf
}

// DefineNative interns name, wraps fn as a NativeFn object, and sets
// it in globals (spec.md §6 `define_native`).
func (v *VM) DefineNative(name string, fn func(args []value.Value) (value.Value, error)) {
	nf := v.NewNativeFn(name, fn)
	v.DefineGlobal(name, value.FromObj(nf))
}

// concatStrings implements the ADD opcode's string-concatenation
// branch: both operands Strings produces a freshly interned
// concatenation. The intermediate Go string is built before either
// operand needs further protection since Go strings are immutable
// values, not objects this VM's collector tracks — only the final
// InternString call allocates (or finds) a *value.String.
func (v *VM) concatStrings(a, b *value.String) *value.String {
	return v.InternString(a.Value + b.Value)
}
