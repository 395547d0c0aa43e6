// Package value implements the tagged value representation and heap
// object model shared by the compiler, the garbage collector, and the
// virtual machine.
//
// A Value is a small tagged union: Bool, Nil, Number (float64), Obj
// (a heap-allocated object) or Native (an opaque foreign pointer with
// a byte-size hint, used by embedders that hand raw pointers across
// the native-function boundary). Go has no sum types, so the tag lives
// in a Kind byte and the payload fields that don't apply to the
// current Kind are simply unused — this keeps Values comparable with
// `==` for every Kind except Obj, where identity (and for Strings,
// canonical identity via interning) is the only correct notion of
// equality.
//
// Heap objects implement Obj. Every concrete kind (*String, *Function,
// *Closure, *Upvalue, *Class, *Instance, *BoundMethod, *Array,
// *NativeFn) embeds Header, which carries the GC's mark bit and the
// intrusive next-pointer threading every live object into the VM's
// single allocation list. Dispatch over kinds is a closed type switch,
// not a virtual table — there are exactly nine of them and the set
// does not grow at runtime.
package value

import "fmt"

// Kind tags the nine heap object kinds.
type Kind uint8

const (
	KindString Kind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
	KindArray
	KindNativeFn
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindClosure:
		return "closure"
	case KindUpvalue:
		return "upvalue"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindBoundMethod:
		return "bound method"
	case KindArray:
		return "array"
	case KindNativeFn:
		return "native function"
	default:
		return "unknown"
	}
}

// Obj is implemented by every heap-allocated object kind.
type Obj interface {
	ObjKind() Kind
	header() *Header
}

// Header is embedded in every heap object kind. It carries the state
// the garbage collector needs and nothing the language semantics do:
// the mark bit and the intrusive link into the VM's object list.
type Header struct {
	Kind   Kind
	Marked bool
	Next   Obj
}

func (h *Header) header() *Header { return h }

// ObjKind lets Header satisfy half of Obj; concrete types still embed
// Header and get ObjKind for free via promotion, but we need a named
// method on Header itself so ad-hoc callers can query h.Kind without
// reaching through the concrete type.
func (h *Header) ObjKind() Kind { return h.Kind }

// ValueKind tags the five Value variants.
type ValueKind uint8

const (
	ValNil ValueKind = iota
	ValBool
	ValNumber
	ValObj
	ValNative
)

// NativePointer is an opaque foreign pointer plus a byte-size hint,
// used when an embedder hands the VM a pointer it does not own and
// does not want traced or freed by the collector.
type NativePointer struct {
	Ptr  any
	Size uintptr
}

// Value is the tagged union every stack slot, local, upvalue, global,
// field, and constant-pool entry holds.
type Value struct {
	kind   ValueKind
	b      bool
	n      float64
	obj    Obj
	native NativePointer
}

// Nil is the canonical Nil value.
var Nil = Value{kind: ValNil}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: ValBool, b: b} }

// Number constructs a numeric Value.
func Number(n float64) Value { return Value{kind: ValNumber, n: n} }

// FromObj constructs a Value wrapping a heap object.
func FromObj(o Obj) Value { return Value{kind: ValObj, obj: o} }

// FromNative constructs a Value wrapping an opaque foreign pointer.
func FromNative(ptr any, size uintptr) Value {
	return Value{kind: ValNative, native: NativePointer{Ptr: ptr, Size: size}}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNil() bool     { return v.kind == ValNil }
func (v Value) IsBool() bool    { return v.kind == ValBool }
func (v Value) IsNumber() bool  { return v.kind == ValNumber }
func (v Value) IsObj() bool     { return v.kind == ValObj }
func (v Value) IsNative() bool  { return v.kind == ValNative }

// AsBool returns the boolean payload. Callers must check IsBool first.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the float64 payload. Callers must check IsNumber first.
func (v Value) AsNumber() float64 { return v.n }

// AsObj returns the heap object payload. Callers must check IsObj first.
func (v Value) AsObj() Obj { return v.obj }

// AsNative returns the native-pointer payload. Callers must check IsNative first.
func (v Value) AsNative() NativePointer { return v.native }

// ObjKind reports the heap object's kind, or false if v is not an Obj.
func (v Value) ObjKind() (Kind, bool) {
	if v.kind != ValObj {
		return 0, false
	}
	return v.obj.ObjKind(), true
}

// IsFalsey implements the language's truthiness rule: Nil and
// Bool(false) are false, everything else — including 0 and the empty
// string — is true.
func (v Value) IsFalsey() bool {
	switch v.kind {
	case ValNil:
		return true
	case ValBool:
		return !v.b
	default:
		return false
	}
}

// Equal implements structural equality per the variant rules in
// spec.md §3: Bool by boolean, Nil always equal to Nil, Number by
// bitwise IEEE-754 equality (NaN != NaN, matching Go's native float
// comparison), Obj by identity except Strings, which compare by
// canonical identity — which, because strings are interned, reduces
// to the same pointer-identity check used for every other Obj kind.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case ValNil:
		return true
	case ValBool:
		return a.b == b.b
	case ValNumber:
		return a.n == b.n
	case ValObj:
		return a.obj == b.obj
	case ValNative:
		return a.native.Ptr == b.native.Ptr
	default:
		return false
	}
}

// String renders a Value for `print` and for debug output. It never
// allocates a heap String; it is pure formatting.
func (v Value) String() string {
	switch v.kind {
	case ValNil:
		return "nil"
	case ValBool:
		if v.b {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.n)
	case ValNative:
		return fmt.Sprintf("<native %T>", v.native.Ptr)
	case ValObj:
		return objString(v.obj)
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) && n < 1e15 && n > -1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

func objString(o Obj) string {
	switch v := o.(type) {
	case *String:
		return v.Value
	case *Function:
		if v.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", v.Name.Value)
	case *Closure:
		return objString(v.Function)
	case *Upvalue:
		return "<upvalue>"
	case *Class:
		return v.Name.Value
	case *Instance:
		return fmt.Sprintf("%s instance", v.Class.Name.Value)
	case *BoundMethod:
		return objString(v.Method)
	case *Array:
		return "<array>"
	case *NativeFn:
		return fmt.Sprintf("<native fn %s>", v.Name)
	default:
		return "<object>"
	}
}
