package value

// String is an interned, immutable byte sequence. Interning reduces
// string equality to pointer identity (spec.md §3 invariant 2): the
// table that owns the canonical instances lives in pkg/table, not
// here, so that pkg/value stays free of a dependency on the table
// implementation.
type String struct {
	Header
	Value string
	Hash  uint32
}

func NewString(s string, hash uint32) *String {
	return &String{Header: Header{Kind: KindString}, Value: s, Hash: hash}
}

// Function is produced by the compiler and is immutable once
// compiled: arity, the number of upvalues its closures must capture,
// its Chunk, and an optional name (none for the top-level script).
//
// Chunk is declared as `any` here to avoid an import cycle between
// pkg/value and pkg/bytecode (Chunk's constant pool holds Values); the
// bytecode package defines the concrete *bytecode.Chunk type and casts
// through this field.
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        any
	Name         *String
}

func NewFunction() *Function {
	return &Function{Header: Header{Kind: KindFunction}}
}

// Closure binds a Function to the upvalues it captured at creation
// time. Per spec.md invariant 3, Upvalues is fully populated before
// the Closure becomes reachable from script code.
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

func NewClosure(fn *Function) *Closure {
	return &Closure{
		Header:   Header{Kind: KindClosure},
		Function: fn,
		Upvalues: make([]*Upvalue, fn.UpvalueCount),
	}
}

// Upvalue is a capture cell. While open, Location points at a live
// stack slot (owned by the VM's value stack, referenced here by
// pointer since Go slices guarantee stable element addresses until
// the backing array is reallocated — the VM's stack is fixed-size and
// never reallocated, so this pointer stays valid for the upvalue's
// entire open lifetime). Closing copies the referenced Value into
// Closed and nils out Location; the transition is one-way.
type Upvalue struct {
	Header
	Location *Value
	Closed   Value
	Next     *Upvalue // intrusive link in the VM's open-upvalues list
}

func NewUpvalue(slot *Value) *Upvalue {
	return &Upvalue{Header: Header{Kind: KindUpvalue}, Location: slot}
}

func (u *Upvalue) IsOpen() bool { return u.Location != nil }

// Get reads through the upvalue, open or closed.
func (u *Upvalue) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through the upvalue, open or closed.
func (u *Upvalue) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

// Close transitions the upvalue from open to closed, copying the
// current slot value into private storage. Permanent: calling Close
// twice is a caller bug, not guarded against here (the VM only closes
// upvalues it finds in the open list, and removes them from that list
// as it closes them).
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = nil
}

// Class carries its name and a method table. The method table's
// concrete type is `any` for the same import-cycle reason as
// Function.Chunk — pkg/table (generic hash table keyed by interned
// String) would otherwise need to import pkg/value, which pkg/value
// would need to import back for Value itself.
type Class struct {
	Header
	Name    *String
	Methods any // *table.Table, set and read by pkg/vm
}

func NewClass(name *String, methods any) *Class {
	return &Class{Header: Header{Kind: KindClass}, Name: name, Methods: methods}
}

// Instance is a live object of some Class, with its own field table.
type Instance struct {
	Header
	Class  *Class
	Fields any // *table.Table
}

func NewInstance(class *Class, fields any) *Instance {
	return &Instance{Header: Header{Kind: KindInstance}, Class: class, Fields: fields}
}

// BoundMethod pairs a receiver with the Closure to invoke on it, so
// that `obj.method` can be passed around and later called as a plain
// callable without re-resolving the receiver.
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

func NewBoundMethod(receiver Value, method *Closure) *BoundMethod {
	return &BoundMethod{Header: Header{Kind: KindBoundMethod}, Receiver: receiver, Method: method}
}

// Array is a first-class, growable heap object (spec.md §9 resolves
// the ARRAY opcode's ambiguous ownership this way: promoted to its
// own kind so the collector traces its elements instead of them
// living inside an opaque Native payload).
type Array struct {
	Header
	Elements []Value
}

func NewArray(elements []Value) *Array {
	return &Array{Header: Header{Kind: KindArray}, Elements: elements}
}

// NativeFn is a heap-allocated pointer to a host callable, invoked
// with the (argc, argv) -> Value convention described in spec.md §6.
// It carries no tracing obligations of its own (the host function
// closure is opaque to the collector, same as String), which is why
// the tracer in pkg/vm does nothing for this kind.
type NativeFn struct {
	Header
	Name string
	Fn   func(args []Value) (Value, error)
}

func NewNativeFn(name string, fn func(args []Value) (Value, error)) *NativeFn {
	return &NativeFn{Header: Header{Kind: KindNativeFn}, Name: name, Fn: fn}
}
