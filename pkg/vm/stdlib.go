package vm

import (
	"math"
	"time"

	"github.com/roselang/rose/pkg/value"
)

// registerStdlib installs the native function library every VM starts
// with (the embedding API's init_vm step "register all native
// functions"): a small numeric/reflection surface plus array
// operations exercising the Array heap kind spec.md §9 promotes out of
// the ambiguous Native-wrapped design.
func (v *VM) registerStdlib() {
	v.DefineNative("clock", nativeClock)
	v.DefineNative("sqrt", nativeSqrt)
	v.DefineNative("pow", nativePow)
	v.DefineNative("len", v.nativeLen)
	v.DefineNative("type", v.nativeType)
	v.DefineNative("push", nativePush)
	v.DefineNative("pop", nativePop)
	v.DefineNative("get", nativeGet)
	v.DefineNative("set", nativeSet)
}

func nativeClock(args []value.Value) (value.Value, error) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

func nativeSqrt(args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsNumber() {
		return value.Nil, nil
	}
	return value.Number(math.Sqrt(args[0].AsNumber())), nil
}

func nativePow(args []value.Value) (value.Value, error) {
	if len(args) != 2 || !args[0].IsNumber() || !args[1].IsNumber() {
		return value.Nil, nil
	}
	return value.Number(math.Pow(args[0].AsNumber(), args[1].AsNumber())), nil
}

// nativeLen reports the length of a String or Array argument.
func (v *VM) nativeLen(args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsObj() {
		return value.Nil, nil
	}
	switch o := args[0].AsObj().(type) {
	case *value.String:
		return value.Number(float64(len(o.Value))), nil
	case *value.Array:
		return value.Number(float64(len(o.Elements))), nil
	default:
		return value.Nil, nil
	}
}

// nativeType returns a string naming the runtime type of its argument,
// interned like any other string the language produces.
func (v *VM) nativeType(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, nil
	}
	return value.FromObj(v.InternString(typeName(args[0]))), nil
}

// nativePush appends a value to an Array in place, returning the array.
func nativePush(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil, nil
	}
	arr, ok := args[0].AsObj().(*value.Array)
	if !ok {
		return value.Nil, nil
	}
	arr.Elements = append(arr.Elements, args[1])
	return args[0], nil
}

// nativePop removes and returns an Array's last element, or Nil if empty.
func nativePop(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, nil
	}
	arr, ok := args[0].AsObj().(*value.Array)
	if !ok || len(arr.Elements) == 0 {
		return value.Nil, nil
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return last, nil
}

// nativeGet indexes into an Array, returning Nil on an out-of-range index.
func nativeGet(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil, nil
	}
	arr, ok := args[0].AsObj().(*value.Array)
	if !ok || !args[1].IsNumber() {
		return value.Nil, nil
	}
	i := int(args[1].AsNumber())
	if i < 0 || i >= len(arr.Elements) {
		return value.Nil, nil
	}
	return arr.Elements[i], nil
}

// nativeSet assigns an Array element by index, returning the assigned value.
func nativeSet(args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return value.Nil, nil
	}
	arr, ok := args[0].AsObj().(*value.Array)
	if !ok || !args[1].IsNumber() {
		return value.Nil, nil
	}
	i := int(args[1].AsNumber())
	if i < 0 || i >= len(arr.Elements) {
		return value.Nil, nil
	}
	arr.Elements[i] = args[2]
	return args[2], nil
}
