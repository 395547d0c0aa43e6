package vm

import "github.com/roselang/rose/pkg/value"

// call pushes a new CallFrame for closure over the argCount arguments
// already sitting on top of the stack (spec.md §4.1/§4.6 CALL),
// checking arity and frame-stack depth first.
func (v *VM) call(closure *value.Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return v.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if v.frameCount == FramesMax {
		return v.runtimeError("Stack overflow.")
	}
	frame := &v.frames[v.frameCount]
	frame.Closure = closure
	frame.IP = 0
	frame.Slots = v.stackTop - argCount - 1
	v.frameCount++
	return nil
}

// callValue implements the general "call this callee with argCount
// arguments on the stack" operation spec.md §4.6 describes for the
// CALL opcode: Closure, Class (construct), BoundMethod, or NativeFn.
func (v *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObj() {
		return v.runtimeError("Can only call functions and classes.")
	}
	switch obj := callee.AsObj().(type) {
	case *value.Closure:
		return v.call(obj, argCount)
	case *value.Class:
		instance := v.NewInstance(obj)
		v.stack[v.stackTop-argCount-1] = value.FromObj(instance)
		if ctor, ok := v.methodsOf(obj).Get(v.constructorName); ok {
			return v.call(ctor.AsObj().(*value.Closure), argCount)
		}
		if argCount != 0 {
			return v.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *value.BoundMethod:
		v.stack[v.stackTop-argCount-1] = obj.Receiver
		return v.call(obj.Method, argCount)
	case *value.NativeFn:
		args := v.stack[v.stackTop-argCount : v.stackTop]
		result, err := obj.Fn(args)
		if err != nil {
			return v.runtimeError("%s", err.Error())
		}
		v.stackTop -= argCount + 1
		v.push(result)
		return nil
	default:
		return v.runtimeError("Can only call functions and classes.")
	}
}

// invoke implements the INVOKE fast path: GET_PROPERTY followed by
// CALL, without allocating an intermediate BoundMethod when name
// resolves to a method rather than a field.
func (v *VM) invoke(name *value.String, argCount int) error {
	receiver := v.peek(argCount)
	if !receiver.IsObj() {
		return v.runtimeError("Only instances have methods.")
	}
	instance, ok := receiver.AsObj().(*value.Instance)
	if !ok {
		return v.runtimeError("Only instances have methods.")
	}
	if field, ok := v.fieldsOf(instance).Get(name); ok {
		v.stack[v.stackTop-argCount-1] = field
		return v.callValue(field, argCount)
	}
	return v.invokeFromClass(instance.Class, name, argCount)
}

func (v *VM) invokeFromClass(class *value.Class, name *value.String, argCount int) error {
	method, ok := v.methodsOf(class).Get(name)
	if !ok {
		return v.runtimeError("Undefined property '%s'.", name.Value)
	}
	return v.call(method.AsObj().(*value.Closure), argCount)
}

// bindMethod implements GET_PROPERTY's fallback: looking a name up on
// an instance's class and, if found, wrapping it with the receiver as
// a BoundMethod pushed in place of the instance.
func (v *VM) bindMethod(class *value.Class, name *value.String) (value.Value, error) {
	method, ok := v.methodsOf(class).Get(name)
	if !ok {
		return value.Nil, v.runtimeError("Undefined property '%s'.", name.Value)
	}
	bound := v.NewBoundMethod(v.peek(0), method.AsObj().(*value.Closure))
	return value.FromObj(bound), nil
}
