package vm

import (
	"fmt"

	"github.com/roselang/rose/pkg/bytecode"
	"github.com/roselang/rose/pkg/table"
	"github.com/roselang/rose/pkg/value"
)

// dispatch is the decode/execute loop over the instruction set
// (spec.md §4.6). It runs frames until the outermost frame returns
// (success) or a runtime error unwinds to the top.
func (v *VM) dispatch() error {
	for {
		if v.fatalErr != nil {
			err := v.fatalErr
			v.fatalErr = nil
			return err
		}
		frame := v.currentFrame()
		op := bytecode.OpCode(v.readByte(frame))
		switch op {
		case bytecode.OpConstantLong:
			idx := v.readU32(frame)
			v.push(v.readConstant(frame, idx))

		case bytecode.OpNil:
			v.push(value.Nil)
		case bytecode.OpTrue:
			v.push(value.Bool(true))
		case bytecode.OpFalse:
			v.push(value.Bool(false))
		case bytecode.OpPop:
			v.pop()

		case bytecode.OpNegate:
			top := v.peek(0)
			if !top.IsNumber() {
				return v.runtimeError("Operand must be a number.")
			}
			v.pop()
			v.push(value.Number(-top.AsNumber()))

		case bytecode.OpAdd:
			b, a := v.peek(0), v.peek(1)
			switch {
			case isString(a) && isString(b):
				v.pop()
				v.pop()
				s := v.concatStrings(asString(a), asString(b))
				v.push(value.FromObj(s))
			case a.IsNumber() && b.IsNumber():
				v.pop()
				v.pop()
				v.push(value.Number(a.AsNumber() + b.AsNumber()))
			default:
				return v.runtimeError("Operands must be two numbers or two strings.")
			}

		case bytecode.OpSubtract:
			if err := v.binaryNumber(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case bytecode.OpMultiply:
			if err := v.binaryNumber(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case bytecode.OpDivide:
			if err := v.binaryNumber(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}
		case bytecode.OpGreater:
			if err := v.binaryNumber(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := v.binaryNumber(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case bytecode.OpNot:
			v.push(value.Bool(v.pop().IsFalsey()))

		case bytecode.OpEqual:
			b, a := v.pop(), v.pop()
			v.push(value.Bool(value.Equal(a, b)))

		case bytecode.OpPrint:
			fmt.Fprintln(v.stdout, v.pop().String())

		case bytecode.OpDefineGlobal:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			v.globals.Set(name, v.peek(0))
			v.pop()

		case bytecode.OpGetGlobal:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			val, ok := v.globals.Get(name)
			if !ok {
				return v.runtimeError("Undefined global variable '%s'.", name.Value)
			}
			v.push(val)

		case bytecode.OpSetGlobal:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			if v.globals.Set(name, v.peek(0)) {
				v.globals.Delete(name)
				return v.runtimeError("Undefined global variable '%s'.", name.Value)
			}

		case bytecode.OpGetLocal:
			slot := int(v.readU32(frame))
			v.push(v.stack[frame.Slots+slot])

		case bytecode.OpSetLocal:
			slot := int(v.readU32(frame))
			v.stack[frame.Slots+slot] = v.peek(0)

		case bytecode.OpJump:
			off := v.readU16BE(frame)
			frame.IP += int(off)

		case bytecode.OpJumpIfFalse:
			off := v.readU16BE(frame)
			if v.peek(0).IsFalsey() {
				frame.IP += int(off)
			}

		case bytecode.OpLoop:
			off := v.readU16BE(frame)
			frame.IP -= int(off)

		case bytecode.OpCall:
			argCount := int(v.readByte(frame))
			if err := v.callValue(v.peek(argCount), argCount); err != nil {
				return err
			}

		case bytecode.OpClosure:
			idx := v.readU32(frame)
			fn := v.readConstant(frame, idx).AsObj().(*value.Function)
			closure := v.NewClosure(fn)
			v.push(value.FromObj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := v.readByte(frame)
				index := int(v.readByte(frame))
				if isLocal != 0 {
					closure.Upvalues[i] = v.captureUpvalue(frame.Slots + index)
				} else {
					closure.Upvalues[i] = frame.Closure.Upvalues[index]
				}
			}

		case bytecode.OpGetUpvalue:
			idx := int(v.readByte(frame))
			v.push(frame.Closure.Upvalues[idx].Get())

		case bytecode.OpSetUpvalue:
			idx := int(v.readByte(frame))
			frame.Closure.Upvalues[idx].Set(v.peek(0))

		case bytecode.OpCloseUpvalue:
			v.closeUpvalues(v.stackTop - 1)
			v.pop()

		case bytecode.OpClass:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			v.push(value.FromObj(v.NewClass(name)))

		case bytecode.OpGetProperty:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			receiver := v.peek(0)
			instance, ok := asInstance(receiver)
			if !ok {
				return v.runtimeError("Only instances have properties.")
			}
			if val, ok := v.fieldsOf(instance).Get(name); ok {
				v.pop()
				v.push(val)
				break
			}
			bound, err := v.bindMethod(instance.Class, name)
			if err != nil {
				return err
			}
			v.pop()
			v.push(bound)

		case bytecode.OpSetProperty:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			receiver := v.peek(1)
			instance, ok := asInstance(receiver)
			if !ok {
				return v.runtimeError("Only instances have fields.")
			}
			v.fieldsOf(instance).Set(name, v.peek(0))
			val := v.pop()
			v.pop()
			v.push(val)

		case bytecode.OpMethod:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			method := v.peek(0).AsObj().(*value.Closure)
			class := v.peek(1).AsObj().(*value.Class)
			v.methodsOf(class).Set(name, value.FromObj(method))
			v.pop()

		case bytecode.OpInvoke:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			argCount := int(v.readByte(frame))
			if err := v.invoke(name, argCount); err != nil {
				return err
			}

		case bytecode.OpInherit:
			superVal := v.peek(1)
			superclass, ok := asClass(superVal)
			if !ok {
				return v.runtimeError("Superclass must be a class.")
			}
			subclass := v.peek(0).AsObj().(*value.Class)
			table.AddAll(v.methodsOf(superclass), v.methodsOf(subclass))
			v.pop()

		case bytecode.OpGetSuper:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			superclass := v.pop().AsObj().(*value.Class)
			bound, err := v.bindMethod(superclass, name)
			if err != nil {
				return err
			}
			v.pop()
			v.push(bound)

		case bytecode.OpSuperInvoke:
			idx := v.readU32(frame)
			name := v.readConstant(frame, idx).AsObj().(*value.String)
			argCount := int(v.readByte(frame))
			superclass := v.pop().AsObj().(*value.Class)
			if err := v.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}

		case bytecode.OpReturn:
			result := v.pop()
			v.closeUpvalues(frame.Slots)
			v.frameCount--
			v.stackTop = frame.Slots
			v.push(result)
			if v.frameCount == 0 {
				return nil
			}

		case bytecode.OpInclude:
			if err := v.doInclude(frame); err != nil {
				return err
			}

		case bytecode.OpImport:
			if err := v.doImport(frame); err != nil {
				return err
			}

		case bytecode.OpArray:
			count := int(v.readU32(frame))
			elements := make([]value.Value, count)
			for i := count - 1; i >= 0; i-- {
				elements[i] = v.pop()
			}
			v.push(value.FromObj(v.NewArray(elements)))

		default:
			return v.runtimeError("Unknown opcode %d.", byte(op))
		}
	}
}

func (v *VM) binaryNumber(f func(a, b float64) value.Value) error {
	b, a := v.peek(0), v.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return v.runtimeError("Operands must be numbers.")
	}
	v.pop()
	v.pop()
	v.push(f(a.AsNumber(), b.AsNumber()))
	return nil
}

func isString(v value.Value) bool {
	k, ok := v.ObjKind()
	return ok && k == value.KindString
}

func asString(v value.Value) *value.String { return v.AsObj().(*value.String) }

func asInstance(v value.Value) (*value.Instance, bool) {
	if !v.IsObj() {
		return nil, false
	}
	inst, ok := v.AsObj().(*value.Instance)
	return inst, ok
}

func asClass(v value.Value) (*value.Class, bool) {
	if !v.IsObj() {
		return nil, false
	}
	cl, ok := v.AsObj().(*value.Class)
	return cl, ok
}

