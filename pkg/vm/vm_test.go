package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/roselang/rose/pkg/bytecode"
	"github.com/roselang/rose/pkg/gc"
	"github.com/roselang/rose/pkg/value"
)

// buildFn allocates a Function through v's heap and lets body populate
// its Chunk directly — the VM core's own tests drive it this way,
// bypassing the compiler entirely (spec.md §1 treats the compiler as
// an external collaborator).
func buildFn(v *VM, arity int, body func(c *bytecode.Chunk)) *value.Function {
	fn := v.NewFunction()
	fn.Arity = arity
	chunk := bytecode.NewChunk()
	fn.Chunk = chunk
	body(chunk)
	return fn
}

func TestCallArithmetic(t *testing.T) {
	v := New()
	fn := buildFn(v, 0, func(c *bytecode.Chunk) {
		i1 := c.AddConstant(value.Number(3))
		i2 := c.AddConstant(value.Number(4))
		c.WriteOp(bytecode.OpConstantLong, 1)
		c.WriteU32(uint32(i1), 1)
		c.WriteOp(bytecode.OpConstantLong, 1)
		c.WriteU32(uint32(i2), 1)
		c.WriteOp(bytecode.OpAdd, 1)
		c.WriteOp(bytecode.OpReturn, 1)
	})
	closure := v.NewClosure(fn)
	result, err := v.Call(closure)
	if err != nil {
		t.Fatalf("Call returned an error: %v", err)
	}
	if result.AsNumber() != 7 {
		t.Errorf("result = %v, want 7", result.AsNumber())
	}
}

func TestCallOperatorPrecedenceViaStack(t *testing.T) {
	// (2 + 3) * 4, built directly in postfix order.
	v := New()
	fn := buildFn(v, 0, func(c *bytecode.Chunk) {
		for _, n := range []float64{2, 3} {
			idx := c.AddConstant(value.Number(n))
			c.WriteOp(bytecode.OpConstantLong, 1)
			c.WriteU32(uint32(idx), 1)
		}
		c.WriteOp(bytecode.OpAdd, 1)
		idx := c.AddConstant(value.Number(4))
		c.WriteOp(bytecode.OpConstantLong, 1)
		c.WriteU32(uint32(idx), 1)
		c.WriteOp(bytecode.OpMultiply, 1)
		c.WriteOp(bytecode.OpReturn, 1)
	})
	result, err := v.Call(v.NewClosure(fn))
	if err != nil {
		t.Fatalf("Call returned an error: %v", err)
	}
	if result.AsNumber() != 20 {
		t.Errorf("result = %v, want 20", result.AsNumber())
	}
}

func TestDefineAndGetGlobal(t *testing.T) {
	v := New()
	v.DefineGlobal("answer", value.Number(42))
	got, ok := v.GetGlobal("answer")
	if !ok {
		t.Fatalf("expected global 'answer' to exist")
	}
	if got.AsNumber() != 42 {
		t.Errorf("GetGlobal = %v, want 42", got.AsNumber())
	}
}

func TestGetUndefinedGlobalIsRuntimeError(t *testing.T) {
	v := New()
	fn := buildFn(v, 0, func(c *bytecode.Chunk) {
		idx := c.AddConstant(value.FromObj(v.InternString("missing")))
		c.WriteOp(bytecode.OpGetGlobal, 1)
		c.WriteU32(uint32(idx), 1)
		c.WriteOp(bytecode.OpReturn, 1)
	})
	_, err := v.Call(v.NewClosure(fn))
	if err == nil {
		t.Fatalf("expected a runtime error reading an undefined global")
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Errorf("expected a *RuntimeError, got %T", err)
	}
}

func TestAddNumberAndBoolIsRuntimeError(t *testing.T) {
	v := New()
	fn := buildFn(v, 0, func(c *bytecode.Chunk) {
		idx := c.AddConstant(value.Number(1))
		c.WriteOp(bytecode.OpConstantLong, 1)
		c.WriteU32(uint32(idx), 1)
		c.WriteOp(bytecode.OpTrue, 1)
		c.WriteOp(bytecode.OpAdd, 1)
		c.WriteOp(bytecode.OpReturn, 1)
	})
	_, err := v.Call(v.NewClosure(fn))
	if err == nil {
		t.Fatalf("expected a runtime error adding a number and a bool")
	}
}

func TestRuntimeErrorBacktraceNamesFrame(t *testing.T) {
	v := New()
	fn := buildFn(v, 0, func(c *bytecode.Chunk) {
		c.WriteOp(bytecode.OpTrue, 5)
		c.WriteOp(bytecode.OpNegate, 5)
		c.WriteOp(bytecode.OpReturn, 5)
	})
	fn.Name = v.InternString("broken")
	_, err := v.Call(v.NewClosure(fn))
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T (%v)", err, err)
	}
	if len(rerr.Frames) != 1 {
		t.Fatalf("expected 1 frame in the backtrace, got %d", len(rerr.Frames))
	}
	if rerr.Frames[0].Name != "broken" {
		t.Errorf("frame name = %q, want broken", rerr.Frames[0].Name)
	}
	if rerr.Frames[0].Line != 5 {
		t.Errorf("frame line = %d, want 5", rerr.Frames[0].Line)
	}
}

func TestPrintWritesToConfiguredStdout(t *testing.T) {
	var buf bytes.Buffer
	v := New(WithStdout(&buf))
	fn := buildFn(v, 0, func(c *bytecode.Chunk) {
		idx := c.AddConstant(value.FromObj(v.InternString("hello")))
		c.WriteOp(bytecode.OpConstantLong, 1)
		c.WriteU32(uint32(idx), 1)
		c.WriteOp(bytecode.OpPrint, 1)
		c.WriteOp(bytecode.OpNil, 1)
		c.WriteOp(bytecode.OpReturn, 1)
	})
	if _, err := v.Call(v.NewClosure(fn)); err != nil {
		t.Fatalf("Call returned an error: %v", err)
	}
	if got := buf.String(); got != "hello\n" {
		t.Errorf("stdout = %q, want %q", got, "hello\n")
	}
}

func TestStringInterningMakesEqualLiteralsIdentical(t *testing.T) {
	v := New()
	a := v.InternString("shared")
	b := v.InternString("shared")
	if a != b {
		t.Errorf("InternString should return the same canonical object for equal content")
	}
}

func TestStressGCDoesNotCorruptLiveState(t *testing.T) {
	v := New(WithStressGC())
	v.DefineGlobal("kept", value.Number(99))
	for i := 0; i < 200; i++ {
		v.InternString("churn")
	}
	got, ok := v.GetGlobal("kept")
	if !ok || got.AsNumber() != 99 {
		t.Errorf("global rooted before a stress-GC run should survive collection, got (%v, %v)", got, ok)
	}
}

func TestExceedingMaxBytesIsFatalAndHaltsExecution(t *testing.T) {
	v := New(WithMaxBytes(1))
	fn := buildFn(v, 0, func(c *bytecode.Chunk) {
		idx := c.AddConstant(value.Number(1))
		c.WriteOp(bytecode.OpConstantLong, 1)
		c.WriteU32(uint32(idx), 1)
		c.WriteOp(bytecode.OpReturn, 1)
	})
	closure := v.NewClosure(fn)
	_, err := v.Call(closure)
	if err == nil {
		t.Fatalf("expected an error once accounted bytes exceed MaxBytes")
	}
	if !errors.Is(err, gc.ErrOutOfMemory) {
		t.Errorf("expected err to wrap gc.ErrOutOfMemory, got %v", err)
	}
}

func TestInterpretReportsOutOfMemoryAsIOError(t *testing.T) {
	v := New(WithMaxBytes(1))
	v.compile = func(source, scriptDir, exeDir string) (*value.Function, error) {
		return buildFn(v, 0, func(c *bytecode.Chunk) {
			c.WriteOp(bytecode.OpNil, 1)
			c.WriteOp(bytecode.OpReturn, 1)
		}), nil
	}
	result := v.Interpret("irrelevant", ".", ".")
	if result != InterpretIOError {
		t.Errorf("Interpret result = %v, want InterpretIOError for a fatal out-of-memory condition", result)
	}
}

func TestCallArityMismatchIsRuntimeError(t *testing.T) {
	v := New()
	fn := buildFn(v, 1, func(c *bytecode.Chunk) {
		c.WriteOp(bytecode.OpNil, 1)
		c.WriteOp(bytecode.OpReturn, 1)
	})
	_, err := v.Call(v.NewClosure(fn))
	if err == nil {
		t.Fatalf("expected a runtime error calling a 1-arity function with 0 arguments")
	}
}
