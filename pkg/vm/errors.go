package vm

import (
	"errors"
	"fmt"
	"strings"
)

// RuntimeError is returned by dispatch and call when script execution
// fails (spec.md §4.8, §7): a message plus a snapshot of the call
// stack at the point of failure, innermost frame first.
type RuntimeError struct {
	Message string
	Frames  []StackFrame
}

// StackFrame names one entry in a RuntimeError's backtrace: the
// closure's name, or "script" for the top-level frame, plus the
// source line the frame was executing.
type StackFrame struct {
	Name string
	Line int
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintln(&b, e.Message)
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "[line %d] in %s\n", f.Line, f.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

// runtimeError builds a RuntimeError from the VM's current frame
// stack, innermost first, matching spec.md §4.8's backtrace format.
func (v *VM) runtimeError(format string, args ...any) error {
	frames := make([]StackFrame, 0, v.frameCount)
	for i := v.frameCount - 1; i >= 0; i-- {
		f := &v.frames[i]
		name := "script"
		if f.Closure.Function.Name != nil {
			name = f.Closure.Function.Name.Value
		}
		line := v.chunkOf(f).LineAt(f.IP - 1)
		frames = append(frames, StackFrame{Name: name, Line: line})
	}
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Frames: frames}
}

// reportRuntimeError logs the error and resets the VM's stacks so a
// subsequent Interpret call (the REPL's next line, for instance) can
// run cleanly. Per spec.md §7, the heap — globals included — survives
// a runtime error; only the value stack and frame stack are reset.
func (v *VM) reportRuntimeError(err error) {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		v.log.Error(rerr.Error())
	} else {
		v.log.Error("runtime error", zapErr(err))
	}
	v.stackTop = 0
	v.frameCount = 0
	v.openUpvalues = nil
}
