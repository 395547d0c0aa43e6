// Package test provides black-box, end-to-end tests for rose: source
// in, observable behavior out, through the real lexer/parser/compiler
// and VM dispatch loop together.
package test

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roselang/rose/pkg/compiler"
	"github.com/roselang/rose/pkg/vm"
)

func newVM(t *testing.T, stdout *bytes.Buffer) *vm.VM {
	t.Helper()
	v := vm.New(
		vm.WithFilesystem(afero.NewMemMapFs()),
		vm.WithLogger(zap.NewNop()),
		vm.WithStdout(stdout),
	)
	vm.WithCompiler(compiler.CompileFunc(v))(v)
	return v
}

func run(t *testing.T, source string) (string, vm.InterpretResult) {
	t.Helper()
	var out bytes.Buffer
	v := newVM(t, &out)
	defer v.Free()
	result := v.Interpret(source, "/scripts", "/exe")
	return out.String(), result
}

func TestArithmeticPrecedence(t *testing.T) {
	out, result := run(t, `print 2 + 3 * 4;`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "14\n", out)
}

func TestArithmeticGroupingOverridesPrecedence(t *testing.T) {
	out, result := run(t, `print (2 + 3) * 4;`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "20\n", out)
}

func TestGlobalVariablesPersistAcrossStatements(t *testing.T) {
	out, result := run(t, `
		var total = 0;
		total = total + 1;
		total = total + 2;
		print total;
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "3\n", out)
}

func TestClosuresShareTheirCapturedVariable(t *testing.T) {
	out, result := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestClassesInheritanceAndSuper(t *testing.T) {
	out, result := run(t, `
		class Animal {
			construct(name) {
				this.name = name;
			}
			speak() {
				print this.name + " makes a sound.";
			}
		}
		class Dog < Animal {
			speak() {
				super.speak();
				print this.name + " barks.";
			}
		}
		var d = Dog("Rex");
		d.speak();
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "Rex makes a sound.\nRex barks.\n", out)
}

func TestUpvalueClosesOverValueOnReturn(t *testing.T) {
	out, result := run(t, `
		fun outer() {
			var x = "outer value";
			fun inner() {
				print x;
			}
			return inner;
		}
		var closure = outer();
		closure();
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "outer value\n", out)
}

func TestRuntimeErrorOnUndefinedVariableStopsExecution(t *testing.T) {
	out, result := run(t, `
		print "before";
		print undefined;
		print "after";
	`)
	assert.Equal(t, vm.InterpretRuntimeError, result)
	assert.Equal(t, "before\n", out, "statements before the failing one should still have run")
	assert.NotContains(t, out, "after", "execution should stop at the runtime error")
}

func TestRuntimeErrorLeavesGlobalsIntactForNextInterpretCall(t *testing.T) {
	var out bytes.Buffer
	v := newVM(t, &out)
	defer v.Free()

	result := v.Interpret(`var shared = 10;`, "/scripts", "/exe")
	require.Equal(t, vm.InterpretOK, result)

	result = v.Interpret(`print nope;`, "/scripts", "/exe")
	require.Equal(t, vm.InterpretRuntimeError, result)

	out.Reset()
	result = v.Interpret(`print shared;`, "/scripts", "/exe")
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "10\n", out.String(), "a runtime error should not clear globals defined earlier")
}

func TestArraysSupportPushPopGetSet(t *testing.T) {
	out, result := run(t, `
		var xs = [1, 2, 3];
		push(xs, 4);
		print len(xs);
		set(xs, 0, 99);
		print get(xs, 0);
		pop(xs);
		print len(xs);
	`)
	require.Equal(t, vm.InterpretOK, result)
	assert.Equal(t, "4\n99\n3\n", out)
}

func TestCompileErrorIsReportedWithoutRunning(t *testing.T) {
	out, result := run(t, `var x = ;`)
	assert.Equal(t, vm.InterpretCompileError, result)
	assert.Empty(t, out)
}
