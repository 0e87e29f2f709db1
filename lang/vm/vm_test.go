package vm_test

import (
	"testing"

	"github.com/arcbyte/let/lang/parser"
	"github.com/arcbyte/let/lang/vm"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) vm.Value {
	t.Helper()
	m, err := parser.Compile([]byte(src))
	require.NoError(t, err)

	machine := vm.New(m, vm.RunConfig{StackCapacity: 64})
	v, err := machine.Run("__ctor__")
	require.NoError(t, err)
	return v
}

func TestArithmeticPrecedence(t *testing.T) {
	v := run(t, "1 + 2 * 3")
	require.Equal(t, vm.Integer(7), v)
}

func TestFunctionCall(t *testing.T) {
	v := run(t, "fn add(a b) a + b end\nadd(2 3)")
	require.Equal(t, vm.Integer(5), v)
}

func TestRecursiveFunction(t *testing.T) {
	v := run(t, `fn fact(n)
		if n < 2 1 else n * fact(n - 1) end
	end
	fact(5)`)
	require.Equal(t, vm.Integer(120), v)
}

func TestLetBindingsAreExpressions(t *testing.T) {
	v := run(t, "let x = 10\nlet y = 20\nx * y")
	require.Equal(t, vm.Integer(200), v)
}

func TestIfElifElse(t *testing.T) {
	require.Equal(t, vm.Integer(7), run(t, "if 1 == 1 7 elif 0 == 0 8 else 9 end"))
	require.Equal(t, vm.Integer(8), run(t, "if 1 == 2 7 elif 1 == 1 8 else 9 end"))
	require.Equal(t, vm.Integer(9), run(t, "if 1 == 2 7 elif 2 == 3 8 else 9 end"))
}

func TestIfWithoutElseYieldsVoid(t *testing.T) {
	v := run(t, "if 1 == 2 7 end")
	require.Equal(t, vm.Void{}, v)
}

func TestShadowingInNestedBlock(t *testing.T) {
	v := run(t, "fn f(x) if x < 1 let x = 9 x else x end end\nf(0)")
	require.Equal(t, vm.Integer(9), v)
}

func TestTypeMismatchIsRuntimeError(t *testing.T) {
	m, err := parser.Compile([]byte("1 + 2.0"))
	require.NoError(t, err)
	machine := vm.New(m, vm.RunConfig{StackCapacity: 64})
	_, err = machine.Run("__ctor__")
	require.Error(t, err)
	var typeErr *vm.TypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestStepLimitStopsRunawayLoop(t *testing.T) {
	m, err := parser.Compile([]byte(`fn loop(n) loop(n + 1) end
	loop(0)`))
	require.NoError(t, err)
	machine := vm.New(m, vm.RunConfig{StackCapacity: 1 << 16, MaxSteps: 1000})
	_, err = machine.Run("__ctor__")
	require.Error(t, err)
	var stepErr *vm.StepLimitError
	require.ErrorAs(t, err, &stepErr)
}
