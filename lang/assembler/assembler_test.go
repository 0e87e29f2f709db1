package assembler_test

import (
	"testing"

	"github.com/arcbyte/let/lang/assembler"
	"github.com/arcbyte/let/lang/parser"
	"github.com/arcbyte/let/lang/vm"
	"github.com/stretchr/testify/require"
)

func TestAssembleSimpleProgram(t *testing.T) {
	src := `
__ctor__:
	PROC 0
	RSV 0
	INT1 2
	INT1 3
	ADD
	RET
`
	m, err := assembler.Assemble([]byte(src))
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	require.Contains(t, m.Labels, "__ctor__")

	machine := vm.New(m, vm.RunConfig{StackCapacity: 32})
	v, err := machine.Run("__ctor__")
	require.NoError(t, err)
	require.Equal(t, vm.Integer(5), v)
}

func TestAssembleUnknownMnemonicIsError(t *testing.T) {
	_, err := assembler.Assemble([]byte("\tBOGUS 1\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 1")
}

func TestAssembleUndefinedLinkSurvivesForLinker(t *testing.T) {
	src := `
fn:
	PROC 0
	RSV 0
	PTR elsewhere
	CALL 0
	RET
`
	m, err := assembler.Assemble([]byte(src))
	require.NoError(t, err)
	require.Contains(t, m.Links, "elsewhere")
}

func TestDisassembleThenReassembleRoundTrips(t *testing.T) {
	src := `
__ctor__:
	PROC 0
	RSV 1
	INT1 10
	STO1 1
	LD1 1
	INT1 1
	ADD
	RET
`
	m1, err := assembler.Assemble([]byte(src))
	require.NoError(t, err)

	text, err := assembler.Disassemble(m1)
	require.NoError(t, err)

	m2, err := assembler.Assemble([]byte(text))
	require.NoError(t, err)

	require.Equal(t, m1.Opcodes, m2.Opcodes)
	require.Equal(t, m1.Labels, m2.Labels)
}

func TestDisassembleCompiledProgramRoundTrips(t *testing.T) {
	m, err := parser.Compile([]byte("fn add(a b) a + b end\nadd(2 3)"))
	require.NoError(t, err)

	text, err := assembler.Disassemble(m)
	require.NoError(t, err)

	m2, err := assembler.Assemble([]byte(text))
	require.NoError(t, err)

	require.Equal(t, m.Opcodes, m2.Opcodes)

	machine := vm.New(m2, vm.RunConfig{StackCapacity: 32})
	v, err := machine.Run("__ctor__")
	require.NoError(t, err)
	require.Equal(t, vm.Integer(5), v)
}
