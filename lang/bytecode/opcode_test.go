package bytecode_test

import (
	"testing"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/stretchr/testify/require"
)

func TestOperandWidth(t *testing.T) {
	cases := []struct {
		op   bytecode.Opcode
		want int
	}{
		{bytecode.RET, 0},
		{bytecode.ADD, 0},
		{bytecode.LD1, 1},
		{bytecode.CALL, 1},
		{bytecode.LD3, 3},
		{bytecode.JP, 8},
		{bytecode.PTR, 8},
		{bytecode.LD8, 8},
		{bytecode.REAL, 8},
	}
	for _, c := range cases {
		require.Equalf(t, c.want, c.op.OperandWidth(), "%s", c.op)
		require.Equal(t, 1+c.want, c.op.EncodedSize())
	}
}

func TestIsAddress(t *testing.T) {
	for _, op := range []bytecode.Opcode{bytecode.JP, bytecode.JPF, bytecode.PTR} {
		require.True(t, bytecode.IsAddress(op))
	}
	for _, op := range []bytecode.Opcode{bytecode.LD8, bytecode.STO8, bytecode.INT8, bytecode.REAL, bytecode.ADD} {
		require.False(t, bytecode.IsAddress(op))
	}
}

func TestWidthFor(t *testing.T) {
	require.Equal(t, bytecode.LD1, bytecode.WidthFor(0, bytecode.LD1, bytecode.LD3, bytecode.LD8))
	require.Equal(t, bytecode.LD1, bytecode.WidthFor(255, bytecode.LD1, bytecode.LD3, bytecode.LD8))
	require.Equal(t, bytecode.LD3, bytecode.WidthFor(256, bytecode.LD1, bytecode.LD3, bytecode.LD8))
	require.Equal(t, bytecode.LD3, bytecode.WidthFor(0xFF_FFFF, bytecode.LD1, bytecode.LD3, bytecode.LD8))
	require.Equal(t, bytecode.LD8, bytecode.WidthFor(0x100_0000, bytecode.LD1, bytecode.LD3, bytecode.LD8))
}

func TestLookupAndString(t *testing.T) {
	op, ok := bytecode.Lookup("ADD")
	require.True(t, ok)
	require.Equal(t, bytecode.ADD, op)
	require.Equal(t, "ADD", op.String())

	_, ok = bytecode.Lookup("NOPE")
	require.False(t, ok)

	require.Contains(t, bytecode.Opcode(0xFF).String(), "illegal opcode")
}
