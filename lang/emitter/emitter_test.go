package emitter_test

import (
	"testing"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/emitter"
	"github.com/stretchr/testify/require"
)

func TestModuleEmitterBasic(t *testing.T) {
	e := emitter.NewModule()
	e.Integer(5)
	e.Integer(3)
	e.Binary(triple("+"))
	e.Ret()

	m, err := e.Finish()
	require.NoError(t, err)
	require.Equal(t, []byte{
		byte(bytecode.INT1), 5,
		byte(bytecode.INT1), 3,
		byte(bytecode.ADD),
		byte(bytecode.RET),
	}, m.Opcodes)
}

func TestModuleEmitterForwardJump(t *testing.T) {
	e := emitter.NewModule()
	e.JumpNamed("skip")
	e.Integer(1)
	require.NoError(t, e.LabelNamed("skip"))
	e.Ret()

	m, err := e.Finish()
	require.NoError(t, err)
	require.Empty(t, m.Links)
	require.Equal(t, uint64(11), m.Labels["skip"])
}

func TestModuleEmitterUndefinedExternSurvives(t *testing.T) {
	e := emitter.NewModule()
	e.PointerNamed("other_module_fn")
	e.Ret()

	m, err := e.Finish()
	require.NoError(t, err)
	require.Contains(t, m.Links, "other_module_fn")
}

func TestModuleEmitterWidthSelection(t *testing.T) {
	e := emitter.NewModule()
	e.Load(0)
	e.Load(300)
	e.Load(1 << 30)
	m, err := e.Finish()
	require.NoError(t, err)
	require.Equal(t, byte(bytecode.LD1), m.Opcodes[0])
	require.Equal(t, byte(bytecode.LD3), m.Opcodes[2])
	require.Equal(t, byte(bytecode.LD8), m.Opcodes[6])
}

func TestBinaryPanicsOnUnmapped(t *testing.T) {
	e := emitter.NewModule()
	require.Panics(t, func() { e.Binary(triple("%")) })
}

func TestHasBinaryOpcode(t *testing.T) {
	require.True(t, emitter.HasBinaryOpcode(triple("+")))
	require.False(t, emitter.HasBinaryOpcode(triple("%")))
}

func TestModuleEmitterFunctionPrologue(t *testing.T) {
	e := emitter.NewModule()
	require.NoError(t, e.LabelNamed("add"))
	cursor := e.Function(2)
	e.PatchReserve(cursor, 3)
	e.Ret()

	m, err := e.Finish()
	require.NoError(t, err)
	require.Equal(t, byte(bytecode.PROC), m.Opcodes[0])
	require.Equal(t, byte(2), m.Opcodes[1])
	require.Equal(t, byte(bytecode.RSV), m.Opcodes[2])
	require.Equal(t, []byte{0, 0, 3}, m.Opcodes[3:6])
}

func TestTextEmitterRendersMnemonics(t *testing.T) {
	e := emitter.NewText()
	e.Integer(5)
	e.Integer(3)
	e.Binary(triple("+"))
	e.Ret()

	out := string(e.Bytes())
	require.Contains(t, out, "INT1 5")
	require.Contains(t, out, "ADD")
	require.Contains(t, out, "RET")
}

func triple(s string) [3]byte {
	var t [3]byte
	copy(t[:], s)
	for i := len(s); i < 3; i++ {
		t[i] = ' '
	}
	return t
}
