package bytecode_test

import (
	"testing"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/stretchr/testify/require"
)

func sampleModule() *bytecode.Module {
	m := bytecode.New()
	// RET DROP LD1 5 PTR <8 zero bytes, a link site>
	m.Opcodes = append(m.Opcodes, byte(bytecode.RET), byte(bytecode.DROP))
	m.Opcodes = append(m.Opcodes, byte(bytecode.LD1), 5)
	ptrSite := len(m.Opcodes) + 1
	m.Opcodes = append(m.Opcodes, byte(bytecode.PTR))
	m.Opcodes = append(m.Opcodes, make([]byte, 8)...)
	m.Labels["main"] = 0
	m.Labels["helper"] = 2
	m.Links["external"] = []uint64{uint64(ptrSite)}
	return m
}

func TestRoundTrip(t *testing.T) {
	m := sampleModule()
	b, err := m.Encode()
	require.NoError(t, err)

	got, err := bytecode.Decode(b)
	require.NoError(t, err)
	require.Equal(t, m.Opcodes, got.Opcodes)
	require.Equal(t, m.Labels, got.Labels)
	require.Equal(t, m.Links, got.Links)
}

func TestDecodeBadMagic(t *testing.T) {
	_, err := bytecode.Decode([]byte("nope"))
	require.Error(t, err)
}

func TestPatchAddress(t *testing.T) {
	m := sampleModule()
	sites := m.Links["external"]
	require.NoError(t, m.PatchAddress(sites[0], 0xDEADBEEF))
	require.NoError(t, m.Validate())

	err := m.PatchAddress(uint64(len(m.Opcodes)), 1)
	require.Error(t, err)
}

func TestValidateCatchesOutOfBounds(t *testing.T) {
	m := sampleModule()
	m.Labels["oops"] = uint64(len(m.Opcodes)) + 1
	require.Error(t, m.Validate())

	m2 := sampleModule()
	m2.Links["oops"] = []uint64{uint64(len(m2.Opcodes))}
	require.Error(t, m2.Validate())
}
