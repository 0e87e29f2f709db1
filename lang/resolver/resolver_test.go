package resolver_test

import (
	"strings"
	"testing"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/resolver"
	"github.com/stretchr/testify/require"
)

func TestNamedForwardReference(t *testing.T) {
	r := resolver.New()
	m := bytecode.New()
	m.Opcodes = make([]byte, 24)

	r.PushLinkNamed("loop", 0)
	r.PushLinkNamed("loop", 16)
	require.NoError(t, r.PushLabelNamed("loop", 8))

	require.NoError(t, r.Resolve(m))
	require.Empty(t, r.Pending())

	labels, links := r.ExportNamed()
	require.Equal(t, map[string]uint64{"loop": 8}, labels)
	require.Empty(t, links)
}

func TestNamedDuplicateLabel(t *testing.T) {
	r := resolver.New()
	require.NoError(t, r.PushLabelNamed("x", 0))
	require.Error(t, r.PushLabelNamed("x", 8))
}

func TestNumericDuplicateLabel(t *testing.T) {
	r := resolver.New()
	require.NoError(t, r.PushLabelID(1, 0))
	require.Error(t, r.PushLabelID(1, 8))
}

func TestNumericUnresolvedIsError(t *testing.T) {
	r := resolver.New()
	m := bytecode.New()
	m.Opcodes = make([]byte, 16)
	r.PushLinkID(7, 0)

	require.Error(t, r.Resolve(m))
}

func TestUndefinedNamedSurvivesForLinker(t *testing.T) {
	r := resolver.New()
	m := bytecode.New()
	m.Opcodes = make([]byte, 16)
	r.PushLinkNamed("extern_fn", 0)

	require.NoError(t, r.Resolve(m))
	require.Equal(t, []string{"extern_fn"}, r.Pending())

	_, links := r.ExportNamed()
	require.Equal(t, map[string][]uint64{"extern_fn": {0}}, links)
}

func TestSaveLoadLabelsRoundTrip(t *testing.T) {
	r := resolver.New()
	require.NoError(t, r.PushLabelNamed("main", 0))
	r.PushLinkNamed("helper", 12)
	r.PushLinkNamed("helper", 40)

	var buf strings.Builder
	require.NoError(t, r.SaveLabels(&buf, "mod_a"))

	out := buf.String()
	require.Contains(t, out, "mod_a.main 0")
	require.Contains(t, out, "mod_a.helper None 12 40")

	loaded, err := resolver.LoadLabels(strings.NewReader(out))
	require.NoError(t, err)
	labels, links := loaded.ExportNamed()
	require.Equal(t, map[string]uint64{"mod_a.main": 0}, labels)
	require.Equal(t, map[string][]uint64{"mod_a.helper": {12, 40}}, links)
}

func TestImportNamedFromModule(t *testing.T) {
	m := bytecode.New()
	m.Opcodes = make([]byte, 16)
	m.Labels["f"] = 4
	m.Links["g"] = []uint64{0}

	r := resolver.New()
	r.ImportNamed(m.Labels, m.Links)
	require.NoError(t, r.PushLabelNamed("g", 8))
	require.NoError(t, r.Resolve(m))
	require.Empty(t, r.Pending())
}
