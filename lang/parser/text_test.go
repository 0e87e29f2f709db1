package parser_test

import (
	"strings"
	"testing"

	"github.com/arcbyte/let/lang/assembler"
	"github.com/arcbyte/let/lang/parser"
	"github.com/stretchr/testify/require"
)

func TestCompileTextRendersCtorLabel(t *testing.T) {
	text, err := parser.CompileText([]byte("2 + 3"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(text, "__ctor__:"))
	require.Contains(t, text, "\tINT1 2")
	require.Contains(t, text, "\tINT1 3")
	require.Contains(t, text, "\tADD")
	require.Contains(t, text, "\tRET")
}

// TestCompileTextNumericLabelsUseLblPrefix covers §6's assembly text format:
// compiler-internal numeric labels (here, the one an if/else lowers to)
// render as "@lbl_<id>", not a bare "@<id>".
func TestCompileTextNumericLabelsUseLblPrefix(t *testing.T) {
	text, err := parser.CompileText([]byte("if 1 == 1 7 else 8 end"))
	require.NoError(t, err)
	require.Contains(t, text, "@lbl_0:")
	require.Contains(t, text, "JPF @lbl_1")
	require.Contains(t, text, "JP @lbl_0")
}

// TestCompileTextRoundTripsThroughAssembler checks that assembling
// CompileText's output reproduces the same opcode stream Compile builds
// directly, for a source with no linking required (a single translation
// unit's __ctor__ only).
func TestCompileTextRoundTripsThroughAssembler(t *testing.T) {
	src := []byte("let x = 1\nlet y = 2\nx + y")

	want, err := parser.Compile(src)
	require.NoError(t, err)

	text, err := parser.CompileText(src)
	require.NoError(t, err)

	got, err := assembler.Assemble([]byte(text))
	require.NoError(t, err)

	require.Equal(t, want.Opcodes, got.Opcodes)
	require.Equal(t, want.Labels, got.Labels)
}

func TestCompileTextFunctionAndCtor(t *testing.T) {
	text, err := parser.CompileText([]byte("fn square(x) x * x end\nsquare(9)"))
	require.NoError(t, err)
	require.Contains(t, text, "__ctor__:")
	require.Contains(t, text, "square:")
	require.Contains(t, text, "\tPTR square")
	require.Contains(t, text, "\tCALL 1")
}
