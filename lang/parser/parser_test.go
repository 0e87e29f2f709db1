package parser_test

import (
	"testing"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/parser"
	"github.com/stretchr/testify/require"
)

func TestCompileSimpleArithmetic(t *testing.T) {
	m, err := parser.Compile([]byte("1 + 2 * 3"))
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	require.Contains(t, m.Labels, "__ctor__")
	require.Equal(t, byte(bytecode.RET), m.Opcodes[len(m.Opcodes)-1])
}

func TestCompileFunctionAndCtorLinked(t *testing.T) {
	m, err := parser.Compile([]byte("fn add(a b) a + b end\nadd(2 3)"))
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	require.Contains(t, m.Labels, "add")
	require.Contains(t, m.Labels, "__ctor__")
	require.Empty(t, m.Links)
}

func TestCompileLetBinding(t *testing.T) {
	m, err := parser.Compile([]byte("let x = 10\nlet y = 20\nx * y"))
	require.NoError(t, err)
	require.NoError(t, m.Validate())
}

func TestCompileIfElifElse(t *testing.T) {
	m, err := parser.Compile([]byte("if 1 == 1 7 elif 0 8 else 9 end"))
	require.NoError(t, err)
	require.NoError(t, m.Validate())
}

func TestCompileIfWithoutElseSynthesizesVoid(t *testing.T) {
	m, err := parser.Compile([]byte("if 1 == 1 7 end"))
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	var sawVoid bool
	for _, b := range m.Opcodes {
		if bytecode.Opcode(b) == bytecode.VOID {
			sawVoid = true
		}
	}
	require.True(t, sawVoid)
}

func TestCompileDuplicateLocalInSameBlockErrors(t *testing.T) {
	_, err := parser.Compile([]byte("fn f(x) let x = 1 x end"))
	require.Error(t, err)
}

func TestCompileShadowInNestedBlockOK(t *testing.T) {
	_, err := parser.Compile([]byte("fn f(x) if x < 1 let x = 9 x else x end end"))
	require.NoError(t, err)
}

func TestCompileTooManyArguments(t *testing.T) {
	src := "fn f() 0 end\nf("
	args := make([]byte, 0, 256*2)
	for i := 0; i < 256; i++ {
		args = append(args, []byte("1 ")...)
	}
	_, err := parser.Compile([]byte(src + string(args) + ")"))
	require.Error(t, err)
}

func TestCompileUnknownIdentifierBecomesExternalLink(t *testing.T) {
	m, err := parser.Compile([]byte("never_defined_fn(1)"))
	require.NoError(t, err)
	require.Contains(t, m.Links, "never_defined_fn")
}
