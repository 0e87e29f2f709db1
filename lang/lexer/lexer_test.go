package lexer_test

import (
	"testing"

	"github.com/arcbyte/let/lang/lexer"
	"github.com/arcbyte/let/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []struct {
	kind token.Kind
	lit  string
} {
	t.Helper()
	var l lexer.Lexer
	l.Init([]byte(src))
	var out []struct {
		kind token.Kind
		lit  string
	}
	for {
		k := l.Scan()
		if k == token.EOF {
			break
		}
		out = append(out, struct {
			kind token.Kind
			lit  string
		}{k, string(l.Lexeme())})
	}
	return out
}

func TestScanBasic(t *testing.T) {
	toks := scanAll(t, "fn add(a b) a + b end")
	require.Equal(t, []string{"fn", "add", "(", "a", "b", ")", "a", "+", "b", "end"}, litsOf(toks))
}

func litsOf(toks []struct {
	kind token.Kind
	lit  string
}) []string {
	out := make([]string, len(toks))
	for i, tv := range toks {
		out[i] = tv.lit
	}
	return out
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll(t, "1 23 1.5 10.25 3.")
	require.Equal(t, token.Integer, toks[0].kind)
	require.Equal(t, token.Integer, toks[1].kind)
	require.Equal(t, token.Real, toks[2].kind)
	require.Equal(t, token.Real, toks[3].kind)
	// "3." has no digit after the dot: the dot is not part of the number.
	require.Equal(t, token.Integer, toks[4].kind)
	require.Equal(t, "3", toks[4].lit)
}

func TestMaximalMunch(t *testing.T) {
	toks := scanAll(t, "<<= << < <=")
	require.Equal(t, []string{"<<=", "<<", "<", "<="}, litsOf(toks))
	for _, tv := range toks {
		require.Equal(t, token.Operator, tv.kind)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := scanAll(t, "1 # trailing comment\n+ 2 # another\n")
	require.Equal(t, []string{"1", "+", "2"}, litsOf(toks))
}

func TestUnknown(t *testing.T) {
	toks := scanAll(t, "@")
	require.Len(t, toks, 1)
	require.Equal(t, token.Unknown, toks[0].kind)
}

func TestTriplePadding(t *testing.T) {
	require.Equal(t, [3]byte{'+', ' ', ' '}, lexer.Triple([]byte("+")))
	require.Equal(t, [3]byte{'=', '=', ' '}, lexer.Triple([]byte("==")))
	require.Equal(t, [3]byte{'<', '<', '='}, lexer.Triple([]byte("<<=")))
}
