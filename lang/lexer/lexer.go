// Package lexer turns a byte stream into the five token kinds the Let
// grammar needs: identifiers, integer and real literals, operators, and a
// catch-all "unknown" for anything else. It performs maximal-munch
// recognition of operators bounded at three bytes and reports the byte
// range of every lexeme so the parser (and ultimately the driver) can
// point at the exact source location of an error. Whitespace and
// "#"-to-end-of-line comments are skipped between tokens.
package lexer

import (
	"sort"

	"github.com/arcbyte/let/lang/token"
)

// Lexer scans a fixed byte slice, one lexeme at a time.
type Lexer struct {
	src []byte
	off int // offset of the next unconsumed byte

	// start/end hold the byte range of the lexeme produced by the most
	// recent call to Scan.
	start, end token.Pos
	lexeme     []byte
}

// Init resets the lexer to scan src from the beginning.
func (l *Lexer) Init(src []byte) {
	l.src = src
	l.off = 0
	l.start, l.end = 0, 0
	l.lexeme = nil
}

// Range returns the byte range of the lexeme produced by the last call to
// Scan, so the driver can print source locations on failure.
func (l *Lexer) Range() (start, end token.Pos) { return l.start, l.end }

// Lexeme returns the raw bytes of the lexeme produced by the last call to
// Scan. The returned slice aliases the input and must not be retained
// across a subsequent Init call.
func (l *Lexer) Lexeme() []byte { return l.lexeme }

func isLetter(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentByte(b byte) bool {
	return isLetter(b) || isDigit(b) || b == '.'
}

func (l *Lexer) skipSpace() {
	for l.off < len(l.src) {
		switch l.src[l.off] {
		case ' ', '\t', '\r', '\n':
			l.off++
		case '#':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.off++
			}
		default:
			return
		}
	}
}

// Scan consumes and returns the next token. At end of input it returns
// token.EOF with an empty lexeme.
func (l *Lexer) Scan() token.Kind {
	l.skipSpace()
	l.start = token.Pos(l.off)

	if l.off >= len(l.src) {
		l.end = l.start
		l.lexeme = nil
		return token.EOF
	}

	b := l.src[l.off]
	switch {
	case isLetter(b):
		return l.scanIdent()
	case isDigit(b):
		return l.scanNumber()
	default:
		if kind, ok := l.scanOperator(); ok {
			return kind
		}
		l.off++
		l.end = token.Pos(l.off)
		l.lexeme = l.src[l.start:l.off]
		return token.Unknown
	}
}

func (l *Lexer) scanIdent() token.Kind {
	start := l.off
	for l.off < len(l.src) && isIdentByte(l.src[l.off]) {
		l.off++
	}
	l.end = token.Pos(l.off)
	l.lexeme = l.src[start:l.off]
	return token.Identifier
}

func (l *Lexer) scanNumber() token.Kind {
	start := l.off
	for l.off < len(l.src) && isDigit(l.src[l.off]) {
		l.off++
	}
	kind := token.Integer
	if l.off < len(l.src) && l.src[l.off] == '.' && l.off+1 < len(l.src) && isDigit(l.src[l.off+1]) {
		kind = token.Real
		l.off++ // the dot
		for l.off < len(l.src) && isDigit(l.src[l.off]) {
			l.off++
		}
	}
	l.end = token.Pos(l.off)
	l.lexeme = l.src[start:l.off]
	return kind
}

// operator glyph tables, sorted for binary search. Recognition is
// maximal-munch: a trigraph wins over a digraph which wins over a
// single-byte operator.
var (
	trigraphs = sortedStrings([]string{"<<=", ">>="})
	digraphs  = sortedStrings([]string{
		"==", "!=", "<=", ">=", "&&", "||",
		"<<", ">>", "+=", "-=", "*=", "/=",
	})
	singles = sortedStrings([]string{
		"+", "-", "*", "/", "%", "<", ">", "=",
		"&", "|", "^", "~", "!", "(", ")", ",",
	})
)

func sortedStrings(ss []string) []string {
	sort.Strings(ss)
	return ss
}

func contains(table []string, s string) bool {
	i := sort.SearchStrings(table, s)
	return i < len(table) && table[i] == s
}

func (l *Lexer) scanOperator() (token.Kind, bool) {
	rest := l.src[l.off:]
	if len(rest) >= 3 && contains(trigraphs, string(rest[:3])) {
		l.off += 3
		l.end = token.Pos(l.off)
		l.lexeme = l.src[int(l.start):l.off]
		return token.Operator, true
	}
	if len(rest) >= 2 && contains(digraphs, string(rest[:2])) {
		l.off += 2
		l.end = token.Pos(l.off)
		l.lexeme = l.src[int(l.start):l.off]
		return token.Operator, true
	}
	if len(rest) >= 1 && contains(singles, string(rest[:1])) {
		l.off++
		l.end = token.Pos(l.off)
		l.lexeme = l.src[int(l.start):l.off]
		return token.Operator, true
	}
	return token.Unknown, false
}

// Triple pads an operator lexeme (1, 2 or 3 bytes) to a fixed [3]byte key,
// padding unused trailing bytes with a space, for use by Precedence and the
// emitter's binary operator lookup.
func Triple(lexeme []byte) [3]byte {
	var t [3]byte
	t[0], t[1], t[2] = ' ', ' ', ' '
	copy(t[:], lexeme)
	return t
}
