// Package token defines the lexical token kinds produced by the lexer and
// the byte-offset position bookkeeping shared by the lexer, parser,
// assembler and their error reporting.
package token

// Kind identifies the category of a scanned lexeme.
type Kind int8

//nolint:revive
const (
	EOF Kind = iota
	Identifier
	Integer
	Real
	Operator
	Unknown
)

var kindNames = [...]string{
	EOF:        "end of file",
	Identifier: "identifier",
	Integer:    "integer literal",
	Real:       "real literal",
	Operator:   "operator",
	Unknown:    "unknown token",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid token kind"
}
