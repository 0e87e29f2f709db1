package parser

import "github.com/arcbyte/let/lang/token"

// Error is a structured parse error carrying the byte range of the token
// that triggered it, so a driver can render a source-annotated message
// without the parser needing to know about files or line numbers itself.
type Error struct {
	Msg        string
	Start, End token.Pos
}

func (e *Error) Error() string { return e.Msg }
