package parser

import (
	"strings"

	"github.com/arcbyte/let/lang/emitter"
	"github.com/arcbyte/let/lang/token"
)

// CompileText parses src exactly as Compile does, but drives an
// emitter.TextEmitter at each step instead of an emitter.ModuleEmitter, so
// that `letc -a` produces its listing straight from the parse instead of
// compiling to binary and decompiling the result back into text. The two
// emitters are driven by the same parseExpr/parseBlock productions (§4.4:
// "Both are interchangeable; the parser consumes the abstract interface").
//
// Unlike Compile, no link pass is needed: every reference in the rendered
// text is already either a name or a numeric "@lbl_<id>" label, so
// concatenating each unit's text in source order — __ctor__ first, then
// each fn in turn — reproduces exactly what leta would read back in,
// without rebasing any addresses.
func CompileText(src []byte) (string, error) {
	p := New(src)

	ctorEmit := emitter.NewText()
	if err := ctorEmit.LabelNamed("__ctor__"); err != nil {
		return "", err
	}
	ctorFn := newFunction()
	ctorCursor := ctorEmit.Function(0)

	var fnText []string
	hasTopLevelExpr := false
	for p.tok != token.EOF {
		if p.isIdent("fn") {
			text, err := p.parseFunctionText()
			if err != nil {
				return "", err
			}
			fnText = append(fnText, text)
			continue
		}
		if hasTopLevelExpr {
			ctorEmit.Drop()
		}
		hasTopLevelExpr = true
		if err := p.parseExpr(ctorEmit, ctorFn); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	if hasTopLevelExpr {
		ctorEmit.Ret()
		ctorEmit.PatchReserve(ctorCursor, uint32(ctorFn.extraLocals()))
		b.Write(ctorEmit.Bytes())
	}
	for _, text := range fnText {
		b.WriteString(text)
	}
	return b.String(), nil
}

// parseFunctionText is parseFunction's TextEmitter counterpart.
func (p *Parser) parseFunctionText() (string, error) {
	p.advance() // "fn"
	if p.tok != token.Identifier {
		return "", p.errorf("expected function name, got %q", p.lit)
	}
	name := p.lit
	p.advance()

	if err := p.expectOperator("("); err != nil {
		return "", err
	}
	var params []string
	for !p.isOperator(")") {
		if p.tok != token.Identifier {
			return "", p.errorf("expected parameter name, got %q", p.lit)
		}
		params = append(params, p.lit)
		p.advance()
	}
	if err := p.expectOperator(")"); err != nil {
		return "", err
	}

	te := emitter.NewText()
	if err := te.LabelNamed(name); err != nil {
		return "", err
	}
	fn := newFunction()
	fn.params = len(params)
	for _, pname := range params {
		if _, err := fn.declare(pname); err != nil {
			return "", err
		}
	}

	cursor := te.Function(uint64(len(params)))
	if err := p.parseBlock(te, fn); err != nil {
		return "", err
	}
	te.Ret()
	te.PatchReserve(cursor, uint32(fn.extraLocals()))

	if !p.isIdent("end") {
		return "", p.errorf("expected end, got %q", p.lit)
	}
	p.advance()

	return string(te.Bytes()), nil
}
