// Package parser implements the precedence-climbing expression parser
// described in §4.3: it drives a lexer.Lexer and an emitter.Emitter
// directly, with no intermediate syntax tree — each grammar production
// emits its instructions as it is recognized.
//
// Top-level items (named functions and bare top-level expressions) are
// each compiled into their own small bytecode.Module via an independent
// emitter.ModuleEmitter, then stitched into a single module with
// lang/linker.Merge. This keeps the straight-line body of the implicit
// __ctor__ entry point contiguous even when function definitions are
// interleaved with top-level expressions in the source, without requiring
// a two-pass scan or an intermediate tree representation.
package parser

import (
	"fmt"
	"strconv"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/emitter"
	"github.com/arcbyte/let/lang/lexer"
	"github.com/arcbyte/let/lang/linker"
	"github.com/arcbyte/let/lang/token"
)

// Parser walks a token stream produced by lexer.Lexer, emitting directly to
// whichever emitter.Emitter the current production targets.
type Parser struct {
	lex   lexer.Lexer
	tok   token.Kind
	lit   string
	start token.Pos
	end   token.Pos

	nextLabel uint64
}

// New returns a parser positioned before the first token of src.
func New(src []byte) *Parser {
	p := &Parser{}
	p.lex.Init(src)
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.tok = p.lex.Scan()
	p.lit = string(p.lex.Lexeme())
	p.start, p.end = p.lex.Range()
}

func (p *Parser) newLabel() uint64 {
	id := p.nextLabel
	p.nextLabel++
	return id
}

func (p *Parser) errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Start: p.start, End: p.end}
}

func (p *Parser) isIdent(s string) bool {
	return p.tok == token.Identifier && p.lit == s
}

func (p *Parser) isOperator(s string) bool {
	return p.tok == token.Operator && p.lit == s
}

func (p *Parser) expectOperator(s string) error {
	if !p.isOperator(s) {
		return p.errorf("expected %q, got %q", s, p.lit)
	}
	p.advance()
	return nil
}

// Compile parses the full source of one translation unit and returns one
// linked, resolved module: top-level expressions under the implicit
// __ctor__ entry label, plus every named `fn` definition.
func Compile(src []byte) (*bytecode.Module, error) {
	p := New(src)

	ctorEmit := emitter.NewModule()
	if err := ctorEmit.LabelNamed("__ctor__"); err != nil {
		return nil, err
	}
	ctorFn := newFunction()

	// __ctor__ is a zero-argument function like any other: the VM enters it
	// exactly as CALL would jump to a callee, so it needs the same PROC/RSV
	// prologue to reserve stack slots for its own let-bindings.
	ctorCursor := ctorEmit.Function(0)

	var fnModules []*bytecode.Module
	hasTopLevelExpr := false
	for p.tok != token.EOF {
		if p.isIdent("fn") {
			m, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			fnModules = append(fnModules, m)
			continue
		}
		if hasTopLevelExpr {
			ctorEmit.Drop()
		}
		hasTopLevelExpr = true
		if err := p.parseExpr(ctorEmit, ctorFn); err != nil {
			return nil, err
		}
	}

	modules := fnModules
	// A translation unit with no top-level expressions — a library of fn
	// definitions only — contributes no __ctor__ at all, so several such
	// units can be linked together (each defining distinct functions)
	// without colliding on the entry-point symbol. Exactly one linked
	// program's translation unit is expected to supply the top-level code
	// that becomes the runnable __ctor__.
	if hasTopLevelExpr {
		ctorEmit.Ret()
		ctorEmit.PatchReserve(ctorCursor, uint32(ctorFn.extraLocals()))

		ctorModule, err := ctorEmit.Finish()
		if err != nil {
			return nil, err
		}
		modules = append([]*bytecode.Module{ctorModule}, modules...)
	}
	return linker.Merge(modules...)
}

func (p *Parser) parseFunction() (*bytecode.Module, error) {
	p.advance() // "fn"
	if p.tok != token.Identifier {
		return nil, p.errorf("expected function name, got %q", p.lit)
	}
	name := p.lit
	p.advance()

	if err := p.expectOperator("("); err != nil {
		return nil, err
	}
	var params []string
	for !p.isOperator(")") {
		if p.tok != token.Identifier {
			return nil, p.errorf("expected parameter name, got %q", p.lit)
		}
		params = append(params, p.lit)
		p.advance()
	}
	if err := p.expectOperator(")"); err != nil {
		return nil, err
	}

	fe := emitter.NewModule()
	if err := fe.LabelNamed(name); err != nil {
		return nil, err
	}
	fn := newFunction()
	fn.params = len(params)
	for _, pname := range params {
		if _, err := fn.declare(pname); err != nil {
			return nil, err
		}
	}

	cursor := fe.Function(uint64(len(params)))
	if err := p.parseBlock(fe, fn); err != nil {
		return nil, err
	}
	fe.Ret()
	fe.PatchReserve(cursor, uint32(fn.extraLocals()))

	if !p.isIdent("end") {
		return nil, p.errorf("expected end, got %q", p.lit)
	}
	p.advance()

	return fe.Finish()
}

// parseBlock implements `block := expr { drop expr }`: one or more
// expressions, a DROP emitted between consecutive ones, stopping at a
// block terminator (end/elif/else) or EOF.
func (p *Parser) parseBlock(emit emitter.Emitter, fn *function) error {
	first := true
	for !p.atBlockEnd() {
		if !first {
			emit.Drop()
		}
		first = false
		if err := p.parseExpr(emit, fn); err != nil {
			return err
		}
	}
	if first {
		return p.errorf("empty block")
	}
	return nil
}

func (p *Parser) atBlockEnd() bool {
	if p.tok == token.EOF {
		return true
	}
	return p.tok == token.Identifier && (p.lit == "end" || p.lit == "elif" || p.lit == "else")
}

// parseExpr is the precedence-climbing entry point.
func (p *Parser) parseExpr(emit emitter.Emitter, fn *function) error {
	return p.parseBinary(emit, fn, 0)
}

func (p *Parser) parseBinary(emit emitter.Emitter, fn *function, minPrec int) error {
	if err := p.parsePrimary(emit, fn); err != nil {
		return err
	}
	for p.tok == token.Operator {
		t := lexer.Triple([]byte(p.lit))
		prec := precedence(t)
		if prec == 0 || prec < minPrec {
			break
		}
		if !emitter.HasBinaryOpcode(t) {
			return p.errorf("operator %q has no code generation target", p.lit)
		}
		p.advance()
		if err := p.parseBinary(emit, fn, prec+1); err != nil {
			return err
		}
		emit.Binary(t)
	}
	return nil
}

func (p *Parser) parsePrimary(emit emitter.Emitter, fn *function) error {
	switch {
	case p.tok == token.Integer:
		v, err := strconv.ParseInt(p.lit, 10, 64)
		if err != nil {
			return p.errorf("invalid integer %q: %v", p.lit, err)
		}
		emit.Integer(v)
		p.advance()
		return nil

	case p.tok == token.Real:
		v, err := strconv.ParseFloat(p.lit, 64)
		if err != nil {
			return p.errorf("invalid real %q: %v", p.lit, err)
		}
		emit.Real(v)
		p.advance()
		return nil

	case p.isIdent("if"):
		return p.parseIf(emit, fn)

	case p.isIdent("let"):
		return p.parseLet(emit, fn)

	case p.tok == token.Identifier:
		name := p.lit
		p.advance()
		if p.isOperator("(") {
			return p.parseCall(emit, fn, name)
		}
		p.reference(emit, fn, name)
		return nil

	case p.isOperator("("):
		p.advance()
		if err := p.parseExpr(emit, fn); err != nil {
			return err
		}
		return p.expectOperator(")")

	default:
		return p.errorf("unexpected token %q", p.lit)
	}
}

// reference emits a local load if name is a declared local in the current
// function, otherwise a named pointer link for the linker to resolve.
func (p *Parser) reference(emit emitter.Emitter, fn *function, name string) {
	if slot, ok := fn.resolve(name); ok {
		emit.Load(uint64(slot))
		return
	}
	emit.PointerNamed(name)
}

func (p *Parser) parseCall(emit emitter.Emitter, fn *function, name string) error {
	p.reference(emit, fn, name)
	if err := p.expectOperator("("); err != nil {
		return err
	}
	var argc int
	for !p.isOperator(")") {
		if err := p.parseExpr(emit, fn); err != nil {
			return err
		}
		argc++
		if argc > 255 {
			return p.errorf("call to %s exceeds 255 arguments", name)
		}
	}
	if err := p.expectOperator(")"); err != nil {
		return err
	}
	emit.Call(uint64(argc))
	return nil
}

// parseIf implements the control-flow lowering from §4.3: one end_if label
// allocated upfront, each if/elif arm emitting condition, JPF next, block,
// JP end_if, then defining next. A missing else arm pushes VOID so every
// path still yields exactly one value, as the invariant requires.
func (p *Parser) parseIf(emit emitter.Emitter, fn *function) error {
	p.advance() // "if"
	endLabel := p.newLabel()

	for {
		if err := p.parseExpr(emit, fn); err != nil {
			return err
		}
		nextLabel := p.newLabel()
		emit.JumpFalseID(nextLabel)

		fn.pushBlock()
		err := p.parseBlock(emit, fn)
		fn.popBlock()
		if err != nil {
			return err
		}

		emit.JumpID(endLabel)
		if err := emit.LabelID(nextLabel); err != nil {
			return err
		}

		if p.isIdent("elif") {
			p.advance()
			continue
		}
		break
	}

	if p.isIdent("else") {
		p.advance()
		fn.pushBlock()
		err := p.parseBlock(emit, fn)
		fn.popBlock()
		if err != nil {
			return err
		}
	} else {
		emit.Void()
	}

	if err := emit.LabelID(endLabel); err != nil {
		return err
	}

	if !p.isIdent("end") {
		return p.errorf("expected end, got %q", p.lit)
	}
	p.advance()
	return nil
}

// parseLet implements `let-expr := "let" IDENT "=" expr`. STORE peeks
// rather than pops, so the bound value remains on the stack as the
// let-expression's own result.
func (p *Parser) parseLet(emit emitter.Emitter, fn *function) error {
	p.advance() // "let"
	if p.tok != token.Identifier {
		return p.errorf("expected identifier after let, got %q", p.lit)
	}
	name := p.lit
	p.advance()

	if err := p.expectOperator("="); err != nil {
		return err
	}
	if err := p.parseExpr(emit, fn); err != nil {
		return err
	}

	slot, err := fn.declare(name)
	if err != nil {
		return err
	}
	emit.Store(uint64(slot))
	return nil
}
