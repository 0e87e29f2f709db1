// Package emitter defines the Emitter interface through which the parser
// turns a parsed expression into instructions, and a binary implementation
// that writes those instructions straight into a bytecode.Module.
//
// A second implementation, in text.go, renders the same calls as the
// assembler's textual mnemonic form, so the compiler can produce assembly
// output (letc -a) using the exact same call sequence it uses to produce a
// binary module.
package emitter

import (
	"fmt"
	"math"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/resolver"
)

// Emitter is the sink the parser drives while walking an expression or
// statement tree. Every method appends one instruction (or, for labels,
// marks the current offset) to the module under construction.
type Emitter interface {
	// Integer emits the width-optimal integer literal opcode for value.
	Integer(value int64)
	// Real emits a REAL literal.
	Real(value float64)
	// Binary emits the opcode for a binary operator glyph triple, as
	// produced by lexer.Triple. Panics if the triple names an operator
	// with no corresponding opcode: the parser must reject those before
	// reaching code generation.
	Binary(triple [3]byte)
	// Load emits the width-optimal local-slot load for slot.
	Load(slot uint64)
	// Store emits the width-optimal local-slot store for slot.
	Store(slot uint64)
	// Void emits VOID.
	Void()
	// List emits LIST.
	List()
	// Drop emits DROP.
	Drop()
	// Ret emits RET.
	Ret()
	// Call emits CALL with the given argument count.
	Call(argc uint64)
	// PointerNamed emits PTR with an address operand linked to name (a
	// forward or cross-module reference).
	PointerNamed(name string)
	// PointerID emits PTR with an address operand linked to a
	// compiler-internal numeric label (never crosses a module boundary).
	PointerID(id uint64)
	// LabelNamed marks the current offset as the address of name.
	LabelNamed(name string) error
	// LabelID marks the current offset as the address of numeric label id.
	LabelID(id uint64) error
	// JumpNamed emits an unconditional JP to name.
	JumpNamed(name string)
	// JumpID emits an unconditional JP to numeric label id.
	JumpID(id uint64)
	// JumpFalseNamed emits a JPF to name.
	JumpFalseNamed(name string)
	// JumpFalseID emits a JPF to numeric label id.
	JumpFalseID(id uint64)
	// Offset returns the current write position, i.e. the address the
	// next emitted instruction will occupy.
	Offset() uint64
	// Function emits the function-prologue pair (PROC argc, RSV 0) and
	// returns an opaque cursor that a later PatchReserve call uses to fill
	// in the real stack reservation once the body's slot count is known.
	Function(argCount uint64) (cursor uint64)
	// PatchReserve overwrites the reservation recorded at cursor (as
	// returned by Function) with the final value.
	PatchReserve(cursor uint64, reserve uint32)
}

// ModuleEmitter implements Emitter by writing real opcodes into a
// bytecode.Module, using a resolver.Resolver to back-patch forward
// references once the enclosing function or program has been fully
// emitted.
type ModuleEmitter struct {
	Module   *bytecode.Module
	Resolver *resolver.Resolver
}

// NewModule returns a ModuleEmitter over a fresh module and resolver.
func NewModule() *ModuleEmitter {
	return &ModuleEmitter{
		Module:   bytecode.New(),
		Resolver: resolver.New(),
	}
}

func (e *ModuleEmitter) Offset() uint64 { return uint64(len(e.Module.Opcodes)) }

func (e *ModuleEmitter) emit0(op bytecode.Opcode) {
	e.Module.Opcodes = append(e.Module.Opcodes, byte(op))
}

func (e *ModuleEmitter) emitWidth(value uint64, w1, w3, w8 bytecode.Opcode) {
	op := bytecode.WidthFor(value, w1, w3, w8)
	e.Module.Opcodes = append(e.Module.Opcodes, byte(op))
	switch op.OperandWidth() {
	case 1:
		e.Module.Opcodes = append(e.Module.Opcodes, byte(value))
	case 3:
		e.Module.Opcodes = append(e.Module.Opcodes, byte(value>>16), byte(value>>8), byte(value))
	case 8:
		e.emit8(value)
	}
}

func (e *ModuleEmitter) emit8(value uint64) {
	e.Module.Opcodes = append(e.Module.Opcodes,
		byte(value>>56), byte(value>>48), byte(value>>40), byte(value>>32),
		byte(value>>24), byte(value>>16), byte(value>>8), byte(value))
}

func (e *ModuleEmitter) Integer(value int64) {
	e.emitWidth(uint64(value), bytecode.INT1, bytecode.INT3, bytecode.INT8)
}

func (e *ModuleEmitter) Real(value float64) {
	e.emit0(bytecode.REAL)
	e.emit8(math.Float64bits(value))
}

func (e *ModuleEmitter) Binary(triple [3]byte) {
	op, ok := binaryOpcodes[triple]
	if !ok {
		panic(fmt.Sprintf("emitter: no opcode for operator %q", trim(triple)))
	}
	e.emit0(op)
}

func (e *ModuleEmitter) Load(slot uint64)  { e.emitWidth(slot, bytecode.LD1, bytecode.LD3, bytecode.LD8) }
func (e *ModuleEmitter) Store(slot uint64) { e.emitWidth(slot, bytecode.STO1, bytecode.STO3, bytecode.STO8) }
func (e *ModuleEmitter) Void()             { e.emit0(bytecode.VOID) }
func (e *ModuleEmitter) List()             { e.emit0(bytecode.LIST) }
func (e *ModuleEmitter) Drop()             { e.emit0(bytecode.DROP) }
func (e *ModuleEmitter) Ret()              { e.emit0(bytecode.RET) }

func (e *ModuleEmitter) Call(argc uint64) {
	e.Module.Opcodes = append(e.Module.Opcodes, byte(bytecode.CALL), byte(argc))
}

func (e *ModuleEmitter) pointerSite() uint64 {
	site := e.Offset() + 1
	e.Module.Opcodes = append(e.Module.Opcodes, byte(bytecode.PTR))
	e.Module.Opcodes = append(e.Module.Opcodes, make([]byte, 8)...)
	return site
}

func (e *ModuleEmitter) PointerNamed(name string) {
	e.Resolver.PushLinkNamed(name, e.pointerSite())
}

func (e *ModuleEmitter) PointerID(id uint64) {
	e.Resolver.PushLinkID(id, e.pointerSite())
}

func (e *ModuleEmitter) LabelNamed(name string) error {
	return e.Resolver.PushLabelNamed(name, e.Offset())
}

func (e *ModuleEmitter) LabelID(id uint64) error {
	return e.Resolver.PushLabelID(id, e.Offset())
}

func (e *ModuleEmitter) jumpSite(op bytecode.Opcode) uint64 {
	site := e.Offset() + 1
	e.Module.Opcodes = append(e.Module.Opcodes, byte(op))
	e.Module.Opcodes = append(e.Module.Opcodes, make([]byte, 8)...)
	return site
}

func (e *ModuleEmitter) JumpNamed(name string) {
	e.Resolver.PushLinkNamed(name, e.jumpSite(bytecode.JP))
}

func (e *ModuleEmitter) JumpID(id uint64) {
	e.Resolver.PushLinkID(id, e.jumpSite(bytecode.JP))
}

func (e *ModuleEmitter) JumpFalseNamed(name string) {
	e.Resolver.PushLinkNamed(name, e.jumpSite(bytecode.JPF))
}

func (e *ModuleEmitter) JumpFalseID(id uint64) {
	e.Resolver.PushLinkID(id, e.jumpSite(bytecode.JPF))
}

// Function emits PROC argc followed by RSV 0 (a placeholder patched later
// by PatchReserve) and returns the byte offset of RSV's 3-byte operand.
func (e *ModuleEmitter) Function(argCount uint64) uint64 {
	e.Module.Opcodes = append(e.Module.Opcodes, byte(bytecode.PROC), byte(argCount))
	cursor := e.Offset() + 1
	e.Module.Opcodes = append(e.Module.Opcodes, byte(bytecode.RSV), 0, 0, 0)
	return cursor
}

func (e *ModuleEmitter) PatchReserve(cursor uint64, reserve uint32) {
	e.Module.Opcodes[cursor] = byte(reserve >> 16)
	e.Module.Opcodes[cursor+1] = byte(reserve >> 8)
	e.Module.Opcodes[cursor+2] = byte(reserve)
}

// Finish runs the resolver over the emitted code and copies the resulting
// named label and link tables onto the module, ready for serialization or
// linking.
func (e *ModuleEmitter) Finish() (*bytecode.Module, error) {
	if err := e.Resolver.Resolve(e.Module); err != nil {
		return nil, err
	}
	labels, links := e.Resolver.ExportNamed()
	e.Module.Labels = labels
	e.Module.Links = links
	return e.Module, e.Module.Validate()
}

// binaryOpcodes maps the operator glyph triples with real opcodes, per
// §4.4. Comparison and arithmetic operators from the wider precedence
// table (§4.2) that have no opcode are deliberately absent: the parser
// must reject them before code generation ever sees them.
var binaryOpcodes = map[[3]byte]bytecode.Opcode{
	triple("<"):  bytecode.LS,
	triple(">"):  bytecode.GR,
	triple("=="): bytecode.EQ,
	triple("<="): bytecode.LE,
	triple("+"):  bytecode.ADD,
	triple("-"):  bytecode.SUB,
	triple("*"):  bytecode.MUL,
}

func triple(s string) [3]byte {
	var t [3]byte
	copy(t[:], s)
	for i := len(s); i < 3; i++ {
		t[i] = ' '
	}
	return t
}

func trim(t [3]byte) string {
	i := 3
	for i > 0 && t[i-1] == ' ' {
		i--
	}
	return string(t[:i])
}

// HasBinaryOpcode reports whether triple names an operator with a real
// opcode, letting the parser reject the rest of the §4.2 operator alphabet
// at parse time with a proper error instead of a panic.
func HasBinaryOpcode(t [3]byte) bool {
	_, ok := binaryOpcodes[t]
	return ok
}
