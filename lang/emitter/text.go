package emitter

import (
	"bytes"
	"fmt"
	"strconv"
)

// TextEmitter implements Emitter by rendering the same call sequence the
// parser would otherwise send to a ModuleEmitter as the assembler's
// mnemonic text form. It is used to produce `letc -a` output directly from
// the parse, without a decode-then-reformat round trip through a compiled
// module.
type TextEmitter struct {
	buf    bytes.Buffer
	offset uint64
}

// NewText returns an empty TextEmitter.
func NewText() *TextEmitter { return &TextEmitter{} }

// Bytes returns the accumulated assembly text.
func (e *TextEmitter) Bytes() []byte { return e.buf.Bytes() }

func (e *TextEmitter) Offset() uint64 { return e.offset }

func (e *TextEmitter) line0(mnemonic string) {
	fmt.Fprintf(&e.buf, "\t%s\t# %03d\n", mnemonic, e.offset)
	e.offset++
}

func (e *TextEmitter) lineArg(mnemonic string, width int, arg string) {
	fmt.Fprintf(&e.buf, "\t%s %s\t# %03d\n", mnemonic, arg, e.offset)
	e.offset += uint64(1 + width)
}

func widthFor(value uint64) int {
	switch {
	case value <= 0xFF:
		return 1
	case value <= 0xFF_FFFF:
		return 3
	default:
		return 8
	}
}

func mnemonicForWidth(w int, m1, m3, m8 string) string {
	switch w {
	case 1:
		return m1
	case 3:
		return m3
	default:
		return m8
	}
}

func (e *TextEmitter) Integer(value int64) {
	w := widthFor(uint64(value))
	e.lineArg(mnemonicForWidth(w, "INT1", "INT3", "INT8"), w, strconv.FormatInt(value, 10))
}

func (e *TextEmitter) Real(value float64) {
	e.lineArg("REAL", 8, strconv.FormatFloat(value, 'g', -1, 64))
}

func (e *TextEmitter) Binary(t [3]byte) {
	op, ok := binaryOpcodes[t]
	if !ok {
		panic(fmt.Sprintf("emitter: no opcode for operator %q", trim(t)))
	}
	e.line0(op.String())
}

func (e *TextEmitter) Load(slot uint64) {
	w := widthFor(slot)
	e.lineArg(mnemonicForWidth(w, "LD1", "LD3", "LD8"), w, strconv.FormatUint(slot, 10))
}

func (e *TextEmitter) Store(slot uint64) {
	w := widthFor(slot)
	e.lineArg(mnemonicForWidth(w, "STO1", "STO3", "STO8"), w, strconv.FormatUint(slot, 10))
}

func (e *TextEmitter) Void() { e.line0("VOID") }
func (e *TextEmitter) List() { e.line0("LIST") }
func (e *TextEmitter) Drop() { e.line0("DROP") }
func (e *TextEmitter) Ret()  { e.line0("RET") }

func (e *TextEmitter) Call(argc uint64) {
	e.lineArg("CALL", 1, strconv.FormatUint(argc, 10))
}

func (e *TextEmitter) PointerNamed(name string) { e.lineArg("PTR", 8, name) }
func (e *TextEmitter) PointerID(id uint64)      { e.lineArg("PTR", 8, numericLabel(id)) }

func (e *TextEmitter) LabelNamed(name string) error {
	fmt.Fprintf(&e.buf, "%s:\t# %03d\n", name, e.offset)
	return nil
}

func (e *TextEmitter) LabelID(id uint64) error {
	fmt.Fprintf(&e.buf, "%s:\t# %03d\n", numericLabel(id), e.offset)
	return nil
}

func (e *TextEmitter) JumpNamed(name string)      { e.lineArg("JP", 8, name) }
func (e *TextEmitter) JumpID(id uint64)           { e.lineArg("JP", 8, numericLabel(id)) }
func (e *TextEmitter) JumpFalseNamed(name string) { e.lineArg("JPF", 8, name) }
func (e *TextEmitter) JumpFalseID(id uint64)      { e.lineArg("JPF", 8, numericLabel(id)) }

// numericLabel renders a compiler-internal numeric label the way §6
// specifies for the assembly text format: "@lbl_<id>".
func numericLabel(id uint64) string { return "@lbl_" + strconv.FormatUint(id, 10) }

const reservePlaceholderWidth = 10

// Function writes "PROC argc" then "RSV <placeholder>", recording the byte
// offset of the placeholder digits in the text buffer so PatchReserve can
// overwrite them once the real reservation is known.
func (e *TextEmitter) Function(argCount uint64) uint64 {
	e.lineArg("PROC", 1, strconv.FormatUint(argCount, 10))
	fmt.Fprintf(&e.buf, "\tRSV ")
	cursor := uint64(e.buf.Len())
	fmt.Fprintf(&e.buf, "%0*d\t# %03d\n", reservePlaceholderWidth, 0, e.offset)
	e.offset += 4
	return cursor
}

func (e *TextEmitter) PatchReserve(cursor uint64, reserve uint32) {
	digits := []byte(fmt.Sprintf("%0*d", reservePlaceholderWidth, reserve))
	copy(e.buf.Bytes()[cursor:cursor+reservePlaceholderWidth], digits)
}
