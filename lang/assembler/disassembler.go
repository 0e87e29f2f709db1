package assembler

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/arcbyte/let/lang/bytecode"
)

// Disassemble renders module's opcode buffer back into the textual form
// Assemble accepts, walking it the same structural way the linker does:
// by instruction width alone, never by decoding operand meaning beyond
// what's needed to print it. Addresses that match a named label are
// rendered symbolically; unnamed (internal, already-resolved) branch
// targets are rendered as plain decimal addresses, which Assemble also
// accepts, so disassemble-then-reassemble round-trips byte-for-byte.
func Disassemble(m *bytecode.Module) (string, error) {
	names := addressNames(m.Labels)

	var b strings.Builder
	code := m.Opcodes
	for pc := uint64(0); pc < uint64(len(code)); {
		for _, name := range names[pc] {
			fmt.Fprintf(&b, "%s:\n", name)
		}

		op := bytecode.Opcode(code[pc])
		size := uint64(op.EncodedSize())
		if pc+size > uint64(len(code)) {
			return "", fmt.Errorf("assembler: truncated instruction %s at offset %d", op, pc)
		}

		switch op.OperandWidth() {
		case 0:
			fmt.Fprintf(&b, "\t%s\n", op)
		case 1:
			fmt.Fprintf(&b, "\t%s %d\n", op, code[pc+1])
		case 3:
			v := uint32(code[pc+1])<<16 | uint32(code[pc+2])<<8 | uint32(code[pc+3])
			fmt.Fprintf(&b, "\t%s %d\n", op, v)
		case 8:
			v := binary.BigEndian.Uint64(code[pc+1 : pc+9])
			writeWideOperand(&b, op, v, names)
		}
		pc += size
	}
	// A label at the very end of the buffer (e.g. an empty function body,
	// which cannot occur today but costs nothing to support) still needs
	// to be rendered.
	for _, name := range names[uint64(len(code))] {
		fmt.Fprintf(&b, "%s:\n", name)
	}
	return b.String(), nil
}

func writeWideOperand(b *strings.Builder, op bytecode.Opcode, v uint64, names map[uint64][]string) {
	switch op {
	case bytecode.REAL:
		fmt.Fprintf(b, "\tREAL %s\n", strconv.FormatFloat(math.Float64frombits(v), 'g', -1, 64))
	case bytecode.LD8, bytecode.STO8, bytecode.INT8:
		fmt.Fprintf(b, "\t%s %d\n", op, int64(v))
	case bytecode.JP, bytecode.JPF, bytecode.PTR:
		if ns, ok := names[v]; ok && len(ns) > 0 {
			fmt.Fprintf(b, "\t%s %s\n", op, ns[0])
		} else {
			fmt.Fprintf(b, "\t%s %d\n", op, v)
		}
	}
}

// addressNames inverts the module's label table so the disassembler can
// print symbolic targets. Several names may share one address (the
// teacher's Labels format has no such case today, but nothing forbids
// it), so each address keeps a sorted slice of names.
func addressNames(labels map[string]uint64) map[uint64][]string {
	byAddr := make(map[uint64][]string, len(labels))
	for name, addr := range labels {
		byAddr[addr] = append(byAddr[addr], name)
	}
	for _, names := range byAddr {
		sort.Strings(names)
	}
	return byAddr
}
