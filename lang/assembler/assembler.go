// Package assembler implements the line-oriented textual encoding of a
// bytecode.Module described in §4.9: the leta binary reads this form to
// produce a linkable module, and can run the reverse direction
// (disassembly, in disassembler.go) to render one back from compiled
// code. The two directions are built to round-trip byte-for-byte.
package assembler

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/resolver"
)

// Assemble parses src and returns a resolved module. Unknown mnemonics
// yield a parse error naming the offending line, per §4.9.
func Assemble(src []byte) (*bytecode.Module, error) {
	a := &assembler{
		module: bytecode.New(),
		res:    resolver.New(),
	}
	scanner := bufio.NewScanner(bytes.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := a.line(lineNo, scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("assembler: reading input: %w", err)
	}

	if err := a.res.Resolve(a.module); err != nil {
		return nil, err
	}
	labels, links := a.res.ExportNamed()
	a.module.Labels = labels
	a.module.Links = links
	return a.module, a.module.Validate()
}

type assembler struct {
	module *bytecode.Module
	res    *resolver.Resolver
}

func (a *assembler) offset() uint64 { return uint64(len(a.module.Opcodes)) }

// line parses one input line: zero or more chained "name:" labels,
// followed optionally by one instruction (mnemonic plus at most one
// operand). A trailing "# comment" is stripped first.
func (a *assembler) line(lineNo int, raw string) error {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	fields := strings.Fields(raw)
	for len(fields) > 0 && strings.HasSuffix(fields[0], ":") {
		name := strings.TrimSuffix(fields[0], ":")
		if name == "" {
			return fmt.Errorf("assembler: line %d: empty label", lineNo)
		}
		if err := a.res.PushLabelNamed(name, a.offset()); err != nil {
			return fmt.Errorf("assembler: line %d: %w", lineNo, err)
		}
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return nil
	}

	mnemonic := fields[0]
	var operand string
	if len(fields) > 1 {
		operand = fields[1]
	}
	if len(fields) > 2 {
		return fmt.Errorf("assembler: line %d: too many operands for %s", lineNo, mnemonic)
	}

	op, ok := bytecode.Lookup(mnemonic)
	if !ok {
		return fmt.Errorf("assembler: line %d: unknown mnemonic %q", lineNo, mnemonic)
	}

	switch op.OperandWidth() {
	case 0:
		a.module.Opcodes = append(a.module.Opcodes, byte(op))
	case 1:
		v, err := a.uint(lineNo, mnemonic, operand, 0xFF)
		if err != nil {
			return err
		}
		a.module.Opcodes = append(a.module.Opcodes, byte(op), byte(v))
	case 3:
		v, err := a.uint(lineNo, mnemonic, operand, 0xFF_FFFF)
		if err != nil {
			return err
		}
		a.module.Opcodes = append(a.module.Opcodes, byte(op), byte(v>>16), byte(v>>8), byte(v))
	case 8:
		return a.emitWide(lineNo, op, mnemonic, operand)
	}
	return nil
}

func (a *assembler) uint(lineNo int, mnemonic, operand string, max uint64) (uint64, error) {
	v, err := strconv.ParseUint(operand, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("assembler: line %d: %s: invalid operand %q: %w", lineNo, mnemonic, operand, err)
	}
	if v > max {
		return 0, fmt.Errorf("assembler: line %d: %s: operand %d exceeds width", lineNo, mnemonic, v)
	}
	return v, nil
}

// emitWide handles the 8-byte-operand opcodes: REAL (float literal), INT8
// (a raw, possibly negative, 64-bit literal), and the address opcodes
// JP/JPF/PTR, whose operand is either a decimal address (as produced by
// the disassembler for an internal, unnamed branch target) or a symbolic
// name resolved by the linker or this same assembly unit.
func (a *assembler) emitWide(lineNo int, op bytecode.Opcode, mnemonic, operand string) error {
	switch op {
	case bytecode.REAL:
		f, err := strconv.ParseFloat(operand, 64)
		if err != nil {
			return fmt.Errorf("assembler: line %d: REAL: invalid operand %q: %w", lineNo, operand, err)
		}
		a.module.Opcodes = append(a.module.Opcodes, byte(op))
		a.emit8(math.Float64bits(f))
		return nil

	case bytecode.LD8, bytecode.STO8, bytecode.INT8:
		v, err := strconv.ParseInt(operand, 10, 64)
		if err != nil {
			return fmt.Errorf("assembler: line %d: %s: invalid operand %q: %w", lineNo, mnemonic, operand, err)
		}
		a.module.Opcodes = append(a.module.Opcodes, byte(op))
		a.emit8(uint64(v))
		return nil

	case bytecode.JP, bytecode.JPF, bytecode.PTR:
		site := a.offset() + 1
		a.module.Opcodes = append(a.module.Opcodes, byte(op))
		a.module.Opcodes = append(a.module.Opcodes, make([]byte, 8)...)
		if addr, err := strconv.ParseUint(operand, 10, 64); err == nil {
			return a.module.PatchAddress(site, addr)
		}
		if operand == "" {
			return fmt.Errorf("assembler: line %d: %s: empty operand", lineNo, mnemonic)
		}
		a.res.PushLinkNamed(operand, site)
		return nil

	default:
		return fmt.Errorf("assembler: line %d: unsupported 8-byte opcode %s", lineNo, op)
	}
}

func (a *assembler) emit8(v uint64) {
	a.module.Opcodes = append(a.module.Opcodes,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
