// Package linker merges independently compiled bytecode modules into one
// executable image: each module's opcode buffer is concatenated, every
// address-bearing instruction operand is rebased by the offset its module
// was placed at, and the combined label/link tables are resolved once more
// to patch cross-module references.
//
// The phase split (rebase scan, then table merge, then one final resolve)
// mirrors a conventional linker's layout/relocate/resolve pipeline.
package linker

import (
	"fmt"

	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/resolver"
)

// Merge concatenates modules in order and returns one resolved module. At
// least one module is required. Linking a single module is equivalent to
// running its own resolver once more (a no-op if it was already fully
// resolved internally).
func Merge(modules ...*bytecode.Module) (*bytecode.Module, error) {
	if len(modules) == 0 {
		return nil, fmt.Errorf("linker: no modules to link")
	}

	out := bytecode.New()
	labels := make(map[string]uint64)
	links := make(map[string][]uint64)

	var base uint64
	for i, m := range modules {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("linker: module %d: %w", i, err)
		}
		rebased, err := rebase(m.Opcodes, base)
		if err != nil {
			return nil, fmt.Errorf("linker: module %d: %w", i, err)
		}
		out.Opcodes = append(out.Opcodes, rebased...)

		for name, addr := range m.Labels {
			if _, dup := labels[name]; dup {
				return nil, fmt.Errorf("linker: duplicate symbol %q", name)
			}
			labels[name] = addr + base
		}
		for name, sites := range m.Links {
			shifted := make([]uint64, len(sites))
			for i, s := range sites {
				shifted[i] = s + base
			}
			links[name] = append(links[name], shifted...)
		}

		base += uint64(len(m.Opcodes))
	}

	out.Labels = labels
	out.Links = links

	res := resolver.New()
	res.ImportNamed(labels, links)
	if err := res.Resolve(out); err != nil {
		return nil, fmt.Errorf("linker: %w", err)
	}
	out.Labels, out.Links = res.ExportNamed()
	return out, out.Validate()
}

// rebase copies opcodes, adding base to every address-bearing instruction's
// operand (JP, JPF, PTR) and copying every other instruction's bytes
// unchanged. It walks the buffer using only the opcode width classification
// from the bytecode package, never decoding operand values except to
// rebase addresses — exactly the width-class-only scan §4.7 requires.
func rebase(opcodes []byte, base uint64) ([]byte, error) {
	out := make([]byte, len(opcodes))
	copy(out, opcodes)

	for pc := 0; pc < len(out); {
		op := bytecode.Opcode(out[pc])
		size := op.EncodedSize()
		if pc+size > len(out) {
			return nil, fmt.Errorf("truncated instruction %s at offset %d", op, pc)
		}
		if bytecode.IsAddress(op) {
			operand := beUint64(out[pc+1 : pc+9])
			putBEUint64(out[pc+1:pc+9], operand+base)
		}
		pc += size
	}
	return out, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func putBEUint64(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
