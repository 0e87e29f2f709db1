package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Magic is the 4-byte header that identifies an on-disk Let object/module
// file: "LET" followed by 0x26.
var Magic = [4]byte{'L', 'E', 'T', 0x26}

const maxNameLen = 255

// Module is the on-disk and in-memory container for a compiled translation
// unit: its opcode stream plus the label and link tables the linker and
// resolver use to turn named and numeric forward references into absolute
// addresses.
//
// Addresses are kept as uint64 in memory to simplify arithmetic (the linker
// adds a module base to them); the on-disk format stores them as 32 bits,
// and Encode fails on any address that does not fit.
type Module struct {
	Opcodes []byte
	// Labels maps a symbol name to the address it was defined at.
	Labels map[string]uint64
	// Links maps a symbol name to the ordered list of patch sites (byte
	// offsets into Opcodes) that reference it. An 8-byte big-endian address
	// is written at each site once the symbol is resolved.
	Links map[string][]uint64
}

// New returns an empty module ready to be populated by an emitter.
func New() *Module {
	return &Module{
		Labels: make(map[string]uint64),
		Links:  make(map[string][]uint64),
	}
}

// PatchAddress overwrites the 8-byte big-endian address at the given patch
// site. The site must lie fully within the opcode buffer.
func (m *Module) PatchAddress(site, addr uint64) error {
	if site+8 > uint64(len(m.Opcodes)) {
		return fmt.Errorf("bytecode: patch site %d out of bounds (len %d)", site, len(m.Opcodes))
	}
	binary.BigEndian.PutUint64(m.Opcodes[site:site+8], addr)
	return nil
}

// Validate checks the invariants from §3: every link site lies fully
// within the opcode buffer, and every label address is at most the buffer
// length.
func (m *Module) Validate() error {
	n := uint64(len(m.Opcodes))
	for name, addr := range m.Labels {
		if addr > n {
			return fmt.Errorf("bytecode: label %q address %d exceeds opcode length %d", name, addr, n)
		}
	}
	for name, sites := range m.Links {
		for _, site := range sites {
			if site+8 > n {
				return fmt.Errorf("bytecode: link site %d for %q out of bounds (len %d)", site, name, n)
			}
		}
	}
	return nil
}

// Encode writes the binary module container format:
//
//	magic      : 4 bytes = "LET\x26"
//	opcodes    : u32 BE length, then bytes
//	labels     : u32 BE count, then { u8 name_len, bytes, u32 BE addr }
//	links      : u32 BE count, then { u8 name_len, bytes,
//	                                  u32 BE site_count,
//	                                  site_count x (u32 BE) }
func (m *Module) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(Magic[:])

	if err := writeU32(&buf, len(m.Opcodes)); err != nil {
		return nil, err
	}
	buf.Write(m.Opcodes)

	if err := writeU32(&buf, len(m.Labels)); err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(m.Labels) {
		if err := writeName(&buf, name); err != nil {
			return nil, err
		}
		if err := writeU32(&buf, int(m.Labels[name])); err != nil {
			return nil, fmt.Errorf("bytecode: label %q address does not fit in 32 bits: %w", name, err)
		}
	}

	if err := writeU32(&buf, len(m.Links)); err != nil {
		return nil, err
	}
	for _, name := range sortedLinkKeys(m.Links) {
		if err := writeName(&buf, name); err != nil {
			return nil, err
		}
		sites := m.Links[name]
		if err := writeU32(&buf, len(sites)); err != nil {
			return nil, err
		}
		for _, site := range sites {
			if err := writeU32(&buf, int(site)); err != nil {
				return nil, fmt.Errorf("bytecode: link site for %q does not fit in 32 bits: %w", name, err)
			}
		}
	}
	return buf.Bytes(), nil
}

// Decode parses the binary module container format produced by Encode.
func Decode(b []byte) (*Module, error) {
	r := bytes.NewReader(b)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("bytecode: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("bytecode: bad magic %x, want %x", magic, Magic)
	}

	m := New()
	opLen, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading opcode length: %w", err)
	}
	m.Opcodes = make([]byte, opLen)
	if _, err := io.ReadFull(r, m.Opcodes); err != nil {
		return nil, fmt.Errorf("bytecode: reading opcodes: %w", err)
	}

	labelCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading label count: %w", err)
	}
	for i := 0; i < labelCount; i++ {
		name, err := readName(r)
		if err != nil {
			return nil, fmt.Errorf("bytecode: reading label %d name: %w", i, err)
		}
		addr, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("bytecode: reading label %d address: %w", i, err)
		}
		m.Labels[name] = uint64(addr)
	}

	linkCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading link count: %w", err)
	}
	for i := 0; i < linkCount; i++ {
		name, err := readName(r)
		if err != nil {
			return nil, fmt.Errorf("bytecode: reading link %d name: %w", i, err)
		}
		siteCount, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("bytecode: reading link %d site count: %w", i, err)
		}
		sites := make([]uint64, siteCount)
		for j := 0; j < siteCount; j++ {
			site, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("bytecode: reading link %d site %d: %w", i, j, err)
			}
			sites[j] = uint64(site)
		}
		m.Links[name] = sites
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func writeU32(w io.Writer, v int) error {
	if v < 0 || uint64(v) > 0xFFFF_FFFF {
		return fmt.Errorf("bytecode: value %d does not fit in 32 bits", v)
	}
	return binary.Write(w, binary.BigEndian, uint32(v))
}

func readU32(r io.Reader) (int, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return int(v), nil
}

func writeName(w io.Writer, name string) error {
	if len(name) > maxNameLen {
		return fmt.Errorf("bytecode: name %q exceeds %d bytes", name, maxNameLen)
	}
	if _, err := w.Write([]byte{byte(len(name))}); err != nil {
		return err
	}
	_, err := io.WriteString(w, name)
	return err
}

func readName(r io.Reader) (string, error) {
	var nameLen [1]byte
	if _, err := io.ReadFull(r, nameLen[:]); err != nil {
		return "", err
	}
	buf := make([]byte, nameLen[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedLinkKeys(m map[string][]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
