// Package resolver implements the forward-reference fixup structure used by
// both the emitter (one compile/assemble pass) and the linker (one link
// pass): it collects label definitions and the patch sites that reference
// them, then back-patches every site whose label is defined.
//
// Two separate tables are kept, as required by §4.5: one keyed by name
// (user-visible symbols, potentially linked across modules) and one keyed
// by numeric id (compiler-generated loop/branch labels, local to one
// compile unit and never linked). Merging them would force every internal
// branch target to participate in cross-module linking.
package resolver

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dolthub/swiss"
)

// record tracks one symbol: its address, if defined, and the ordered list
// of patch sites that reference it.
type record struct {
	address uint64
	hasAddr bool
	links   []uint64
}

// Resolver is the transient structure an emitter or linker owns for the
// duration of one pass. It is discarded once Resolve has applied every
// patch it can.
type Resolver struct {
	named   *swiss.Map[string, *record]
	numeric map[uint64]*record
}

// New returns an empty Resolver.
func New() *Resolver {
	return &Resolver{
		named:   swiss.NewMap[string, *record](8),
		numeric: make(map[uint64]*record),
	}
}

func (r *Resolver) namedRecord(name string) *record {
	rec, ok := r.named.Get(name)
	if !ok {
		rec = &record{}
		r.named.Put(name, rec)
	}
	return rec
}

func (r *Resolver) numericRecord(id uint64) *record {
	rec, ok := r.numeric[id]
	if !ok {
		rec = &record{}
		r.numeric[id] = rec
	}
	return rec
}

// PushLabelNamed records that name is defined at address. It fails if name
// already has an address: collision policy forbids defining the same named
// label twice.
func (r *Resolver) PushLabelNamed(name string, address uint64) error {
	rec := r.namedRecord(name)
	if rec.hasAddr {
		return fmt.Errorf("resolver: duplicate label %q", name)
	}
	rec.address, rec.hasAddr = address, true
	return nil
}

// PushLabelID is the numeric-id counterpart of PushLabelNamed. Defining the
// same numeric id twice indicates a compiler bug (numeric labels never
// escape the compiler), so it is also an error.
func (r *Resolver) PushLabelID(id uint64, address uint64) error {
	rec := r.numericRecord(id)
	if rec.hasAddr {
		return fmt.Errorf("resolver: duplicate internal label @%d", id)
	}
	rec.address, rec.hasAddr = address, true
	return nil
}

// PushLinkNamed registers patch site as referencing name. It always
// succeeds, recording sites eagerly so the single compile pass can resolve
// forward references after the fact.
func (r *Resolver) PushLinkNamed(name string, site uint64) {
	rec := r.namedRecord(name)
	rec.links = append(rec.links, site)
}

// PushLinkID is the numeric-id counterpart of PushLinkNamed.
func (r *Resolver) PushLinkID(id uint64, site uint64) {
	rec := r.numericRecord(id)
	rec.links = append(rec.links, site)
}

// patcher is implemented by anything that can have an 8-byte big-endian
// address written at a byte offset; bytecode.Module satisfies it.
type patcher interface {
	PatchAddress(site, addr uint64) error
}

// Resolve back-patches every link whose label is defined, writing each
// address through patch. Resolved entries are removed from the link tables; links whose
// label remains undefined survive (they are external references for the
// linker to satisfy later). An unresolved numeric-id link is always an
// error: numeric labels never cross module boundaries, so one reaching
// Resolve undefined indicates a compiler bug.
func (r *Resolver) Resolve(patch patcher) error {
	var resolveErr error
	r.named.Iter(func(name string, rec *record) bool {
		if !rec.hasAddr || len(rec.links) == 0 {
			return true
		}
		for _, site := range rec.links {
			if err := patch.PatchAddress(site, rec.address); err != nil {
				resolveErr = fmt.Errorf("resolver: patching %q at %d: %w", name, site, err)
				return false
			}
		}
		rec.links = nil
		return true
	})
	if resolveErr != nil {
		return resolveErr
	}

	for id, rec := range r.numeric {
		if !rec.hasAddr {
			if len(rec.links) > 0 {
				return fmt.Errorf("resolver: internal error: undefined internal label @%d", id)
			}
			continue
		}
		for _, site := range rec.links {
			if err := patch.PatchAddress(site, rec.address); err != nil {
				return fmt.Errorf("resolver: patching @%d at %d: %w", id, site, err)
			}
		}
		rec.links = nil
	}
	return nil
}

// Pending returns the sorted names of the named symbols that are still
// undefined (have outstanding links but no address) — the external
// references a linker must still satisfy.
func (r *Resolver) Pending() []string {
	var names []string
	r.named.Iter(func(name string, rec *record) bool {
		if !rec.hasAddr && len(rec.links) > 0 {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	return names
}

// ExportNamed returns the named label and link tables as plain maps, ready
// to be attached to a bytecode.Module for serialization. Resolved links
// (empty slices) are omitted.
func (r *Resolver) ExportNamed() (labels map[string]uint64, links map[string][]uint64) {
	labels = make(map[string]uint64)
	links = make(map[string][]uint64)
	r.named.Iter(func(name string, rec *record) bool {
		if rec.hasAddr {
			labels[name] = rec.address
		}
		if len(rec.links) > 0 {
			links[name] = append([]uint64(nil), rec.links...)
		}
		return true
	})
	return labels, links
}

// ImportNamed seeds the resolver's named table from a Module's Labels and
// Links maps, as used when the linker loads an already-compiled object.
func (r *Resolver) ImportNamed(labels map[string]uint64, links map[string][]uint64) {
	for name, addr := range labels {
		rec := r.namedRecord(name)
		rec.address, rec.hasAddr = addr, true
	}
	for name, sites := range links {
		rec := r.namedRecord(name)
		rec.links = append(rec.links, sites...)
	}
}

// SaveLabels serialises the named symbol table as text, one line per
// symbol: "NAME ADDRESS LINK...", where ADDRESS is a decimal integer or the
// literal "None" if the symbol is still undefined. If modulePrefix is
// non-empty, it is prepended to every name with a "." separator, matching
// the module-qualifier convention used for linked symbol names.
func (r *Resolver) SaveLabels(w io.Writer, modulePrefix string) error {
	labels, links := r.ExportNamed()
	names := make([]string, 0, len(labels)+len(links))
	seen := make(map[string]bool)
	for name := range labels {
		if !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	for name := range links {
		if !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	sort.Strings(names)

	for _, name := range names {
		qualified := name
		if modulePrefix != "" {
			qualified = modulePrefix + "." + name
		}
		addrField := "None"
		if addr, ok := labels[name]; ok {
			addrField = strconv.FormatUint(addr, 10)
		}
		fields := []string{qualified, addrField}
		for _, site := range links[name] {
			fields = append(fields, strconv.FormatUint(site, 10))
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return nil
}

// LoadLabels parses the text format produced by SaveLabels back into a
// fresh Resolver's named table, as the linker does when consuming a
// symbol-table dump instead of (or in addition to) the binary module
// format.
func LoadLabels(r io.Reader) (*Resolver, error) {
	res := New()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("resolver: malformed symbol line: %q", line)
		}
		name := fields[0]
		if fields[1] != "None" {
			addr, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("resolver: malformed address in %q: %w", line, err)
			}
			if err := res.PushLabelNamed(name, addr); err != nil {
				return nil, err
			}
		}
		for _, f := range fields[2:] {
			site, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("resolver: malformed link site in %q: %w", line, err)
			}
			res.PushLinkNamed(name, site)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
