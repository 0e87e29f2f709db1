package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is the tagged variant held by the VM's stack, per §3's Value
// union: Void, Boolean, Integer, Real, Address, CallState and Object
// (currently only the List variant).
type Value interface {
	String() string
	Type() string
}

// Void is the result of a branch with no else arm and has no payload.
type Void struct{}

func (Void) String() string { return "void" }
func (Void) Type() string   { return "void" }

// Boolean is the result of a comparison operator.
type Boolean bool

func (b Boolean) String() string { return strconv.FormatBool(bool(b)) }
func (Boolean) Type() string     { return "boolean" }

// Integer is a 64-bit value; arithmetic on it wraps, per §4.8.
type Integer int64

func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }
func (Integer) Type() string     { return "integer" }

// Real is a 64-bit floating point value.
type Real float64

func (r Real) String() string { return strconv.FormatFloat(float64(r), 'g', -1, 64) }
func (Real) Type() string     { return "real" }

// Address is an absolute byte offset into the opcode buffer, pushed by PTR
// and consumed by CALL.
type Address uint64

func (a Address) String() string { return fmt.Sprintf("@%d", uint64(a)) }
func (Address) Type() string     { return "address" }

// CallState is the saved caller context CALL writes into the callee's
// slot-0 cell and RET reads back: the return address and the caller's
// locals-pointer, so nested calls can be unwound.
type CallState struct {
	ReturnPC    uint64
	SavedLocals uint64
}

func (c CallState) String() string {
	return fmt.Sprintf("callstate(return_pc=%d, saved_locals=%d)", c.ReturnPC, c.SavedLocals)
}
func (CallState) Type() string { return "callstate" }

// List is the sole Object variant: a heap-allocated, shared-interior-
// mutability sequence of values. ADD on a List appends in place and
// yields the same List, per §4.8, so two stack slots referencing the
// same List observe each other's appends — this is deliberate, not a
// bug, and mirrors the spec's "longest-holding stack reference" lifetime
// note (left to Go's garbage collector to enforce).
type List struct {
	Elems []Value
}

// NewList returns an empty list, the payload of the LIST opcode.
func NewList() *List { return &List{} }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range l.Elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (*List) Type() string { return "list" }

// Append adds v to the end of the list in place.
func (l *List) Append(v Value) { l.Elems = append(l.Elems, v) }
