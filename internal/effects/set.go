// Package effects infers the effect set of every expression and checks call
// sites against the effects their caller declares.
package effects

import (
	"fmt"
	"math/bits"
	"strings"
)

// Set is a bitset over the effect vocabulary. The empty set is pure, the
// bottom of the lattice.
type Set uint8

const (
	Async Set = 1 << iota
	IO
	Unsafe
	Alloc
	Panic
	Diverge // may not terminate
	Tool    // tool-protocol request

	Pure Set = 0
	All      = Async | IO | Unsafe | Alloc | Panic | Diverge | Tool
)

var names = [...]struct {
	bit  Set
	name string
}{
	{Async, "async"},
	{IO, "io"},
	{Unsafe, "unsafe"},
	{Alloc, "alloc"},
	{Panic, "panic"},
	{Diverge, "diverge"},
	{Tool, "tool"},
}

func (s Set) Join(o Set) Set { return s | o }

func (s Set) Meet(o Set) Set { return s & o }

// Subsumes reports whether every effect of o is in s.
func (s Set) Subsumes(o Set) bool { return s|o == s }

// Diff returns the effects of s missing from o.
func (s Set) Diff(o Set) Set { return s &^ o }

func (s Set) IsPure() bool { return s == Pure }

func (s Set) Len() int { return bits.OnesCount8(uint8(s)) }

// Names lists the effects in vocabulary order.
func (s Set) Names() []string {
	out := make([]string, 0, s.Len())
	for _, n := range names {
		if s&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

// String renders "{pure}" or "{async, io}".
func (s Set) String() string {
	if s == Pure {
		return "{pure}"
	}
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

// ParseName maps one effect name to its bit. "pure" is the empty set.
func ParseName(name string) (Set, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "pure" {
		return Pure, true
	}
	for _, n := range names {
		if n.name == name {
			return n.bit, true
		}
	}
	return Pure, false
}

// Parse joins a list of effect names.
func Parse(list []string) (Set, error) {
	var s Set
	for _, name := range list {
		bit, ok := ParseName(name)
		if !ok {
			return s, fmt.Errorf("unknown effect %q", name)
		}
		s |= bit
	}
	return s, nil
}
