// Package ownership classifies how each binding is used and picks a
// transfer strategy for every use site.
package ownership

import (
	"fmt"
	"strings"

	"hostgen/internal/source"
	"hostgen/internal/tree"
)

type UseKind uint8

const (
	UseRead    UseKind = iota
	UseCapture         // captured by a closure that does not outlive the scope
	UseMutate
	UseReturn // leaves the function
	UseSend   // handed to a concurrent worker
)

func (k UseKind) String() string {
	switch k {
	case UseRead:
		return "read"
	case UseCapture:
		return "capture"
	case UseMutate:
		return "mutate"
	case UseReturn:
		return "return"
	case UseSend:
		return "send"
	}
	return "unknown"
}

// Escapes reports whether the use lets the value outlive its scope.
func (k UseKind) Escapes() bool {
	return k == UseReturn || k == UseSend
}

type Pattern uint8

const (
	SingleUse Pattern = iota
	SharedReadOnly
	Mutated
	Escaped
)

func (p Pattern) String() string {
	switch p {
	case SingleUse:
		return "single-use"
	case SharedReadOnly:
		return "shared-read-only"
	case Mutated:
		return "mutated"
	case Escaped:
		return "escaped"
	}
	return "unknown"
}

type Strategy uint8

const (
	Move Strategy = iota
	Borrow
	Duplicate
	SharedLocal // single-threaded shared ownership
	SharedSync  // shared ownership safe across threads
)

func (s Strategy) String() string {
	switch s {
	case Move:
		return "move"
	case Borrow:
		return "borrow"
	case Duplicate:
		return "duplicate"
	case SharedLocal:
		return "shared-local"
	case SharedSync:
		return "shared-sync"
	}
	return "unknown"
}

// Mode is the execution context the session compiles for.
type Mode uint8

const (
	ModeAOT Mode = iota
	ModeInteractive
	ModeBatch
)

func (m Mode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeBatch:
		return "batch"
	}
	return "aot"
}

// ParseMode reads a mode name; empty means ahead-of-time.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "aot", "ahead-of-time":
		return ModeAOT, nil
	case "interactive", "repl":
		return ModeInteractive, nil
	case "batch", "script":
		return ModeBatch, nil
	}
	return ModeAOT, fmt.Errorf("unknown execution mode %q (want interactive, batch or aot)", s)
}

// Use is one textual use of a binding.
type Use struct {
	Expr              tree.ExprID
	Span              source.Span
	Kind              UseKind
	Order             int  // position in evaluation order within the scope
	CrossesSuspension bool // a suspension point lies between definition and use
	Repeated          bool // inside a loop that does not contain the definition
	Strategy          Strategy
}

// Classify derives the usage pattern of a binding from its uses. A use that
// repeats in a loop counts twice. The second result reports whether an
// escape crosses a concurrency boundary. Such an escape outranks single use:
// a value handed to another thread once is still shared with it. A single
// return moves.
func Classify(uses []Use) (Pattern, bool) {
	count := 0
	escaped, crossesThread, mutated := false, false, false
	for _, u := range uses {
		count++
		if u.Repeated {
			count++
		}
		switch {
		case u.Kind == UseSend:
			escaped, crossesThread = true, true
		case u.Kind == UseReturn:
			escaped = true
		case u.Kind == UseMutate:
			mutated = true
		}
	}
	switch {
	case crossesThread:
		return Escaped, true
	case count <= 1:
		return SingleUse, false
	case escaped:
		return Escaped, crossesThread
	case mutated:
		return Mutated, false
	}
	return SharedReadOnly, false
}

// Derive is the classification-derived strategy for one site.
func Derive(p Pattern, crossesSuspension, crossesThread bool) Strategy {
	switch p {
	case SingleUse:
		return Move
	case SharedReadOnly:
		if crossesSuspension {
			return Duplicate
		}
		return Borrow
	case Mutated:
		return Duplicate
	}
	if crossesThread {
		return SharedSync
	}
	return SharedLocal
}

// Policy applies the session's execution mode on top of the derived
// strategy. It is the only reader of the mode.
type Policy struct {
	Mode Mode
}

// Choose picks the strategy for use i of a binding with the given pattern.
func (p Policy) Choose(pattern Pattern, crossesThread bool, uses []Use, i int) Strategy {
	u := uses[i]
	derived := Derive(pattern, u.CrossesSuspension, crossesThread)
	switch p.Mode {
	case ModeInteractive:
		if crossesThread {
			return SharedSync
		}
		return SharedLocal
	case ModeBatch:
		if pattern != Escaped && i == len(uses)-1 && !u.Repeated && u.Kind != UseMutate {
			return Move
		}
	}
	return derived
}
