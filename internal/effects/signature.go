package effects

import (
	"sort"
	"strings"

	"hostgen/internal/memo"
)

// Var is an effect parameter of a higher-order signature: it stands for the
// effect of the callback passed as parameter Param.
type Var struct {
	Param int
	Name  string
}

// Signature is the effect contract of a function as callers see it.
type Signature struct {
	Name     string // qualified
	Fixed    Set
	Vars     []Var
	Declared bool
	SyncAlt  string // synchronous equivalent, if any
}

// Solve instantiates the signature at a call site. args holds the latent
// effect of every argument; each variable is replaced by its callback's effect.
func (s Signature) Solve(args []Set) Set {
	out := s.Fixed
	for _, v := range s.Vars {
		if v.Param < len(args) {
			out = out.Join(args[v.Param])
		}
	}
	return out
}

func (s Signature) String() string {
	if len(s.Vars) == 0 {
		return s.Fixed.String()
	}
	parts := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		parts[i] = "ε(" + v.Name + ")"
	}
	return s.Fixed.String() + " ∪ " + strings.Join(parts, " ∪ ")
}

// Signatures is the session-wide effect index, keyed by qualified function
// name. Units publish once their analysis is done; the first value stored
// for a name wins.
type Signatures struct {
	table *memo.Table[string, Signature]
}

func NewSignatures() *Signatures {
	return &Signatures{table: memo.NewTable[string, Signature]()}
}

// Publish stores sig unless the name is already present and returns the
// stored signature.
func (s *Signatures) Publish(sig Signature) Signature {
	actual, _ := s.table.LoadOrStore(sig.Name, sig)
	return actual
}

func (s *Signatures) Lookup(name string) (Signature, bool) {
	if s == nil {
		return Signature{}, false
	}
	return s.table.Get(name)
}

func (s *Signatures) Len() int {
	return s.table.Len()
}

// Names returns the published names in sorted order.
func (s *Signatures) Names() []string {
	names := s.table.Keys()
	sort.Strings(names)
	return names
}
