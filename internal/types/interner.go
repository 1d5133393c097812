package types

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Unit   TypeID
	Bool   TypeID
	Int    TypeID
	Float  TypeID
	String TypeID
	Any    TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Units loaded separately are rebased onto one session interner, so it is safe
// for concurrent use.
type Interner struct {
	mu       sync.RWMutex
	types    []Type
	index    map[string]TypeID
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[string]TypeID, 64),
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // reserve 0
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Any = in.Intern(Type{Kind: KindAny})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	in.mu.RLock()
	id, ok := in.index[key]
	in.mu.RUnlock()
	if ok {
		return id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id = TypeID(n)
	stored := t
	stored.Args = append([]TypeID(nil), t.Args...)
	in.types = append(in.types, stored)
	in.index[key] = id
	return id
}

// Named interns a nominal type.
func (in *Interner) Named(name string, args ...TypeID) TypeID {
	return in.Intern(MakeNamed(name, args...))
}

// Ref interns &elem or &mut elem.
func (in *Interner) Ref(elem TypeID, mutable bool) TypeID {
	return in.Intern(MakeRef(elem, mutable))
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len returns the number of interned types including the reserved slot.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.types)
}

// Table returns the descriptors in ID order; index 0 is the reserved invalid slot.
func (in *Interner) Table() []Type {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]Type, len(in.types))
	copy(out, in.types)
	return out
}

// Rebase interns every descriptor of a foreign table and returns the mapping
// from the table's IDs to this interner's IDs. Descriptors may only reference
// earlier entries.
func (in *Interner) Rebase(table []Type) ([]TypeID, error) {
	remap := make([]TypeID, len(table))
	mapID := func(pos int, id TypeID) (TypeID, error) {
		if id == NoTypeID {
			return NoTypeID, nil
		}
		if int(id) >= pos {
			return NoTypeID, fmt.Errorf("types: entry %d references later entry %d", pos, id)
		}
		return remap[id], nil
	}
	for i := 1; i < len(table); i++ {
		t := table[i]
		var err error
		if t.Elem, err = mapID(i, t.Elem); err != nil {
			return nil, err
		}
		if t.Result, err = mapID(i, t.Result); err != nil {
			return nil, err
		}
		args := make([]TypeID, len(t.Args))
		for j, a := range t.Args {
			if args[j], err = mapID(i, a); err != nil {
				return nil, err
			}
		}
		t.Args = args
		remap[i] = in.Intern(t)
	}
	return remap, nil
}

// FromTable builds an interner from a serialised table.
func FromTable(table []Type) (*Interner, []TypeID, error) {
	in := NewInterner()
	remap, err := in.Rebase(table)
	if err != nil {
		return nil, nil, err
	}
	return in, remap, nil
}

func typeKey(t Type) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(t.Kind)))
	sb.WriteByte('|')
	sb.WriteString(t.Name)
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(uint64(t.Elem), 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(uint64(t.Result), 10))
	for _, a := range t.Args {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return sb.String()
}
