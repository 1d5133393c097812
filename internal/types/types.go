package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindFloat
	KindString
	KindNamed  // nominal type, optionally with type arguments
	KindRef    // &T
	KindMutRef // &mut T
	KindBox    // owned heap box
	KindShared // reference-counted shared owner
	KindFn     // function value (closures, callbacks)
	KindParam  // generic type parameter
	KindAny    // dynamic value, matches everything
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindNamed:
		return "named"
	case KindRef:
		return "ref"
	case KindMutRef:
		return "mutref"
	case KindBox:
		return "box"
	case KindShared:
		return "shared"
	case KindFn:
		return "fn"
	case KindParam:
		return "param"
	case KindAny:
		return "any"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind   Kind     `msgpack:"k"`
	Elem   TypeID   `msgpack:"e,omitempty"` // ref, mutref, box, shared
	Name   string   `msgpack:"n,omitempty"` // named, param
	Args   []TypeID `msgpack:"a,omitempty"` // named type arguments, fn parameters
	Result TypeID   `msgpack:"r,omitempty"` // fn
}

// Indirect reports whether the kind wraps another type that method lookup may reach through.
func (k Kind) Indirect() bool {
	switch k {
	case KindRef, KindMutRef, KindBox, KindShared:
		return true
	}
	return false
}

// MakeNamed describes a nominal type.
func MakeNamed(name string, args ...TypeID) Type {
	return Type{Kind: KindNamed, Name: name, Args: args}
}

// MakeRef describes &T or &mut T depending on the mutable flag.
func MakeRef(elem TypeID, mutable bool) Type {
	if mutable {
		return Type{Kind: KindMutRef, Elem: elem}
	}
	return Type{Kind: KindRef, Elem: elem}
}

func MakeBox(elem TypeID) Type {
	return Type{Kind: KindBox, Elem: elem}
}

func MakeShared(elem TypeID) Type {
	return Type{Kind: KindShared, Elem: elem}
}

func MakeFn(params []TypeID, result TypeID) Type {
	return Type{Kind: KindFn, Args: params, Result: result}
}

func MakeParam(name string) Type {
	return Type{Kind: KindParam, Name: name}
}
