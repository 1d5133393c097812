package iface

import (
	"hostgen/internal/modules"
	"hostgen/internal/types"
)

// SeedStd declares the standard library interfaces and their
// implementations for built-in types.
func SeedStd(idx *Index, in *types.Interner) {
	b := in.Builtins()
	self := in.Intern(types.MakeParam("Self"))
	method := func(name string, result types.TypeID, params ...types.TypeID) MethodSig {
		return MethodSig{Name: name, Params: params, Result: result}
	}
	std := []*Descriptor{
		{Name: "std::prelude::Clone", Methods: []MethodSig{method("clone", self)}},
		{Name: "std::cmp::PartialEq", Methods: []MethodSig{method("eq", b.Bool, self)}},
		{Name: "std::cmp::Ord", Methods: []MethodSig{method("cmp", b.Int, self)}, Parents: []string{"std::cmp::PartialEq"}},
		{Name: "std::fmt::Display", Methods: []MethodSig{method("to_string", b.String)}},
		{Name: "std::ops::Add", Methods: []MethodSig{method("add", self, self)}, Assoc: []string{"Output"}},
		{Name: "std::iter::Iterator", Methods: []MethodSig{method("next", b.Any)}, Assoc: []string{"Item"}},
		{Name: "std::hash::Hash", Methods: []MethodSig{method("hash", b.Unit, b.Any)}},
	}
	for _, d := range std {
		d.Origin = modules.KindStd
		idx.Declare(d)
	}
	for _, ty := range []types.TypeID{b.Int, b.Float, b.String, b.Bool} {
		for _, name := range []string{"std::prelude::Clone", "std::cmp::Ord", "std::fmt::Display", "std::hash::Hash"} {
			idx.Implement(ty, name)
		}
	}
	for _, ty := range []types.TypeID{b.Int, b.Float, b.String} {
		idx.Implement(ty, "std::ops::Add")
	}
}
