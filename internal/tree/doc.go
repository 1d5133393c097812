// Package tree holds the type-checked unit dumps the front end hands to the
// decision engine.
//
// Every unit carries its own type table and source text. Expressions of a
// function live in a flat arena addressed by ExprID; index 0 of every arena is
// reserved so the zero value means "none". Dumps are msgpack encoded, one unit
// per .tree file, or several units in one bundle.
package tree
