package tree

import (
	"hostgen/internal/project"
	"hostgen/internal/source"
	"hostgen/internal/types"
)

type (
	// ExprID indexes Func.Exprs.
	ExprID uint32
	// BindingID indexes Func.Bindings.
	BindingID uint32
)

const (
	NoExpr    ExprID    = 0
	NoBinding BindingID = 0
)

type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprLit              // literal
	ExprBinary           // arithmetic or comparison over Args
	ExprName             // read of Binding
	ExprAddrMut          // &mut Binding
	ExprAssign           // Binding = Args[0]
	ExprLet              // let Binding = Args[0]
	ExprBlock            // Args in order
	ExprIf               // cond, then, else
	ExprLoop             // Args is the body; Infinite when nothing breaks out
	ExprCall             // Callee(Args...), or Binding(Args...) for a callback parameter
	ExprMethod           // Args[0].Method(Args[1:]...)
	ExprFuncRef          // function used as a value
	ExprClosure          // Params, Captures, Body
	ExprAwait            // suspension point
	ExprUnsafe           // unsafe wrapper
	ExprPrim             // primitive of class Prim
	ExprSpawn            // hands Args[0] to a concurrent worker
	ExprReturn           // Args[0], if any
)

var exprKindNames = [...]string{
	ExprInvalid: "invalid",
	ExprLit:     "lit",
	ExprBinary:  "binary",
	ExprName:    "name",
	ExprAddrMut: "addr_mut",
	ExprAssign:  "assign",
	ExprLet:     "let",
	ExprBlock:   "block",
	ExprIf:      "if",
	ExprLoop:    "loop",
	ExprCall:    "call",
	ExprMethod:  "method",
	ExprFuncRef: "func_ref",
	ExprClosure: "closure",
	ExprAwait:   "await",
	ExprUnsafe:  "unsafe",
	ExprPrim:    "prim",
	ExprSpawn:   "spawn",
	ExprReturn:  "return",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "unknown"
}

// Prim classifies built-in operations by the capability they need.
type Prim uint8

const (
	PrimNone  Prim = iota
	PrimIO         // file, socket, console
	PrimPanic      // panic!
	PrimAbort      // process abort
	PrimAlloc      // explicit heap allocation
	PrimTool       // tool-protocol request
)

func (p Prim) String() string {
	switch p {
	case PrimIO:
		return "io"
	case PrimPanic:
		return "panic"
	case PrimAbort:
		return "abort"
	case PrimAlloc:
		return "alloc"
	case PrimTool:
		return "tool"
	}
	return "none"
}

type Expr struct {
	Kind       ExprKind     `msgpack:"k"`
	Type       types.TypeID `msgpack:"t,omitempty"`
	Span       source.Span  `msgpack:"s"`
	Args       []ExprID     `msgpack:"a,omitempty"`
	Binding    BindingID    `msgpack:"b,omitempty"`
	Callee     string       `msgpack:"c,omitempty"`
	CalleeSpan source.Span  `msgpack:"cs,omitempty"`
	Method     string       `msgpack:"m,omitempty"`
	Prim       Prim         `msgpack:"p,omitempty"`
	Text       string       `msgpack:"x,omitempty"`
	Params     []BindingID  `msgpack:"cp,omitempty"`
	Captures   []BindingID  `msgpack:"cc,omitempty"`
	Body       ExprID       `msgpack:"cb,omitempty"`
	Infinite   bool         `msgpack:"inf,omitempty"`
}

type Binding struct {
	Name string       `msgpack:"n"`
	Type types.TypeID `msgpack:"t"`
	Span source.Span  `msgpack:"s"`
}

type Param struct {
	Name    string       `msgpack:"n"`
	Type    types.TypeID `msgpack:"t"`
	Binding BindingID    `msgpack:"b"`
}

type Func struct {
	Name        string       `msgpack:"name"`
	Span        source.Span  `msgpack:"span"`
	Params      []Param      `msgpack:"params,omitempty"`
	Result      types.TypeID `msgpack:"result,omitempty"`
	Exported    bool         `msgpack:"exported,omitempty"`
	Declared    bool         `msgpack:"declared,omitempty"` // carries an effect annotation
	Effects     []string     `msgpack:"effects,omitempty"`  // declared effects; none means pure
	EffectsSpan source.Span  `msgpack:"effects_span"`       // annotation, or insertion point
	SyncAlt     string       `msgpack:"sync_alt,omitempty"` // synchronous equivalent, if any
	Bindings    []Binding    `msgpack:"bindings"`
	Exprs       []Expr       `msgpack:"exprs"`
	Body        ExprID       `msgpack:"body"`
}

// Expr returns the expression with the given id, or nil.
func (f *Func) Expr(id ExprID) *Expr {
	if id == NoExpr || int(id) >= len(f.Exprs) {
		return nil
	}
	return &f.Exprs[id]
}

// Binding returns the binding with the given id, or nil.
func (f *Func) Binding(id BindingID) *Binding {
	if id == NoBinding || int(id) >= len(f.Bindings) {
		return nil
	}
	return &f.Bindings[id]
}

type Import struct {
	Path    string      `msgpack:"path"`
	Items   []string    `msgpack:"items,omitempty"`
	Version string      `msgpack:"version,omitempty"` // requirement for external packages
	Span    source.Span `msgpack:"span"`
}

type MethodDecl struct {
	Name    string         `msgpack:"name"`
	Params  []types.TypeID `msgpack:"params,omitempty"` // receiver excluded
	Result  types.TypeID   `msgpack:"result,omitempty"`
	Effects []string       `msgpack:"effects,omitempty"`
	Span    source.Span    `msgpack:"span"`
}

type InterfaceDecl struct {
	Name    string       `msgpack:"name"` // unqualified
	Methods []MethodDecl `msgpack:"methods"`
	Assoc   []string     `msgpack:"assoc,omitempty"`
	Parents []string     `msgpack:"parents,omitempty"` // qualified
	Span    source.Span  `msgpack:"span"`
}

// Impl states that Type satisfies the qualified interface Interface.
type Impl struct {
	Type      types.TypeID `msgpack:"type"`
	Interface string       `msgpack:"interface"`
	Span      source.Span  `msgpack:"span"`
}

type Unit struct {
	Path       string          `msgpack:"path"`
	Types      []types.Type    `msgpack:"types"`
	Exports    []string        `msgpack:"exports,omitempty"`
	Imports    []Import        `msgpack:"imports,omitempty"`
	Funcs      []Func          `msgpack:"funcs,omitempty"`
	Interfaces []InterfaceDecl `msgpack:"interfaces,omitempty"`
	Impls      []Impl          `msgpack:"impls,omitempty"`
	Source     []byte          `msgpack:"source,omitempty"`

	File   source.FileID  `msgpack:"-"`
	Digest project.Digest `msgpack:"-"`
}

// Qualify returns the unit-qualified name of a declaration.
func (u *Unit) Qualify(name string) string {
	return u.Path + "::" + name
}

// Func returns the function with the given name, or nil.
func (u *Unit) Func(name string) *Func {
	for i := range u.Funcs {
		if u.Funcs[i].Name == name {
			return &u.Funcs[i]
		}
	}
	return nil
}

// Bundle is a set of units shipped in one file.
type Bundle struct {
	Units []*Unit `msgpack:"units"`
}
