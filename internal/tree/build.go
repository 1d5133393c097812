package tree

import (
	"hostgen/internal/source"
	"hostgen/internal/types"
)

// FuncBuilder assembles a Func programmatically. Front-end adapters and tests
// use it instead of filling the arenas by hand. Every expression gets a
// distinct one-byte span in creation order unless At is used.
type FuncBuilder struct {
	fn   Func
	next uint32
	at   *source.Span
}

func NewFunc(name string) *FuncBuilder {
	return &FuncBuilder{
		fn: Func{
			Name:     name,
			Bindings: []Binding{{}},
			Exprs:    []Expr{{}},
		},
	}
}

// At makes the next expression use span instead of a generated one.
func (b *FuncBuilder) At(span source.Span) *FuncBuilder {
	b.at = &span
	return b
}

func (b *FuncBuilder) span() source.Span {
	if b.at != nil {
		s := *b.at
		b.at = nil
		return s
	}
	b.next++
	return source.Span{Start: b.next, End: b.next + 1}
}

func (b *FuncBuilder) add(e Expr) ExprID {
	e.Span = b.span()
	b.fn.Exprs = append(b.fn.Exprs, e)
	return ExprID(len(b.fn.Exprs) - 1) //nolint:gosec // arena sizes stay far below 2^32
}

// Declare marks the function as annotated with exactly the given effects.
func (b *FuncBuilder) Declare(effects ...string) *FuncBuilder {
	b.fn.Declared = true
	b.fn.Effects = effects
	return b
}

// Export marks the function as visible to importers.
func (b *FuncBuilder) Export() *FuncBuilder {
	b.fn.Exported = true
	return b
}

// SyncAlt records the synchronous equivalent of the function.
func (b *FuncBuilder) SyncAlt(name string) *FuncBuilder {
	b.fn.SyncAlt = name
	return b
}

// Bind declares a local binding.
func (b *FuncBuilder) Bind(name string, ty types.TypeID) BindingID {
	b.fn.Bindings = append(b.fn.Bindings, Binding{Name: name, Type: ty, Span: b.span()})
	return BindingID(len(b.fn.Bindings) - 1) //nolint:gosec // see add
}

// Param declares a parameter and its binding.
func (b *FuncBuilder) Param(name string, ty types.TypeID) BindingID {
	id := b.Bind(name, ty)
	b.fn.Params = append(b.fn.Params, Param{Name: name, Type: ty, Binding: id})
	return id
}

func (b *FuncBuilder) Lit(text string, ty types.TypeID) ExprID {
	return b.add(Expr{Kind: ExprLit, Text: text, Type: ty})
}

func (b *FuncBuilder) Binary(op string, lhs, rhs ExprID) ExprID {
	return b.add(Expr{Kind: ExprBinary, Text: op, Args: []ExprID{lhs, rhs}})
}

func (b *FuncBuilder) Name(id BindingID) ExprID {
	return b.add(Expr{Kind: ExprName, Binding: id, Type: b.fn.Bindings[id].Type})
}

func (b *FuncBuilder) AddrMut(id BindingID) ExprID {
	return b.add(Expr{Kind: ExprAddrMut, Binding: id})
}

func (b *FuncBuilder) Assign(id BindingID, value ExprID) ExprID {
	return b.add(Expr{Kind: ExprAssign, Binding: id, Args: []ExprID{value}})
}

func (b *FuncBuilder) Let(id BindingID, init ExprID) ExprID {
	return b.add(Expr{Kind: ExprLet, Binding: id, Args: []ExprID{init}})
}

func (b *FuncBuilder) Block(stmts ...ExprID) ExprID {
	return b.add(Expr{Kind: ExprBlock, Args: stmts})
}

func (b *FuncBuilder) If(cond, then, els ExprID) ExprID {
	args := []ExprID{cond, then}
	if els != NoExpr {
		args = append(args, els)
	}
	return b.add(Expr{Kind: ExprIf, Args: args})
}

func (b *FuncBuilder) Loop(infinite bool, body ...ExprID) ExprID {
	return b.add(Expr{Kind: ExprLoop, Args: body, Infinite: infinite})
}

// Call calls a function by (possibly qualified) name.
func (b *FuncBuilder) Call(callee string, args ...ExprID) ExprID {
	return b.add(Expr{Kind: ExprCall, Callee: callee, Args: args})
}

// CallParam calls a callback held in a parameter binding.
func (b *FuncBuilder) CallParam(param BindingID, args ...ExprID) ExprID {
	return b.add(Expr{Kind: ExprCall, Binding: param, Args: args})
}

func (b *FuncBuilder) Method(recv ExprID, name string, args ...ExprID) ExprID {
	return b.add(Expr{Kind: ExprMethod, Method: name, Args: append([]ExprID{recv}, args...)})
}

func (b *FuncBuilder) FuncRef(name string) ExprID {
	return b.add(Expr{Kind: ExprFuncRef, Callee: name})
}

func (b *FuncBuilder) Closure(params, captures []BindingID, body ExprID) ExprID {
	return b.add(Expr{Kind: ExprClosure, Params: params, Captures: captures, Body: body})
}

func (b *FuncBuilder) Await(e ExprID) ExprID {
	return b.add(Expr{Kind: ExprAwait, Args: []ExprID{e}})
}

func (b *FuncBuilder) Unsafe(body ...ExprID) ExprID {
	return b.add(Expr{Kind: ExprUnsafe, Args: body})
}

func (b *FuncBuilder) Prim(p Prim, args ...ExprID) ExprID {
	return b.add(Expr{Kind: ExprPrim, Prim: p, Args: args})
}

func (b *FuncBuilder) Spawn(e ExprID) ExprID {
	return b.add(Expr{Kind: ExprSpawn, Args: []ExprID{e}})
}

func (b *FuncBuilder) Return(e ExprID) ExprID {
	var args []ExprID
	if e != NoExpr {
		args = []ExprID{e}
	}
	return b.add(Expr{Kind: ExprReturn, Args: args})
}

// Typed sets the type of an already built expression.
func (b *FuncBuilder) Typed(id ExprID, ty types.TypeID) ExprID {
	b.fn.Exprs[id].Type = ty
	return id
}

// Finish sets the body and returns the function.
func (b *FuncBuilder) Finish(body ExprID) Func {
	b.fn.Body = body
	b.next++
	b.fn.EffectsSpan = source.Span{Start: b.next, End: b.next}
	return b.fn
}
