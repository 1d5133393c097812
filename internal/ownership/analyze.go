package ownership

import (
	"hostgen/internal/source"
	"hostgen/internal/tree"
)

// BindingResult is the classification of one binding and the strategy of
// each of its uses.
type BindingResult struct {
	Binding       tree.BindingID
	Name          string
	Span          source.Span
	Pattern       Pattern
	CrossesThread bool
	Uses          []Use // evaluation order
}

// Strategies lists the chosen strategy of every use, in order.
func (b *BindingResult) Strategies() []Strategy {
	out := make([]Strategy, len(b.Uses))
	for i, u := range b.Uses {
		out[i] = u.Strategy
	}
	return out
}

type FuncResult struct {
	Func     string
	Bindings []BindingResult // binding id order
	Errors   []error         // use-after-move findings
}

// Binding returns the first binding with the given name, or nil.
func (r *FuncResult) Binding(name string) *BindingResult {
	for i := range r.Bindings {
		if r.Bindings[i].Name == name {
			return &r.Bindings[i]
		}
	}
	return nil
}

type UnitResult struct {
	Unit  string
	Funcs []*FuncResult
}

// Errors collects the findings of every function.
func (r *UnitResult) Errors() []error {
	var out []error
	for _, f := range r.Funcs {
		out = append(out, f.Errors...)
	}
	return out
}

// Func returns the result for the named function, or nil.
func (r *UnitResult) Func(name string) *FuncResult {
	for _, f := range r.Funcs {
		if f.Func == name {
			return f
		}
	}
	return nil
}

// AnalyzeUnit analyses every function of u under one policy.
func AnalyzeUnit(u *tree.Unit, p Policy) *UnitResult {
	res := &UnitResult{Unit: u.Path, Funcs: make([]*FuncResult, 0, len(u.Funcs))}
	for i := range u.Funcs {
		res.Funcs = append(res.Funcs, Analyze(&u.Funcs[i], p))
	}
	return res
}

// scope is a function body or a closure body. Closure bodies run at an
// unknown time, so each is analysed on its own and outer bindings it uses
// are seen only as captures at the closure expression.
type scope struct {
	root   tree.ExprID
	order  []tree.ExprID
	awaits []int // awaits[i] = suspension points before position i
	defs   map[tree.BindingID]int
}

func newScope(f *tree.Func, root tree.ExprID, params []tree.BindingID) *scope {
	s := &scope{root: root, order: tree.PostOrder(f, root, false), defs: make(map[tree.BindingID]int)}
	for _, p := range params {
		s.defs[p] = -1
	}
	s.awaits = make([]int, len(s.order)+1)
	for i, id := range s.order {
		e := f.Expr(id)
		s.awaits[i+1] = s.awaits[i]
		if e.Kind == tree.ExprAwait {
			s.awaits[i+1]++
		}
		if e.Kind == tree.ExprLet {
			if _, ok := s.defs[e.Binding]; !ok {
				s.defs[e.Binding] = i
			}
		}
	}
	return s
}

type use struct {
	Use
	binding tree.BindingID
	via     tree.BindingID // binding the capturing closure was stored in
}

// Analyze classifies every binding of f and assigns a strategy per use.
func Analyze(f *tree.Func, p Policy) *FuncResult {
	parents := tree.Parents(f, f.Body)

	params := make([]tree.BindingID, len(f.Params))
	for i, prm := range f.Params {
		params[i] = prm.Binding
	}
	scopes := []*scope{newScope(f, f.Body, params)}
	for i := 0; i < len(scopes); i++ {
		for _, id := range scopes[i].order {
			if e := f.Expr(id); e.Kind == tree.ExprClosure && e.Body != tree.NoExpr {
				scopes = append(scopes, newScope(f, e.Body, e.Params))
			}
		}
	}

	owner := make(map[tree.BindingID]*scope)
	for _, s := range scopes {
		for b := range s.defs {
			if _, ok := owner[b]; !ok {
				owner[b] = s
			}
		}
	}

	uses := make(map[tree.BindingID][]use)
	for _, s := range scopes {
		for i, id := range s.order {
			for _, u := range usesAt(f, parents, id) {
				if owner[u.binding] != s {
					continue
				}
				u.Expr = id
				u.Span = f.Expr(id).Span
				u.Order = i
				def := s.defs[u.binding]
				u.CrossesSuspension = s.awaits[i]-s.awaits[def+1] > 0
				u.Repeated = repeated(f, parents, s, id, def)
				uses[u.binding] = append(uses[u.binding], u)
			}
		}
	}

	res := &FuncResult{Func: f.Name}
	index := make(map[tree.BindingID]int)
	for b := tree.BindingID(1); int(b) < len(f.Bindings); b++ {
		if owner[b] == nil {
			continue
		}
		bd := f.Binding(b)
		br := BindingResult{Binding: b, Name: bd.Name, Span: bd.Span}
		for _, u := range uses[b] {
			br.Uses = append(br.Uses, u.Use)
		}
		br.Pattern, br.CrossesThread = Classify(br.Uses)
		index[b] = len(res.Bindings)
		res.Bindings = append(res.Bindings, br)
	}

	// a closure stored in a binding escapes with it, and so do its captures
	type escape struct{ escapes, thread bool }
	holders := make([]escape, len(res.Bindings))
	for i, br := range res.Bindings {
		for _, u := range br.Uses {
			holders[i].escapes = holders[i].escapes || u.Kind.Escapes()
			holders[i].thread = holders[i].thread || u.Kind == UseSend
		}
	}
	for i := range res.Bindings {
		br := &res.Bindings[i]
		changed := false
		for j, u := range uses[br.Binding] {
			if u.via == tree.NoBinding {
				continue
			}
			holder := holders[index[u.via]]
			if !holder.escapes {
				continue
			}
			kind := UseReturn
			if holder.thread {
				kind = UseSend
			}
			if br.Uses[j].Kind != kind {
				br.Uses[j].Kind = kind
				changed = true
			}
		}
		if changed {
			br.Pattern, br.CrossesThread = Classify(br.Uses)
		}
	}

	for i := range res.Bindings {
		br := &res.Bindings[i]
		for j := range br.Uses {
			br.Uses[j].Strategy = p.Choose(br.Pattern, br.CrossesThread, br.Uses, j)
		}
		if err := Verify(f.Name, br); err != nil {
			res.Errors = append(res.Errors, err)
		}
	}
	return res
}

// usesAt lists the binding uses expression id performs itself.
func usesAt(f *tree.Func, parents map[tree.ExprID]tree.ExprID, id tree.ExprID) []use {
	e := f.Expr(id)
	parentKind := tree.ExprInvalid
	var parent *tree.Expr
	if pid, ok := parents[id]; ok {
		parent = f.Expr(pid)
		parentKind = parent.Kind
	}
	switch e.Kind {
	case tree.ExprName:
		kind := UseRead
		switch parentKind {
		case tree.ExprReturn:
			kind = UseReturn
		case tree.ExprSpawn:
			kind = UseSend
		}
		return []use{{Use: Use{Kind: kind}, binding: e.Binding}}
	case tree.ExprAddrMut, tree.ExprAssign:
		return []use{{Use: Use{Kind: UseMutate}, binding: e.Binding}}
	case tree.ExprCall:
		if e.Binding != tree.NoBinding {
			return []use{{Use: Use{Kind: UseRead}, binding: e.Binding}}
		}
	case tree.ExprClosure:
		out := make([]use, 0, len(e.Captures))
		for _, c := range e.Captures {
			u := use{binding: c}
			switch {
			case parentKind == tree.ExprSpawn:
				u.Kind = UseSend
			case parentKind == tree.ExprReturn:
				u.Kind = UseReturn
			case mutates(f, e.Body, c):
				u.Kind = UseMutate
			default:
				u.Kind = UseCapture
			}
			if parentKind == tree.ExprLet {
				u.via = parent.Binding
			}
			out = append(out, u)
		}
		return out
	}
	return nil
}

func mutates(f *tree.Func, body tree.ExprID, b tree.BindingID) bool {
	for _, id := range tree.PostOrder(f, body, true) {
		e := f.Expr(id)
		if (e.Kind == tree.ExprAddrMut || e.Kind == tree.ExprAssign) && e.Binding == b {
			return true
		}
	}
	return false
}

// repeated reports whether id sits in a loop of its scope that does not
// also contain the definition at position def.
func repeated(f *tree.Func, parents map[tree.ExprID]tree.ExprID, s *scope, id tree.ExprID, def int) bool {
	defLoops := map[tree.ExprID]bool{}
	if def >= 0 {
		for _, l := range loopsAbove(f, parents, s.root, s.order[def]) {
			defLoops[l] = true
		}
	}
	for _, l := range loopsAbove(f, parents, s.root, id) {
		if !defLoops[l] {
			return true
		}
	}
	return false
}

func loopsAbove(f *tree.Func, parents map[tree.ExprID]tree.ExprID, root, id tree.ExprID) []tree.ExprID {
	var out []tree.ExprID
	for id != root {
		pid, ok := parents[id]
		if !ok {
			break
		}
		if f.Expr(pid).Kind == tree.ExprLoop {
			out = append(out, pid)
		}
		id = pid
	}
	return out
}
