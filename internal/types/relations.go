package types

// Deref strips one level of indirection (reference, box or shared owner).
func (in *Interner) Deref(id TypeID) (TypeID, bool) {
	tt, ok := in.Lookup(id)
	if !ok || !tt.Kind.Indirect() {
		return NoTypeID, false
	}
	return tt.Elem, true
}

// DerefChain returns id followed by every type reachable through Deref, up to max levels.
func (in *Interner) DerefChain(id TypeID, max int) []TypeID {
	chain := []TypeID{id}
	cur := id
	for range max {
		next, ok := in.Deref(cur)
		if !ok {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return chain
}

// Assignable reports whether a value of type arg can be passed where param is expected.
// Generic parameters and any accept everything; &mut T may be passed as &T.
func (in *Interner) Assignable(arg, param TypeID) bool {
	if arg == param {
		return true
	}
	pt, ok := in.Lookup(param)
	if !ok {
		return false
	}
	if pt.Kind == KindParam || pt.Kind == KindAny {
		return true
	}
	at, ok := in.Lookup(arg)
	if !ok {
		return false
	}
	if at.Kind == KindAny {
		return true
	}
	switch pt.Kind {
	case KindRef:
		if at.Kind == KindRef || at.Kind == KindMutRef {
			return in.Assignable(at.Elem, pt.Elem)
		}
		return false
	case KindMutRef, KindBox, KindShared:
		return at.Kind == pt.Kind && in.Assignable(at.Elem, pt.Elem)
	case KindNamed:
		if at.Kind != KindNamed || at.Name != pt.Name || len(at.Args) != len(pt.Args) {
			return false
		}
		for i := range pt.Args {
			if !in.Assignable(at.Args[i], pt.Args[i]) {
				return false
			}
		}
		return true
	case KindFn:
		if at.Kind != KindFn || len(at.Args) != len(pt.Args) {
			return false
		}
		for i := range pt.Args {
			if !in.Assignable(pt.Args[i], at.Args[i]) {
				return false
			}
		}
		return in.Assignable(at.Result, pt.Result)
	}
	return false
}

// IsFn reports whether id is a function type.
func (in *Interner) IsFn(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == KindFn
}
