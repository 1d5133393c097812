package tree

// Children returns the operands of e evaluated as part of e itself. Closure
// bodies are not children: they run when the closure is called.
func Children(e *Expr) []ExprID {
	return e.Args
}

// PostOrder lists the expressions under root in evaluation order, operands
// before the expression that uses them. When intoClosures is set, closure
// bodies are listed right before the closure expression.
func PostOrder(f *Func, root ExprID, intoClosures bool) []ExprID {
	if f.Expr(root) == nil {
		return nil
	}
	type frame struct {
		id   ExprID
		next int
		body bool // closure body already pushed
	}
	out := make([]ExprID, 0, len(f.Exprs))
	stack := []frame{{id: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		e := f.Expr(top.id)
		if e == nil {
			stack = stack[:len(stack)-1]
			continue
		}
		if intoClosures && e.Kind == ExprClosure && !top.body {
			top.body = true
			if f.Expr(e.Body) != nil {
				stack = append(stack, frame{id: e.Body})
			}
			continue
		}
		if top.next < len(e.Args) {
			child := e.Args[top.next]
			top.next++
			stack = append(stack, frame{id: child})
			continue
		}
		out = append(out, top.id)
		stack = stack[:len(stack)-1]
	}
	return out
}

// Parents maps every expression reachable from root (closure bodies included)
// to the expression that contains it. A closure body's parent is the closure.
func Parents(f *Func, root ExprID) map[ExprID]ExprID {
	parents := make(map[ExprID]ExprID, len(f.Exprs))
	for _, id := range PostOrder(f, root, true) {
		e := f.Expr(id)
		for _, c := range e.Args {
			parents[c] = id
		}
		if e.Kind == ExprClosure && e.Body != NoExpr {
			parents[e.Body] = id
		}
	}
	return parents
}
