package ownership

import (
	"errors"
	"fmt"

	"hostgen/internal/diag"
	"hostgen/internal/fix"
	"hostgen/internal/source"
)

var ErrUseAfterMove = errors.New("use after move")

// UseAfterMoveError means the chosen strategies would use a value after it
// was moved. It is an internal invariant violation, reported so the emitter
// never receives the plan.
type UseAfterMoveError struct {
	Func    string
	Binding string
	MovedAt source.Span
	UsedAt  source.Span
	InLoop  bool // moved inside a loop and used again by the next iteration
}

func (e *UseAfterMoveError) Error() string {
	if e.InLoop {
		return fmt.Sprintf("%s: %s moved inside a loop at %s", e.Func, e.Binding, e.MovedAt)
	}
	return fmt.Sprintf("%s: %s used at %s after move at %s", e.Func, e.Binding, e.UsedAt, e.MovedAt)
}

func (e *UseAfterMoveError) Is(target error) bool { return target == ErrUseAfterMove }

func (e *UseAfterMoveError) Diagnostic() *diag.Diagnostic {
	d := diag.NewError(diag.OwnUseAfterMove, e.UsedAt,
		fmt.Sprintf("transfer plan for %s in %s uses the value after moving it", e.Binding, e.Func))
	if e.InLoop {
		d.WithNote(e.MovedAt, "moved here on every iteration")
	} else {
		d.WithNote(e.MovedAt, "moved here")
	}
	return fix.For(diag.OwnUseAfterMove, e.UsedAt).
		Advice(fmt.Sprintf("duplicate %s at the move site or compile with --mode aot", e.Binding)).
		AttachTo(d)
}

// Verify checks that no use of br follows a move, and that nothing is
// moved inside a loop that will reach the move again.
func Verify(fn string, br *BindingResult) error {
	moved := -1
	for i, u := range br.Uses {
		if moved >= 0 {
			return &UseAfterMoveError{Func: fn, Binding: br.Name, MovedAt: br.Uses[moved].Span, UsedAt: u.Span}
		}
		if u.Strategy != Move {
			continue
		}
		if u.Repeated {
			return &UseAfterMoveError{Func: fn, Binding: br.Name, MovedAt: u.Span, UsedAt: u.Span, InLoop: true}
		}
		moved = i
	}
	return nil
}
