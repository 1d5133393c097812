package diag

import (
	"errors"

	"hostgen/internal/source"
)

// Diagnosable is an analysis error that knows its own diagnostic.
type Diagnosable interface {
	error
	Diagnostic() *Diagnostic
}

// FromError converts err to a diagnostic. Errors that do not carry one are
// reported under fallback at span.
func FromError(err error, fallback Code, span source.Span) *Diagnostic {
	if err == nil {
		return nil
	}
	var d Diagnosable
	if errors.As(err, &d) {
		if out := d.Diagnostic(); out != nil {
			return out
		}
	}
	return NewError(fallback, span, err.Error())
}

// ReportErrors converts and reports every error.
func ReportErrors(r Reporter, errs []error, fallback Code, span source.Span) {
	for _, err := range errs {
		if d := FromError(err, fallback, span); d != nil {
			r.Report(d)
		}
	}
}
