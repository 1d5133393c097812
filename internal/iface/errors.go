package iface

import (
	"errors"
	"fmt"
	"strings"

	"hostgen/internal/diag"
	"hostgen/internal/fix"
	"hostgen/internal/source"
)

var (
	ErrNoImplementation = errors.New("no implementation")
	ErrAmbiguousMethod  = errors.New("ambiguous method")
)

type NoImplementationError struct {
	Receiver  string
	Method    string
	Declaring []string // visible interfaces that declare the method
	Span      source.Span
}

func (e *NoImplementationError) Error() string {
	return fmt.Sprintf("no implementation of %s for %s", e.Method, e.Receiver)
}

func (e *NoImplementationError) Is(target error) bool { return target == ErrNoImplementation }

func (e *NoImplementationError) Diagnostic() *diag.Diagnostic {
	var d *diag.Diagnostic
	if len(e.Declaring) == 0 {
		d = diag.NewError(diag.IfcNoImplementation, e.Span,
			fmt.Sprintf("no interface in scope declares method %s", e.Method))
		return fix.For(diag.IfcNoImplementation, e.Span).
			Advice(fmt.Sprintf("declare an interface with %s and implement it for %s", e.Method, e.Receiver)).
			AttachTo(d)
	}
	d = diag.NewError(diag.IfcNoImplementation, e.Span,
		fmt.Sprintf("%s does not implement any interface declaring %s (%s)",
			e.Receiver, e.Method, strings.Join(e.Declaring, ", ")))
	fixes := fix.For(diag.IfcNoImplementation, e.Span)
	for i, name := range e.Declaring {
		var opts []fix.Option
		if i == 0 {
			opts = append(opts, fix.Preferred())
		}
		fixes.Advice(fmt.Sprintf("implement %s for %s", name, e.Receiver), opts...)
	}
	return fixes.AttachTo(d)
}

type AmbiguousMethodError struct {
	Receiver   string
	Method     string
	Candidates []string
	Span       source.Span
}

func (e *AmbiguousMethodError) Error() string {
	return fmt.Sprintf("ambiguous method %s on %s: %s", e.Method, e.Receiver, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousMethodError) Is(target error) bool { return target == ErrAmbiguousMethod }

func (e *AmbiguousMethodError) Diagnostic() *diag.Diagnostic {
	d := diag.NewError(diag.IfcAmbiguousMethod, e.Span,
		fmt.Sprintf("%s.%s matches %d interfaces equally well", e.Receiver, e.Method, len(e.Candidates)))
	for _, c := range e.Candidates {
		d.WithNote(e.Span, "candidate "+c)
	}
	fixes := fix.For(diag.IfcAmbiguousMethod, e.Span)
	for _, c := range e.Candidates {
		fixes.Advice(fmt.Sprintf("call it as %s::%s(receiver, ...)", c, e.Method))
	}
	return fixes.AttachTo(d)
}
