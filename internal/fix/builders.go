package fix

import (
	"fmt"

	"hostgen/internal/diag"
	"hostgen/internal/source"
)

// Option refines a fix after its builder filled in the defaults.
type Option func(*diag.Fix)

func WithApplicability(app diag.FixApplicability) Option {
	return func(f *diag.Fix) { f.Applicability = app }
}

func WithKind(kind diag.FixKind) Option {
	return func(f *diag.Fix) { f.Kind = kind }
}

// Preferred marks the fix an editor should offer first.
func Preferred() Option {
	return func(f *diag.Fix) { f.IsPreferred = true }
}

// WithID replaces the identifier assigned by Set.
func WithID(id string) Option {
	return func(f *diag.Fix) { f.ID = id }
}

// MakeFixID builds a deterministic identifier from the rule, the site and an index.
func MakeFixID(code diag.Code, at source.Span, idx int) string {
	return fmt.Sprintf("%s-%d-%d-%d", code.ID(), at.File, at.Start, idx)
}

// Set collects the fixes offered for one diagnostic. Fixes are numbered in
// the order they are added, so their ids stay stable across runs.
type Set struct {
	code  diag.Code
	at    source.Span
	fixes []diag.Fix
}

// For starts the fix set of the diagnostic code reported at at.
func For(code diag.Code, at source.Span) *Set {
	return &Set{code: code, at: at}
}

func (s *Set) add(f diag.Fix, opts []Option) *Set {
	f.ID = MakeFixID(s.code, s.at, len(s.fixes))
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	s.fixes = append(s.fixes, f)
	return s
}

// Advice is a suggestion without edits; the user applies it by hand.
func (s *Set) Advice(title string, opts ...Option) *Set {
	return s.add(diag.Fix{
		Title:         title,
		Kind:          diag.FixKindRefactor,
		Applicability: diag.FixApplicabilityManualReview,
	}, opts)
}

// Replace swaps the text under span for newText. A non-empty guard must
// match the current text for the edit to apply.
func (s *Set) Replace(title string, span source.Span, newText, guard string, opts ...Option) *Set {
	return s.add(diag.Fix{
		Title:         title,
		Kind:          diag.FixKindQuickFix,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         []diag.TextEdit{{Span: span, NewText: newText, OldText: guard}},
	}, opts)
}

// Insert puts text at the start of at.
func (s *Set) Insert(title string, at source.Span, text string, opts ...Option) *Set {
	at.End = at.Start
	return s.Replace(title, at, text, "", opts...)
}

// Wrap surrounds span with prefix and suffix, e.g. x -> x.clone().
func (s *Set) Wrap(title string, span source.Span, prefix, suffix string, opts ...Option) *Set {
	before := source.Span{File: span.File, Start: span.Start, End: span.Start}
	after := source.Span{File: span.File, Start: span.End, End: span.End}
	return s.add(diag.Fix{
		Title:         title,
		Kind:          diag.FixKindRewrite,
		Applicability: diag.FixApplicabilitySafeWithHeuristics,
		Edits:         []diag.TextEdit{{Span: before, NewText: prefix}, {Span: after, NewText: suffix}},
	}, opts)
}

// Fixes returns the collected fixes.
func (s *Set) Fixes() []diag.Fix {
	return s.fixes
}

// AttachTo appends the collected fixes to d and returns d.
func (s *Set) AttachTo(d *diag.Diagnostic) *diag.Diagnostic {
	for _, f := range s.fixes {
		d.WithFixSuggestion(f)
	}
	return d
}
