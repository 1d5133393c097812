package diag

import (
	"hostgen/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// TextEdit replaces the text under Span with NewText. OldText, when set, guards the edit.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// FixKind classifies a fix suggestion.
type FixKind uint8

const (
	FixKindQuickFix FixKind = iota
	FixKindRefactor
	FixKindRewrite
)

func (k FixKind) String() string {
	switch k {
	case FixKindQuickFix:
		return "quickfix"
	case FixKindRefactor:
		return "refactor"
	case FixKindRewrite:
		return "rewrite"
	}
	return "unknown"
}

// FixApplicability describes how confident the producer is that a fix is correct.
type FixApplicability uint8

const (
	FixApplicabilityAlwaysSafe FixApplicability = iota
	FixApplicabilitySafeWithHeuristics
	FixApplicabilityManualReview
)

func (a FixApplicability) String() string {
	switch a {
	case FixApplicabilityAlwaysSafe:
		return "always-safe"
	case FixApplicabilitySafeWithHeuristics:
		return "heuristic"
	case FixApplicabilityManualReview:
		return "manual-review"
	}
	return "unknown"
}

// Fix is a suggestion. A fix without edits is advice the user applies by hand.
type Fix struct {
	ID            string
	Title         string
	Kind          FixKind
	Applicability FixApplicability
	IsPreferred   bool
	Edits         []TextEdit
}

// Rendering shows the transformation the engine refused to perform.
type Rendering struct {
	Before string
	After  string
}

type Diagnostic struct {
	Severity  Severity
	Code      Code
	Message   string
	Primary   source.Span
	Notes     []Note
	Fixes     []Fix
	Rendering *Rendering
}

// Rule returns the stable rule identifier of the diagnostic.
func (d *Diagnostic) Rule() string {
	return d.Code.ID()
}

// Rationale returns why the violated rule matters.
func (d *Diagnostic) Rationale() string {
	return d.Code.Rationale()
}
