package diag

import "hostgen/internal/source"

// Reporter is the minimal contract through which analyses emit diagnostics.
// Implementations: BagReporter, DedupReporter, ReporterFunc.
type Reporter interface {
	Report(d *Diagnostic)
}

// ReportBuilder accumulates diagnostic details before emitting to Reporter.
type ReportBuilder struct {
	reporter Reporter
	diag     *Diagnostic
	emitted  bool
}

// NewReportBuilder constructs a builder bound to Reporter.
func NewReportBuilder(r Reporter, sev Severity, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{
		reporter: r,
		diag:     New(sev, code, primary, msg),
	}
}

// ReportError is a shortcut for SevError diagnostics.
func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, primary, msg)
}

// WithNote appends a note to diagnostic.
func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag.WithNote(sp, msg)
	return b
}

// WithFixSuggestion appends a fix.
func (b *ReportBuilder) WithFixSuggestion(fix Fix) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag.WithFixSuggestion(fix)
	return b
}

// WithRendering attaches the before/after rendering of the refused transformation.
func (b *ReportBuilder) WithRendering(before, after string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag.WithRendering(before, after)
	return b
}

// Emit sends diagnostic to underlying reporter exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.diag)
	}
	b.emitted = true
}

// Diagnostic returns accumulated diagnostic without emitting.
func (b *ReportBuilder) Diagnostic() *Diagnostic {
	if b == nil {
		return nil
	}
	return b.diag
}

// BagReporter writes into a *Bag. Not safe for concurrent use.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d *Diagnostic) {
	if r.Bag == nil || d == nil {
		return
	}
	r.Bag.Add(d)
}
