package diag

import "hostgen/internal/source"

// Key identifies a diagnostic for deduplication: two reports with the same
// rule, severity, primary span and message are the same finding.
type Key struct {
	Code     Code
	Severity Severity
	Primary  source.Span
	Message  string
}

// Key returns the deduplication key of d.
func (d *Diagnostic) Key() Key {
	return Key{Code: d.Code, Severity: d.Severity, Primary: d.Primary, Message: d.Message}
}

// DedupReporter forwards each distinct finding once. A unit analysed by
// several passes may reach the same site twice; only the first report
// survives, with its notes and fixes.
type DedupReporter struct {
	next Reporter
	seen map[Key]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[Key]struct{})}
}

func (r *DedupReporter) Report(d *Diagnostic) {
	if r == nil || d == nil {
		return
	}
	k := d.Key()
	if _, dup := r.seen[k]; dup {
		return
	}
	r.seen[k] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}

// Seen returns how many distinct findings were forwarded.
func (r *DedupReporter) Seen() int {
	if r == nil {
		return 0
	}
	return len(r.seen)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(*Diagnostic)

func (f ReporterFunc) Report(d *Diagnostic) {
	if d != nil {
		f(d)
	}
}
