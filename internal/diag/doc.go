// Package diag defines the diagnostic model shared by every analysis.
//
// A Diagnostic carries a Severity, a numeric Code with a stable rule ID
// (MOD5101, EFF3201, ...), a message, the primary span, optional notes,
// optional fix suggestions and, for refused transformations, a before/after
// Rendering.
//
// Analyses return typed errors; FromError and ReportErrors turn them into
// diagnostics on a Reporter. BagReporter collects into a capped Bag and
// DedupReporter drops repeats. The Bag counts what its cap rejects so the driver can report the
// suppression instead of losing it.
//
// Package diag performs no formatting; see internal/diagfmt.
package diag
