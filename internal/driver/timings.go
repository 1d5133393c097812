package driver

import (
	"encoding/json"
	"fmt"

	"hostgen/internal/diag"
	"hostgen/internal/observ"
	"hostgen/internal/source"
)

// timingDiagnostic carries the session's phase report as an info
// diagnostic whose single note is the report in JSON, so tools reading
// the diagnostic stream get timings without a second channel.
func timingDiagnostic(roots []string, report observ.Report, m Metrics) (*diag.Diagnostic, error) {
	data, err := json.Marshal(struct {
		Kind    string   `json:"kind"`
		Roots   []string `json:"roots,omitempty"`
		Metrics Metrics  `json:"metrics"`
		observ.Report
	}{Kind: "session", Roots: roots, Metrics: m, Report: report})
	if err != nil {
		return nil, fmt.Errorf("driver: encode timings: %w", err)
	}
	msg := fmt.Sprintf("timings: total %.2f ms over %d phases, %d units analysed, %d cached",
		report.TotalMS, len(report.Phases), m.UnitsAnalyzed, m.UnitsCached)
	return diag.New(diag.SevInfo, diag.DrvInfo, source.Span{}, msg).
		WithNote(source.Span{}, string(data)), nil
}

// forceAdd adds d past the bag's cap without counting it as dropped.
// Session summaries must survive a flood of unit diagnostics.
func forceAdd(bag *diag.Bag, d *diag.Diagnostic) {
	if bag.Len() < int(bag.Cap()) {
		bag.Add(d)
		return
	}
	overflow := diag.NewBag(1)
	overflow.Add(d)
	bag.Merge(overflow)
}
