package diag

import (
	"fmt"
	"strings"
)

// Severity orders diagnostics; larger is worse.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// ParseSeverity accepts the names printed by String in any case, plus "warn".
func ParseSeverity(s string) (Severity, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARN" {
		return SevWarning, nil
	}
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SevInfo, fmt.Errorf("invalid severity: %q (expected: info|warning|error)", s)
}

// AtLeast returns a Bag.Filter predicate keeping diagnostics of min or worse.
func AtLeast(min Severity) func(*Diagnostic) bool {
	return func(d *Diagnostic) bool { return d.Severity >= min }
}
