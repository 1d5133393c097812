package fix

import (
	"errors"
	"fmt"
	"sort"

	"hostgen/internal/diag"
)

var (
	// ErrOverlap is returned when two edits touch the same bytes.
	ErrOverlap = errors.New("fix: overlapping edits")
	// ErrGuard is returned when an edit's OldText does not match the content.
	ErrGuard = errors.New("fix: guard mismatch")
)

// ApplyEdits applies edits to content relative to base, the offset at which content
// starts inside its file. Edits are applied back to front so offsets stay valid.
func ApplyEdits(content []byte, base uint32, edits []diag.TextEdit) ([]byte, error) {
	if len(edits) == 0 {
		return content, nil
	}
	sorted := make([]diag.TextEdit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start != sorted[j].Span.Start {
			return sorted[i].Span.Start < sorted[j].Span.Start
		}
		return sorted[i].Span.End < sorted[j].Span.End
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1].Span, sorted[i].Span
		if cur.Start < prev.End {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, prev, cur)
		}
	}

	out := make([]byte, len(content))
	copy(out, content)
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		if e.Span.Start < base || e.Span.End < e.Span.Start {
			return nil, fmt.Errorf("fix: edit %s outside content", e.Span)
		}
		start, end := int(e.Span.Start-base), int(e.Span.End-base)
		if end > len(out) {
			return nil, fmt.Errorf("fix: edit %s outside content", e.Span)
		}
		if e.OldText != "" && string(out[start:end]) != e.OldText {
			return nil, fmt.Errorf("%w at %s: want %q, have %q", ErrGuard, e.Span, e.OldText, out[start:end])
		}
		next := make([]byte, 0, len(out)-(end-start)+len(e.NewText))
		next = append(next, out[:start]...)
		next = append(next, e.NewText...)
		next = append(next, out[end:]...)
		out = next
	}
	return out, nil
}

// Render applies the fix to a snippet and returns the rewritten text.
func Render(snippet string, base uint32, f diag.Fix) (string, error) {
	out, err := ApplyEdits([]byte(snippet), base, f.Edits)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
