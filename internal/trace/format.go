package trace

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Format is the encoding of written events.
type Format uint8

const (
	FormatAuto   Format = iota // pick by output path
	FormatText                 // one readable line per event
	FormatNDJSON               // one JSON object per line
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

// FormatEvent encodes ev as one line ending in '\n'.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return eventJSON(ev)
	}
	return eventText(ev)
}

type jsonEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	Session  string            `json:"session,omitempty"`
	SpanID   uint64            `json:"span_id"`
	ParentID uint64            `json:"parent_id,omitempty"`
	Unit     string            `json:"unit,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	DurUS    int64             `json:"dur_us,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func eventJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:     ev.Time.UTC().Format(time.RFC3339Nano),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		Session:  ev.Session,
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		Unit:     ev.Unit,
		Name:     ev.Name,
		Detail:   ev.Detail,
		DurUS:    ev.Dur.Microseconds(),
		Extra:    ev.Extra,
	})
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

var kindGlyph = map[Kind]string{
	KindSpanBegin: "→",
	KindSpanEnd:   "←",
	KindPoint:     "•",
	KindHeartbeat: "♡",
}

// eventText renders
//
//	[seq] →/←/• scope name [unit] (detail) +dur {k=v}
//
// Children are indented one step under their parent.
func eventText(ev *Event) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%6d] ", ev.Seq)
	if ev.ParentID != 0 {
		sb.WriteString("  ")
	}
	sb.WriteString(kindGlyph[ev.Kind])
	sb.WriteByte(' ')
	sb.WriteString(ev.Scope.String())
	sb.WriteByte(' ')
	sb.WriteString(ev.Name)
	if ev.Unit != "" {
		fmt.Fprintf(&sb, " [%s]", ev.Unit)
	}
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	if ev.Kind == KindSpanEnd && ev.Dur > 0 {
		fmt.Fprintf(&sb, " +%s", ev.Dur.Round(time.Microsecond))
	}
	// keys sorted so identical runs produce identical traces
	if len(ev.Extra) > 0 {
		sb.WriteString(" {")
		for i, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k + "=" + ev.Extra[k])
		}
		sb.WriteByte('}')
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
