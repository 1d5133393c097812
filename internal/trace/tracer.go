package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives trace events. Implementations must be goroutine-safe.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop discards everything.
var Nop Tracer = nopTracer{}

// StorageMode determines where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // last N kept in memory
	ModeBoth
)

func (m StorageMode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseMode converts a flag value to a StorageMode.
func ParseMode(s string) (StorageMode, error) {
	for _, m := range []StorageMode{ModeStream, ModeRing, ModeBoth} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return ModeRing, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// Config describes the tracer built by New.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format    // FormatAuto picks by OutputPath suffix
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "" or "-" is stderr
	RingSize   int       // default 4096
	Session    string    // stamped on every event when set
}

const defaultRingSize = 4096

// New builds the tracer described by cfg. A disabled level yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}
	format := cfg.Format
	if format == FormatAuto {
		format = FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") || strings.HasSuffix(cfg.OutputPath, ".jsonl") {
			format = FormatNDJSON
		}
	}

	var t Tracer
	switch cfg.Mode {
	case ModeRing:
		t = NewRingTracer(cfg.RingSize, cfg.Level)
	case ModeStream, ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		t = NewStreamTracer(w, cfg.Level, format)
		if cfg.Mode == ModeBoth {
			t = NewMultiTracer(cfg.Level, t, NewRingTracer(cfg.RingSize, cfg.Level))
		}
	default:
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
	if cfg.Session != "" {
		t = WithSession(t, cfg.Session)
	}
	return t, nil
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return stderrWriter{}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}

// stderrWriter is not an io.Closer, so closing the tracer leaves stderr open.
type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) { return os.Stderr.Write(p) }

// RingOf returns the ring buffer behind t, looking through session and
// fan-out wrappers. It returns nil when t keeps no ring.
func RingOf(t Tracer) *RingTracer {
	switch v := t.(type) {
	case *RingTracer:
		return v
	case sessionTracer:
		return RingOf(v.Tracer)
	case *MultiTracer:
		for _, inner := range v.tracers {
			if r := RingOf(inner); r != nil {
				return r
			}
		}
	}
	return nil
}
