package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hostgen/internal/prof"
	"hostgen/internal/trace"
)

// panicRing is the ring buffer dumped when a command panics.
var panicRing *trace.RingTracer

// instrumentFlags are the persistent flags read by instrument.
type instrumentFlags struct {
	prof prof.Options

	traceOut  string
	level     trace.Level
	mode      trace.StorageMode
	ringSize  int
	heartbeat time.Duration
}

func readInstrumentFlags(pf *pflag.FlagSet) (instrumentFlags, error) {
	var f instrumentFlags
	var levelStr, modeStr string
	strs := map[string]*string{
		"cpu-profile":   &f.prof.CPU,
		"mem-profile":   &f.prof.Mem,
		"runtime-trace": &f.prof.Trace,
		"trace":         &f.traceOut,
		"trace-level":   &levelStr,
		"trace-mode":    &modeStr,
	}
	for name, dst := range strs {
		v, err := pf.GetString(name)
		if err != nil {
			return f, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	var err error
	if f.ringSize, err = pf.GetInt("trace-ring-size"); err != nil {
		return f, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	if f.heartbeat, err = pf.GetDuration("trace-heartbeat"); err != nil {
		return f, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	if f.level, err = trace.ParseLevel(levelStr); err != nil {
		return f, err
	}
	if f.mode, err = trace.ParseMode(modeStr); err != nil {
		return f, err
	}
	// an output without a level means the phase level, and a ring alone
	// would never reach that output
	if f.traceOut != "" {
		if f.level == trace.LevelOff {
			f.level = trace.LevelPhase
		}
		if f.mode == trace.ModeRing {
			f.mode = trace.ModeBoth
		}
	}
	return f, nil
}

// instrument starts profiling and tracing for one command and puts the
// tracer into the command context. The returned cleanup stops both.
func instrument(cmd *cobra.Command) (func(), error) {
	flags, err := readInstrumentFlags(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, err
	}
	profiling, err := prof.Start(flags.prof)
	if err != nil {
		return nil, err
	}
	stderr := cmd.ErrOrStderr()
	stopProf := func() {
		if err := profiling.Stop(); err != nil {
			fmt.Fprintf(stderr, "profiling: %v\n", err)
		}
	}

	tracer, err := trace.New(trace.Config{
		Level:      flags.level,
		Mode:       flags.mode,
		OutputPath: flags.traceOut,
		RingSize:   flags.ringSize,
		Session:    trace.NewSessionID(),
	})
	if err != nil {
		stopProf()
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	panicRing = trace.RingOf(tracer)
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	heartbeat := trace.StartHeartbeat(tracer, flags.heartbeat)

	return func() {
		heartbeat.Stop()
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(stderr, "trace: %v\n", err)
		}
		panicRing = nil
		stopProf()
	}, nil
}

// dumpTraceOnPanic prints the ring buffer and the spans still open, then
// re-panics.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if panicRing != nil {
		fmt.Fprintln(os.Stderr, "== trace (last events) ==")
		_ = panicRing.Dump(os.Stderr, trace.FormatText)
		if open := panicRing.Unfinished(); len(open) > 0 {
			fmt.Fprintln(os.Stderr, "== unfinished spans ==")
			for i := range open {
				_, _ = os.Stderr.Write(trace.FormatEvent(&open[i], trace.FormatText))
			}
		}
	}
	panic(r)
}
