// Package prof wraps runtime/pprof and runtime/trace for the CLI's
// profiling flags.
package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the output files; empty paths disable the profiler.
type Options struct {
	CPU   string
	Mem   string
	Trace string
}

// Session is a set of running profilers. Stop is safe to call more than once.
type Session struct {
	opts      Options
	cpuFile   *os.File
	traceFile *os.File
	stopped   bool
}

// Start enables the profilers named in opts. On failure nothing is left running.
func Start(opts Options) (*Session, error) {
	s := &Session{opts: opts}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		s.cpuFile = f
	}
	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err == nil {
			err = trace.Start(f)
			if err != nil {
				_ = f.Close()
			}
		}
		if err != nil {
			_ = s.Stop()
			return nil, fmt.Errorf("runtime trace: %w", err)
		}
		s.traceFile = f
	}
	return s, nil
}

// Stop ends the trace and the CPU profile, then writes the heap profile.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true
	var errs []error
	if s.traceFile != nil {
		trace.Stop()
		errs = append(errs, s.traceFile.Close())
	}
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		errs = append(errs, s.cpuFile.Close())
	}
	if s.opts.Mem != "" {
		errs = append(errs, writeMem(s.opts.Mem))
	}
	return errors.Join(errs...)
}

func writeMem(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heap profile: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
