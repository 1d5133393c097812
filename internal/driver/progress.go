package driver

import "time"

// Stage describes a high-level phase of a run.
type Stage string

const (
	StageCrawl   Stage = "crawl"
	StageAnalyze Stage = "analyze"
)

// Status captures progress state of a unit.
type Status string

const (
	// StatusQueued indicates the unit is waiting for its batch.
	StatusQueued Status = "queued"
	// StatusWorking indicates the unit is being analysed.
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	// StatusCached indicates the result came from a cache.
	StatusCached Status = "cached"
	// StatusError indicates the unit produced error diagnostics.
	StatusError Status = "error"
	// StatusSkipped indicates the session stopped before the unit was scheduled.
	StatusSkipped Status = "skipped"
)

// Event reports progress for a unit (or for the whole run when Unit is empty).
type Event struct {
	Unit    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Phase marks a session step starting (Done false) or finishing. Steps
// are metadata, crawl, versions, order, hash and analyze; Note carries
// the step's summary, e.g. "3 batches".
type Phase struct {
	Name    string
	Done    bool
	Elapsed time.Duration
	Note    string
}

// ProgressSink consumes progress events. Events of one batch arrive from
// several workers.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
