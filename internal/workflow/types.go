package workflow

import (
	"context"

	"blurry/internal/layout"
	"blurry/internal/queue"
)

// State is the lifecycle position of a Runner.
type State int32

const (
	StateIdle State = iota
	StatePreparing
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of a batch.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
)

// EventKind identifies a progress event.
type EventKind int

const (
	// EventVideoStarted carries the 1-based video index and the batch size.
	EventVideoStarted EventKind = iota
	// EventFrameTotal carries the expected frame count (0 when unknown).
	EventFrameTotal
	// EventFrameDone carries the number of frames written and the expected total.
	EventFrameDone
)

// Event is a progress notification. Index and Total are videos for
// EventVideoStarted and frames otherwise.
type Event struct {
	Kind    EventKind
	EntryID string
	Target  string
	Index   int64
	Total   int64
}

// ProgressFunc receives progress events on the runner goroutine. It must not
// block for long.
type ProgressFunc func(Event)

// EntryResult records what happened to one queue entry during a batch.
type EntryResult struct {
	ID             string
	SourcePath     string
	TargetFilename string
	Status         queue.Status
	Paths          layout.Paths
	Copied         bool
	FramesDone     int64
	Err            error
}

// Result summarises a finished batch.
type Result struct {
	BatchID string
	Outcome Outcome
	Done    int
	Failed  int
	Partial int
	// Skipped counts entries never started because the batch was cancelled.
	Skipped int
	Entries []EntryResult
}

// Processor produces the redacted output for one video.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// Job is the unit of work handed to a Processor.
type Job struct {
	EntryID    string
	SourcePath string
	OutputPath string
	Progress   FrameProgress
}

// FrameProgress receives per-frame progress from a Processor.
type FrameProgress interface {
	FrameTotal(total int64)
	FrameDone(done, total int64)
}

func (j Job) frameTotal(total int64) {
	if j.Progress != nil {
		j.Progress.FrameTotal(total)
	}
}

func (j Job) frameDone(done, total int64) {
	if j.Progress != nil {
		j.Progress.FrameDone(done, total)
	}
}
