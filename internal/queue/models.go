package queue

import "time"

// Status represents the lifecycle of a queue entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusCopied   Status = "copied"
	StatusEncoding Status = "encoding"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	// StatusPartial marks an entry whose redacted output was finalized after
	// a cancel arrived mid-video. It is never treated as done.
	StatusPartial Status = "partial"
)

var allStatuses = []Status{
	StatusPending,
	StatusCopied,
	StatusEncoding,
	StatusDone,
	StatusFailed,
	StatusPartial,
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	for _, status := range allStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// IsTerminal reports whether the status ends an entry's participation in a batch.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusPartial:
		return true
	default:
		return false
	}
}

// Entry is one video awaiting (or finished with) redaction.
type Entry struct {
	ID             string
	SourcePath     string
	TargetFilename string
	Status         Status
	ErrorMessage   string
	FramesDone     int64
	FramesTotal    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Percent returns frame progress in [0,100], or -1 when the total is unknown.
func (e Entry) Percent() float64 {
	if e.FramesTotal <= 0 {
		return -1
	}
	pct := float64(e.FramesDone) / float64(e.FramesTotal) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
