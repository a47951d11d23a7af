package services

import (
	"errors"
	"fmt"
	"strings"

	"blurry/internal/queue"
)

var (
	ErrInvalidExportLayout = errors.New("invalid export layout")
	ErrMediaOpen           = errors.New("media open error")
	ErrMediaWrite          = errors.New("media write error")
	ErrDetection           = errors.New("detection error")
	ErrProcessExit         = errors.New("redaction process exited")
	ErrCancelled           = errors.New("cancelled by user")
	ErrConfiguration       = errors.New("configuration error")
	ErrValidation          = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrMediaWrite
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitError records the exit code of an external redaction process.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Is lets errors.Is(err, ErrProcessExit) match without an explicit Wrap.
func (e *ExitError) Is(target error) bool {
	return target == ErrProcessExit
}

// FailureStatus maps a per-entry error to the queue status the runner
// should persist after the entry stops.
func FailureStatus(err error) queue.Status {
	switch {
	case err == nil:
		return queue.StatusDone
	case errors.Is(err, ErrCancelled):
		return queue.StatusPartial
	default:
		return queue.StatusFailed
	}
}

// ErrorHint returns a short operator-facing next step for a classified error.
func ErrorHint(err error) string {
	switch {
	case errors.Is(err, ErrMediaOpen):
		return "check that the source is a readable video with a video stream"
	case errors.Is(err, ErrMediaWrite):
		return "check free space and permissions under the export directory"
	case errors.Is(err, ErrDetection):
		return "check the detector command and model path"
	case errors.Is(err, ErrProcessExit):
		return "inspect the redaction command output"
	case errors.Is(err, ErrInvalidExportLayout):
		return "create the required export folders or switch export.layout"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
