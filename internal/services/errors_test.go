package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"blurry/internal/queue"
	"blurry/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrMediaOpen, "decode", "probe", "no video stream", base)
	if !errors.Is(err, services.ErrMediaOpen) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"decode", "probe", "no video stream"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureStatusMapping(t *testing.T) {
	cancelled := services.Wrap(services.ErrCancelled, "pipeline", "frame loop", "stopped", nil)
	if status := services.FailureStatus(cancelled); status != queue.StatusPartial {
		t.Fatalf("expected partial for cancel, got %s", status)
	}

	detection := services.Wrap(services.ErrDetection, "detect", "locate", "model crashed", errors.New("eof"))
	if status := services.FailureStatus(detection); status != queue.StatusFailed {
		t.Fatalf("expected failed for detection error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != queue.StatusDone {
		t.Fatalf("expected done for nil error, got %s", status)
	}
}

func TestExitErrorMatchesProcessExitMarker(t *testing.T) {
	err := fmt.Errorf("entry failed: %w", &services.ExitError{Command: "deface", ExitCode: 3, Stderr: "bad input\n"})
	if !errors.Is(err, services.ErrProcessExit) {
		t.Fatalf("expected ErrProcessExit match, got %v", err)
	}
	var exitErr *services.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %#v", exitErr)
	}
	if !strings.Contains(err.Error(), "bad input") {
		t.Fatalf("expected stderr tail in message, got %q", err.Error())
	}
}

func TestErrorHintDefaults(t *testing.T) {
	if hint := services.ErrorHint(errors.New("x")); hint != "check logs for details" {
		t.Fatalf("unexpected default hint %q", hint)
	}
	if hint := services.ErrorHint(services.Wrap(services.ErrDetection, "", "", "", nil)); !strings.Contains(hint, "detector") {
		t.Fatalf("unexpected detection hint %q", hint)
	}
}
