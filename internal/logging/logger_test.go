package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blurry/internal/config"
	"blurry/internal/logging"
	"blurry/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("batch started", logging.String("layout", "flat"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "batch started") || !strings.Contains(string(data), "layout=flat") {
		t.Fatalf("unexpected log contents: %q", data)
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logging.NewComponentLogger(logger, "runner").Info("video done", logging.String("file", "a b.mp4"), logging.Int("frames", 10))
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, " INFO runner: video done") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, `file="a b.mp4"`) || !strings.Contains(out, "frames=10") {
		t.Fatalf("expected formatted fields, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", out)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithBatchID(context.Background(), "batch-1")
	ctx = services.WithEntryID(ctx, "entry-7")
	ctx = services.WithStage(ctx, "encode")
	logging.WithContext(ctx, logger).Info("frame written")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json line: %v (%q)", err, buf.String())
	}
	if record["level"] != "info" || record["msg"] != "frame written" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record[logging.FieldBatchID] != "batch-1" || record[logging.FieldEntryID] != "entry-7" || record[logging.FieldStage] != "encode" {
		t.Fatalf("context fields missing: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger, "copy skipped", "copy_exists", logging.String(logging.FieldImpact, "none"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "copy_exists" {
		t.Fatalf("event_type = %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
	if record[logging.FieldImpact] != "none" {
		t.Fatalf("explicit impact should win, got %v", record[logging.FieldImpact])
	}
}
