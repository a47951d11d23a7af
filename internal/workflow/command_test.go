package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"blurry/internal/config"
	"blurry/internal/queue"
	"blurry/internal/services"
	"blurry/internal/testsupport"
)

const progressScript = `in="$1"; shift
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output) out="$2"; shift ;;
  esac
  shift
done
echo "loading model"
echo '{"frame":1,"total":2}'
echo '{"frame":2,"total":2}'
cp "$in" "$out"
`

func TestCommandProcessorReportsProgress(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteScript(t, dir, "redact", progressScript)
	input := filepath.Join(dir, "in.mp4")
	testsupport.WriteFile(t, input, 256)
	output := filepath.Join(dir, "out.mp4")

	proc := &CommandProcessor{
		Command:   script,
		Args:      config.Default().Execution.Args,
		Threshold: 0.5,
	}
	progress := &recordedProgress{}
	if err := proc.Process(context.Background(), Job{SourcePath: input, OutputPath: output, Progress: progress}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !slices.Equal(progress.totals, []int64{2}) || !slices.Equal(progress.done, []int64{1, 2}) {
		t.Fatalf("progress totals=%v done=%v", progress.totals, progress.done)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestCommandProcessorWrapsExitCode(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteScript(t, dir, "redact", "echo 'model exploded' >&2\nexit 3\n")

	proc := &CommandProcessor{Command: script, Threshold: 0.5}
	err := proc.Process(context.Background(), Job{SourcePath: "in", OutputPath: "out"})
	if !errors.Is(err, services.ErrProcessExit) {
		t.Fatalf("expected process exit error, got %v", err)
	}
	var exitErr *services.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError in chain, got %T", err)
	}
	if exitErr.ExitCode != 3 || !strings.Contains(exitErr.Stderr, "model exploded") {
		t.Fatalf("exit error %+v", exitErr)
	}
	if services.FailureStatus(err) != queue.StatusFailed {
		t.Fatalf("status = %s", services.FailureStatus(err))
	}
}

func TestCommandProcessorInterruptOnCancel(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteScript(t, dir, "redact", `trap 'exit 0' INT
echo '{"frame":1,"total":100}'
sleep 5 >/dev/null 2>&1 &
wait
`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc := &CommandProcessor{Command: script, Threshold: 0.5}
	progress := &cancelOnFrame{cancel: cancel}
	err := proc.Process(ctx, Job{SourcePath: "in", OutputPath: "out", Progress: progress})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancelled error, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusPartial {
		t.Fatalf("status = %s", services.FailureStatus(err))
	}
}

type cancelOnFrame struct {
	cancel context.CancelFunc
}

func (c *cancelOnFrame) FrameTotal(int64) {}

func (c *cancelOnFrame) FrameDone(int64, int64) { c.cancel() }

func TestCommandProcessorExpandsPlaceholders(t *testing.T) {
	proc := &CommandProcessor{
		Args:      []string{"--in={input}", "{output}", "-t", "{threshold}", "--model", "{model}"},
		Threshold: 0.35,
		ModelPath: "/models/face.onnx",
	}
	got := proc.expandArgs(Job{SourcePath: "/src/a.mp4", OutputPath: "/out/a_blur.mp4"})
	want := []string{"--in=/src/a.mp4", "/out/a_blur.mp4", "-t", "0.35", "--model", "/models/face.onnx"}
	if !slices.Equal(got, want) {
		t.Fatalf("expandArgs = %v, want %v", got, want)
	}
}

func TestNewCommandProcessorRequiresCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Execution.Command = ""
	if _, err := NewCommandProcessor(cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunnerWithCommandProcessor(t *testing.T) {
	base := t.TempDir()
	script := testsupport.WriteScript(t, filepath.Join(base, "bin"), "redact-video", progressScript)
	cfg := testsupport.NewConfig(t, testsupport.WithFlatLayout(), testsupport.WithSubprocess(script))
	store := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.Enqueue(t, store, cfg, "walk.mp4", targetName(9), 512)

	proc, err := NewCommandProcessor(cfg, nil)
	if err != nil {
		t.Fatalf("NewCommandProcessor: %v", err)
	}
	events := &eventLog{}
	runner := newTestRunner(t, cfg, store, proc, Options{Progress: events.record})
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Done != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	got := mustGet(t, store, entry.ID)
	if got.Status != queue.StatusDone || got.FramesDone != 2 || got.FramesTotal != 2 {
		t.Fatalf("entry %+v", got)
	}
	if _, err := os.Stat(result.Entries[0].Paths.RedactedPath); err != nil {
		t.Fatalf("redacted output missing: %v", err)
	}
	if events.count(EventFrameDone) != 2 {
		t.Fatalf("frame events %+v", events.events)
	}
}
