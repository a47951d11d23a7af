package workflow

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"blurry/internal/detect"
	"blurry/internal/layout"
	"blurry/internal/queue"
	"blurry/internal/services"
	"blurry/internal/testsupport"
)

func TestRunnerRedactsTenFrameVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStructuredRoot())
	store := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.Enqueue(t, store, cfg, "walk.mov", targetName(7), 4096)

	codec := newStubCodec(64, 64, 10)
	locator := detect.NewStaticLocator(detect.Box{X1: 10, Y1: 10, X2: 30, Y2: 30, Confidence: 0.9})
	events := &eventLog{}
	runner := newTestRunner(t, cfg, store, newPipeline(codec, locator), Options{Progress: events.record})

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != OutcomeCompleted || result.Done != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if runner.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", runner.State())
	}

	enc := codec.lastEncoder(t)
	if len(enc.frames) != 10 {
		t.Fatalf("encoded %d frames, want 10", len(enc.frames))
	}
	if enc.cfg.Width != 64 || enc.cfg.Height != 64 {
		t.Fatalf("encoder geometry %dx%d", enc.cfg.Width, enc.cfg.Height)
	}
	if enc.cfg.BitRate != 1_000_000 {
		t.Fatalf("encoder bit rate = %d, want half of source", enc.cfg.BitRate)
	}
	if enc.finished != 1 {
		t.Fatalf("Finish called %d times", enc.finished)
	}
	if locator.Calls() != 10 {
		t.Fatalf("locator called %d times", locator.Calls())
	}

	first := enc.frames[0]
	changed := 0
	for i := range first.Pix {
		if first.Pix[i] != byte(i%251) {
			changed++
		}
	}
	if changed == 0 {
		t.Fatal("expected the detected region to be blurred")
	}
	corner := first.Offset(63, 63)
	if first.Pix[corner] != byte(corner%251) {
		t.Fatal("pixel outside the expanded box changed")
	}

	er := result.Entries[0]
	wantRedacted := filepath.Join(cfg.Paths.ExportDir, "derivatives", "sub007", "ses01", "on", targetName(7))
	if er.Paths.RedactedPath != wantRedacted {
		t.Fatalf("redacted path = %s, want %s", er.Paths.RedactedPath, wantRedacted)
	}
	if filepath.Ext(er.Paths.UntouchedPath) != ".mov" {
		t.Fatalf("untouched copy should keep the source extension: %s", er.Paths.UntouchedPath)
	}
	src, _ := os.ReadFile(entry.SourcePath)
	dst, err := os.ReadFile(er.Paths.UntouchedPath)
	if err != nil || !bytes.Equal(src, dst) {
		t.Fatalf("untouched copy differs from source (err=%v)", err)
	}
	if _, err := os.Stat(wantRedacted); err != nil {
		t.Fatalf("redacted output missing: %v", err)
	}

	stored := mustGet(t, store, entry.ID)
	if stored.Status != queue.StatusDone || stored.FramesDone != 10 || stored.FramesTotal != 10 {
		t.Fatalf("stored entry %+v", stored)
	}
	if events.count(EventVideoStarted) != 1 || events.count(EventFrameTotal) != 1 || events.count(EventFrameDone) != 10 {
		t.Fatalf("unexpected events %+v", events.events)
	}
	if store.Frozen() {
		t.Fatal("queue still frozen after batch")
	}
}

func TestRunnerCancelMidVideoFinalizesPartialOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStructuredRoot())
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.Enqueue(t, store, cfg, "a.mp4", targetName(1), 128)
	second := testsupport.Enqueue(t, store, cfg, "b.mp4", targetName(2), 128)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := &eventLog{hook: func(ev Event) {
		if ev.Kind == EventFrameDone && ev.Index == 3 {
			cancel()
		}
	}}
	codec := newStubCodec(32, 32, 10)
	runner := newTestRunner(t, cfg, store, newPipeline(codec, detect.NewStaticLocator()), Options{Progress: events.record})

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != OutcomeCancelled || runner.State() != StateCancelled {
		t.Fatalf("outcome %s state %v", result.Outcome, runner.State())
	}
	if result.Partial != 1 || result.Skipped != 1 || result.Done != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	enc := codec.lastEncoder(t)
	if len(enc.frames) != 3 {
		t.Fatalf("encoded %d frames, want 3", len(enc.frames))
	}
	if enc.finished != 1 {
		t.Fatalf("Finish called %d times, want 1", enc.finished)
	}
	if !errors.Is(result.Entries[0].Err, services.ErrCancelled) {
		t.Fatalf("expected cancelled error, got %v", result.Entries[0].Err)
	}
	if got := mustGet(t, store, first.ID); got.Status != queue.StatusPartial || got.FramesDone != 3 {
		t.Fatalf("first entry %+v", got)
	}
	if got := mustGet(t, store, second.ID); got.Status != queue.StatusPending {
		t.Fatalf("second entry should stay pending, got %s", got.Status)
	}
	if codec.openedCount() != 1 {
		t.Fatalf("second video should not be opened, opened %d", codec.openedCount())
	}
}

func TestRunnerUntouchedCopyIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStructuredRoot())
	store := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.Enqueue(t, store, cfg, "walk.mp4", targetName(3), 8192)

	locator := &detect.StaticLocator{Err: errors.New("model unavailable")}
	runner := newTestRunner(t, cfg, store, newPipeline(newStubCodec(16, 16, 2), locator), Options{})

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if result.Failed != 1 || !result.Entries[0].Copied {
		t.Fatalf("first run %+v", result)
	}
	if !errors.Is(result.Entries[0].Err, services.ErrDetection) {
		t.Fatalf("expected detection error, got %v", result.Entries[0].Err)
	}
	untouched := result.Entries[0].Paths.UntouchedPath
	past := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	if err := os.Chtimes(untouched, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	before, _ := os.ReadFile(untouched)

	result, err = runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Copied {
		t.Fatalf("second run should reuse the untouched copy: %+v", result)
	}
	info, err := os.Stat(untouched)
	if err != nil {
		t.Fatalf("stat untouched: %v", err)
	}
	if !info.ModTime().Equal(past) {
		t.Fatalf("untouched mtime changed to %v", info.ModTime())
	}
	after, _ := os.ReadFile(untouched)
	if !bytes.Equal(before, after) {
		t.Fatal("untouched bytes changed")
	}
	if got := mustGet(t, store, entry.ID); got.Status != queue.StatusFailed || got.ErrorMessage == "" {
		t.Fatalf("entry %+v", got)
	}
}

func TestRunnerInvalidStructuredRootCreatesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.Enqueue(t, store, cfg, "walk.mp4", targetName(4), 64)

	codec := newStubCodec(16, 16, 1)
	runner := newTestRunner(t, cfg, store, newPipeline(codec, detect.NewStaticLocator()), Options{})

	_, err := runner.Run(context.Background())
	if !errors.Is(err, layout.ErrInvalidExportLayout) {
		t.Fatalf("expected invalid layout error, got %v", err)
	}
	items, err := os.ReadDir(cfg.Paths.ExportDir)
	if err != nil {
		t.Fatalf("read export dir: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("export dir should stay empty, found %d entries", len(items))
	}
	if codec.openedCount() != 0 {
		t.Fatal("no video should be processed")
	}
	if got := mustGet(t, store, entry.ID); got.Status != queue.StatusPending {
		t.Fatalf("entry status %s", got.Status)
	}
	if runner.State() != StateIdle {
		t.Fatalf("state = %v, want idle", runner.State())
	}
	if _, err := store.Enqueue(context.Background(), filepath.Join(t.TempDir(), "x.mp4"), targetName(5)); err != nil {
		t.Fatalf("queue should be unfrozen after a failed prepare: %v", err)
	}
}

func TestRunnerIsolatesPerEntryFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFlatLayout())
	store := testsupport.MustOpenStore(t, cfg)
	a := testsupport.Enqueue(t, store, cfg, "a.mp4", targetName(1), 64)
	b := testsupport.Enqueue(t, store, cfg, "b.mp4", targetName(2), 64)
	c := testsupport.Enqueue(t, store, cfg, "c.mp4", targetName(3), 64)

	codec := newStubCodec(8, 8, 2)
	codec.failOpen[b.SourcePath] = true
	runner := newTestRunner(t, cfg, store, newPipeline(codec, detect.NewStaticLocator()), Options{})

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Done != 2 || result.Failed != 1 || result.Outcome != OutcomeCompleted {
		t.Fatalf("unexpected result %+v", result)
	}
	want := map[string]queue.Status{a.ID: queue.StatusDone, b.ID: queue.StatusFailed, c.ID: queue.StatusDone}
	for id, status := range want {
		if got := mustGet(t, store, id); got.Status != status {
			t.Fatalf("entry %s status %s, want %s", id, got.Status, status)
		}
	}
	if !errors.Is(result.Entries[1].Err, services.ErrMediaOpen) {
		t.Fatalf("expected media open error, got %v", result.Entries[1].Err)
	}
	for _, dir := range []string{cfg.Export.UnredactedFolder, cfg.Export.RedactedFolder} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.ExportDir, dir)); err != nil {
			t.Fatalf("flat folder %s not created: %v", dir, err)
		}
	}
}

func TestRunnerClearsDoneEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStructuredRoot())
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.Enqueue(t, store, cfg, "a.mp4", targetName(1), 64)

	runner := newTestRunner(t, cfg, store, newPipeline(newStubCodec(8, 8, 1), detect.NewStaticLocator()), Options{ClearDone: true})
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected done entries cleared, %d remain", count)
	}
}

func TestRunnerFailsWhenQueueAlreadyFrozen(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStructuredRoot())
	store := testsupport.MustOpenStore(t, cfg)
	other := testsupport.MustOpenStore(t, cfg)

	release, err := other.Freeze()
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	defer release()

	runner := newTestRunner(t, cfg, store, newPipeline(newStubCodec(8, 8, 1), detect.NewStaticLocator()), Options{})
	if _, err := runner.Run(context.Background()); !errors.Is(err, queue.ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:      "idle",
		StatePreparing: "preparing",
		StateRunning:   "running",
		StateCompleted: "completed",
		StateCancelled: "cancelled",
		State(42):      "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
