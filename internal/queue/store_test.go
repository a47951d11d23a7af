package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"blurry/internal/filename"
	"blurry/internal/queue"
	"blurry/internal/testsupport"
)

func TestEnqueueAssignsIDAndKeepsOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := testsupport.Enqueue(t, store, cfg, "a.mp4", "sub001_FR_ses01_on_stwalk_front_blur.mp4", 8)
	second := testsupport.Enqueue(t, store, cfg, "b.mp4", "sub002_FR_ses01_on_stwalk_front_blur.mp4", 8)

	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct generated IDs, got %q and %q", first.ID, second.ID)
	}
	if first.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %q", first.Status)
	}
	if !filepath.IsAbs(first.SourcePath) {
		t.Fatalf("expected absolute source path, got %q", first.SourcePath)
	}

	entries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != first.ID || entries[1].ID != second.ID {
		t.Fatalf("unexpected order: %+v", entries)
	}
}

func TestEnqueueRejectsDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	existing := testsupport.Enqueue(t, store, cfg, "a.mp4", "sub001_FR_ses01_on_stwalk_front_blur.mp4", 8)

	tests := []struct {
		name      string
		source    string
		target    string
		wantField string
	}{
		{"same source", existing.SourcePath, "sub009_FR_ses01_on_stwalk_front_blur.mp4", "source"},
		{"same target", filepath.Join(testsupport.BaseDir(cfg), "other.mp4"), existing.TargetFilename, "target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Enqueue(ctx, tt.source, tt.target)
			if !errors.Is(err, queue.ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got %v", err)
			}
			var dup *queue.DuplicateError
			if !errors.As(err, &dup) || dup.Field != tt.wantField || dup.ExistingID != existing.ID {
				t.Fatalf("unexpected duplicate detail: %+v", dup)
			}
			count, err := store.Count(ctx)
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if count != 1 {
				t.Fatalf("queue size changed to %d", count)
			}
		})
	}
}

func TestEnqueueRejectsTargetDifferingOnlyByExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	existing := testsupport.Enqueue(t, store, cfg, "a.mov", "sub007_FR_ses01_on_stwalk_front_blur.mp4", 100)

	source := filepath.Join(testsupport.BaseDir(cfg), "incoming", "b.mov")
	testsupport.WriteFile(t, source, 200)
	_, err := store.Enqueue(ctx, source, "sub007_FR_ses01_on_stwalk_front_blur.mkv")
	var dup *queue.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "target" || dup.ExistingID != existing.ID {
		t.Fatalf("expected target collision with %s, got %v", existing.ID, err)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Fatalf("queue size changed to %d", count)
	}
}

func TestEnqueueRejectsForeignTargetNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, target := range []string{
		"holiday.mp4",
		"sub001_FR_ses01_on_stwalk_front.mp4",
		"sub001_FR_ses01_on_stwalk_front_unblur.mp4",
	} {
		t.Run(target, func(t *testing.T) {
			if _, err := store.Enqueue(ctx, "/tmp/"+target, target); !errors.Is(err, filename.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Fatalf("expected empty queue, got %d entries", count)
	}
}

func TestEnqueueRejectsTargetWithDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := store.Enqueue(context.Background(), "/tmp/a.mp4", "nested/name_blur.mp4"); err == nil {
		t.Fatal("expected error for target with directory")
	}
}

func TestRemoveAndClearKeepIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.Enqueue(t, store, cfg, "a.mp4", "sub001_FR_ses01_on_stwalk_front_blur.mp4", 8)
	b := testsupport.Enqueue(t, store, cfg, "b.mp4", "sub002_FR_ses01_on_stwalk_front_blur.mp4", 8)
	c := testsupport.Enqueue(t, store, cfg, "c.mp4", "sub003_FR_ses01_on_stwalk_front_blur.mp4", 8)

	if err := store.Remove(ctx, b.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, b.ID); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != a.ID || entries[1].ID != c.ID {
		t.Fatalf("unexpected entries after remove: %+v", entries)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
}

func TestClearDoneAndRunnable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	done := testsupport.Enqueue(t, store, cfg, "a.mp4", "sub001_FR_ses01_on_stwalk_front_blur.mp4", 8)
	failed := testsupport.Enqueue(t, store, cfg, "b.mp4", "sub002_FR_ses01_on_stwalk_front_blur.mp4", 8)
	pending := testsupport.Enqueue(t, store, cfg, "c.mp4", "sub003_FR_ses01_on_stwalk_front_blur.mp4", 8)

	if err := store.UpdateStatus(ctx, done.ID, queue.StatusDone, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.UpdateStatus(ctx, failed.ID, queue.StatusFailed, "decoder exploded"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	runnable, err := store.Runnable(ctx)
	if err != nil {
		t.Fatalf("Runnable: %v", err)
	}
	if len(runnable) != 2 || runnable[0].ID != failed.ID || runnable[1].ID != pending.ID {
		t.Fatalf("unexpected runnable entries: %+v", runnable)
	}
	if runnable[0].ErrorMessage != "decoder exploded" {
		t.Fatalf("error message not persisted: %q", runnable[0].ErrorMessage)
	}

	removed, err := store.ClearDone(ctx)
	if err != nil {
		t.Fatalf("ClearDone: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 done entry removed, got %d", removed)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusFailed] != 1 || stats[queue.StatusPending] != 1 || stats[queue.StatusDone] != 0 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestUpdateProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	entry := testsupport.Enqueue(t, store, cfg, "a.mp4", "sub001_FR_ses01_on_stwalk_front_blur.mp4", 8)
	if err := store.UpdateProgress(ctx, entry.ID, 5, 20); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	got, err := store.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FramesDone != 5 || got.FramesTotal != 20 || got.Percent() != 25 {
		t.Fatalf("unexpected progress: %+v", got)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFreezeBlocksMutations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	other := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	entry := testsupport.Enqueue(t, store, cfg, "a.mp4", "sub001_FR_ses01_on_stwalk_front_blur.mp4", 8)

	release, err := store.Freeze()
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if !store.Frozen() {
		t.Fatal("expected store to report frozen")
	}
	if _, err := other.Freeze(); !errors.Is(err, queue.ErrFrozen) {
		t.Fatalf("second batch should be refused, got %v", err)
	}

	for name, s := range map[string]*queue.Store{"same store": store, "other store": other} {
		if _, err := s.Enqueue(ctx, "/tmp/new.mp4", "sub002_FR_ses01_on_stwalk_front_blur.mp4"); !errors.Is(err, queue.ErrFrozen) {
			t.Fatalf("%s: expected ErrFrozen from Enqueue, got %v", name, err)
		}
		if err := s.Remove(ctx, entry.ID); !errors.Is(err, queue.ErrFrozen) {
			t.Fatalf("%s: expected ErrFrozen from Remove, got %v", name, err)
		}
		if _, err := s.Clear(ctx); !errors.Is(err, queue.ErrFrozen) {
			t.Fatalf("%s: expected ErrFrozen from Clear, got %v", name, err)
		}
	}

	if err := store.UpdateStatus(ctx, entry.ID, queue.StatusEncoding, ""); err != nil {
		t.Fatalf("status updates must be allowed while frozen: %v", err)
	}

	if err := release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("second release should be a no-op: %v", err)
	}
	if store.Frozen() {
		t.Fatal("expected store to be thawed")
	}
	if err := other.Remove(ctx, entry.ID); err != nil {
		t.Fatalf("Remove after thaw: %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range queue.Statuses() {
		got, ok := queue.ParseStatus(string(status))
		if !ok || got != status {
			t.Fatalf("ParseStatus(%q) = %q, %v", status, got, ok)
		}
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if queue.StatusPartial.IsTerminal() != true || queue.StatusCopied.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}
