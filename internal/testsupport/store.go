package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"blurry/internal/config"
	"blurry/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue writes a source file of size bytes under the config base directory
// and adds it to the queue with the given target filename.
func Enqueue(t testing.TB, store *queue.Store, cfg *config.Config, sourceName, target string, size int64) *queue.Entry {
	t.Helper()

	source := filepath.Join(BaseDir(cfg), "incoming", sourceName)
	WriteFile(t, source, size)
	entry, err := store.Enqueue(context.Background(), source, target)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return entry
}
