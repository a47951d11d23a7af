package queue

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Freeze takes the exclusive batch lock. Until the returned release function
// is called, Enqueue, Remove, Clear and ClearDone fail with ErrFrozen in this
// process and in any other process sharing the state directory.
func (s *Store) Freeze() (func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		return nil, ErrFrozen
	}
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !locked {
		return nil, ErrFrozen
	}
	s.batch = lock
	s.frozen.Store(true)

	released := false
	return func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if released {
			return nil
		}
		released = true
		s.frozen.Store(false)
		s.batch = nil
		if err := lock.Close(); err != nil {
			return fmt.Errorf("release batch lock: %w", err)
		}
		return nil
	}, nil
}

// Frozen reports whether this store currently holds the batch lock.
func (s *Store) Frozen() bool {
	return s.frozen.Load()
}

// guardMutation runs fn while holding a shared lock on the batch lock file.
// A running batch (here or in another process) makes it fail with ErrFrozen.
func (s *Store) guardMutation(fn func() error) error {
	if s.frozen.Load() {
		return ErrFrozen
	}
	lock := flock.New(s.lockPath)
	locked, err := lock.TryRLock()
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !locked {
		return ErrFrozen
	}
	defer func() { _ = lock.Close() }()
	return fn()
}
