package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"blurry/internal/filename"
)

const entryColumns = "id, source_path, target_filename, status, error_message, frames_done, frames_total, created_at, updated_at"

// Enqueue appends a new pending entry. The target must be a redacted name as
// produced by filename.Build. Targets are unique by stem, so two names that
// differ only by extension collide. Duplicate sources or targets fail with a
// *DuplicateError (matching ErrDuplicate) and leave the queue unchanged.
func (s *Store) Enqueue(ctx context.Context, sourcePath, targetFilename string) (*Entry, error) {
	ctx = ensureContext(ctx)
	source, err := filepath.Abs(strings.TrimSpace(sourcePath))
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	target := strings.TrimSpace(targetFilename)
	if target == "" || target != filepath.Base(target) {
		return nil, fmt.Errorf("target filename %q must be a bare file name", targetFilename)
	}
	if err := checkTarget(target); err != nil {
		return nil, err
	}
	stem := targetStem(target)

	var entry *Entry
	err = s.guardMutation(func() error {
		if existing, err := s.findBy(ctx, "source_path", source); err != nil {
			return err
		} else if existing != nil {
			return &DuplicateError{Field: "source", Value: source, ExistingID: existing.ID}
		}
		if existing, err := s.findBy(ctx, "target_stem", stem); err != nil {
			return err
		} else if existing != nil {
			return &DuplicateError{Field: "target", Value: existing.TargetFilename, ExistingID: existing.ID}
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		id := uuid.NewString()
		_, err := s.execWithRetry(ctx,
			`INSERT INTO queue_entries (id, source_path, target_filename, target_stem, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, source, target, stem, StatusPending, now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &DuplicateError{Field: "entry", Value: target}
			}
			return fmt.Errorf("insert entry: %w", err)
		}
		entry, err = s.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func checkTarget(target string) error {
	if _, err := filename.Parse(target); err != nil {
		return fmt.Errorf("target filename: %w", err)
	}
	if _, err := filename.Unredacted(target); err != nil {
		return fmt.Errorf("target filename: %w", err)
	}
	return nil
}

// targetStem is the name without its extension. Output paths are derived from
// the stem, so it is the identity that must not repeat.
func targetStem(target string) string {
	return strings.TrimSuffix(target, filepath.Ext(target))
}

// Get returns an entry by ID or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM queue_entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

func (s *Store) findBy(ctx context.Context, column, value string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM queue_entries WHERE "+column+" = ?", value)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup by %s: %w", column, err)
	}
	return entry, nil
}

// List returns entries in creation order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Entry, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + entryColumns + " FROM queue_entries"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += " ORDER BY seq"
	return s.queryEntries(ctx, query, args...)
}

// Runnable returns every entry that is not done, in creation order.
func (s *Store) Runnable(ctx context.Context) ([]*Entry, error) {
	ctx = ensureContext(ctx)
	return s.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM queue_entries WHERE status != ? ORDER BY seq",
		StatusDone,
	)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of entries in the queue.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM queue_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM queue_entries GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Remove deletes one entry by ID. Remaining entries keep their IDs.
func (s *Store) Remove(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	return s.guardMutation(func() error {
		res, err := s.execWithRetry(ctx, "DELETE FROM queue_entries WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("remove entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return s.deleteWhere(ctx, "")
}

// ClearDone removes entries with status done.
func (s *Store) ClearDone(ctx context.Context) (int64, error) {
	return s.deleteWhere(ctx, "WHERE status = ?", StatusDone)
}

func (s *Store) deleteWhere(ctx context.Context, where string, args ...any) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := s.guardMutation(func() error {
		res, err := s.execWithRetry(ctx, strings.TrimSpace("DELETE FROM queue_entries "+where), args...)
		if err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}

// UpdateStatus records a status transition and its error message, if any.
// Allowed while frozen: the running batch owns these writes.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		"UPDATE queue_entries SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		status, nullableString(message), now, id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// UpdateProgress records frame progress for an entry.
func (s *Store) UpdateProgress(ctx context.Context, id string, done, total int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(ctx,
		"UPDATE queue_entries SET frames_done = ?, frames_total = ?, updated_at = ? WHERE id = ?",
		done, total, now, id,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}
