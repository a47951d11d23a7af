package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry      Entry
		statusStr  string
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.SourcePath,
		&entry.TargetFilename,
		&statusStr,
		&errMessage,
		&entry.FramesDone,
		&entry.FramesTotal,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entry.Status = Status(statusStr)
	entry.ErrorMessage = errMessage.String
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	return &entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
