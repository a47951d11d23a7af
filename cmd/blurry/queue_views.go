package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"blurry/internal/queue"
)

var statusCaser = cases.Title(language.English)

func statusLabel(status queue.Status) string {
	return statusCaser.String(string(status))
}

func buildQueueListRows(entries []*queue.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			entry.ID,
			entry.TargetFilename,
			statusLabel(entry.Status),
			formatFrames(entry),
			formatAdded(entry.CreatedAt),
		})
	}
	return rows
}

func formatFrames(entry *queue.Entry) string {
	switch {
	case entry.FramesTotal > 0:
		return fmt.Sprintf("%s/%s (%.0f%%)", humanize.Comma(entry.FramesDone), humanize.Comma(entry.FramesTotal), entry.Percent())
	case entry.FramesDone > 0:
		return humanize.Comma(entry.FramesDone)
	default:
		return "-"
	}
}

func formatAdded(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func buildQueueStatusRows(stats map[queue.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.Statuses() {
		count := stats[status]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{statusLabel(status), strconv.Itoa(count)})
	}
	return rows
}

type queueEntryJSON struct {
	ID             string `json:"id"`
	SourcePath     string `json:"source_path"`
	TargetFilename string `json:"target_filename"`
	Status         string `json:"status"`
	ErrorMessage   string `json:"error_message,omitempty"`
	FramesDone     int64  `json:"frames_done"`
	FramesTotal    int64  `json:"frames_total"`
	CreatedAt      string `json:"created_at"`
}

// writeEntriesJSON prints entries as an indented JSON array; an empty queue
// prints [] rather than null.
func writeEntriesJSON(w io.Writer, entries []*queue.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(queueEntriesJSON(entries))
}

func queueEntriesJSON(entries []*queue.Entry) []queueEntryJSON {
	out := make([]queueEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, queueEntryJSON{
			ID:             e.ID,
			SourcePath:     e.SourcePath,
			TargetFilename: e.TargetFilename,
			Status:         string(e.Status),
			ErrorMessage:   e.ErrorMessage,
			FramesDone:     e.FramesDone,
			FramesTotal:    e.FramesTotal,
			CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
