package textutil

import (
	"bytes"
	"strings"
	"sync"
)

// TailBuffer is an io.Writer that keeps only the last Limit bytes written.
// A zero Limit keeps everything. Safe for concurrent use.
type TailBuffer struct {
	Limit int

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewTailBuffer returns a buffer keeping at most limit bytes.
func NewTailBuffer(limit int) *TailBuffer {
	return &TailBuffer{Limit: limit}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.Limit; t.Limit > 0 && over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// Summary returns the last n non-empty lines joined with "; ".
func (t *TailBuffer) Summary(n int) string {
	return LastLines(t.String(), n)
}

// LastLines returns the last n non-empty trimmed lines of s joined with "; ".
func LastLines(s string, n int) string {
	if n <= 0 {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
