package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"blurry/internal/logging"
	"blurry/internal/workflow"
)

type progressDisplay interface {
	handle(workflow.Event)
	close()
}

// barDisplay draws one progress bar per video on a terminal.
type barDisplay struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

func newBarDisplay(out io.Writer) *barDisplay {
	return &barDisplay{out: out}
}

func (d *barDisplay) handle(ev workflow.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.Kind {
	case workflow.EventVideoStarted:
		d.finishLocked()
		d.bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(d.out),
			progressbar.OptionSetDescription(fmt.Sprintf("[%d/%d] %s", ev.Index, ev.Total, ev.Target)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(d.out) }),
		)
	case workflow.EventFrameTotal:
		if d.bar != nil && ev.Total > 0 {
			d.bar.ChangeMax64(ev.Total)
		}
	case workflow.EventFrameDone:
		if d.bar != nil {
			_ = d.bar.Set64(ev.Index)
		}
	}
}

func (d *barDisplay) finishLocked() {
	if d.bar == nil {
		return
	}
	_ = d.bar.Finish()
	d.bar = nil
}

func (d *barDisplay) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishLocked()
}

// plainDisplay prints a line per video and per 10% of frames, for pipes and
// log capture.
type plainDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	sampler *logging.ProgressSampler
}

func newPlainDisplay(out io.Writer) *plainDisplay {
	return &plainDisplay{out: out, sampler: logging.NewProgressSampler(10)}
}

func (d *plainDisplay) handle(ev workflow.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.Kind {
	case workflow.EventVideoStarted:
		fmt.Fprintf(d.out, "[%d/%d] %s\n", ev.Index, ev.Total, ev.Target)
	case workflow.EventFrameDone:
		percent := -1.0
		if ev.Total > 0 {
			percent = float64(ev.Index) / float64(ev.Total) * 100
		}
		if !d.sampler.ShouldLog(ev.EntryID, percent) || percent < 0 {
			return
		}
		fmt.Fprintf(d.out, "  %d/%d frames (%.0f%%)\n", ev.Index, ev.Total, percent)
	}
}

func (d *plainDisplay) close() {}
