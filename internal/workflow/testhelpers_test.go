package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"blurry/internal/config"
	"blurry/internal/detect"
	"blurry/internal/filename"
	"blurry/internal/layout"
	"blurry/internal/media"
	"blurry/internal/queue"
	"blurry/internal/redact"
	"blurry/internal/services"
)

// stubCodec produces synthetic frames and records what the encoder receives.
type stubCodec struct {
	width, height int
	frames        int64
	bitRate       int64
	failOpen      map[string]bool

	mu       sync.Mutex
	opened   []string
	encoders []*stubEncoder
}

func newStubCodec(width, height int, frames int64) *stubCodec {
	return &stubCodec{width: width, height: height, frames: frames, bitRate: 2_000_000, failOpen: map[string]bool{}}
}

func (c *stubCodec) OpenDecoder(_ context.Context, path string) (media.Decoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = append(c.opened, path)
	if c.failOpen[path] {
		return nil, services.Wrap(services.ErrMediaOpen, "decode", "open", path, errors.New("no video stream"))
	}
	return &stubDecoder{
		meta: media.Metadata{
			Width:      c.width,
			Height:     c.height,
			FPS:        media.Rational{Num: 30, Den: 1},
			BitRate:    c.bitRate,
			FrameCount: c.frames,
		},
		frame: media.NewFrame(c.width, c.height),
		total: c.frames,
	}, nil
}

func (c *stubCodec) OpenEncoder(_ context.Context, path string, cfg media.EncoderConfig) (media.Encoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	enc := &stubEncoder{path: path, cfg: cfg}
	c.encoders = append(c.encoders, enc)
	return enc, nil
}

func (c *stubCodec) openedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.opened)
}

func (c *stubCodec) lastEncoder(t *testing.T) *stubEncoder {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.encoders) == 0 {
		t.Fatal("no encoder was opened")
	}
	return c.encoders[len(c.encoders)-1]
}

type stubDecoder struct {
	meta   media.Metadata
	frame  *media.Frame
	next   int64
	total  int64
	closed int
}

func (d *stubDecoder) Metadata() media.Metadata { return d.meta }

func (d *stubDecoder) Next() (*media.Frame, error) {
	if d.next >= d.total {
		return nil, io.EOF
	}
	for i := range d.frame.Pix {
		d.frame.Pix[i] = byte((i + int(d.next)*7) % 251)
	}
	d.frame.Index = d.next
	d.next++
	return d.frame, nil
}

func (d *stubDecoder) Close() error {
	d.closed++
	return nil
}

type stubEncoder struct {
	path     string
	cfg      media.EncoderConfig
	frames   []*media.Frame
	finished int
}

func (e *stubEncoder) EncodeFrame(frame *media.Frame) error {
	e.frames = append(e.frames, frame.Clone())
	return nil
}

func (e *stubEncoder) Finish() error {
	e.finished++
	if e.finished > 1 {
		return nil
	}
	return os.WriteFile(e.path, []byte(fmt.Sprintf("frames=%d", len(e.frames))), 0o644)
}

func targetName(subject int) string {
	return filename.Build(filename.Fields{
		Site:             "C1",
		SubjectID:        subject,
		FreezerStatus:    "FR",
		SessionID:        "ses01",
		MedicationStatus: "on",
		TrialID:          "stwalk",
		Plane:            "front",
	})
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
	hook   func(Event)
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	if l.hook != nil {
		l.hook(ev)
	}
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func newTestRunner(t *testing.T, cfg *config.Config, store *queue.Store, processor Processor, opts Options) *Runner {
	t.Helper()
	policy, err := layout.New(cfg)
	if err != nil {
		t.Fatalf("layout.New: %v", err)
	}
	return NewRunner(store, policy, processor, opts)
}

func mustGet(t *testing.T, store *queue.Store, id string) *queue.Entry {
	t.Helper()
	entry, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get %s: %v", id, err)
	}
	return entry
}

func newPipeline(codec media.Codec, locator detect.Locator) *PipelineProcessor {
	return &PipelineProcessor{
		Codec:           codec,
		Locator:         locator,
		Redactor:        redact.Default(),
		Threshold:       0.5,
		FallbackBitRate: 4_000_000,
	}
}
