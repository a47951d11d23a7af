package detect

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"blurry/internal/config"
	"blurry/internal/logging"
	"blurry/internal/media"
	"blurry/internal/services"
	"blurry/internal/textutil"
)

var commandContext = exec.CommandContext

const (
	stderrTailSize = 4096
	stderrLines    = 3
	closeGrace     = 5 * time.Second
	maxReplySize   = 4 << 20
)

type request struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Threshold float64 `json:"threshold"`
	Size      int     `json:"size"`
}

type reply struct {
	Boxes []Box  `json:"boxes"`
	Error string `json:"error,omitempty"`
}

// maxRestarts bounds how often a crashed helper is relaunched over the life
// of one locator.
const maxRestarts = 3

// ProcessLocator talks to a long-lived detector helper process. When the
// helper dies or breaks the protocol, the frame in flight fails and the next
// Locate relaunches it, up to maxRestarts times.
type ProcessLocator struct {
	ctx    context.Context
	cfg    config.Detector
	logger *slog.Logger

	mu       sync.Mutex
	helper   *helper
	closed   bool
	broken   error
	restarts int
	closeErr error
	frames   int64
}

type helper struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	stderr *textutil.TailBuffer
}

// StartProcess launches the detector helper. The model path, when set, is
// passed once as --model. The helper is detached from ctx cancellation;
// callers stop it with Close.
func StartProcess(ctx context.Context, cfg config.Detector, logger *slog.Logger) (*ProcessLocator, error) {
	cfg.Command = strings.TrimSpace(cfg.Command)
	if cfg.Command == "" {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "start", "detector.command is empty", nil)
	}
	p := &ProcessLocator{
		ctx:    context.WithoutCancel(ctx),
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "detector"),
	}
	h, err := p.spawn()
	if err != nil {
		return nil, err
	}
	p.helper = h
	return p, nil
}

func (p *ProcessLocator) spawn() (*helper, error) {
	command := p.cfg.Command
	args := append([]string(nil), p.cfg.Args...)
	if model := strings.TrimSpace(p.cfg.ModelPath); model != "" {
		args = append(args, "--model", model)
	}

	cmd := commandContext(p.ctx, command, args...)
	stderr := textutil.NewTailBuffer(stderrTailSize)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrDetection, "detect", "stdin pipe", command, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrDetection, "detect", "stdout pipe", command, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrDetection, "detect", "start", command, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplySize)

	p.logger.Info("detector started",
		logging.String("command", command),
		logging.String("model", p.cfg.ModelPath),
		logging.Int("pid", cmd.Process.Pid),
	)
	return &helper{cmd: cmd, stdin: stdin, stdout: scanner, stderr: stderr}, nil
}

// Locate submits one frame and waits for the helper's answer. A protocol or
// I/O failure fails this call and marks the helper for relaunch.
func (p *ProcessLocator) Locate(_ context.Context, frame *media.Frame, threshold float64) ([]Box, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, services.Wrap(services.ErrDetection, "detect", "locate", "nil frame", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, services.Wrap(services.ErrDetection, "detect", "locate", "detector closed", nil)
	}
	if p.broken != nil {
		if err := p.restart(); err != nil {
			return nil, err
		}
	}
	h := p.helper

	size := media.FrameSize(frame.Width, frame.Height)
	header, err := json.Marshal(request{Width: frame.Width, Height: frame.Height, Threshold: threshold, Size: size})
	if err != nil {
		return nil, services.Wrap(services.ErrDetection, "detect", "encode request", "", err)
	}
	if _, err := h.stdin.Write(append(header, '\n')); err != nil {
		return nil, p.fail("write request", err)
	}
	if _, err := h.stdin.Write(frame.Pix[:size]); err != nil {
		return nil, p.fail("write frame", err)
	}

	if !h.stdout.Scan() {
		err := h.stdout.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, p.fail("read reply", err)
	}
	var resp reply
	if err := json.Unmarshal(h.stdout.Bytes(), &resp); err != nil {
		return nil, p.fail("decode reply", err)
	}
	p.frames++
	if resp.Error != "" {
		return nil, services.Wrap(services.ErrDetection, "detect", "locate",
			fmt.Sprintf("frame %d", frame.Index), errors.New(resp.Error))
	}
	return resp.Boxes, nil
}

// restart reaps the broken helper and launches a new one. Once the restart
// budget is spent the last failure is returned without relaunching.
func (p *ProcessLocator) restart() error {
	if p.restarts >= maxRestarts {
		return p.broken
	}
	p.reap()
	p.restarts++
	h, err := p.spawn()
	if err != nil {
		p.broken = err
		return err
	}
	p.logger.Warn("detector restarted",
		logging.Int("restart", p.restarts),
		logging.Int("max_restarts", maxRestarts),
		logging.Error(p.broken),
	)
	if p.restarts == maxRestarts {
		p.logger.Warn("detector restart budget spent; another failure fails every remaining video")
	}
	p.helper = h
	p.broken = nil
	return nil
}

func (p *ProcessLocator) fail(operation string, err error) error {
	detail := p.cfg.Command
	if tail := p.helper.stderr.Summary(stderrLines); tail != "" {
		detail += ": " + tail
	}
	p.broken = services.Wrap(services.ErrDetection, "detect", operation, detail, err)
	return p.broken
}

// reap stops the current helper, killing it after a grace period, and
// returns its exit error.
func (p *ProcessLocator) reap() error {
	h := p.helper
	if h == nil {
		return nil
	}
	p.helper = nil
	_ = h.stdin.Close()

	timer := time.AfterFunc(closeGrace, func() {
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
	})
	defer timer.Stop()
	if err := h.cmd.Wait(); err != nil {
		return services.Wrap(services.ErrDetection, "detect", "exit", h.stderr.Summary(stderrLines), err)
	}
	return nil
}

// Close ends the helper by closing its stdin and waiting for it to exit. A
// helper that does not exit within a grace period is killed.
func (p *ProcessLocator) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.closeErr
	}
	p.closed = true

	if err := p.reap(); err != nil && p.broken == nil {
		p.closeErr = err
	}
	p.logger.Info("detector stopped", logging.Int64("frames", p.frames), logging.Int("restarts", p.restarts))
	return p.closeErr
}
