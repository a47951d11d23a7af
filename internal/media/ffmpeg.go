package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"blurry/internal/config"
	"blurry/internal/logging"
	"blurry/internal/media/ffprobe"
	"blurry/internal/services"
	"blurry/internal/textutil"
)

var commandContext = exec.CommandContext

var probe = ffprobe.Inspect

const (
	defaultFPSNum  = 30
	stderrTailSize = 4096
	stderrLines    = 3
)

// FFmpeg is a Codec backed by ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegBinary  string
	FFprobeBinary string
	VideoCodec    string
	Logger        *slog.Logger
}

// NewFFmpeg builds a codec from media configuration.
func NewFFmpeg(cfg config.Media, logger *slog.Logger) *FFmpeg {
	return &FFmpeg{
		FFmpegBinary:  cfg.FFmpeg,
		FFprobeBinary: cfg.FFprobe,
		VideoCodec:    cfg.Codec,
		Logger:        logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// Probe reads stream metadata without starting a decoder.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrMediaOpen, "decode", "stat source", path, err)
	}
	if info.IsDir() {
		return Metadata{}, services.Wrap(services.ErrMediaOpen, "decode", "stat source", path+" is a directory", nil)
	}

	result, err := probe(ctx, f.FFprobeBinary, path)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrMediaOpen, "decode", "probe source", path, err)
	}
	stream, ok := result.VideoStream()
	if !ok || stream.Width <= 0 || stream.Height <= 0 {
		return Metadata{}, services.Wrap(services.ErrMediaOpen, "decode", "probe source", path+" has no decodable video stream", nil)
	}

	width, height := stream.DisplaySize()
	num, den := stream.FrameRate()
	duration := stream.DurationSeconds()
	if duration == 0 {
		duration = result.DurationSeconds()
	}
	return Metadata{
		Width:            width,
		Height:           height,
		Rotation:         stream.Rotation(),
		FPS:              Rational{Num: num, Den: den},
		BitRate:          stream.StreamBitRate(),
		ContainerBitRate: result.BitRate(),
		FrameCount:       stream.FrameCount(),
		CodecName:        stream.CodecName,
		Duration:         time.Duration(duration * float64(time.Second)),
	}, nil
}

// OpenDecoder probes path and starts ffmpeg emitting rawvideo RGB24 frames.
// ffmpeg applies the display rotation and passes every decoded frame through
// once, so frames match the probed display geometry and the source count.
func (f *FFmpeg) OpenDecoder(ctx context.Context, path string) (Decoder, error) {
	meta, err := f.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-v", "error", "-nostdin",
		"-i", path,
		"-map", "0:v:0",
		"-fps_mode", "passthrough",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-",
	}
	cmd := commandContext(context.WithoutCancel(ctx), binaryOr(f.FFmpegBinary, "ffmpeg"), args...)
	stderr := textutil.NewTailBuffer(stderrTailSize)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrMediaOpen, "decode", "pipe", path, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrMediaOpen, "decode", "start ffmpeg", path, err)
	}
	f.logger().Debug("decoder started",
		logging.String("path", path),
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
		logging.Int("rotation", meta.Rotation),
		logging.String("fps", meta.FPS.String()),
	)

	return &ffmpegDecoder{
		path:   path,
		meta:   meta,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		frame:  NewFrame(meta.Width, meta.Height),
	}, nil
}

// OpenEncoder starts ffmpeg reading rawvideo RGB24 frames on stdin.
func (f *FFmpeg) OpenEncoder(ctx context.Context, path string, cfg EncoderConfig) (Encoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, services.Wrap(services.ErrMediaWrite, "encode", "configure", fmt.Sprintf("invalid geometry %dx%d", cfg.Width, cfg.Height), nil)
	}
	fps := cfg.FPS
	if !fps.Valid() {
		fps = Rational{Num: defaultFPSNum, Den: 1}
	}
	codec := strings.TrimSpace(cfg.Codec)
	if codec == "" {
		codec = binaryOr(f.VideoCodec, "libx264")
	}
	pixFmt := "yuv420p"
	if cfg.Width%2 != 0 || cfg.Height%2 != 0 {
		pixFmt = "yuv444p"
	}

	args := []string{
		"-v", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", fps.String(),
		"-i", "-",
		"-an",
		"-c:v", codec,
		"-pix_fmt", pixFmt,
	}
	if cfg.BitRate > 0 {
		args = append(args, "-b:v", strconv.FormatInt(cfg.BitRate, 10))
	}
	args = append(args, path)

	cmd := commandContext(context.WithoutCancel(ctx), binaryOr(f.FFmpegBinary, "ffmpeg"), args...)
	stderr := textutil.NewTailBuffer(stderrTailSize)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrMediaWrite, "encode", "pipe", path, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrMediaWrite, "encode", "start ffmpeg", path, err)
	}
	f.logger().Debug("encoder started",
		logging.String("path", path),
		logging.String("codec", codec),
		logging.Int64("bit_rate", cfg.BitRate),
	)

	return &ffmpegEncoder{
		path:   path,
		width:  cfg.Width,
		height: cfg.Height,
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
	}, nil
}

func (f *FFmpeg) logger() *slog.Logger {
	if f.Logger == nil {
		return logging.NewNop()
	}
	return f.Logger
}

type ffmpegDecoder struct {
	path   string
	meta   Metadata
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *textutil.TailBuffer
	frame  *Frame
	next   int64

	done      bool
	closeOnce sync.Once
	closeErr  error
}

func (d *ffmpegDecoder) Metadata() Metadata { return d.meta }

func (d *ffmpegDecoder) Next() (*Frame, error) {
	if d.done {
		return nil, io.EOF
	}
	_, err := io.ReadFull(d.stdout, d.frame.Pix)
	switch {
	case err == nil:
		d.frame.Index = d.next
		d.next++
		return d.frame, nil
	case errors.Is(err, io.EOF):
		d.done = true
		if waitErr := d.wait(); waitErr != nil {
			return nil, waitErr
		}
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		d.done = true
		_ = d.wait()
		return nil, services.Wrap(services.ErrMediaOpen, "decode", "read frame",
			fmt.Sprintf("%s: truncated frame %d", d.path, d.next), err)
	default:
		d.done = true
		if d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		_ = d.wait()
		return nil, services.Wrap(services.ErrMediaOpen, "decode", "read frame", d.path, err)
	}
}

func (d *ffmpegDecoder) wait() error {
	d.closeOnce.Do(func() {
		if err := d.cmd.Wait(); err != nil {
			d.closeErr = services.Wrap(services.ErrMediaOpen, "decode", "ffmpeg exited",
				d.stderr.Summary(stderrLines), err)
		}
	})
	return d.closeErr
}

// Close stops the decoder. Stopping before EOF kills ffmpeg; that exit is not
// reported as an error.
func (d *ffmpegDecoder) Close() error {
	if d.done {
		return d.wait()
	}
	d.done = true
	d.closeOnce.Do(func() {
		_ = d.stdout.Close()
		if d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		_ = d.cmd.Wait()
	})
	return nil
}

type ffmpegEncoder struct {
	path   string
	width  int
	height int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *textutil.TailBuffer
	frames int64

	finishOnce sync.Once
	finishErr  error
}

func (e *ffmpegEncoder) EncodeFrame(frame *Frame) error {
	if frame == nil || frame.Width != e.width || frame.Height != e.height {
		return services.Wrap(services.ErrMediaWrite, "encode", "write frame",
			fmt.Sprintf("%s: frame geometry does not match %dx%d", e.path, e.width, e.height), nil)
	}
	if _, err := e.stdin.Write(frame.Pix[:FrameSize(e.width, e.height)]); err != nil {
		return services.Wrap(services.ErrMediaWrite, "encode", "write frame",
			fmt.Sprintf("%s: frame %d: %s", e.path, frame.Index, e.stderr.Summary(stderrLines)), err)
	}
	e.frames++
	return nil
}

func (e *ffmpegEncoder) Finish() error {
	e.finishOnce.Do(func() {
		closeErr := e.stdin.Close()
		waitErr := e.cmd.Wait()
		switch {
		case waitErr != nil:
			e.finishErr = services.Wrap(services.ErrMediaWrite, "encode", "finalize",
				fmt.Sprintf("%s: %s", e.path, e.stderr.Summary(stderrLines)), waitErr)
		case closeErr != nil:
			e.finishErr = services.Wrap(services.ErrMediaWrite, "encode", "finalize", e.path, closeErr)
		}
	})
	return e.finishErr
}

func binaryOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
