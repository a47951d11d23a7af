package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"blurry/internal/config"
	"blurry/internal/detect"
	"blurry/internal/logging"
	"blurry/internal/media"
	"blurry/internal/redact"
	"blurry/internal/services"
)

// PipelineProcessor redacts a video in-process: decode, locate faces, blur,
// encode, one frame at a time.
type PipelineProcessor struct {
	Codec           media.Codec
	Locator         detect.Locator
	Redactor        redact.Redactor
	Threshold       float64
	FallbackBitRate int64
	// VideoCodec overrides the encoder name; empty keeps the codec default.
	VideoCodec string
	Logger     *slog.Logger
}

// NewPipelineProcessor wires a pipeline from configuration.
func NewPipelineProcessor(cfg *config.Config, codec media.Codec, locator detect.Locator, logger *slog.Logger) (*PipelineProcessor, error) {
	if codec == nil || locator == nil {
		return nil, errors.New("pipeline requires a codec and a locator")
	}
	if err := detect.ValidateThreshold(cfg.Detector.Threshold); err != nil {
		return nil, err
	}
	return &PipelineProcessor{
		Codec:           codec,
		Locator:         locator,
		Redactor:        redact.Default(),
		Threshold:       cfg.Detector.Threshold,
		FallbackBitRate: cfg.Media.FallbackBitRate,
		VideoCodec:      cfg.Media.Codec,
		Logger:          logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Process runs the frame loop for job. The encoder is always finished and the
// decoder always closed, including after cancellation or a detection error.
// A cancel observed between frames returns an ErrCancelled error.
func (p *PipelineProcessor) Process(ctx context.Context, job Job) (err error) {
	logger := logging.WithContext(ctx, p.Logger)

	dec, err := p.Codec.OpenDecoder(ctx, job.SourcePath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dec.Close(); closeErr != nil {
			logger.Debug("decoder close reported error", logging.Error(closeErr))
		}
	}()

	meta := dec.Metadata()
	encCfg := media.EncoderConfigFor(meta, p.FallbackBitRate)
	if p.VideoCodec != "" {
		encCfg.Codec = p.VideoCodec
	}
	enc, err := p.Codec.OpenEncoder(ctx, job.OutputPath, encCfg)
	if err != nil {
		return err
	}
	defer func() {
		if finishErr := enc.Finish(); finishErr != nil && err == nil {
			err = finishErr
		}
	}()

	logger.Debug("pipeline opened",
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
		logging.String("fps", meta.FPS.String()),
		logging.Int64("source_bit_rate", meta.BitRate),
		logging.Int64("output_bit_rate", encCfg.BitRate),
	)

	total := meta.EstimatedFrames()
	job.frameTotal(total)

	var done int64
	for {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrCancelled, "redact", "frame loop",
				fmt.Sprintf("stopped after %d frames", done), ctx.Err())
		}
		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		boxes, err := p.Locator.Locate(ctx, frame, p.Threshold)
		if err != nil {
			if !errors.Is(err, services.ErrDetection) {
				err = services.Wrap(services.ErrDetection, "redact", "locate", fmt.Sprintf("frame %d", frame.Index), err)
			}
			return err
		}
		p.Redactor.Redact(frame, boxes)
		if err := enc.EncodeFrame(frame); err != nil {
			return err
		}
		done++
		job.frameDone(done, total)
	}
}
