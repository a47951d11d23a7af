package media

import "context"

// Decoder yields frames in presentation order. Next returns io.EOF after the
// last frame. The returned frame is only valid until the next call to Next.
type Decoder interface {
	Metadata() Metadata
	Next() (*Frame, error)
	Close() error
}

// Encoder accepts frames in order and produces a video file. Finish flushes
// and closes the output; later calls return the first result.
type Encoder interface {
	EncodeFrame(*Frame) error
	Finish() error
}

// Codec opens decoders and encoders.
type Codec interface {
	OpenDecoder(ctx context.Context, path string) (Decoder, error)
	OpenEncoder(ctx context.Context, path string, cfg EncoderConfig) (Encoder, error)
}

// EncoderConfig describes the output stream.
type EncoderConfig struct {
	Width   int
	Height  int
	FPS     Rational
	BitRate int64
	// Codec is the encoder name; empty selects the codec's default.
	Codec string
}

// EncoderConfigFor copies geometry and frame rate from the source and halves
// its bit rate. The stream rate is preferred; the container rate is used when
// the stream does not report one, and fallbackBitRate when neither is known.
func EncoderConfigFor(meta Metadata, fallbackBitRate int64) EncoderConfig {
	cfg := EncoderConfig{
		Width:  meta.Width,
		Height: meta.Height,
		FPS:    meta.FPS,
	}
	switch {
	case meta.BitRate > 0:
		cfg.BitRate = meta.BitRate / 2
	case meta.ContainerBitRate > 0:
		cfg.BitRate = meta.ContainerBitRate / 2
	default:
		cfg.BitRate = fallbackBitRate
	}
	return cfg
}
