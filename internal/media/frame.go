package media

import (
	"fmt"
	"math"
	"time"
)

// BytesPerPixel is the size of one packed RGB24 pixel.
const BytesPerPixel = 3

// Frame is one decoded picture in packed RGB24. Row stride is 3*Width.
type Frame struct {
	Index  int64
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]byte, FrameSize(width, height))}
}

// FrameSize returns the byte length of a width x height RGB24 frame.
func FrameSize(width, height int) int {
	return width * height * BytesPerPixel
}

// Offset returns the index of pixel (x, y) in Pix.
func (f *Frame) Offset(x, y int) int {
	return (y*f.Width + x) * BytesPerPixel
}

// RGB returns the pixel at (x, y).
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := f.Offset(x, y)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB writes the pixel at (x, y).
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := f.Offset(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := *f
	out.Pix = append([]byte(nil), f.Pix...)
	return &out
}

// Rational is a frame rate expressed as Num/Den.
type Rational struct {
	Num int
	Den int
}

// Valid reports whether both terms are positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float returns the rate as a float, or 0 when invalid.
func (r Rational) Float() float64 {
	if !r.Valid() {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Metadata describes the primary video stream of a source.
type Metadata struct {
	// Width and Height are the decoded frame geometry, after the stream's
	// display rotation is applied.
	Width  int
	Height int
	// Rotation is the clockwise display rotation in degrees.
	Rotation int
	FPS      Rational
	// BitRate is the video stream rate; ContainerBitRate the overall rate.
	// Either may be zero when the container does not report it.
	BitRate          int64
	ContainerBitRate int64
	// FrameCount is zero when unknown.
	FrameCount int64
	CodecName  string
	Duration   time.Duration
}

// EstimatedFrames returns FrameCount, or an estimate from duration and frame
// rate, or zero when neither is known.
func (m Metadata) EstimatedFrames() int64 {
	if m.FrameCount > 0 {
		return m.FrameCount
	}
	if m.Duration <= 0 || !m.FPS.Valid() {
		return 0
	}
	return int64(math.Round(m.Duration.Seconds() * m.FPS.Float()))
}
