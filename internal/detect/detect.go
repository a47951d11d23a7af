package detect

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"blurry/internal/media"
	"blurry/internal/services"
)

// Box is a detected face in pixel coordinates.
type Box struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// Width returns X2-X1.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns Y2-Y1.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Finite reports whether every coordinate is a finite number.
func (b Box) Finite() bool {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Locator returns the faces found in frame at or above threshold. Finding no
// faces is not an error.
type Locator interface {
	Locate(ctx context.Context, frame *media.Frame, threshold float64) ([]Box, error)
}

// ValidateThreshold checks that threshold lies in (0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return services.Wrap(services.ErrValidation, "detect", "threshold",
			fmt.Sprintf("threshold %v must be in (0, 1]", threshold), nil)
	}
	return nil
}

// StaticLocator returns the same boxes for every frame.
type StaticLocator struct {
	Boxes []Box
	// Err, when set, is returned instead of boxes.
	Err   error
	calls atomic.Int64
}

// NewStaticLocator returns a locator that always reports boxes.
func NewStaticLocator(boxes ...Box) *StaticLocator {
	return &StaticLocator{Boxes: boxes}
}

func (s *StaticLocator) Locate(_ context.Context, frame *media.Frame, threshold float64) ([]Box, error) {
	s.calls.Add(1)
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, services.Wrap(services.ErrDetection, "detect", "locate", fmt.Sprintf("frame %d", frame.Index), s.Err)
	}
	return append([]Box(nil), s.Boxes...), nil
}

// Calls returns how many frames were submitted.
func (s *StaticLocator) Calls() int64 {
	return s.calls.Load()
}
