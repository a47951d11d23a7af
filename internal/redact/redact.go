package redact

import (
	"image"
	"math"

	"blurry/internal/detect"
	"blurry/internal/media"
)

const (
	defaultMargin         = 0.3
	defaultKernelFraction = 0.5
)

// Redactor blurs detected regions. Margin is the fraction of the box width
// and height added on each side. KernelFraction sizes the blur kernel
// relative to the grown region.
type Redactor struct {
	Margin         float64
	KernelFraction float64
}

// Default returns a redactor with a 30% margin and a half-size kernel.
func Default() Redactor {
	return Redactor{Margin: defaultMargin, KernelFraction: defaultKernelFraction}
}

// Redact applies every box to frame in order, so later boxes win where
// regions overlap. Boxes that are degenerate after clamping are skipped. It
// returns the number of regions blurred.
func (r Redactor) Redact(frame *media.Frame, boxes []detect.Box) int {
	if frame == nil || len(boxes) == 0 {
		return 0
	}
	applied := 0
	for _, box := range boxes {
		rect, ok := r.Region(box, frame.Width, frame.Height)
		if !ok {
			continue
		}
		r.blurEllipse(frame, rect)
		applied++
	}
	return applied
}

// Region returns the grown, clamped rectangle for box in a width x height
// frame, or false when nothing of it remains.
func (r Redactor) Region(box detect.Box, width, height int) (image.Rectangle, bool) {
	if !box.Finite() {
		return image.Rectangle{}, false
	}
	w, h := box.Width(), box.Height()
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	margin := math.Max(r.Margin, 0)
	x0 := math.Floor(box.X1 - margin*w)
	y0 := math.Floor(box.Y1 - margin*h)
	x1 := math.Ceil(box.X2 + margin*w)
	y1 := math.Ceil(box.Y2 + margin*h)

	rect := image.Rect(clampInt(x0, width), clampInt(y0, height), clampInt(x1, width), clampInt(y1, height))
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return image.Rectangle{}, false
	}
	return rect, true
}

func (r Redactor) kernel(size int) int {
	fraction := r.KernelFraction
	if fraction <= 0 {
		fraction = defaultKernelFraction
	}
	return max(1, int(float64(size)*fraction))
}

func (r Redactor) blurEllipse(frame *media.Frame, rect image.Rectangle) {
	rw, rh := rect.Dx(), rect.Dy()
	blurred := boxBlur(frame, rect, r.kernel(rw), r.kernel(rh))

	cx := float64(rect.Min.X+rect.Max.X) / 2
	cy := float64(rect.Min.Y+rect.Max.Y) / 2
	ax := float64(rw) / 2
	ay := float64(rh) / 2

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		dy := (float64(y) + 0.5 - cy) / ay
		dy2 := dy * dy
		if dy2 > 1 {
			continue
		}
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dx := (float64(x) + 0.5 - cx) / ax
			if dx*dx+dy2 > 1 {
				continue
			}
			src := ((y-rect.Min.Y)*rw + (x - rect.Min.X)) * media.BytesPerPixel
			dst := frame.Offset(x, y)
			copy(frame.Pix[dst:dst+media.BytesPerPixel], blurred[src:src+media.BytesPerPixel])
		}
	}
}

func clampInt(v float64, limit int) int {
	switch {
	case v < 0:
		return 0
	case v > float64(limit):
		return limit
	default:
		return int(v)
	}
}
