package redact

import (
	"image"

	"blurry/internal/media"
)

// boxBlur returns the rect sub-image of frame averaged over a kw x kh window
// anchored at the kernel centre. Samples outside rect replicate its edge
// pixels. The result is packed RGB24 with stride 3*rect.Dx().
func boxBlur(frame *media.Frame, rect image.Rectangle, kw, kh int) []byte {
	rw, rh := rect.Dx(), rect.Dy()
	const bpp = media.BytesPerPixel

	// Horizontal window sums, one row of the region at a time.
	rowSums := make([]int, rw*rh*bpp)
	prefix := make([]int, rw+kw+1)
	ax := kw / 2
	for y := 0; y < rh; y++ {
		for c := 0; c < bpp; c++ {
			prefix[0] = 0
			for i := 0; i < rw+kw; i++ {
				sx := clampIndex(i-ax, rw)
				prefix[i+1] = prefix[i] + int(frame.Pix[frame.Offset(rect.Min.X+sx, rect.Min.Y+y)+c])
			}
			for x := 0; x < rw; x++ {
				rowSums[(y*rw+x)*bpp+c] = prefix[x+kw] - prefix[x]
			}
		}
	}

	out := make([]byte, rw*rh*bpp)
	colPrefix := make([]int, rh+kh+1)
	ay := kh / 2
	area := kw * kh
	for x := 0; x < rw; x++ {
		for c := 0; c < bpp; c++ {
			colPrefix[0] = 0
			for i := 0; i < rh+kh; i++ {
				sy := clampIndex(i-ay, rh)
				colPrefix[i+1] = colPrefix[i] + rowSums[(sy*rw+x)*bpp+c]
			}
			for y := 0; y < rh; y++ {
				sum := colPrefix[y+kh] - colPrefix[y]
				out[(y*rw+x)*bpp+c] = uint8((sum + area/2) / area)
			}
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
