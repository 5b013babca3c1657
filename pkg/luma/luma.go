// Package luma reduces raw frames to a single perceived-brightness value in
// the range [0, 255].
//
// Two inputs are supported: packed YUYV 4:2:2 camera frames (YUYV,
// YUYVStride) and pre-summed RGB channel totals (FromRGB), which the screen
// sampler uses after subsampling a snapshot.
package luma

import (
	"errors"
	"fmt"
)

// ErrShortFrame is returned when a frame holds fewer bytes than its
// declared geometry requires.
var ErrShortFrame = errors.New("frame shorter than declared geometry")

// Luma weights, scaled by 1000 so the final truncation is exact.
const (
	weightR   = 299
	weightG   = 587
	weightB   = 114
	weightDiv = 1000
)

// FromRGB returns the luma of mean channel values r, g and b.
func FromRGB(r, g, b int) int {
	return (weightR*r + weightG*g + weightB*b) / weightDiv
}

// FromSums averages channel sums over n pixels (integer truncation) and
// returns the resulting luma. n must be positive.
func FromSums(r, g, b int64, n int64) int {
	if n <= 0 {
		return 0
	}
	return FromRGB(int(r/n), int(g/n), int(b/n))
}

// YUYV decodes a tightly packed YUYV frame of width x height pixels.
func YUYV(data []byte, width, height int) (int, error) {
	return YUYVStride(data, width, height, width*2)
}

// YUYVStride decodes a YUYV frame whose rows are stride bytes apart.
func YUYVStride(data []byte, width, height, stride int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if width%2 != 0 {
		return 0, fmt.Errorf("YUYV width must be even, got %d", width)
	}
	if stride < width*2 {
		return 0, fmt.Errorf("stride %d smaller than row size %d", stride, width*2)
	}
	need := stride*(height-1) + width*2
	if len(data) < need {
		return 0, fmt.Errorf("%w: have %d bytes, need %d", ErrShortFrame, len(data), need)
	}

	var r, g, b int64
	for row := 0; row < height; row++ {
		line := data[row*stride : row*stride+width*2]
		for i := 0; i < len(line); i += 4 {
			u, v := line[i+1], line[i+3]
			pr, pg, pb := Pixel(line[i], u, v)
			r += int64(pr)
			g += int64(pg)
			b += int64(pb)
			pr, pg, pb = Pixel(line[i+2], u, v)
			r += int64(pr)
			g += int64(pg)
			b += int64(pb)
		}
	}

	return FromSums(r, g, b, int64(width)*int64(height)), nil
}

// Pixel converts one Y sample and its shared U, V chroma to clipped RGB.
func Pixel(y, u, v byte) (r, g, b uint8) {
	fy := float64(y)
	fu := float64(u) - 128
	fv := float64(v) - 128
	r = clip(fy + 1.402*fv)
	g = clip(fy - 0.344*fu - 0.714*fv)
	b = clip(fy + 1.772*fu)
	return r, g, b
}

// clip saturates x to [0, 255] and truncates toward zero.
func clip(x float64) uint8 {
	switch {
	case x <= 0:
		return 0
	case x >= 255:
		return 255
	default:
		return uint8(x)
	}
}
