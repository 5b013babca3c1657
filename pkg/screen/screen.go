// Package screen estimates how bright the picture on an X11 display is, so
// ambient readings can be corrected for light the screen itself casts.
package screen

import (
	"errors"
	"fmt"
	"math"

	"github.com/smazurov/luxnode/pkg/luma"
)

// Default sampling parameters: the centred 85% of the screen, one pixel in
// every 8x8 block.
const (
	DefaultCropFraction = 0.85
	DefaultStride       = 8
)

// ErrUnsupportedDepth is returned for pixel layouts other than 24 or 32 bits
// per pixel.
var ErrUnsupportedDepth = errors.New("unsupported pixel depth")

// Options tunes the sampler.
type Options struct {
	// CropFraction is the share of width and height, centred, that is
	// sampled. Must be in (0, 1].
	CropFraction float64
	// Stride samples every Stride-th pixel along both axes.
	Stride int
}

// DefaultOptions returns the stock sampling parameters.
func DefaultOptions() Options {
	return Options{CropFraction: DefaultCropFraction, Stride: DefaultStride}
}

// Validate checks that the options describe a non-empty sample.
func (o Options) Validate() error {
	if o.CropFraction <= 0 || o.CropFraction > 1 {
		return fmt.Errorf("crop fraction %v out of range (0, 1]", o.CropFraction)
	}
	if o.Stride < 1 {
		return fmt.Errorf("stride %d must be at least 1", o.Stride)
	}
	return nil
}

// Rect is a region in screen pixels.
type Rect struct {
	X, Y          int
	Width, Height int
}

// CropRect returns the centred region covering fraction of a width x height
// screen.
func CropRect(width, height int, fraction float64) Rect {
	w := int(fraction * float64(width))
	h := int(fraction * float64(height))
	return Rect{X: (width - w) / 2, Y: (height - h) / 2, Width: w, Height: h}
}

// Image is a packed ZPixmap in little-endian byte order.
type Image struct {
	Data          []byte
	Width, Height int
	BytesPerPixel int
	Stride        int // bytes per row including padding
}

// SampleImage averages the red, green and blue channels of every
// stride-th pixel in both directions and returns the luma of the means.
func SampleImage(img Image, stride int) (int, error) {
	if stride < 1 {
		return 0, fmt.Errorf("stride %d must be at least 1", stride)
	}
	if img.BytesPerPixel != 3 && img.BytesPerPixel != 4 {
		return 0, fmt.Errorf("%w: %d bytes per pixel", ErrUnsupportedDepth, img.BytesPerPixel)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return 0, nil
	}
	if need := img.Stride*(img.Height-1) + img.Width*img.BytesPerPixel; img.Stride < img.Width*img.BytesPerPixel || len(img.Data) < need {
		return 0, fmt.Errorf("image data too short: %d bytes for %dx%d", len(img.Data), img.Width, img.Height)
	}

	var r, g, b, n int64
	for y := 0; y < img.Height; y += stride {
		row := img.Data[y*img.Stride:]
		for x := 0; x < img.Width; x += stride {
			px := row[x*img.BytesPerPixel:]
			// little-endian 0x00RRGGBB
			b += int64(px[0])
			g += int64(px[1])
			r += int64(px[2])
			n++
		}
	}
	return luma.FromSums(r, g, b, n), nil
}

// Reference panel used to normalise screen area: 17" diagonal, 16:10.
const (
	referenceDiagonalMM = 17 * 25.4
	referenceAspect     = 1.6
)

// Multiplier scales screen brightness by panel size: (area/area_ref)^2,
// where the reference keeps the screen's aspect ratio at the height of a
// 17" 16:10 panel. It returns 0 for unknown sizes.
func Multiplier(widthMM, heightMM int) float64 {
	if widthMM <= 0 || heightMM <= 0 {
		return 0
	}
	refHeight := math.Sqrt(referenceDiagonalMM * referenceDiagonalMM / (referenceAspect*referenceAspect + 1))
	refWidth := float64(widthMM) / float64(heightMM) * refHeight
	ratio := float64(widthMM*heightMM) / (refWidth * refHeight)
	return ratio * ratio
}
