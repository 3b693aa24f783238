package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ErrInvalidTargetSize is returned when a resize is requested into a box with
// a non-positive dimension.
var ErrInvalidTargetSize = errors.New("target dimensions must be positive")

// ResizeToFit scales an image to fit within (targetWidth, targetHeight).
//
// When preserveAspect is true the image is scaled by the smaller of the two
// axis ratios, so the result fits the box on both axes and keeps its aspect
// ratio to integer rounding. When false the image is stretched to exactly the
// target dimensions. Lanczos resampling is used in both cases; text-heavy
// scans alias badly under cheaper filters.
func ResizeToFit(
	img image.Image,
	targetWidth, targetHeight int,
	preserveAspect bool,
) (*image.NRGBA, error) {
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, fmt.Errorf(
			"resize to %dx%d: %w",
			targetWidth,
			targetHeight,
			ErrInvalidTargetSize,
		)
	}

	if !preserveAspect {
		return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos), nil
	}

	bounds := img.Bounds()

	widthRatio := float64(targetWidth) / float64(bounds.Dx())
	heightRatio := float64(targetHeight) / float64(bounds.Dy())
	scale := math.Min(widthRatio, heightRatio)

	newWidth := int(math.Round(float64(bounds.Dx()) * scale))
	newHeight := int(math.Round(float64(bounds.Dy()) * scale))

	// Rounding can only undershoot by a pixel, never exceed the box, but a
	// degenerate source axis must still produce a drawable image.
	if newWidth < 1 {
		newWidth = 1
	}

	if newHeight < 1 {
		newHeight = 1
	}

	return imaging.Resize(img, newWidth, newHeight, imaging.Lanczos), nil
}
