package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// BandMode selects how the detector decides whether a row contains content.
type BandMode string

const (
	// ModeContentDetection marks a row as content when the standard
	// deviation of its grayscale intensities exceeds VariationThreshold.
	// This finds the actual board region inside uniform scan borders on the
	// original, pre-inversion page.
	ModeContentDetection BandMode = "content-detection"
	// ModeBlackBarRemoval marks a row as content when its mean grayscale
	// intensity exceeds BrightnessThreshold. After inversion the page body
	// is near-white and residual scan margins show up as near-black bars.
	ModeBlackBarRemoval BandMode = "black-bar-removal"
)

var (
	// ErrUnknownBandMode is returned for a BandOptions.Mode value that is
	// neither content detection nor black bar removal.
	ErrUnknownBandMode = errors.New("unknown band detection mode")
	// ErrEmptyImage is returned when an operation receives an image with no
	// pixels.
	ErrEmptyImage = errors.New("image has zero pixels")
)

// Default detector tuning. These values come from field use, not derivation,
// so they stay overridable through BandOptions.
const (
	DefaultVariationThreshold  = 10.0
	DefaultBrightnessThreshold = 30.0
	DefaultMinHeightRatio      = 0.4
	DefaultNoBarsMaxMargin     = 20
)

// BandOptions holds the tunable parameters for content band detection.
type BandOptions struct {
	Mode                BandMode
	VariationThreshold  float64
	BrightnessThreshold float64
	MinHeightRatio      float64
	Margin              int
	NoBarsMaxMargin     int
}

// applyBandDefaults fills zero-value fields with the default tuning.
func applyBandDefaults(opts *BandOptions) {
	if opts.Mode == "" {
		opts.Mode = ModeContentDetection
	}

	if opts.VariationThreshold <= 0 {
		opts.VariationThreshold = DefaultVariationThreshold
	}

	if opts.BrightnessThreshold <= 0 {
		opts.BrightnessThreshold = DefaultBrightnessThreshold
	}

	if opts.MinHeightRatio <= 0 {
		opts.MinHeightRatio = DefaultMinHeightRatio
	}

	if opts.NoBarsMaxMargin <= 0 {
		opts.NoBarsMaxMargin = DefaultNoBarsMaxMargin
	}
}

// Band is a half-open vertical pixel range [Top, Bottom) judged to contain
// meaningful content.
type Band struct {
	Top    int
	Bottom int
}

// Height returns the number of rows covered by the band.
func (b Band) Height() int {
	return b.Bottom - b.Top
}

// DetectContentBand scans an image row by row and returns the vertical span
// containing content under the scoring mode selected in opts.
//
// The scan walks top-down for the first content row and bottom-up for the
// last. In black bar removal mode the detected span is expanded outward by
// Margin rows to avoid clipping antialiased edges, and a span whose detected
// margins are both at most NoBarsMaxMargin is treated as "no bars": the full
// image is returned unchanged rather than risking a destructive micro-crop
// from noise. If the detected span is shorter than MinHeightRatio of the image
// height it is recentered on the vertical midpoint at exactly that minimum
// height, clamped to the image bounds.
func DetectContentBand(img image.Image, opts BandOptions) (Band, error) {
	applyBandDefaults(&opts)

	if opts.Mode != ModeContentDetection && opts.Mode != ModeBlackBarRemoval {
		return Band{}, fmt.Errorf("%q: %w", opts.Mode, ErrUnknownBandMode)
	}

	gray, width, height := grayscalePixels(img)
	if width == 0 || height == 0 {
		return Band{}, ErrEmptyImage
	}

	isContent := contentPredicate(opts)

	topRow := height
	for y := range height {
		if isContent(rowStats(gray, width, y)) {
			topRow = y

			break
		}
	}

	bottomRow := -1
	for y := height - 1; y >= 0; y-- {
		if isContent(rowStats(gray, width, y)) {
			bottomRow = y

			break
		}
	}

	if opts.Mode == ModeBlackBarRemoval {
		return blackBarBand(topRow, bottomRow, height, opts), nil
	}

	return ensureMinimumHeight(
		Band{Top: topRow, Bottom: bottomRow + 1},
		height,
		opts.MinHeightRatio,
	), nil
}

// CropToBand returns the sub-image covered by the band at full width.
func CropToBand(img image.Image, band Band) *image.NRGBA {
	bounds := img.Bounds()

	return imaging.Crop(img, image.Rect(
		bounds.Min.X,
		bounds.Min.Y+band.Top,
		bounds.Max.X,
		bounds.Min.Y+band.Bottom,
	))
}

// contentPredicate returns the per-row content test for the selected mode.
func contentPredicate(opts BandOptions) func(mean, stdDev float64) bool {
	if opts.Mode == ModeBlackBarRemoval {
		return func(mean, _ float64) bool {
			return mean > opts.BrightnessThreshold
		}
	}

	return func(_, stdDev float64) bool {
		return stdDev > opts.VariationThreshold
	}
}

// blackBarBand applies the margin expansion, the no-bars early exit and the
// minimum height safeguard for black bar removal mode.
func blackBarBand(topRow, bottomRow, height int, opts BandOptions) Band {
	full := Band{Top: 0, Bottom: height}

	// Nothing bright enough anywhere: treat the whole page as bars and fall
	// through to the minimum height safeguard instead of cropping to nothing.
	if bottomRow < topRow {
		return ensureMinimumHeight(Band{}, height, opts.MinHeightRatio)
	}

	topMargin := topRow
	bottomMargin := height - 1 - bottomRow

	if topMargin <= opts.NoBarsMaxMargin && bottomMargin <= opts.NoBarsMaxMargin {
		return full
	}

	band := Band{
		Top:    max(topRow-opts.Margin, 0),
		Bottom: min(bottomRow+1+opts.Margin, height),
	}

	return ensureMinimumHeight(band, height, opts.MinHeightRatio)
}

// ensureMinimumHeight recenters a band that is shorter than the minimum on the
// image's vertical midpoint, clamped to [0, height].
func ensureMinimumHeight(band Band, height int, minHeightRatio float64) Band {
	minHeight := int(math.Round(minHeightRatio * float64(height)))
	if minHeight > height {
		minHeight = height
	}

	if band.Height() >= minHeight {
		return band
	}

	top := height/2 - minHeight/2
	if top < 0 {
		top = 0
	}

	if top+minHeight > height {
		top = height - minHeight
	}

	return Band{Top: top, Bottom: top + minHeight}
}

// grayscalePixels flattens an image into one grayscale byte per pixel in
// row-major order.
func grayscalePixels(img image.Image) ([]uint8, int, int) {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	pixels := make([]uint8, width*height)
	for y := range height {
		rowStart := y * gray.Stride
		for x := range width {
			// Grayscale output carries identical R, G and B channels.
			pixels[y*width+x] = gray.Pix[rowStart+x*4]
		}
	}

	return pixels, width, height
}

// rowStats computes the mean and standard deviation of one grayscale row.
func rowStats(pixels []uint8, width, row int) (float64, float64) {
	var sum, sumSquares float64

	for _, v := range pixels[row*width : (row+1)*width] {
		value := float64(v)
		sum += value
		sumSquares += value * value
	}

	mean := sum / float64(width)

	variance := sumSquares/float64(width) - mean*mean
	if variance < 0 {
		variance = 0
	}

	return mean, math.Sqrt(variance)
}
