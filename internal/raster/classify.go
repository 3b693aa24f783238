package raster

import (
	"image"
)

// DefaultDarkFractionThreshold is the fraction of dark pixels inside the
// content band at which a page is considered dark enough to invert.
const DefaultDarkFractionThreshold = 0.7

// darkIntensityCutoff is the midpoint of an 8-bit channel; pixels below it
// count as dark.
const darkIntensityCutoff = 128

// ClassifyOptions holds the tunable parameters for darkness classification.
type ClassifyOptions struct {
	DarkFractionThreshold float64
	Band                  BandOptions
}

func applyClassifyDefaults(opts *ClassifyOptions) {
	if opts.DarkFractionThreshold <= 0 {
		opts.DarkFractionThreshold = DefaultDarkFractionThreshold
	}

	opts.Band.Mode = ModeContentDetection
}

// IsDark reports whether a page's content region is dark enough to warrant
// inversion.
//
// The judgment is restricted to the content band found in content detection
// mode, so uniform scan borders cannot skew the ratio: the band is converted
// to grayscale, each pixel below the 8-bit midpoint counts as dark, and the
// page is dark when the dark fraction reaches the threshold.
func IsDark(img image.Image, opts ClassifyOptions) (bool, error) {
	applyClassifyDefaults(&opts)

	band, bandErr := DetectContentBand(img, opts.Band)
	if bandErr != nil {
		return false, bandErr
	}

	pixels, width, _ := grayscalePixels(CropToBand(img, band))

	total := len(pixels)
	if total == 0 || width == 0 {
		return false, ErrEmptyImage
	}

	darkCount := 0

	for _, v := range pixels {
		if v < darkIntensityCutoff {
			darkCount++
		}
	}

	darkFraction := float64(darkCount) / float64(total)

	return darkFraction >= opts.DarkFractionThreshold, nil
}
