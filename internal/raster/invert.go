package raster

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Default post-inversion adjustment tuning. Contrast is boosted to sharpen
// inverted chalk strokes and brightness is pulled back slightly to offset the
// highlights the boost blows out.
const (
	DefaultContrastFactor    = 1.2
	DefaultBrightnessFactor  = 0.95
	DefaultBarRemovalMargin  = 5
	DefaultBarMinHeightRatio = 0.6
)

// contrastMidpoint is the fixed pivot of the contrast adjustment.
const contrastMidpoint = 128.0

// ProcessOptions holds the tunable parameters for the per-page inversion
// pipeline.
type ProcessOptions struct {
	Classify         ClassifyOptions
	BarRemoval       BandOptions
	ContrastFactor   float64
	BrightnessFactor float64
}

func applyProcessDefaults(opts *ProcessOptions) {
	opts.BarRemoval.Mode = ModeBlackBarRemoval

	if opts.BarRemoval.Margin <= 0 {
		opts.BarRemoval.Margin = DefaultBarRemovalMargin
	}

	if opts.BarRemoval.MinHeightRatio <= 0 {
		opts.BarRemoval.MinHeightRatio = DefaultBarMinHeightRatio
	}

	if opts.ContrastFactor <= 0 {
		opts.ContrastFactor = DefaultContrastFactor
	}

	if opts.BrightnessFactor <= 0 {
		opts.BrightnessFactor = DefaultBrightnessFactor
	}
}

// ProcessPage runs the inversion pipeline for one page.
//
// The page is normalized to 3-channel color and classified; pages that are not
// dark (whiteboard or paper scans) are returned pixel-identical. Dark pages
// are inverted, cropped to remove the black bars inversion leaves where the
// scan missed the board, then contrast-boosted and slightly darkened.
func ProcessPage(img image.Image, opts ProcessOptions) (*image.NRGBA, error) {
	applyProcessDefaults(&opts)

	// Clone normalizes any source color mode to NRGBA without touching
	// pixel values.
	page := imaging.Clone(img)

	dark, classifyErr := IsDark(page, opts.Classify)
	if classifyErr != nil {
		return nil, fmt.Errorf("darkness classification: %w", classifyErr)
	}

	if !dark {
		return page, nil
	}

	inverted := InvertColors(page)

	band, bandErr := DetectContentBand(inverted, opts.BarRemoval)
	if bandErr != nil {
		return nil, fmt.Errorf("black bar removal: %w", bandErr)
	}

	cropped := CropToBand(inverted, band)

	adjustContrast(cropped, opts.ContrastFactor)
	adjustBrightness(cropped, opts.BrightnessFactor)

	return cropped, nil
}

// InvertColors returns a copy of the image with every color channel value v
// replaced by 255-v. Alpha is preserved, so inverting twice restores the
// original pixel values exactly.
func InvertColors(img image.Image) *image.NRGBA {
	return imaging.Invert(img)
}

// adjustContrast rescales every color channel around the fixed midpoint:
// out = clamp(128 + (in-128)*factor). The published midpoint is 128, not the
// 127.5 center most libraries pivot on, which is why this is a lookup table
// rather than a call into the imaging package.
func adjustContrast(img *image.NRGBA, factor float64) {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clampToByte(
			contrastMidpoint + (float64(i)-contrastMidpoint)*factor,
		)
	}

	applyChannelLUT(img, &lut)
}

// adjustBrightness scales every color channel multiplicatively:
// out = clamp(in*factor).
func adjustBrightness(img *image.NRGBA, factor float64) {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clampToByte(float64(i) * factor)
	}

	applyChannelLUT(img, &lut)
}

// applyChannelLUT maps R, G and B through the table, leaving alpha alone.
func applyChannelLUT(img *image.NRGBA, lut *[256]uint8) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = lut[img.Pix[i]]
		img.Pix[i+1] = lut[img.Pix[i+1]]
		img.Pix[i+2] = lut[img.Pix[i+2]]
	}
}

func clampToByte(v float64) uint8 {
	rounded := math.Round(v)
	if rounded < 0 {
		return 0
	}

	if rounded > 255 {
		return 255
	}

	return uint8(rounded)
}
