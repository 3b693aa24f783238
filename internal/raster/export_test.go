package raster

import "image"

// Exported test-only accessors for unexported functions.
// This file is compiled only during tests and does not affect the public API.

// AdjustContrastForTest exposes adjustContrast for tests in external package.
func AdjustContrastForTest(img *image.NRGBA, factor float64) {
	adjustContrast(img, factor)
}

// AdjustBrightnessForTest exposes adjustBrightness for tests in external
// package.
func AdjustBrightnessForTest(img *image.NRGBA, factor float64) {
	adjustBrightness(img, factor)
}

// EnsureMinimumHeightForTest exposes ensureMinimumHeight for tests in external
// package.
func EnsureMinimumHeightForTest(band Band, height int, ratio float64) Band {
	return ensureMinimumHeight(band, height, ratio)
}

// RowStatsForTest exposes rowStats for tests in external package.
func RowStatsForTest(pixels []uint8, width, row int) (float64, float64) {
	return rowStats(pixels, width, row)
}
