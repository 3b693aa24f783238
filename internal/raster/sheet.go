// Package raster implements the raster pipeline that turns scanned greenboard
// pages into printer-friendly ones: darkness classification, conditional color
// inversion, content-bounded cropping, sheet composition and label stamping.
package raster

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDPI is returned when a sheet size is requested for a non-positive
// DPI value.
var ErrInvalidDPI = errors.New("dpi must be positive")

// A4 physical dimensions in inches.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
)

// SheetSize returns the pixel dimensions of an A4 sheet rendered at the given
// DPI. The result is always positive for a positive DPI.
func SheetSize(dpi int) (int, int, error) {
	if dpi <= 0 {
		return 0, 0, fmt.Errorf("sheet size at %d dpi: %w", dpi, ErrInvalidDPI)
	}

	width := int(math.Round(a4WidthInches * float64(dpi)))
	height := int(math.Round(a4HeightInches * float64(dpi)))

	return width, height, nil
}
