package raster_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
)

// solidImage builds a uniform NRGBA image of the given size and color.
func solidImage(width, height int, fill color.NRGBA) *image.NRGBA {
	return imaging.New(width, height, fill)
}

// fillRows paints the rows [top, bottom) of an image with a color.
func fillRows(img *image.NRGBA, top, bottom int, fill color.NRGBA) {
	for y := top; y < bottom; y++ {
		for x := range img.Bounds().Dx() {
			img.SetNRGBA(x, y, fill)
		}
	}
}

// checkerRows paints the rows [top, bottom) with alternating black and white
// columns, producing maximal per-row variation.
func checkerRows(img *image.NRGBA, top, bottom int) {
	black := color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	for y := top; y < bottom; y++ {
		for x := range img.Bounds().Dx() {
			if x%2 == 0 {
				img.SetNRGBA(x, y, black)
			} else {
				img.SetNRGBA(x, y, white)
			}
		}
	}
}

// assertUniformColor samples a handful of interior pixels and asserts they all
// match the expected color exactly.
func assertUniformColor(t *testing.T, img *image.NRGBA, want color.NRGBA) {
	t.Helper()

	bounds := img.Bounds()
	points := []image.Point{
		{X: bounds.Dx() / 2, Y: bounds.Dy() / 2},
		{X: bounds.Dx() / 4, Y: bounds.Dy() / 4},
		{X: 3 * bounds.Dx() / 4, Y: 3 * bounds.Dy() / 4},
	}

	for _, pt := range points {
		assert.Equal(t, want, img.NRGBAAt(pt.X, pt.Y), "pixel at %v", pt)
	}
}

var (
	testBlack = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	testWhite = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	testRed   = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	testGreen = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	testBlue  = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
)
