package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Overlay geometry and sizing. The font scales with the page so labels stay
// legible at any DPI.
const (
	overlayPadding      = 5
	overlayCornerMargin = 10
	fontHeightRatio     = 0.015
	minFontSize         = 12.0
	fontDPI             = 72
)

// overlayBoxColor is the semi-opaque light backing that keeps the text
// readable over non-uniform page content.
var overlayBoxColor = color.NRGBA{R: 255, G: 255, B: 255, A: 200}

// overlayTextColor is the label ink.
var overlayTextColor = color.NRGBA{R: 32, G: 32, B: 32, A: 255}

// OverlayOptions holds the tunable parameters for label stamping.
type OverlayOptions struct {
	// FontPaths is an ordered list of candidate font files. The first one
	// that loads wins; when none do, the embedded Go Regular face is used,
	// so stamping never fails for font reasons.
	FontPaths []string
}

// AddOverlay stamps two right-aligned lines near the bottom-right corner of
// the page: the source label above a "Page N/Total" counter, each on its own
// backing box.
func AddOverlay(
	img image.Image,
	label string,
	pageNum, totalPages int,
	opts OverlayOptions,
) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("overlay: %w", ErrEmptyImage)
	}

	fontSize := fontHeightRatio * float64(bounds.Dy())
	if fontSize < minFontSize {
		fontSize = minFontSize
	}

	face, faceErr := resolveFace(opts.FontPaths, fontSize)
	if faceErr != nil {
		return nil, fmt.Errorf("overlay: %w", faceErr)
	}
	defer func() { _ = face.Close() }()

	page := imaging.Clone(img)

	counter := fmt.Sprintf("Page %d/%d", pageNum, totalPages)
	lines := []string{label, counter}

	metrics := face.Metrics()
	boxHeight := metrics.Ascent.Ceil() + metrics.Descent.Ceil() + 2*overlayPadding

	// Stack the boxes upward from the bottom-right corner: the counter sits
	// lowest, the label directly above it.
	bottom := bounds.Dy() - overlayCornerMargin
	for i := len(lines) - 1; i >= 0; i-- {
		drawOverlayLine(page, lines[i], face, metrics, bottom-boxHeight)
		bottom -= boxHeight
	}

	return page, nil
}

// drawOverlayLine draws one backing box and its text, right-aligned against
// the page edge, with the box top at the given y offset.
func drawOverlayLine(
	page *image.NRGBA,
	text string,
	face font.Face,
	metrics font.Metrics,
	boxTop int,
) {
	drawer := &font.Drawer{
		Dst:  page,
		Src:  image.NewUniform(overlayTextColor),
		Face: face,
		Dot:  fixed.Point26_6{},
	}

	textWidth := drawer.MeasureString(text).Ceil()

	pageWidth := page.Bounds().Dx()
	boxRight := pageWidth - overlayCornerMargin
	boxLeft := boxRight - textWidth - 2*overlayPadding
	boxBottom := boxTop + metrics.Ascent.Ceil() + metrics.Descent.Ceil() +
		2*overlayPadding

	box := image.Rect(boxLeft, boxTop, boxRight, boxBottom)
	draw.Draw(page, box, image.NewUniform(overlayBoxColor), image.Point{}, draw.Over)

	drawer.Dot = fixed.Point26_6{
		X: fixed.I(boxLeft + overlayPadding),
		Y: fixed.I(boxTop + overlayPadding + metrics.Ascent.Ceil()),
	}
	drawer.DrawString(text)
}

// resolveFace walks the candidate font paths and falls back to the embedded
// Go Regular face.
func resolveFace(paths []string, size float64) (font.Face, error) {
	for _, path := range paths {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}

		parsed, parseErr := opentype.Parse(data)
		if parseErr != nil {
			continue
		}

		face, faceErr := newFace(parsed, size)
		if faceErr == nil {
			return face, nil
		}
	}

	fallback, parseErr := opentype.Parse(goregular.TTF)
	if parseErr != nil {
		return nil, fmt.Errorf("parse embedded fallback font: %w", parseErr)
	}

	return newFace(fallback, size)
}

func newFace(parsed *opentype.Font, size float64) (font.Face, error) {
	face, faceErr := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if faceErr != nil {
		return nil, fmt.Errorf("create font face: %w", faceErr)
	}

	return face, nil
}
