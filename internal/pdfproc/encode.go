package pdfproc

import (
	"errors"
	"fmt"
	"image"

	"github.com/signintech/gopdf"
)

// ErrNoPages is returned when an operation requiring at least one page
// receives an empty sequence.
var ErrNoPages = errors.New("no pages to encode")

// pointsPerInch converts pixel dimensions at a DPI into PDF points.
const pointsPerInch = 72.0

// DocumentEncoder writes a sequence of page images as a PDF document. The
// interface mirrors PageDecoder: tests swap in a fake.
type DocumentEncoder interface {
	EncodePDF(pages []image.Image, dpi int, outputPath string) error
}

// gopdfEncoder is the production DocumentEncoder.
type gopdfEncoder struct{}

// EncodePDF writes one PDF page per image. Each page's media box is sized so
// the raster prints at the DPI it was rendered at.
func (gopdfEncoder) EncodePDF(pages []image.Image, dpi int, outputPath string) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	if dpi <= 0 {
		return fmt.Errorf("encode at %d dpi: %w", dpi, errInvalidEncodeDPI)
	}

	document := gopdf.GoPdf{}
	document.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	for pageIndex, page := range pages {
		bounds := page.Bounds()
		widthPoints := float64(bounds.Dx()) * pointsPerInch / float64(dpi)
		heightPoints := float64(bounds.Dy()) * pointsPerInch / float64(dpi)

		pageSize := gopdf.Rect{W: widthPoints, H: heightPoints}
		document.AddPageWithOption(gopdf.PageOption{PageSize: &pageSize})

		drawErr := document.ImageFrom(page, 0, 0, &pageSize)
		if drawErr != nil {
			return fmt.Errorf(
				"draw page %d into %s: %w",
				pageIndex+1,
				outputPath,
				drawErr,
			)
		}
	}

	writeErr := document.WritePdf(outputPath)
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", outputPath, writeErr)
	}

	return nil
}

var errInvalidEncodeDPI = errors.New("dpi must be positive")
