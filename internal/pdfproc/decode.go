// Package pdfproc drives the batch conversion of greenboard PDFs into
// printer-friendly PDFs: it discovers and validates input files, rasterizes
// their pages, runs each page through the inversion pipeline and encodes the
// results.
package pdfproc

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// PageDecoder rasterizes the pages of a PDF document. The interface exists so
// tests can drive the processor without MuPDF.
type PageDecoder interface {
	// DecodePages renders every page of the PDF at the given DPI, in page
	// order.
	DecodePages(ctx context.Context, pdfPath string, dpi int) ([]image.Image, error)
}

// fitzDecoder is the production PageDecoder backed by MuPDF.
type fitzDecoder struct{}

// DecodePages opens the document and renders each page to an RGBA raster.
func (fitzDecoder) DecodePages(
	ctx context.Context,
	pdfPath string,
	dpi int,
) ([]image.Image, error) {
	document, openErr := fitz.New(pdfPath)
	if openErr != nil {
		return nil, fmt.Errorf("open %s: %w", pdfPath, openErr)
	}

	defer func() { _ = document.Close() }()

	pageCount := document.NumPage()
	pages := make([]image.Image, 0, pageCount)

	for pageIndex := range pageCount {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("decode canceled: %w", ctxErr)
		}

		page, renderErr := document.ImageDPI(pageIndex, float64(dpi))
		if renderErr != nil {
			return nil, fmt.Errorf(
				"render page %d: %w",
				pageIndex+1,
				renderErr,
			)
		}

		pages = append(pages, page)
	}

	return pages, nil
}
