package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Sheet margins in pixels. A pair gets one margin on each side and three
// vertical margins (top, middle, bottom); a lone trailing page gets the whole
// budget split around it.
const (
	sheetMargin            = 40
	singlePageMarginBudget = 80
)

// CombinePages packs consecutive pages in pairs onto white sheets of the given
// pixel dimensions.
//
// Pages 0 and 1 share the first sheet, 2 and 3 the second, and so on; an odd
// trailing page is centered alone on its own sheet. Each page is resized to
// fit its allotted region and horizontally centered. Fewer than two pages is a
// no-op: the input slice is returned unchanged.
func CombinePages(
	pages []image.Image,
	sheetWidth, sheetHeight int,
) ([]image.Image, error) {
	if len(pages) < 2 {
		return pages, nil
	}

	if sheetWidth <= 0 || sheetHeight <= 0 {
		return nil, fmt.Errorf(
			"combine onto %dx%d sheet: %w",
			sheetWidth,
			sheetHeight,
			ErrInvalidTargetSize,
		)
	}

	combined := make([]image.Image, 0, (len(pages)+1)/2)

	for i := 0; i < len(pages); i += 2 {
		if i+1 >= len(pages) {
			sheet, singleErr := composeSingle(
				pages[i],
				sheetWidth,
				sheetHeight,
			)
			if singleErr != nil {
				return nil, singleErr
			}

			combined = append(combined, sheet)

			break
		}

		sheet, pairErr := composePair(
			pages[i],
			pages[i+1],
			sheetWidth,
			sheetHeight,
		)
		if pairErr != nil {
			return nil, pairErr
		}

		combined = append(combined, sheet)
	}

	return combined, nil
}

// composeSingle centers one page on its own sheet.
func composeSingle(page image.Image, sheetWidth, sheetHeight int) (image.Image, error) {
	resized, resizeErr := ResizeToFit(
		page,
		sheetWidth-singlePageMarginBudget,
		sheetHeight-singlePageMarginBudget,
		true,
	)
	if resizeErr != nil {
		return nil, fmt.Errorf("fit single page: %w", resizeErr)
	}

	sheet := newSheet(sheetWidth, sheetHeight)

	offsetX := (sheetWidth - resized.Bounds().Dx()) / 2
	offsetY := (sheetHeight - resized.Bounds().Dy()) / 2

	return imaging.Paste(sheet, resized, image.Pt(offsetX, offsetY)), nil
}

// composePair stacks two pages vertically on one sheet.
func composePair(
	top, bottom image.Image,
	sheetWidth, sheetHeight int,
) (image.Image, error) {
	availableWidth := sheetWidth - 2*sheetMargin
	availableHeight := (sheetHeight - 3*sheetMargin) / 2

	resizedTop, topErr := ResizeToFit(top, availableWidth, availableHeight, true)
	if topErr != nil {
		return nil, fmt.Errorf("fit top page: %w", topErr)
	}

	resizedBottom, bottomErr := ResizeToFit(
		bottom,
		availableWidth,
		availableHeight,
		true,
	)
	if bottomErr != nil {
		return nil, fmt.Errorf("fit bottom page: %w", bottomErr)
	}

	sheet := newSheet(sheetWidth, sheetHeight)

	topX := (sheetWidth - resizedTop.Bounds().Dx()) / 2
	sheet = imaging.Paste(sheet, resizedTop, image.Pt(topX, sheetMargin))

	bottomX := (sheetWidth - resizedBottom.Bounds().Dx()) / 2
	bottomY := sheetMargin + availableHeight + sheetMargin
	sheet = imaging.Paste(sheet, resizedBottom, image.Pt(bottomX, bottomY))

	return sheet, nil
}

func newSheet(width, height int) *image.NRGBA {
	return imaging.New(width, height, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}
