package pdfproc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/book-expert/logger"
	"github.com/cheggaaa/pb/v3"

	"github.com/book-expert/greenboard-print-service/internal/raster"
)

var (
	// ErrInputPathRequired is returned when input path is not provided.
	ErrInputPathRequired = errors.New("input path is required")
	// ErrOutputPathRequired is returned when output path is not provided.
	ErrOutputPathRequired = errors.New("output path is required")
)

// Options holds all configurable parameters for a Processor.
// This struct is used to initialize a new Processor with user-defined settings.
type Options struct {
	ProgressBarOutput     io.Writer
	InputPath             string
	OutputPath            string
	Label                 string
	FontPaths             []string
	DPI                   int
	Workers               int
	CombinePages          bool
	DarkFractionThreshold float64
	VariationThreshold    float64
	BrightnessThreshold   float64
	BarMinHeightRatio     float64
	BarMargin             int
	NoBarsMaxMargin       int
}

// Processor encapsulates the logic for processing a batch of PDF files.
type Processor struct {
	decoder  PageDecoder
	encoder  DocumentEncoder
	validate func(string) error
	log      *logger.Logger
	config   Options
}

// NewProcessor creates and initializes a new Processor with the given options
// and logger. It sets sensible defaults for any zero-value fields in the
// Options struct.
func NewProcessor(opts *Options, log *logger.Logger) *Processor {
	applyDefaultOptions(opts)

	return &Processor{
		config:   *opts,
		log:      log,
		decoder:  fitzDecoder{},
		encoder:  gopdfEncoder{},
		validate: ValidateInputPDF,
	}
}

const defaultDPI = 200

// applyDefaultOptions fills zero-value fields in Options with sensible
// defaults. The raster package applies its own tuning defaults, so only the
// driver-level knobs are filled here.
func applyDefaultOptions(opts *Options) {
	opts.DPI = defaultIntNonPositive(opts.DPI, defaultDPI)
	opts.Workers = defaultIntNonPositive(opts.Workers, runtime.NumCPU())
	opts.ProgressBarOutput = defaultWriterNil(opts.ProgressBarOutput, os.Stdout)
}

func defaultIntNonPositive(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}

func defaultWriterNil(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}

	return w
}

// Process is the main entry point for converting a batch of PDFs.
// It discovers input PDFs and processes each file sequentially; a single
// file's failure is logged and the batch continues.
func (processor *Processor) Process(ctx context.Context) error {
	err := processor.validateConfig()
	if err != nil {
		return err
	}

	pdfPaths, err := processor.discoverInputPDFs()
	if err != nil {
		return err
	}

	setupErr := EnsureOutputDirectory(processor.config.OutputPath)
	if setupErr != nil {
		return setupErr
	}

	processor.log.Info("Found %d PDF(s) to process.", len(pdfPaths))

	return processor.processAllPDFs(ctx, pdfPaths)
}

// discoverInputPDFs discovers input PDFs and validates non-empty result.
func (processor *Processor) discoverInputPDFs() ([]string, error) {
	pdfPaths, discoveryErr := DiscoverPDFs(processor.config.InputPath)
	if discoveryErr != nil {
		return nil, fmt.Errorf("failed to discover PDFs: %w", discoveryErr)
	}

	if len(pdfPaths) == 0 {
		return nil, fmt.Errorf(
			"no PDF files found in %s: %w",
			processor.config.InputPath,
			os.ErrNotExist,
		)
	}

	return pdfPaths, nil
}

// validateConfig checks if the essential configuration options have been
// provided.
func (processor *Processor) validateConfig() error {
	if processor.config.InputPath == "" {
		return ErrInputPathRequired
	}

	if processor.config.OutputPath == "" {
		return ErrOutputPathRequired
	}

	return nil
}

// processAllPDFs iterates through a list of PDF file paths and processes each
// one, then logs a batch summary. It uses a progress bar to show the overall
// progress.
func (processor *Processor) processAllPDFs(ctx context.Context, pdfPaths []string) error {
	mainProgressBar := pb.New(len(pdfPaths)).
		SetTemplateString(`{{ bar . " " "━" "━" " " " "}} {{percent .}} {{rtime .}}`).
		SetWriter(processor.config.ProgressBarOutput).
		Start()
	defer mainProgressBar.Finish()

	failures := 0

	for _, pdfPath := range pdfPaths {
		mainProgressBar.Increment()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("batch canceled: %w", ctxErr)
		}

		processor.log.Info("Starting processing for: %s", filepath.Base(pdfPath))

		outputPath := OutputPathFor(processor.config.OutputPath, pdfPath)

		processErr := processor.ProcessOnePDF(ctx, pdfPath, outputPath)
		if processErr != nil {
			failures++

			processor.log.Error(
				"Failed to process %s: %v",
				filepath.Base(pdfPath),
				processErr,
			)
			// Continue to the next file even if one fails.
		} else {
			processor.log.Success(
				"Successfully processed %s -> %s",
				filepath.Base(pdfPath),
				filepath.Base(outputPath),
			)
		}
	}

	processor.log.Info(
		"Batch complete: %d processed, %d failed.",
		len(pdfPaths)-failures,
		failures,
	)

	return nil
}

// ProcessOnePDF converts a single PDF into its printer-friendly counterpart at
// outputPath.
func (processor *Processor) ProcessOnePDF(
	ctx context.Context,
	pdfPath, outputPath string,
) error {
	validateErr := processor.validate(pdfPath)
	if validateErr != nil {
		return validateErr
	}

	pages, decodeErr := processor.decoder.DecodePages(
		ctx,
		pdfPath,
		processor.config.DPI,
	)
	if decodeErr != nil {
		return fmt.Errorf("could not rasterize %s: %w", pdfPath, decodeErr)
	}

	if len(pages) == 0 {
		return fmt.Errorf("%s: %w", pdfPath, ErrEmptyPDF)
	}

	processor.log.Info("Processing %d page(s) of %s", len(pages), filepath.Base(pdfPath))

	processed, pipelineErr := processor.processPages(ctx, pages)
	if pipelineErr != nil {
		return pipelineErr
	}

	composed, composeErr := processor.composePages(processed)
	if composeErr != nil {
		return composeErr
	}

	stamped, overlayErr := processor.stampPages(composed, outputPath)
	if overlayErr != nil {
		return overlayErr
	}

	encodeErr := processor.encoder.EncodePDF(stamped, processor.config.DPI, outputPath)
	if encodeErr != nil {
		return fmt.Errorf("could not encode output PDF: %w", encodeErr)
	}

	return nil
}

// composePages packs page pairs onto A4 sheets when enabled.
func (processor *Processor) composePages(pages []image.Image) ([]image.Image, error) {
	if !processor.config.CombinePages {
		return pages, nil
	}

	sheetWidth, sheetHeight, sheetErr := raster.SheetSize(processor.config.DPI)
	if sheetErr != nil {
		return nil, fmt.Errorf("sheet geometry: %w", sheetErr)
	}

	combined, combineErr := raster.CombinePages(pages, sheetWidth, sheetHeight)
	if combineErr != nil {
		return nil, fmt.Errorf("could not combine pages: %w", combineErr)
	}

	return combined, nil
}

// stampPages overlays the source label and page counter on every page. The
// label defaults to the output file's stem.
func (processor *Processor) stampPages(
	pages []image.Image,
	outputPath string,
) ([]image.Image, error) {
	label := processor.config.Label
	if label == "" {
		label = fileStem(outputPath)
	}

	overlayOpts := raster.OverlayOptions{FontPaths: processor.config.FontPaths}
	stamped := make([]image.Image, len(pages))

	for pageIndex, page := range pages {
		withOverlay, overlayErr := raster.AddOverlay(
			page,
			label,
			pageIndex+1,
			len(pages),
			overlayOpts,
		)
		if overlayErr != nil {
			return nil, fmt.Errorf(
				"could not stamp page %d: %w",
				pageIndex+1,
				overlayErr,
			)
		}

		stamped[pageIndex] = withOverlay
	}

	return stamped, nil
}

// pipelineOptions translates driver configuration into the raster package's
// per-page tuning.
func (processor *Processor) pipelineOptions() raster.ProcessOptions {
	return raster.ProcessOptions{
		Classify: raster.ClassifyOptions{
			DarkFractionThreshold: processor.config.DarkFractionThreshold,
			Band: raster.BandOptions{
				Mode:               raster.ModeContentDetection,
				VariationThreshold: processor.config.VariationThreshold,
			},
		},
		BarRemoval: raster.BandOptions{
			Mode:                raster.ModeBlackBarRemoval,
			BrightnessThreshold: processor.config.BrightnessThreshold,
			MinHeightRatio:      processor.config.BarMinHeightRatio,
			Margin:              processor.config.BarMargin,
			NoBarsMaxMargin:     processor.config.NoBarsMaxMargin,
		},
		ContrastFactor:   0,
		BrightnessFactor: 0,
	}
}
