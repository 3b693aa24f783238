package pdfproc

import (
	"context"
	"image"
)

// Exported test-only accessors for unexported functions and fields.
// This file is compiled only during tests and does not affect the public API.

// ConfigForTest returns a copy of the processor configuration for assertions
// in tests.
func (processor *Processor) ConfigForTest() Options { return processor.config }

// ValidateConfigForTest exposes validateConfig for tests in external package.
func (processor *Processor) ValidateConfigForTest() error {
	return processor.validateConfig()
}

// DiscoverInputPDFsForTest exposes discoverInputPDFs for tests in external
// package.
func (processor *Processor) DiscoverInputPDFsForTest() ([]string, error) {
	return processor.discoverInputPDFs()
}

// SetCodecForTest injects fake decode/encode/validate collaborators.
func (processor *Processor) SetCodecForTest(
	decoder PageDecoder,
	encoder DocumentEncoder,
	validate func(string) error,
) {
	if decoder != nil {
		processor.decoder = decoder
	}

	if encoder != nil {
		processor.encoder = encoder
	}

	if validate != nil {
		processor.validate = validate
	}
}

// ProcessPagesForTest exposes the page worker pool for focused tests.
func (processor *Processor) ProcessPagesForTest(
	ctx context.Context,
	pages []image.Image,
) ([]image.Image, error) {
	return processor.processPages(ctx, pages)
}

// NewGopdfEncoderForTest returns the production encoder for tests in external
// package.
func NewGopdfEncoderForTest() DocumentEncoder { return gopdfEncoder{} }

// ProcessAllPDFsForTest exposes the batch loop for focused tests.
func (processor *Processor) ProcessAllPDFsForTest(
	ctx context.Context,
	paths []string,
) error {
	return processor.processAllPDFs(ctx, paths)
}
