package pdfproc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	// defaultDirMode is the default permissions for created directories.
	defaultDirMode = 0o750

	// processedSuffix is appended to the input file stem when naming batch
	// outputs.
	processedSuffix = "_processed"
)

var (
	// ErrNotAPDF is returned when an input file does not carry a .pdf
	// extension.
	ErrNotAPDF = errors.New("input file must be a PDF")
	// ErrEmptyPDF is returned when an input PDF has no pages.
	ErrEmptyPDF = errors.New("pdf has zero pages")
)

// DiscoverPDFs finds all PDF files in a given directory, sorted by name.
// It performs a case-insensitive search and does not recurse into
// subdirectories.
func DiscoverPDFs(dirPath string) ([]string, error) {
	dirEntries, readErr := os.ReadDir(dirPath)
	if readErr != nil {
		return nil, fmt.Errorf(
			"could not read directory %s: %w",
			dirPath,
			readErr,
		)
	}

	var pdfPaths []string

	for _, entry := range dirEntries {
		if !entry.IsDir() &&
			strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {

			pdfPaths = append(pdfPaths, filepath.Join(dirPath, entry.Name()))
		}
	}

	// Page order within a document is significant; so is run order across
	// a batch.
	sort.Strings(pdfPaths)

	return pdfPaths, nil
}

// ValidateInputPDF checks that a path points at a structurally sound,
// non-empty PDF before any rasterization work starts.
func ValidateInputPDF(pdfPath string) error {
	if _, statErr := os.Stat(pdfPath); statErr != nil {
		return fmt.Errorf("input file not found: %w", statErr)
	}

	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		return fmt.Errorf("%s: %w", pdfPath, ErrNotAPDF)
	}

	if validateErr := api.ValidateFile(pdfPath, nil); validateErr != nil {
		return fmt.Errorf(
			"invalid or corrupted PDF %s: %w",
			pdfPath,
			validateErr,
		)
	}

	pageCount, countErr := api.PageCountFile(pdfPath)
	if countErr != nil {
		return fmt.Errorf("page count for %s: %w", pdfPath, countErr)
	}

	if pageCount == 0 {
		return fmt.Errorf("%s: %w", pdfPath, ErrEmptyPDF)
	}

	return nil
}

// EnsureOutputDirectory creates the output directory when missing.
func EnsureOutputDirectory(dirPath string) error {
	mkdirErr := os.MkdirAll(dirPath, defaultDirMode)
	if mkdirErr != nil {
		return fmt.Errorf(
			"failed to create output directory %s: %w",
			dirPath,
			mkdirErr,
		)
	}

	return nil
}

// OutputPathFor derives the batch output filename for one input PDF:
// '<outputDir>/<stem>_processed.pdf'.
func OutputPathFor(outputDir, pdfPath string) string {
	stem := fileStem(pdfPath)

	return filepath.Join(outputDir, stem+processedSuffix+".pdf")
}

// fileStem returns a path's base name with the extension stripped. The stamped
// overlay label is derived from the output file this way.
func fileStem(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}
