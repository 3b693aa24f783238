// Command detect-dark analyzes an image and exits with a code indicating
// whether its content region is dark enough to warrant inversion.
//
// Usage: detect-dark <filepath> [dark_fraction_threshold]
// - dark_fraction_threshold: minimum ratio of dark pixels inside the content
//   band to consider the page dark, in (0.0, 1.0] (default 0.7)
//
// Exit codes:
//
//	0 = dark page (would be inverted)
//	1 = light page (left untouched)
//	2 = error (bad args, cannot open/parse image, etc.)
package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Import the JPEG decoder.
	_ "image/png"  // Import the PNG decoder.
	"os"
	"strconv"

	"github.com/book-expert/greenboard-print-service/internal/raster"
)

var (
	ErrInvalidArguments = errors.New("invalid number of arguments")
	ErrInvalidThreshold = errors.New(
		"dark fraction threshold must be between 0.0 and 1.0",
	)
)

// arguments holds the parsed and validated command-line arguments.
type arguments struct {
	filePath  string
	threshold float64
}

// Exit codes used by this tool.
const (
	exitCodeDark  = 0 // The page is dark.
	exitCodeLight = 1 // The page is light.
	exitCodeError = 2 // An error occurred (e.g., bad arguments, file not found).

	minArgCount = 2
	maxArgCount = 3
)

func main() {
	args, err := parseAndValidateArguments(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Argument error: %v\n", err)
		os.Exit(exitCodeError)
	}

	dark, err := analyzeImage(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Image analysis error: %v\n", err)
		os.Exit(exitCodeError)
	}

	if dark {
		os.Exit(exitCodeDark)
	}

	os.Exit(exitCodeLight)
}

// parseAndValidateArguments processes the raw command-line arguments.
func parseAndValidateArguments(args []string) (arguments, error) {
	if len(args) < minArgCount || len(args) > maxArgCount {
		return arguments{}, fmt.Errorf(
			"usage: <program> <filepath> [dark_fraction_threshold]: %w",
			ErrInvalidArguments,
		)
	}

	parsed := arguments{
		filePath:  args[1],
		threshold: raster.DefaultDarkFractionThreshold,
	}

	if len(args) == maxArgCount {
		threshold, err := parseThreshold(args[2])
		if err != nil {
			return arguments{}, err
		}

		parsed.threshold = threshold
	}

	return parsed, nil
}

// parseThreshold parses and validates the dark fraction threshold string.
func parseThreshold(thresholdStr string) (float64, error) {
	threshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil {
		return 0, fmt.Errorf(
			"invalid dark fraction threshold '%s': %w",
			thresholdStr,
			err,
		)
	}

	if threshold <= 0 || threshold > 1.0 {
		return 0, fmt.Errorf(
			"dark fraction threshold must be in (0.0, 1.0], got %f: %w",
			threshold,
			ErrInvalidThreshold,
		)
	}

	return threshold, nil
}

// analyzeImage loads the image and classifies its content region.
func analyzeImage(args arguments) (bool, error) {
	img, err := loadImage(args.filePath)
	if err != nil {
		return false, err
	}

	return raster.IsDark(img, raster.ClassifyOptions{
		DarkFractionThreshold: args.threshold,
	})
}

// loadImage opens and decodes an image file.
func loadImage(filePath string) (image.Image, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", filePath, err)
	}

	defer func() {
		cerr := file.Close()
		if cerr != nil {
			_, _ = fmt.Fprintf(
				os.Stderr,
				"failed to close file %s: %v\n",
				filePath,
				cerr,
			)
		}
	}()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf(
			"could not decode image file %s: %w",
			filePath,
			err,
		)
	}

	return img, nil
}
