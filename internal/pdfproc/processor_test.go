package pdfproc_test

import (
	"context"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/book-expert/logger"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/greenboard-print-service/internal/pdfproc"
)

// fakeDecoder serves a fixed page sequence for any input path.
type fakeDecoder struct {
	pages []image.Image
	err   error
}

func (f *fakeDecoder) DecodePages(
	_ context.Context,
	_ string,
	_ int,
) ([]image.Image, error) {
	return f.pages, f.err
}

// fakeEncoder records what it was asked to write.
type fakeEncoder struct {
	pages      []image.Image
	dpi        int
	outputPath string
	err        error
}

func (f *fakeEncoder) EncodePDF(
	pages []image.Image,
	dpi int,
	outputPath string,
) error {
	f.pages = pages
	f.dpi = dpi
	f.outputPath = outputPath

	return f.err
}

func acceptAnyPDF(string) error { return nil }

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	return log
}

func solidPage(width, height int, fill color.NRGBA) image.Image {
	return imaging.New(width, height, fill)
}

var (
	pageBlack = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	pageWhite = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func TestNewProcessor_Defaults(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)

	t.Run("Zero values should default correctly", func(t *testing.T) {
		t.Parallel()

		processor := pdfproc.NewProcessor(&pdfproc.Options{}, log)
		cfg := processor.ConfigForTest()
		assert.Equal(t, 200, cfg.DPI)
		assert.Equal(t, runtime.NumCPU(), cfg.Workers)
		assert.Equal(t, io.Writer(os.Stdout), cfg.ProgressBarOutput)
	})

	t.Run("Custom values should be preserved", func(t *testing.T) {
		t.Parallel()

		processor := pdfproc.NewProcessor(&pdfproc.Options{
			DPI:     300,
			Workers: 4,
		}, log)
		cfg := processor.ConfigForTest()
		assert.Equal(t, 300, cfg.DPI)
		assert.Equal(t, 4, cfg.Workers)
	})
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)

	proc := pdfproc.NewProcessor(&pdfproc.Options{}, log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), pdfproc.ErrInputPathRequired)

	proc = pdfproc.NewProcessor(&pdfproc.Options{InputPath: "in"}, log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), pdfproc.ErrOutputPathRequired)

	proc = pdfproc.NewProcessor(
		&pdfproc.Options{InputPath: "in", OutputPath: "out"},
		log,
	)
	require.NoError(t, proc.ValidateConfigForTest())
}

func TestProcessOnePDF_WithFakes(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)

	t.Run("Pages flow through the pipeline in order", func(t *testing.T) {
		t.Parallel()

		decoder := &fakeDecoder{pages: []image.Image{
			solidPage(100, 140, pageBlack),
			solidPage(100, 140, pageWhite),
		}}
		encoder := &fakeEncoder{}

		processor := pdfproc.NewProcessor(&pdfproc.Options{
			ProgressBarOutput: io.Discard,
			InputPath:         "in",
			OutputPath:        "out",
			DPI:               20,
			Workers:           2,
		}, log)
		processor.SetCodecForTest(decoder, encoder, acceptAnyPDF)

		outputPath := filepath.Join(t.TempDir(), "notes_processed.pdf")
		err := processor.ProcessOnePDF(context.Background(), "notes.pdf", outputPath)
		require.NoError(t, err)

		require.Len(t, encoder.pages, 2)
		assert.Equal(t, 20, encoder.dpi)
		assert.Equal(t, outputPath, encoder.outputPath)

		// The dark page was inverted to near-white; the light page kept
		// its background. Both carry an overlay, so sample away from the
		// bottom-right corner.
		first, ok := encoder.pages[0].(*image.NRGBA)
		require.True(t, ok)
		assert.Equal(
			t,
			color.NRGBA{R: 242, G: 242, B: 242, A: 255},
			first.NRGBAAt(10, 10),
		)

		second, ok := encoder.pages[1].(*image.NRGBA)
		require.True(t, ok)
		assert.Equal(t, pageWhite, second.NRGBAAt(10, 10))
	})

	t.Run("Combining three pages yields two sheets", func(t *testing.T) {
		t.Parallel()

		decoder := &fakeDecoder{pages: []image.Image{
			solidPage(100, 140, pageWhite),
			solidPage(100, 140, pageWhite),
			solidPage(100, 140, pageWhite),
		}}
		encoder := &fakeEncoder{}

		processor := pdfproc.NewProcessor(&pdfproc.Options{
			ProgressBarOutput: io.Discard,
			InputPath:         "in",
			OutputPath:        "out",
			DPI:               20,
			Workers:           1,
			CombinePages:      true,
		}, log)
		processor.SetCodecForTest(decoder, encoder, acceptAnyPDF)

		outputPath := filepath.Join(t.TempDir(), "notes_processed.pdf")
		err := processor.ProcessOnePDF(context.Background(), "notes.pdf", outputPath)
		require.NoError(t, err)

		// Sheets are A4 at 20 DPI: round(8.27*20) x round(11.69*20).
		require.Len(t, encoder.pages, 2)

		for _, sheet := range encoder.pages {
			assert.Equal(t, 165, sheet.Bounds().Dx())
			assert.Equal(t, 234, sheet.Bounds().Dy())
		}
	})

	t.Run("Empty page sequence is an error", func(t *testing.T) {
		t.Parallel()

		processor := pdfproc.NewProcessor(&pdfproc.Options{
			ProgressBarOutput: io.Discard,
			InputPath:         "in",
			OutputPath:        "out",
		}, log)
		processor.SetCodecForTest(&fakeDecoder{}, &fakeEncoder{}, acceptAnyPDF)

		err := processor.ProcessOnePDF(context.Background(), "notes.pdf", "out.pdf")
		require.ErrorIs(t, err, pdfproc.ErrEmptyPDF)
	})
}

func TestProcessPages_ErrorCarriesPageIndex(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)

	processor := pdfproc.NewProcessor(&pdfproc.Options{
		ProgressBarOutput: io.Discard,
		InputPath:         "in",
		OutputPath:        "out",
		Workers:           1,
	}, log)

	pages := []image.Image{
		solidPage(60, 80, pageWhite),
		solidPage(0, 0, pageWhite), // malformed: zero pixels
	}

	_, err := processor.ProcessPagesForTest(context.Background(), pages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
}

func TestProcessAllPDFs_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)

	decoder := &fakeDecoder{pages: []image.Image{solidPage(50, 70, pageWhite)}}
	encoder := &fakeEncoder{}

	processor := pdfproc.NewProcessor(&pdfproc.Options{
		ProgressBarOutput: io.Discard,
		InputPath:         "in",
		OutputPath:        t.TempDir(),
		Workers:           1,
	}, log)

	// The first file fails validation; the batch must still reach the
	// second one.
	rejected := map[string]bool{"bad.pdf": true}
	processor.SetCodecForTest(decoder, encoder, func(path string) error {
		if rejected[filepath.Base(path)] {
			return os.ErrNotExist
		}

		return nil
	})

	err := processor.ProcessAllPDFsForTest(
		context.Background(),
		[]string{"bad.pdf", "good.pdf"},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, encoder.pages)
}

func TestProcessAllPDFs_HonorsCancellation(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)

	processor := pdfproc.NewProcessor(&pdfproc.Options{
		ProgressBarOutput: io.Discard,
		InputPath:         "in",
		OutputPath:        "out",
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := processor.ProcessAllPDFsForTest(ctx, []string{"a.pdf"})
	require.ErrorIs(t, err, context.Canceled)
}
