package pdfproc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/greenboard-print-service/internal/pdfproc"
)

func TestDiscoverPDFs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte(""), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.PDF"), []byte(""), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte(""), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o750))

	files, err := pdfproc.DiscoverPDFs(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Sorted by name for a deterministic batch order.
	assert.Equal(t, filepath.Join(dir, "a.PDF"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.pdf"), files[1])
}

func TestDiscoverPDFs_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := pdfproc.DiscoverPDFs(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestOutputPathFor(t *testing.T) {
	t.Parallel()

	got := pdfproc.OutputPathFor("/out", "/in/lecture01.pdf")
	assert.Equal(t, filepath.Join("/out", "lecture01_processed.pdf"), got)

	got = pdfproc.OutputPathFor("/out", "notes.PDF")
	assert.Equal(t, filepath.Join("/out", "notes_processed.pdf"), got)
}

func TestEnsureOutputDirectory(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "deep", "out")
	require.NoError(t, pdfproc.EnsureOutputDirectory(target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestValidateInputPDF(t *testing.T) {
	t.Parallel()

	t.Run("Missing file", func(t *testing.T) {
		t.Parallel()

		err := pdfproc.ValidateInputPDF(filepath.Join(t.TempDir(), "gone.pdf"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Wrong extension", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))

		err := pdfproc.ValidateInputPDF(path)
		require.ErrorIs(t, err, pdfproc.ErrNotAPDF)
	})

	t.Run("Corrupted PDF", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "broken.pdf")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

		err := pdfproc.ValidateInputPDF(path)
		require.Error(t, err)
	})
}

func TestEncodePDF_EmptySequence(t *testing.T) {
	t.Parallel()

	encoder := pdfproc.NewGopdfEncoderForTest()

	err := encoder.EncodePDF(nil, 200, "out.pdf")
	require.ErrorIs(t, err, pdfproc.ErrNoPages)
}
