package imgload

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(1, 1, color.NRGBA{10, 20, 30, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	img, err := Decode(pngBytes(t, 4, 3))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 2, 2), 0o644))
	img, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())

	_, err = Open(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestSniffing(t *testing.T) {
	assert.True(t, isPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, isPDF([]byte("PDF")))

	heif := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
	assert.True(t, isHEIC(heif))
	mp4 := append([]byte{0, 0, 0, 24}, []byte("ftypisom")...)
	assert.False(t, isHEIC(mp4))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("nota.JPG"))
	assert.True(t, Supported("scan.pdf"))
	assert.True(t, Supported("IMG_0001.HEIC"))
	assert.False(t, Supported("notes.txt"))
	assert.False(t, Supported("nota.ocr.png"))
	assert.Equal(t, "image/jpeg", MimeFromExt("a.jpeg"))
	assert.Equal(t, "application/octet-stream", MimeFromExt("a.bin"))
}
