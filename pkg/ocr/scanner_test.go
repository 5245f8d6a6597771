package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartreceipts/pkg/preprocess"
	"smartreceipts/pkg/store"
)

type fakeRecognizer struct {
	mu     sync.Mutex
	text   string
	err    error
	seen   []image.Rectangle
	closed bool
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, img.Bounds())
	return f.text, f.err
}

func (f *fakeRecognizer) Close() error {
	f.closed = true
	return nil
}

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 20; x++ {
			img.SetNRGBA(x, y, color.NRGBA{200, 200, 190, 255})
		}
	}
	return img
}

func smallOpts() preprocess.Options {
	opts := preprocess.DefaultOptions()
	opts.MinSize = 40
	return opts
}

func TestScanImageParsesRecognizedText(t *testing.T) {
	rec := &fakeRecognizer{text: "SUPERMERCADO CONDOR\nCOD DESC\nLEITE INTEGRAL 4,79\nTOTAL R$ 4,79"}
	s := NewScanner(rec, WithPreprocess(smallOpts()))

	r, err := s.ScanImage(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "CONDOR", r.StoreName)
	assert.InDelta(t, 4.79, r.TotalAmount, 1e-9)
	require.Len(t, r.Items, 1)

	require.Len(t, rec.seen, 1)
	assert.Equal(t, 40, rec.seen[0].Dx(), "recognizer receives the upscaled image")
}

func TestScanImageNoText(t *testing.T) {
	s := NewScanner(&fakeRecognizer{text: " \n\t"}, WithPreprocess(smallOpts()))
	_, err := s.ScanImage(context.Background(), testImage())
	assert.ErrorIs(t, err, ErrNoTextFound)
	assert.Equal(t, "No text found in image", UserMessage(err))
}

func TestScanImageRecognizerFailure(t *testing.T) {
	s := NewScanner(&fakeRecognizer{err: errors.New("tesseract exploded")}, WithPreprocess(smallOpts()))
	_, err := s.ScanImage(context.Background(), testImage())
	assert.ErrorIs(t, err, ErrTextRecognitionFailed)
	assert.Contains(t, err.Error(), "tesseract exploded")
}

func TestScanBytesRejectsGarbage(t *testing.T) {
	s := NewScanner(&fakeRecognizer{text: "x"})
	_, err := s.ScanBytes(context.Background(), []byte("not an image"))
	assert.ErrorIs(t, err, ErrImageLoadFailed)
	assert.Equal(t, "Failed to load image", UserMessage(err))
}

func TestParseText(t *testing.T) {
	s := NewScanner(&fakeRecognizer{})
	_, err := s.ParseText("   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	r, err := s.ParseText("TOTAL R$ 20,37")
	require.NoError(t, err)
	assert.InDelta(t, 20.37, r.TotalAmount, 1e-9)
}

func TestUserMessageUnknown(t *testing.T) {
	assert.Equal(t, "Unknown error", UserMessage(errors.New("boom")))
	assert.Equal(t, "", UserMessage(nil))
}

func TestCloseClosesRecognizer(t *testing.T) {
	rec := &fakeRecognizer{}
	require.NoError(t, NewScanner(rec).Close())
	assert.True(t, rec.closed)
}

func TestUserMessageStoreErrors(t *testing.T) {
	assert.Equal(t, "Receipt not found", UserMessage(store.ErrNotFound))
	assert.Equal(t, "Failed to save receipt", UserMessage(fmt.Errorf("%w: disk full", store.ErrSaveFailed)))
}
