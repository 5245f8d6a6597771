// Package tesseract recognizes receipt text with a local Tesseract install.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer wraps one gosseract client. Calls are serialised because the
// underlying client is not safe for concurrent use.
type Recognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a Recognizer for the given tesseract language (for example
// "por").
func New(lang string) (*Recognizer, error) {
	client := gosseract.NewClient()
	if lang == "" {
		lang = "por"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract language %q: %w", lang, err)
	}
	// receipts are a single column of text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_COLUMN); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract page mode: %w", err)
	}
	return &Recognizer{client: client}, nil
}

// Recognize runs OCR over img.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

// Close frees the tesseract client.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
