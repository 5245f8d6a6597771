// Package engines builds the configured text recognizer.
package engines

import (
	"context"
	"fmt"
	"strings"

	"smartreceipts/pkg/config"
	"smartreceipts/pkg/ocr"
	"smartreceipts/pkg/ocr/gemini"
	"smartreceipts/pkg/ocr/tesseract"
)

// New returns the recognizer named by cfg.Engine ("tesseract" or "gemini").
func New(ctx context.Context, cfg config.OCR) (ocr.Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "tesseract":
		rec, err := tesseract.New(cfg.TesseractLang)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case "gemini":
		rec, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}
}

// NewScanner builds the recognizer and wraps it in a Scanner using the
// configured preprocessing options.
func NewScanner(ctx context.Context, cfg config.OCR) (*ocr.Scanner, error) {
	rec, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ocr.NewScanner(rec, ocr.WithPreprocess(cfg.Preprocess())), nil
}
