// Package ocr chains decoding, preprocessing, text recognition and NFC-e
// parsing into a single scan.
package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"smartreceipts/pkg/applog"
	"smartreceipts/pkg/imgload"
	"smartreceipts/pkg/nfce"
	"smartreceipts/pkg/preprocess"
)

// Recognizer turns a preprocessed receipt image into plain text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// Scanner runs the full receipt pipeline. It is safe for concurrent use when
// its Recognizer is.
type Scanner struct {
	rec    Recognizer
	opts   preprocess.Options
	parser *nfce.Parser
}

// Option customises a Scanner.
type Option func(*Scanner)

// WithPreprocess overrides the preprocessing options.
func WithPreprocess(opts preprocess.Options) Option {
	return func(s *Scanner) { s.opts = opts }
}

// WithParser overrides the receipt parser.
func WithParser(p *nfce.Parser) Option {
	return func(s *Scanner) { s.parser = p }
}

// NewScanner returns a Scanner using rec for recognition.
func NewScanner(rec Recognizer, options ...Option) *Scanner {
	s := &Scanner{
		rec:    rec,
		opts:   preprocess.DefaultOptions(),
		parser: nfce.DefaultParser(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// ScanFile decodes the image at path and scans it.
func (s *Scanner) ScanFile(ctx context.Context, path string) (nfce.Receipt, error) {
	img, err := imgload.Open(path)
	if err != nil {
		return nfce.Receipt{}, fmt.Errorf("%w: %s: %v", ErrImageLoadFailed, path, err)
	}
	return s.ScanImage(ctx, img)
}

// ScanBytes decodes an uploaded payload and scans it.
func (s *Scanner) ScanBytes(ctx context.Context, data []byte) (nfce.Receipt, error) {
	img, err := imgload.Decode(data)
	if err != nil {
		return nfce.Receipt{}, fmt.Errorf("%w: %v", ErrImageLoadFailed, err)
	}
	return s.ScanImage(ctx, img)
}

// ScanImage preprocesses img, recognizes its text and parses the receipt.
func (s *Scanner) ScanImage(ctx context.Context, img image.Image) (nfce.Receipt, error) {
	log := applog.ForContext(ctx)

	start := time.Now()
	prepared := preprocess.Run(img, s.opts)
	log.WithFields(logrus.Fields{
		"width":   prepared.Bounds().Dx(),
		"height":  prepared.Bounds().Dy(),
		"elapsed": time.Since(start).String(),
	}).Debug("scan: preprocessed")

	start = time.Now()
	text, err := s.rec.Recognize(ctx, prepared)
	if err != nil {
		return nfce.Receipt{}, fmt.Errorf("%w: %v", ErrTextRecognitionFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return nfce.Receipt{}, ErrNoTextFound
	}
	log.WithFields(logrus.Fields{
		"chars":   len(text),
		"snippet": snippet(normalizeText(text), 120),
		"elapsed": time.Since(start).String(),
	}).Debug("scan: recognized")

	r := s.parser.Parse(text)
	log.WithFields(logrus.Fields{
		"store": r.StoreName,
		"items": len(r.Items),
		"total": r.TotalAmount,
	}).Info("scan: parsed receipt")
	return r, nil
}

// ParseText parses already recognized text. Blank text is rejected with
// ErrEmptyText.
func (s *Scanner) ParseText(text string) (nfce.Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nfce.Receipt{}, ErrEmptyText
	}
	return s.parser.Parse(text), nil
}

// Close releases the recognizer.
func (s *Scanner) Close() error {
	return s.rec.Close()
}
