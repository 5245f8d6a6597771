// Package preprocess prepares photographed receipts for text recognition.
//
// Every transform takes any image.Image and returns a new *image.NRGBA whose
// bounds start at (0,0). Inputs are never modified.
package preprocess

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Options tunes the OCR pipeline run by Run.
type Options struct {
	// MinSize is the minimum length of the shorter side before recognition.
	MinSize int
	// Contrast is the linear contrast scale, 1.0 leaves the image unchanged.
	Contrast float64
	// BlockSize is the adaptive threshold window (pixels per side).
	BlockSize int
	// Constant is subtracted from the local mean before comparing.
	Constant int
	// SharpenStrength weights the Laplacian sharpening kernel.
	SharpenStrength float64
	// MedianRadius enables a median filter before grayscale when > 0.
	MedianRadius int
}

// DefaultOptions returns the settings used for phone photos of NFC-e receipts.
func DefaultOptions() Options {
	return Options{
		MinSize:         1200,
		Contrast:        1.5,
		BlockSize:       15,
		Constant:        10,
		SharpenStrength: 1.0,
	}
}

// ForOCR runs the standard pipeline with DefaultOptions.
func ForOCR(img image.Image) *image.NRGBA {
	return Run(img, DefaultOptions())
}

// Run scales, cleans and binarizes img: scale, optional median, grayscale,
// contrast, adaptive threshold and sharpen, in that order.
func Run(img image.Image, opts Options) *image.NRGBA {
	out := ScaleIfNeeded(img, opts.MinSize)
	if opts.MedianRadius > 0 {
		out = MedianFilter(out, opts.MedianRadius)
	}
	out = Grayscale(out)
	out = AdjustContrast(out, opts.Contrast)
	out = AdaptiveThreshold(out, opts.BlockSize, opts.Constant)
	return Sharpen(out, opts.SharpenStrength)
}

// ScaleIfNeeded upscales img so its shorter side is at least minSize,
// preserving the aspect ratio. Images already large enough, and empty
// images, are returned as an unchanged copy.
func ScaleIfNeeded(img image.Image, minSize int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	short := w
	if h < short {
		short = h
	}
	if short <= 0 || short >= minSize {
		return imaging.Clone(img)
	}
	scale := float64(minSize) / float64(short)
	nw, nh := minSize, minSize
	if w < h {
		nh = int(math.Round(float64(h) * scale))
	} else {
		nw = int(math.Round(float64(w) * scale))
	}
	if nw < minSize {
		nw = minSize
	}
	if nh < minSize {
		nh = minSize
	}
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}
