package preprocess

import (
	"image"
	"image/color"
	"slices"

	"github.com/disintegration/imaging"
)

// Grayscale converts img to luminance (0.299 R + 0.587 G + 0.114 B).
// Applying it to an already gray image is a no-op.
func Grayscale(img image.Image) *image.NRGBA {
	return imaging.Grayscale(img)
}

// AdjustContrast applies out = in*scale + (0.5-0.5*scale)*255 to each RGB
// channel, clamped to [0,255]. Alpha is kept.
func AdjustContrast(img image.Image, scale float64) *image.NRGBA {
	translate := (-0.5*scale + 0.5) * 255
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = clampUint8(float64(c.R)*scale + translate)
		c.G = clampUint8(float64(c.G)*scale + translate)
		c.B = clampUint8(float64(c.B)*scale + translate)
		return c
	})
}

// AdjustBrightness adds delta to each RGB channel, clamped to [0,255].
func AdjustBrightness(img image.Image, delta float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = clampUint8(float64(c.R) + delta)
		c.G = clampUint8(float64(c.G) + delta)
		c.B = clampUint8(float64(c.B) + delta)
		return c
	})
}

// GlobalThreshold maps every pixel brighter than threshold to opaque white
// and everything else to opaque black.
func GlobalThreshold(img image.Image, threshold uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		var v uint8
		if lumaRGB(c.R, c.G, c.B) > int(threshold) {
			v = 255
		}
		return color.NRGBA{R: v, G: v, B: v, A: 255}
	})
}

// AdaptiveThreshold binarizes img against the mean intensity of a
// blockSize x blockSize window centred on each pixel (clipped at the
// borders). A pixel becomes white when its intensity exceeds
// mean - constant, black otherwise.
func AdaptiveThreshold(img image.Image, blockSize, constant int) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if blockSize < 1 {
		blockSize = 1
	}
	half := blockSize / 2

	// summed-area table padded with a zero row and column
	stride := w + 1
	ints := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			rowSum += int64(luma(row[x*4:]))
			ints[(y+1)*stride+x+1] = ints[y*stride+x+1] + rowSum
		}
	}

	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			top, bottom := max(y-half, 0), min(y+half, h-1)
			srow := src.Pix[y*src.Stride:]
			orow := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				left, right := max(x-half, 0), min(x+half, w-1)
				sum := ints[(bottom+1)*stride+right+1] - ints[top*stride+right+1] -
					ints[(bottom+1)*stride+left] + ints[top*stride+left]
				count := int64((right - left + 1) * (bottom - top + 1))
				mean := int(sum / count)
				var v uint8
				if luma(srow[x*4:]) > mean-constant {
					v = 255
				}
				i := x * 4
				orow[i], orow[i+1], orow[i+2], orow[i+3] = v, v, v, 255
			}
		}
	})
	return out
}

// Sharpen convolves each RGB channel with a 3x3 Laplacian kernel
// (centre 1+4*strength, orthogonal neighbours -strength). The one pixel
// border is copied unchanged.
func Sharpen(img image.Image, strength float64) *image.NRGBA {
	src := imaging.Clone(img)
	out := imaging.Clone(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w < 3 || h < 3 {
		return out
	}
	center := 1 + 4*strength
	s := src.Stride
	parallelRows(h-2, func(y0, y1 int) {
		for y := y0 + 1; y < y1+1; y++ {
			for x := 1; x < w-1; x++ {
				i := y*s + x*4
				for c := 0; c < 3; c++ {
					n := float64(src.Pix[i-s+c]) + float64(src.Pix[i+s+c]) +
						float64(src.Pix[i-4+c]) + float64(src.Pix[i+4+c])
					out.Pix[i+c] = clampUint8(center*float64(src.Pix[i+c]) - strength*n)
				}
			}
		}
	})
	return out
}

// MedianFilter replaces each RGB channel with the median of its
// (2*radius+1)^2 neighbourhood. A band of radius pixels along the border is
// copied unchanged.
func MedianFilter(img image.Image, radius int) *image.NRGBA {
	src := imaging.Clone(img)
	out := imaging.Clone(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if radius <= 0 || w <= 2*radius || h <= 2*radius {
		return out
	}
	side := 2*radius + 1
	s := src.Stride
	parallelRows(h-2*radius, func(y0, y1 int) {
		window := make([]uint8, side*side)
		for y := y0 + radius; y < y1+radius; y++ {
			for x := radius; x < w-radius; x++ {
				for c := 0; c < 3; c++ {
					n := 0
					for dy := -radius; dy <= radius; dy++ {
						row := (y + dy) * s
						for dx := -radius; dx <= radius; dx++ {
							window[n] = src.Pix[row+(x+dx)*4+c]
							n++
						}
					}
					slices.Sort(window)
					out.Pix[y*s+x*4+c] = window[len(window)/2]
				}
			}
		}
	})
	return out
}

func luma(p []uint8) int {
	return lumaRGB(p[0], p[1], p[2])
}

func lumaRGB(r, g, b uint8) int {
	return (299*int(r) + 587*int(g) + 114*int(b) + 500) / 1000
}

func clampUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
