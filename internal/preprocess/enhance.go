package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

type Options struct {
	MaxImageSize int
	Contrast     float64
	Sharpness    float64
	Brightness   float64
}

// Enhancer improves camera captures before inference: it bounds the image
// size and boosts contrast, sharpness and brightness by fixed factors.
type Enhancer struct {
	opts Options
	log  zerolog.Logger
}

func NewEnhancer(opts Options, log zerolog.Logger) *Enhancer {
	return &Enhancer{opts: opts, log: log}
}

func (e *Enhancer) Options() Options {
	return e.opts
}

// Enhance never fails: if any step breaks, the input image is returned as is.
func (e *Enhancer) Enhance(img image.Image) image.Image {
	out, err := e.enhance(img)
	if err != nil {
		e.log.Error().Err(err).Msg("image preprocessing failed, using original image")
		return img
	}
	return out
}

func (e *Enhancer) enhance(img image.Image) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("preprocess panic: %v", r)
		}
	}()

	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	var nrgba *image.NRGBA
	if longest := max(b.Dx(), b.Dy()); e.opts.MaxImageSize > 0 && longest > e.opts.MaxImageSize {
		w := int(float64(b.Dx()) * float64(e.opts.MaxImageSize) / float64(longest))
		h := int(float64(b.Dy()) * float64(e.opts.MaxImageSize) / float64(longest))
		nrgba = imaging.Resize(img, max(w, 1), max(h, 1), imaging.Lanczos)
		e.log.Debug().Int("width", w).Int("height", h).Msg("image resized")
	} else {
		nrgba = imaging.Clone(img)
	}

	nrgba = Contrast(nrgba, e.opts.Contrast)
	nrgba = Sharpness(nrgba, e.opts.Sharpness)
	nrgba = Brightness(nrgba, e.opts.Brightness)

	e.log.Debug().
		Float64("contrast", e.opts.Contrast).
		Float64("sharpness", e.opts.Sharpness).
		Float64("brightness", e.opts.Brightness).
		Msg("image preprocessing completed")
	return nrgba, nil
}

// Contrast blends the image away from its mean grey level by factor.
// 1.0 leaves the image unchanged.
func Contrast(img *image.NRGBA, factor float64) *image.NRGBA {
	mean := meanLuminance(img)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: blend(mean, float64(c.R), factor),
			G: blend(mean, float64(c.G), factor),
			B: blend(mean, float64(c.B), factor),
			A: c.A,
		}
	})
}

// Sharpness blends the image away from a smoothed copy by factor.
// Border pixels keep their original value.
func Sharpness(img *image.NRGBA, factor float64) *image.NRGBA {
	smooth := imaging.Convolve3x3(img, [9]float64{
		1, 1, 1,
		1, 5, 1,
		1, 1, 1,
	}, &imaging.ConvolveOptions{Normalize: true})

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := imaging.Clone(img)
	if w < 3 || h < 3 {
		return out
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*out.Stride + x*4
			for k := 0; k < 3; k++ {
				out.Pix[i+k] = blend(float64(smooth.Pix[i+k]), float64(img.Pix[i+k]), factor)
			}
		}
	}
	return out
}

// Brightness scales every channel by factor, clamped to the valid range.
func Brightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: blend(0, float64(c.R), factor),
			G: blend(0, float64(c.G), factor),
			B: blend(0, float64(c.B), factor),
			A: c.A,
		}
	})
}

// blend computes base + factor*(v-base) clamped to a byte.
func blend(base, v, factor float64) uint8 {
	r := base + factor*(v-base)
	switch {
	case r <= 0:
		return 0
	case r >= 255:
		return 255
	default:
		return uint8(r + 0.5)
	}
}

func meanLuminance(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for y := 0; y < b.Dy(); y++ {
		i := y * img.Stride
		for x := 0; x < b.Dx(); x++ {
			p := img.Pix[i : i+3 : i+3]
			sum += 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
			i += 4
		}
	}
	return float64(int(sum/float64(n) + 0.5))
}
