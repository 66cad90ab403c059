package inference

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

type layout int

const (
	layoutNCHW layout = iota
	layoutNHWC
)

var letterboxFill = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// packImage resizes img to w×h and writes normalized [0,1] RGB values in the
// requested tensor layout.
func packImage(img image.Image, w, h int, l layout) []float32 {
	return packPixels(resize.Resize(uint(w), uint(h), img, resize.Lanczos3), w, h, l)
}

func packPixels(img image.Image, w, h int, l layout) []float32 {
	b := img.Bounds()
	data := make([]float32, w*h*3)
	plane := w * h

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			rf := float32(r>>8) / 255.0
			gf := float32(g>>8) / 255.0
			bf := float32(bl>>8) / 255.0
			idx := y*w + x
			switch l {
			case layoutNHWC:
				data[idx*3] = rf
				data[idx*3+1] = gf
				data[idx*3+2] = bf
			default:
				data[idx] = rf
				data[idx+plane] = gf
				data[idx+2*plane] = bf
			}
		}
	}
	return data
}

// letterbox maps boxes from the padded square model input back onto the
// source image.
type letterbox struct {
	scale      float64
	padX, padY float64
	srcW, srcH float64
}

// letterboxImage scales img to fit a size×size square keeping its aspect
// ratio and centres it on grey padding.
func letterboxImage(img image.Image, size int) (*image.NRGBA, letterbox) {
	canvas := imaging.New(size, size, letterboxFill)
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return canvas, letterbox{scale: 1}
	}

	w, h := float64(b.Dx()), float64(b.Dy())
	scale := min(float64(size)/w, float64(size)/h)
	nw := min(max(int(math.Round(w*scale)), 1), size)
	nh := min(max(int(math.Round(h*scale)), 1), size)
	padX, padY := (size-nw)/2, (size-nh)/2

	resized := resize.Resize(uint(nw), uint(nh), img, resize.Lanczos3)
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))
	return canvas, letterbox{
		scale: scale,
		padX:  float64(padX),
		padY:  float64(padY),
		srcW:  w,
		srcH:  h,
	}
}

// project converts a model-space box to source pixels, clipped to the image.
func (lb letterbox) project(bx Box) Box {
	x := func(v float64) float64 { return clamp((v-lb.padX)/lb.scale, 0, lb.srcW) }
	y := func(v float64) float64 { return clamp((v-lb.padY)/lb.scale, 0, lb.srcH) }
	return Box{XMin: x(bx.XMin), YMin: y(bx.YMin), XMax: x(bx.XMax), YMax: y(bx.YMax)}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
