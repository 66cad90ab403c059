package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func defaultOptions() Options {
	return Options{MaxImageSize: 1280, Contrast: 1.2, Sharpness: 1.3, Brightness: 1.1}
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestEnhance_ResizesToMaxDimension(t *testing.T) {
	e := NewEnhancer(defaultOptions(), zerolog.Nop())

	out := e.Enhance(solid(2000, 1000, color.NRGBA{R: 90, G: 120, B: 60, A: 255}))
	b := out.Bounds()
	require.Equal(t, 1280, max(b.Dx(), b.Dy()))
	require.Equal(t, 640, b.Dy())

	out = e.Enhance(solid(600, 3000, color.NRGBA{R: 10, G: 10, B: 10, A: 255}))
	require.Equal(t, 1280, out.Bounds().Dy())
	require.Equal(t, 256, out.Bounds().Dx())
}

func TestEnhance_KeepsSmallImageSize(t *testing.T) {
	e := NewEnhancer(defaultOptions(), zerolog.Nop())
	out := e.Enhance(solid(320, 240, color.NRGBA{R: 100, G: 100, B: 100, A: 255}))
	require.Equal(t, image.Rect(0, 0, 320, 240), out.Bounds())
}

func TestEnhance_Deterministic(t *testing.T) {
	e := NewEnhancer(defaultOptions(), zerolog.Nop())
	src := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 5), B: uint8(x + y), A: 255})
		}
	}

	a := e.Enhance(src).(*image.NRGBA)
	b := e.Enhance(src).(*image.NRGBA)
	require.Equal(t, a.Pix, b.Pix)
}

func TestEnhance_EmptyImageReturnedUnchanged(t *testing.T) {
	e := NewEnhancer(defaultOptions(), zerolog.Nop())
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	require.Same(t, empty, e.Enhance(empty))
	require.Nil(t, e.Enhance(nil))
}

func TestBrightness_ScalesAndClamps(t *testing.T) {
	out := Brightness(solid(2, 2, color.NRGBA{R: 100, G: 240, B: 0, A: 200}), 1.1)
	require.Equal(t, color.NRGBA{R: 110, G: 255, B: 0, A: 200}, out.NRGBAAt(0, 0))
}

func TestContrast_ConstantImageUnchanged(t *testing.T) {
	c := color.NRGBA{R: 80, G: 80, B: 80, A: 255}
	out := Contrast(solid(4, 4, c), 1.2)
	require.Equal(t, c, out.NRGBAAt(1, 1))
}

func TestSharpness_FactorOneIsIdentity(t *testing.T) {
	src := solid(5, 5, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	src.SetNRGBA(2, 2, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	out := Sharpness(src, 1.0)
	require.Equal(t, src.Pix, out.Pix)
}

func TestSharpness_BoostsEdges(t *testing.T) {
	src := solid(5, 5, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	src.SetNRGBA(2, 2, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	out := Sharpness(src, 1.3)
	require.Greater(t, out.NRGBAAt(2, 2).R, uint8(200))
	require.Less(t, out.NRGBAAt(1, 1).R, uint8(50))
}
