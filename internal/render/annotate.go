package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"wastevision-service/internal/domain/waste"
)

type Options struct {
	LineThickness  int
	FontSize       float64
	BannerFontSize float64
	FontPath       string
	HideLabels     bool
	HideConf       bool
}

// Renderer draws detection overlays on copies of the processed image.
type Renderer struct {
	opts  Options
	fonts fontSource
	log   zerolog.Logger
}

func NewRenderer(opts Options, log zerolog.Logger) *Renderer {
	if opts.LineThickness < 1 {
		opts.LineThickness = 1
	}
	return &Renderer{
		opts:  opts,
		fonts: loadFont(opts.FontPath, log),
		log:   log,
	}
}

// Boxes draws one rectangle and label per detection that has a bounding box.
func (r *Renderer) Boxes(img image.Image, detections []waste.Detection) *image.NRGBA {
	out := imaging.Clone(img)
	face := r.fonts.face(r.opts.FontSize)
	defer face.Close()

	for _, det := range detections {
		if det.BoundingBox == nil {
			continue
		}
		col := waste.DetectionColor(det.Type)
		bb := det.BoundingBox
		rect := image.Rect(
			int(math.Round(bb.XMin)), int(math.Round(bb.YMin)),
			int(math.Round(bb.XMax)), int(math.Round(bb.YMax)),
		)
		drawRect(out, rect, col, r.opts.LineThickness)

		if r.opts.HideLabels {
			continue
		}
		text := fmt.Sprintf("%s (%s)", det.Item, det.Type)
		if !r.opts.HideConf {
			text = fmt.Sprintf("%s %.2f", text, det.Confidence)
		}
		drawText(out, face, image.Pt(rect.Min.X, rect.Min.Y-25), text, col)
	}
	return out
}

// Banner writes the top classification over a black background in the
// top-left corner.
func (r *Renderer) Banner(img image.Image, detections []waste.Detection) *image.NRGBA {
	out := imaging.Clone(img)
	if len(detections) == 0 {
		return out
	}
	face := r.fonts.face(r.opts.BannerFontSize)
	defer face.Close()

	top := detections[0]
	text := fmt.Sprintf("%s: %.2f%%", strings.ToUpper(string(top.Type)), top.Confidence*100)
	origin := image.Pt(10, 10)

	bounds := textBounds(face, origin, text)
	draw.Draw(out, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)
	drawText(out, face, origin, text, waste.CategoryColor(top.Type))
	return out
}

// DataURI encodes img as PNG for inline embedding in JSON.
func DataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func drawRect(img *image.NRGBA, r image.Rectangle, col color.Color, thickness int) {
	src := image.NewUniform(col)
	r = r.Canon()
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X+1, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness+1, r.Max.X+1, r.Max.Y+1),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y+1),
		image.Rect(r.Max.X-thickness+1, r.Min.Y, r.Max.X+1, r.Max.Y+1),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawText places text with its top-left corner at pt.
func drawText(img *image.NRGBA, face font.Face, pt image.Point, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(pt.X, pt.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

func textBounds(face font.Face, pt image.Point, text string) image.Rectangle {
	m := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	return image.Rect(pt.X, pt.Y, pt.X+width, pt.Y+m.Ascent.Ceil()+m.Descent.Ceil())
}
