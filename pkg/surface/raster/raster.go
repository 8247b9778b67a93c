// Package raster implements a render.Surface on an in-memory RGBA image,
// for PNG snapshots.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/render"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Options configures a raster surface.
type Options struct {
	FontSize   float64     // label font size in points (default 13)
	Background color.Color // default white
	// Face overrides the built-in Go Regular face.
	Face font.Face
}

// Surface draws with fogleman/gg.
type Surface struct {
	dc          *gg.Context
	face        font.Face
	ascent      int
	lineHeight  int
	background  color.Color
	translation topicmap.Point
}

var _ render.Surface = (*Surface)(nil)

// New creates a w×h surface.
func New(w, h int, opts Options) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("raster: invalid size %dx%d", w, h)
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 13
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	face := opts.Face
	if face == nil {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("raster: parse font: %w", err)
		}
		face = truetype.NewFace(f, &truetype.Options{Size: opts.FontSize})
	}

	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	dc.SetColor(opts.Background)
	dc.Clear()

	m := face.Metrics()
	return &Surface{
		dc:         dc,
		face:       face,
		ascent:     m.Ascent.Ceil(),
		lineHeight: m.Height.Ceil(),
		background: opts.Background,
	}, nil
}

// with runs fn with the translation applied.
func (s *Surface) with(fn func(dc *gg.Context)) {
	s.dc.Push()
	s.dc.Translate(float64(s.translation.X), float64(s.translation.Y))
	fn(s.dc)
	s.dc.Pop()
}

func (s *Surface) Size() (int, int) { return s.dc.Width(), s.dc.Height() }

func (s *Surface) SetTranslation(t topicmap.Point) { s.translation = t }

func (s *Surface) Clear(r geometry.Rect) {
	s.FillRect(r, s.background)
}

func (s *Surface) Line(a, b topicmap.Point, width float64, c color.Color) {
	s.with(func(dc *gg.Context) {
		dc.SetLineWidth(width)
		dc.SetLineCap(gg.LineCapRound)
		dc.SetColor(c)
		dc.DrawLine(float64(a.X), float64(a.Y), float64(b.X), float64(b.Y))
		dc.Stroke()
	})
}

func (s *Surface) FillRect(r geometry.Rect, c color.Color) {
	s.with(func(dc *gg.Context) {
		dc.SetColor(c)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Fill()
	})
}

func (s *Surface) StrokeRect(r geometry.Rect, width float64, c color.Color) {
	s.with(func(dc *gg.Context) {
		dc.SetLineWidth(width)
		dc.SetColor(c)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()
	})
}

func (s *Surface) Image(icon *style.Icon, r geometry.Rect) error {
	if !icon.Loaded() {
		return render.ErrNotLoaded
	}
	img := icon.Image
	if b := img.Bounds(); b.Dx() != r.Dx() || b.Dy() != r.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Over, nil)
		img = scaled
	}
	s.with(func(dc *gg.Context) {
		dc.DrawImage(img, r.Min.X, r.Min.Y)
	})
	return nil
}

func (s *Surface) Text(text string, p topicmap.Point, c color.Color) {
	s.with(func(dc *gg.Context) {
		dc.SetColor(c)
		dc.DrawString(text, float64(p.X), float64(p.Y+s.ascent))
	})
}

func (s *Surface) MeasureText(text string) int {
	return font.MeasureString(s.face, text).Ceil()
}

func (s *Surface) LineHeight() int { return s.lineHeight }

// Snapshot returns the drawn image.
func (s *Surface) Snapshot() image.Image {
	return s.dc.Image()
}

// EncodePNG writes the drawn image as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}
