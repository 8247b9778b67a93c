// Package svg implements a render.Surface that streams SVG markup.
package svg

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"image/png"
	"io"

	svgo "github.com/ajstarks/svgo"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/render"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Options configures an SVG surface.
type Options struct {
	Title      string
	FontSize   float64     // default 13
	Background color.Color // default white
}

// Surface writes one SVG document. Call Close to finish it.
type Surface struct {
	canvas     *svgo.SVG
	width      int
	height     int
	face       font.Face
	fontSize   float64
	ascent     int
	lineHeight int
	background color.Color

	groupOpen bool
	closed    bool
}

var _ render.Surface = (*Surface)(nil)

// New starts a w×h document on out.
func New(out io.Writer, w, h int, opts Options) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg: invalid size %dx%d", w, h)
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 13
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("svg: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("svg: font face: %w", err)
	}

	canvas := svgo.New(out)
	canvas.Start(w, h)
	if opts.Title != "" {
		canvas.Title(opts.Title)
	}
	m := face.Metrics()
	return &Surface{
		canvas:     canvas,
		width:      w,
		height:     h,
		face:       face,
		fontSize:   opts.FontSize,
		ascent:     m.Ascent.Ceil(),
		lineHeight: m.Height.Ceil(),
		background: opts.Background,
	}, nil
}

// Close ends the document. Further drawing is ignored.
func (s *Surface) Close() error {
	if s.closed {
		return nil
	}
	if s.groupOpen {
		s.canvas.Gend()
		s.groupOpen = false
	}
	s.canvas.End()
	s.closed = true
	return s.face.Close()
}

func (s *Surface) Size() (int, int) { return s.width, s.height }

// SetTranslation opens a new translated group for the drawing that follows.
func (s *Surface) SetTranslation(t topicmap.Point) {
	if s.closed {
		return
	}
	if s.groupOpen {
		s.canvas.Gend()
	}
	s.canvas.Gtransform(fmt.Sprintf("translate(%d,%d)", t.X, t.Y))
	s.groupOpen = true
}

func (s *Surface) Clear(r geometry.Rect) {
	s.FillRect(r, s.background)
}

func (s *Surface) Line(a, b topicmap.Point, width float64, c color.Color) {
	if s.closed {
		return
	}
	s.canvas.Line(a.X, a.Y, b.X, b.Y,
		fmt.Sprintf("stroke:%s;stroke-width:%g;stroke-linecap:round", style.Hex(c), width))
}

func (s *Surface) FillRect(r geometry.Rect, c color.Color) {
	if s.closed {
		return
	}
	s.canvas.Rect(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), "fill:"+style.Hex(c))
}

func (s *Surface) StrokeRect(r geometry.Rect, width float64, c color.Color) {
	if s.closed {
		return
	}
	s.canvas.Rect(r.Min.X, r.Min.Y, r.Dx(), r.Dy(),
		fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g", style.Hex(c), width))
}

// Image embeds the icon as a PNG data URI.
func (s *Surface) Image(icon *style.Icon, r geometry.Rect) error {
	if !icon.Loaded() {
		return render.ErrNotLoaded
	}
	if s.closed {
		return nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, icon.Image); err != nil {
		return fmt.Errorf("svg: encode icon %s: %w", icon.Source, err)
	}
	href := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	s.canvas.Image(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), href)
	return nil
}

func (s *Surface) Text(text string, p topicmap.Point, c color.Color) {
	if s.closed {
		return
	}
	s.canvas.Text(p.X, p.Y+s.ascent, text,
		fmt.Sprintf("font-family:Go,sans-serif;font-size:%gpx;fill:%s", s.fontSize, style.Hex(c)))
}

func (s *Surface) MeasureText(text string) int {
	return font.MeasureString(s.face, text).Ceil()
}

func (s *Surface) LineHeight() int { return s.lineHeight }
