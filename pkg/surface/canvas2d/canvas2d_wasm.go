//go:build js && wasm
// +build js,wasm

package canvas2d

import (
	"fmt"
	"image/color"
	"math"
	"syscall/js"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/render"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Options configures the surface.
type Options struct {
	Font       string // CSS font (default "13px sans-serif")
	LineHeight int    // default 16
	Background string // CSS color (default "#ffffff")

	// OnIconLoaded is called when an icon image finishes loading, so the
	// caller can redraw.
	OnIconLoaded func(source string)
	// OnIconFailed is called when the browser cannot load an icon. The
	// icon is drawn as a placeholder from then on.
	OnIconFailed func(source string)
}

// Surface draws on a <canvas> element. Icons are loaded by the browser
// from their Source and cached per source.
type Surface struct {
	el          js.Value
	ctx         js.Value
	opts        Options
	translation topicmap.Point
	images      map[string]js.Value
	funcs       []js.Func
}

var _ render.Surface = (*Surface)(nil)

// New wraps a canvas element.
func New(el js.Value, opts Options) (*Surface, error) {
	if el.IsUndefined() || el.IsNull() {
		return nil, fmt.Errorf("canvas2d: no canvas element")
	}
	if opts.Font == "" {
		opts.Font = "13px sans-serif"
	}
	if opts.LineHeight <= 0 {
		opts.LineHeight = 16
	}
	if opts.Background == "" {
		opts.Background = "#ffffff"
	}
	ctx := el.Call("getContext", "2d")
	if !ctx.Truthy() {
		return nil, fmt.Errorf("canvas2d: 2d context unavailable")
	}
	return &Surface{
		el:     el,
		ctx:    ctx,
		opts:   opts,
		images: make(map[string]js.Value),
	}, nil
}

// Release frees the image load callbacks.
func (s *Surface) Release() {
	for _, f := range s.funcs {
		f.Release()
	}
	s.funcs = nil
}

// Fit resizes the backing store to the element's CSS size.
func (s *Surface) Fit() (w, h int) {
	rect := s.el.Call("getBoundingClientRect")
	w = int(math.Floor(rect.Get("width").Float()))
	h = int(math.Floor(rect.Get("height").Float()))
	s.el.Set("width", w)
	s.el.Set("height", h)
	return w, h
}

func (s *Surface) Size() (int, int) {
	return s.el.Get("width").Int(), s.el.Get("height").Int()
}

func (s *Surface) SetTranslation(t topicmap.Point) {
	s.translation = t
	s.ctx.Call("setTransform", 1, 0, 0, 1, t.X, t.Y)
}

func (s *Surface) Clear(r geometry.Rect) {
	s.ctx.Set("fillStyle", s.opts.Background)
	s.ctx.Call("fillRect", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

func (s *Surface) Line(a, b topicmap.Point, width float64, c color.Color) {
	s.ctx.Set("strokeStyle", style.Hex(c))
	s.ctx.Set("lineWidth", width)
	s.ctx.Set("lineCap", "round")
	s.ctx.Call("beginPath")
	s.ctx.Call("moveTo", a.X, a.Y)
	s.ctx.Call("lineTo", b.X, b.Y)
	s.ctx.Call("stroke")
}

func (s *Surface) FillRect(r geometry.Rect, c color.Color) {
	s.ctx.Set("fillStyle", style.Hex(c))
	s.ctx.Call("fillRect", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

func (s *Surface) StrokeRect(r geometry.Rect, width float64, c color.Color) {
	s.ctx.Set("strokeStyle", style.Hex(c))
	s.ctx.Set("lineWidth", width)
	s.ctx.Call("strokeRect", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

// Image draws the browser-loaded image for icon.Source. The first call for
// a source starts loading and returns ErrNotLoaded.
func (s *Surface) Image(icon *style.Icon, r geometry.Rect) error {
	if icon == nil || icon.Source == "" {
		return render.ErrNotLoaded
	}
	img, ok := s.images[icon.Source]
	if !ok {
		img = s.load(icon.Source)
	}
	if !img.Get("complete").Bool() || img.Get("naturalWidth").Int() == 0 {
		return render.ErrNotLoaded
	}
	s.ctx.Call("drawImage", img, r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	return nil
}

// Preload starts loading sources ahead of the first draw.
func (s *Surface) Preload(sources ...string) {
	for _, src := range sources {
		if _, ok := s.images[src]; !ok && src != "" {
			s.load(src)
		}
	}
}

func (s *Surface) load(source string) js.Value {
	img := js.Global().Get("Image").New()
	onload := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if s.opts.OnIconLoaded != nil {
			s.opts.OnIconLoaded(source)
		}
		return nil
	})
	onerror := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if s.opts.OnIconFailed != nil {
			s.opts.OnIconFailed(source)
		}
		return nil
	})
	s.funcs = append(s.funcs, onload, onerror)
	img.Set("onload", onload)
	img.Set("onerror", onerror)
	img.Set("src", source)
	s.images[source] = img
	return img
}

func (s *Surface) Text(text string, p topicmap.Point, c color.Color) {
	s.ctx.Set("font", s.opts.Font)
	s.ctx.Set("textBaseline", "top")
	s.ctx.Set("fillStyle", style.Hex(c))
	s.ctx.Call("fillText", text, p.X, p.Y)
}

func (s *Surface) MeasureText(text string) int {
	s.ctx.Set("font", s.opts.Font)
	return int(math.Ceil(s.ctx.Call("measureText", text).Get("width").Float()))
}

func (s *Surface) LineHeight() int { return s.opts.LineHeight }
