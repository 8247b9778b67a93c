// Package testharness provides fakes for exercising the canvas without a
// real display or server: a Surface that records drawing calls and a
// Persistence that records collaborator calls.
package testharness

import (
	"errors"
	"fmt"
	"image/color"
	"sync"
	"unicode/utf8"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// ErrNoImage is returned by Surface.Image for icons without a decoded image.
var ErrNoImage = errors.New("testharness: icon has no image")

// OpKind names a recorded drawing call.
type OpKind string

const (
	OpClear  OpKind = "clear"
	OpLine   OpKind = "line"
	OpFill   OpKind = "fill"
	OpStroke OpKind = "stroke"
	OpImage  OpKind = "image"
	OpText   OpKind = "text"
)

// Op is one recorded drawing call. Only the fields relevant to Kind are set.
type Op struct {
	Kind  OpKind
	A, B  topicmap.Point
	Rect  geometry.Rect
	Width float64
	Color color.Color
	Text  string
	Icon  *style.Icon
}

func (o Op) String() string {
	switch o.Kind {
	case OpLine:
		return fmt.Sprintf("line %v-%v w=%.0f", o.A, o.B, o.Width)
	case OpText:
		return fmt.Sprintf("text %q at %v", o.Text, o.A)
	default:
		return fmt.Sprintf("%s %v", o.Kind, o.Rect)
	}
}

// Surface is a recording drawing surface. Text is measured at CharWidth
// pixels per rune.
type Surface struct {
	mu          sync.Mutex
	Width       int
	Height      int
	CharWidth   int
	LineH       int
	Translation topicmap.Point
	Ops         []Op

	// PanicOnImage makes Image panic, to exercise per-object recovery.
	PanicOnImage bool
}

// NewSurface creates a w×h recording surface with 7px glyphs and 16px lines.
func NewSurface(w, h int) *Surface {
	return &Surface{Width: w, Height: h, CharWidth: 7, LineH: 16}
}

func (s *Surface) record(op Op) {
	s.mu.Lock()
	s.Ops = append(s.Ops, op)
	s.mu.Unlock()
}

func (s *Surface) Size() (int, int) { return s.Width, s.Height }

func (s *Surface) SetTranslation(t topicmap.Point) { s.Translation = t }

func (s *Surface) Clear(r geometry.Rect) { s.record(Op{Kind: OpClear, Rect: r}) }

func (s *Surface) Line(a, b topicmap.Point, width float64, c color.Color) {
	s.record(Op{Kind: OpLine, A: a, B: b, Width: width, Color: c})
}

func (s *Surface) FillRect(r geometry.Rect, c color.Color) {
	s.record(Op{Kind: OpFill, Rect: r, Color: c})
}

func (s *Surface) StrokeRect(r geometry.Rect, width float64, c color.Color) {
	s.record(Op{Kind: OpStroke, Rect: r, Width: width, Color: c})
}

func (s *Surface) Image(icon *style.Icon, r geometry.Rect) error {
	if s.PanicOnImage {
		panic("image decoder exploded")
	}
	if !icon.Loaded() {
		return ErrNoImage
	}
	s.record(Op{Kind: OpImage, Rect: r, Icon: icon})
	return nil
}

func (s *Surface) Text(text string, p topicmap.Point, c color.Color) {
	s.record(Op{Kind: OpText, A: p, Text: text, Color: c})
}

func (s *Surface) MeasureText(text string) int {
	return utf8.RuneCountInString(text) * s.CharWidth
}

func (s *Surface) LineHeight() int { return s.LineH }

// Reset forgets the recorded calls.
func (s *Surface) Reset() {
	s.mu.Lock()
	s.Ops = nil
	s.mu.Unlock()
}

// Filter returns the recorded calls of the given kind.
func (s *Surface) Filter(kind OpKind) []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Op
	for _, op := range s.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Count returns the number of recorded calls of the given kind.
func (s *Surface) Count(kind OpKind) int {
	return len(s.Filter(kind))
}

// Texts returns the strings drawn, in order.
func (s *Surface) Texts() []string {
	var out []string
	for _, op := range s.Filter(OpText) {
		out = append(out, op.Text)
	}
	return out
}
