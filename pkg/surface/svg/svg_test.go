package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/render"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

func TestDocumentIsWellFormed(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&buf, 200, 100, Options{Title: "Test <map>"})
	if err != nil {
		t.Fatal(err)
	}
	s.SetTranslation(topicmap.Point{X: 3, Y: 4})
	s.Line(topicmap.Point{}, topicmap.Point{X: 10, Y: 10}, 4, color.Black)
	s.Text("a < b & c", topicmap.Point{X: 1, Y: 1}, color.Black)
	s.SetTranslation(topicmap.Point{})
	s.StrokeRect(geometry.RectXYWH(0, 0, 5, 5), 1, color.Black)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	dec := xml.NewDecoder(&buf)
	for {
		_, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("Expected well-formed XML, got %v", err)
		}
	}
}

func TestTranslationGroup(t *testing.T) {
	var buf bytes.Buffer
	s, _ := New(&buf, 200, 100, Options{})
	s.SetTranslation(topicmap.Point{X: -20, Y: 15})
	s.FillRect(geometry.RectXYWH(0, 0, 5, 5), color.Black)
	s.Close()

	out := buf.String()
	if !strings.Contains(out, `transform="translate(-20,15)"`) {
		t.Errorf("Expected translate group, got %s", out)
	}
	if !strings.Contains(out, "fill:#000000") {
		t.Errorf("Expected hex fill, got %s", out)
	}
}

func TestImageEmbedsDataURI(t *testing.T) {
	var buf bytes.Buffer
	s, _ := New(&buf, 50, 50, Options{})
	icon := &style.Icon{Source: "x", Width: 4, Height: 4, Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}
	if err := s.Image(icon, geometry.RectXYWH(0, 0, 4, 4)); err != nil {
		t.Fatal(err)
	}
	if err := s.Image(&style.Icon{Source: "y"}, geometry.RectXYWH(0, 0, 4, 4)); err != render.ErrNotLoaded {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}
	s.Close()
	if !strings.Contains(buf.String(), "data:image/png;base64,") {
		t.Error("Expected embedded PNG")
	}
}

func TestRenderSnapshot(t *testing.T) {
	store := viewmodel.NewStore(nil)
	store.AddTopic(topicmap.Topic{ID: 1, Label: "Ada"}, &topicmap.Point{X: 40, Y: 40})
	store.AddTopic(topicmap.Topic{ID: 2, Label: "Engine"}, &topicmap.Point{X: 140, Y: 40})
	store.AddAssociation(topicmap.Association{ID: 3, Role1: 1, Role2: 2})

	var buf bytes.Buffer
	s, _ := New(&buf, 200, 100, Options{})
	render.NewDefault(render.Options{}).Draw(s, render.Scene{
		Store:    store,
		Viewport: viewmodel.Viewport{Width: 200, Height: 100},
	})
	s.Close()

	out := buf.String()
	for _, want := range []string{">Ada<", ">Engine<", "<line"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output", want)
		}
	}
}
