// Package export renders a topicmap snapshot to an image or text file
// through the same canvas and renderer the interactive front ends use.
package export

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/recera/tmcanvas/pkg/canvas"
	"github.com/recera/tmcanvas/pkg/render"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/surface/cells"
	"github.com/recera/tmcanvas/pkg/surface/raster"
	"github.com/recera/tmcanvas/pkg/surface/svg"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Format is an output format.
type Format string

const (
	PNG  Format = "png"
	SVG  Format = "svg"
	Text Format = "txt"
)

// Formats lists the supported formats.
var Formats = []Format{PNG, SVG, Text}

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	switch f {
	case PNG, SVG, Text:
		return f, nil
	case "text":
		return Text, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// FormatOf derives the format from a file name.
func FormatOf(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case SVG:
		return "image/svg+xml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Options configures an export. Zero sizes take 800×600.
type Options struct {
	Width  int
	Height int
	Styles style.Styles
	// Canvas is passed to the canvas; its Executor and persistence are
	// not used since nothing is edited.
	Canvas canvas.Options
}

// Render draws tm once and writes it to w in format f.
func Render(w io.Writer, f Format, tm *topicmap.Topicmap, opts Options) error {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	if opts.Canvas.TopicmapType == "" {
		opts.Canvas.TopicmapType = tm.Type
	}

	switch f {
	case PNG:
		s, err := raster.New(opts.Width, opts.Height, raster.Options{})
		if err != nil {
			return err
		}
		draw(s, tm, opts)
		return s.EncodePNG(w)

	case SVG:
		bw := bufio.NewWriter(w)
		s, err := svg.New(bw, opts.Width, opts.Height, svg.Options{Title: tm.Name})
		if err != nil {
			return err
		}
		draw(s, tm, opts)
		if err := s.Close(); err != nil {
			return err
		}
		return bw.Flush()

	case Text:
		s := cells.New(opts.Width/8, opts.Height/16, cells.Options{})
		draw(s, tm, opts)
		_, err := io.WriteString(w, s.Plain()+"\n")
		return err
	}
	return fmt.Errorf("unknown format %q", f)
}

// draw loads tm into a throwaway canvas, which draws it exactly once.
func draw(s render.Surface, tm *topicmap.Topicmap, opts Options) {
	c := canvas.New(s, canvas.Collaborators{Styles: opts.Styles}, opts.Canvas)
	defer c.Close()
	c.Load(tm)
}
