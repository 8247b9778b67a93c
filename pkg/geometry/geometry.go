// Package geometry implements the rectangle and line tests the canvas uses
// for hit testing and placement. All coordinates are canvas space.
package geometry

import (
	"math"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

const (
	// DefaultLineWidth is the stroke width of an association line.
	DefaultLineWidth = 4
	// DefaultSlopeTolerance is the maximum gradient difference at which a
	// point still counts as lying on a line.
	DefaultSlopeTolerance = 0.3
)

// Rect is an axis-aligned rectangle. Min is inclusive, Max is exclusive.
type Rect struct {
	Min, Max topicmap.Point
}

// RectAround returns the w×h rectangle centered on c.
func RectAround(c topicmap.Point, w, h int) Rect {
	min := topicmap.Point{X: c.X - w/2, Y: c.Y - h/2}
	return Rect{Min: min, Max: topicmap.Point{X: min.X + w, Y: min.Y + h}}
}

// RectXYWH builds a rectangle from its top-left corner and size.
func RectXYWH(x, y, w, h int) Rect {
	return Rect{Min: topicmap.Point{X: x, Y: y}, Max: topicmap.Point{X: x + w, Y: y + h}}
}

// Dx returns the width of r.
func (r Rect) Dx() int { return r.Max.X - r.Min.X }

// Dy returns the height of r.
func (r Rect) Dy() int { return r.Max.Y - r.Min.Y }

// Empty reports whether r contains no points.
func (r Rect) Empty() bool {
	return r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p topicmap.Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X &&
		p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Overlaps reports whether r and s share at least one point.
func (r Rect) Overlaps(s Rect) bool {
	return !r.Empty() && !s.Empty() &&
		r.Min.X < s.Max.X && s.Min.X < r.Max.X &&
		r.Min.Y < s.Max.Y && s.Min.Y < r.Max.Y
}

// Inset shrinks r by n on every side; a negative n grows it.
func (r Rect) Inset(n int) Rect {
	return Rect{
		Min: topicmap.Point{X: r.Min.X + n, Y: r.Min.Y + n},
		Max: topicmap.Point{X: r.Max.X - n, Y: r.Max.Y - n},
	}
}

// Translate moves r by d.
func (r Rect) Translate(d topicmap.Point) Rect {
	return Rect{Min: r.Min.Add(d), Max: r.Max.Add(d)}
}

// Union returns the smallest rectangle containing r and s.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	return Rect{
		Min: topicmap.Point{X: min(r.Min.X, s.Min.X), Y: min(r.Min.Y, s.Min.Y)},
		Max: topicmap.Point{X: max(r.Max.X, s.Max.X), Y: max(r.Max.Y, s.Max.Y)},
	}
}

// Center returns the midpoint of r.
func (r Rect) Center() topicmap.Point {
	return topicmap.Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// NearLine reports whether p lies on the line segment a→b drawn with the
// given stroke width.
//
// The test has two phases. p must first fall strictly inside the bounding
// box of the endpoints, padded by half the line width so that axis-parallel
// lines stay selectable. Then the gradient from p to each endpoint is
// compared; on the line both gradients are equal. Gradients are taken along
// the longer side of the bounding box (dy/dx for wide boxes, dx/dy for tall
// ones) which keeps near-vertical and near-horizontal lines stable.
func NearLine(p, a, b topicmap.Point, lineWidth, tolerance float64) bool {
	pad := lineWidth / 2
	bx1 := float64(min(a.X, b.X)) - pad
	bx2 := float64(max(a.X, b.X)) + pad
	by1 := float64(min(a.Y, b.Y)) - pad
	by2 := float64(max(a.Y, b.Y)) + pad

	x, y := float64(p.X), float64(p.Y)
	if !(x > bx1 && x < bx2 && y > by1 && y < by2) {
		return false
	}

	dx1, dy1 := x-float64(a.X), y-float64(a.Y)
	dx2, dy2 := x-float64(b.X), y-float64(b.Y)

	var g1, g2 float64
	if bx2-bx1 > by2-by1 {
		g1, g2 = dy1/dx1, dy2/dx2
	} else {
		g1, g2 = dx1/dy1, dx2/dy2
	}
	diff := math.Abs(g1 - g2)
	// Landing exactly on an endpoint column yields an infinite gradient.
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		return false
	}
	return diff < tolerance
}

// Distance returns the euclidean distance between p and q.
func Distance(p, q topicmap.Point) float64 {
	return math.Hypot(float64(q.X-p.X), float64(q.Y-p.Y))
}
