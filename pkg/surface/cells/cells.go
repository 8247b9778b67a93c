// Package cells implements a render.Surface on a grid of terminal cells.
//
// Drawing coordinates stay in pixels; each cell covers CellWidth×CellHeight
// pixels, so hit testing and layout behave as on a raster surface while
// the output is a block of styled text.
package cells

import (
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/render"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Options configures a cell surface. Zero fields take defaults.
type Options struct {
	CellWidth  int // pixels per column (default 8)
	CellHeight int // pixels per row (default 16)
}

type cell struct {
	r    rune
	fg   string
	bg   string
	wide bool // second half of a double width rune
}

var blank = cell{r: ' '}

// Surface is a cols×rows cell buffer.
type Surface struct {
	cols, rows  int
	cw, ch      int
	cells       []cell
	translation topicmap.Point
}

var _ render.Surface = (*Surface)(nil)

// New creates a surface of cols×rows cells.
func New(cols, rows int, opts Options) *Surface {
	if opts.CellWidth <= 0 {
		opts.CellWidth = 8
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = 16
	}
	s := &Surface{cw: opts.CellWidth, ch: opts.CellHeight}
	s.Resize(cols, rows)
	return s
}

// Resize changes the grid size and blanks it.
func (s *Surface) Resize(cols, rows int) {
	s.cols, s.rows = max(cols, 0), max(rows, 0)
	s.cells = make([]cell, s.cols*s.rows)
	for i := range s.cells {
		s.cells[i] = blank
	}
}

// Cols returns the number of columns.
func (s *Surface) Cols() int { return s.cols }

// Rows returns the number of rows.
func (s *Surface) Rows() int { return s.rows }

// CellCenter returns the screen pixel at the center of a cell, for mapping
// terminal mouse events.
func (s *Surface) CellCenter(col, row int) topicmap.Point {
	return topicmap.Point{X: col*s.cw + s.cw/2, Y: row*s.ch + s.ch/2}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// toCell maps a canvas pixel to a cell.
func (s *Surface) toCell(p topicmap.Point) (col, row int) {
	return floorDiv(p.X+s.translation.X, s.cw), floorDiv(p.Y+s.translation.Y, s.ch)
}

func (s *Surface) at(col, row int) *cell {
	if col < 0 || row < 0 || col >= s.cols || row >= s.rows {
		return nil
	}
	return &s.cells[row*s.cols+col]
}

func (s *Surface) put(col, row int, r rune, fg string) {
	if c := s.at(col, row); c != nil {
		c.r, c.fg, c.wide = r, fg, false
	}
}

// cellRange returns the cells covered by r, inclusive.
func (s *Surface) cellRange(r geometry.Rect) (c0, r0, c1, r1 int, ok bool) {
	if r.Empty() {
		return 0, 0, 0, 0, false
	}
	c0, r0 = s.toCell(r.Min)
	c1, r1 = s.toCell(topicmap.Point{X: r.Max.X - 1, Y: r.Max.Y - 1})
	return c0, r0, c1, r1, true
}

func (s *Surface) Size() (int, int) { return s.cols * s.cw, s.rows * s.ch }

func (s *Surface) SetTranslation(t topicmap.Point) { s.translation = t }

func (s *Surface) Clear(r geometry.Rect) {
	c0, r0, c1, r1, ok := s.cellRange(r)
	if !ok {
		return
	}
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if c := s.at(col, row); c != nil {
				*c = blank
			}
		}
	}
}

// Line draws a glyph line. Lines wider than half a cell paint the cell
// background instead, which is how highlight underlays show up.
func (s *Surface) Line(a, b topicmap.Point, width float64, c color.Color) {
	hex := style.Hex(c)
	glyph := lineGlyph(b.X-a.X, b.Y-a.Y)
	wide := width > float64(s.ch)/2

	x0, y0 := s.toCell(a)
	x1, y1 := s.toCell(b)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		if cell := s.at(x0, y0); cell != nil {
			if wide {
				cell.bg = hex
			} else {
				cell.r, cell.fg, cell.wide = glyph, hex, false
			}
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func lineGlyph(dx, dy int) rune {
	adx, ady := abs(dx), abs(dy)
	switch {
	case ady*5 < adx*2:
		return '─'
	case adx*5 < ady*2:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

func (s *Surface) FillRect(r geometry.Rect, c color.Color) {
	c0, r0, c1, r1, ok := s.cellRange(r)
	if !ok {
		return
	}
	hex := style.Hex(c)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if cell := s.at(col, row); cell != nil {
				cell.bg = hex
			}
		}
	}
}

func (s *Surface) StrokeRect(r geometry.Rect, _ float64, c color.Color) {
	c0, r0, c1, r1, ok := s.cellRange(r)
	if !ok {
		return
	}
	hex := style.Hex(c)
	if r0 == r1 {
		s.put(c0, r0, '[', hex)
		for col := c0 + 1; col < c1; col++ {
			s.put(col, r0, '─', hex)
		}
		if c1 > c0 {
			s.put(c1, r0, ']', hex)
		}
		return
	}
	for col := c0 + 1; col < c1; col++ {
		s.put(col, r0, '─', hex)
		s.put(col, r1, '─', hex)
	}
	for row := r0 + 1; row < r1; row++ {
		s.put(c0, row, '│', hex)
		s.put(c1, row, '│', hex)
	}
	s.put(c0, r0, '┌', hex)
	s.put(c1, r0, '┐', hex)
	s.put(c0, r1, '└', hex)
	s.put(c1, r1, '┘', hex)
}

// Image fills the icon area with blocks in the icon's average color.
func (s *Surface) Image(icon *style.Icon, r geometry.Rect) error {
	if !icon.Loaded() {
		return render.ErrNotLoaded
	}
	c0, r0, c1, r1, ok := s.cellRange(r)
	if !ok {
		return nil
	}
	hex := style.Hex(averageColor(icon.Image))
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			s.put(col, row, '█', hex)
		}
	}
	return nil
}

func averageColor(img image.Image) color.Color {
	b := img.Bounds()
	var rs, gs, bs, n uint64
	stepX, stepY := max(b.Dx()/8, 1), max(b.Dy()/8, 1)
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			rs += uint64(r >> 8)
			gs += uint64(g >> 8)
			bs += uint64(bl >> 8)
			n++
		}
	}
	if n == 0 {
		return color.Gray{Y: 0x9a}
	}
	return color.RGBA{R: uint8(rs / n), G: uint8(gs / n), B: uint8(bs / n), A: 0xff}
}

func (s *Surface) Text(text string, p topicmap.Point, c color.Color) {
	hex := style.Hex(c)
	col, row := s.toCell(p)
	for _, r := range text {
		w := ansi.StringWidth(string(r))
		if w == 0 {
			continue
		}
		s.put(col, row, r, hex)
		if w == 2 {
			if next := s.at(col+1, row); next != nil {
				next.r, next.fg, next.wide = 0, hex, true
			}
		}
		col += w
	}
}

func (s *Surface) MeasureText(text string) int {
	return ansi.StringWidth(text) * s.cw
}

func (s *Surface) LineHeight() int { return s.ch }

// Plain returns the grid as text without colors, trailing spaces trimmed.
func (s *Surface) Plain() string {
	var b strings.Builder
	for row := 0; row < s.rows; row++ {
		var line strings.Builder
		for col := 0; col < s.cols; col++ {
			c := s.cells[row*s.cols+col]
			if !c.wide {
				line.WriteRune(c.r)
			}
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		if row < s.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Render returns the grid styled with lipgloss. Runs of cells with equal
// colors share one style.
func (s *Surface) Render() string {
	styles := map[[2]string]lipgloss.Style{}
	styleFor := func(fg, bg string) lipgloss.Style {
		key := [2]string{fg, bg}
		if st, ok := styles[key]; ok {
			return st
		}
		st := lipgloss.NewStyle()
		if fg != "" {
			st = st.Foreground(lipgloss.Color(fg))
		}
		if bg != "" {
			st = st.Background(lipgloss.Color(bg))
		}
		styles[key] = st
		return st
	}

	lines := make([]string, s.rows)
	for row := 0; row < s.rows; row++ {
		var line, run strings.Builder
		var fg, bg string
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if fg == "" && bg == "" {
				line.WriteString(run.String())
			} else {
				line.WriteString(styleFor(fg, bg).Render(run.String()))
			}
			run.Reset()
		}
		for col := 0; col < s.cols; col++ {
			c := s.cells[row*s.cols+col]
			if c.wide {
				continue
			}
			cfg := c.fg
			if c.r == ' ' {
				cfg = ""
			}
			if cfg != fg || c.bg != bg {
				flush()
				fg, bg = cfg, c.bg
			}
			run.WriteRune(c.r)
		}
		flush()
		lines[row] = line.String()
	}
	return strings.Join(lines, "\n")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
