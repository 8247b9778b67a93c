// Package style resolves topic and association types to their visual
// attributes: icon images and dimensions for topics, stroke colors for
// associations. Unknown types resolve to generic fallbacks so the canvas
// keeps drawing after a type disappears (for example a disabled plugin).
package style

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// DefaultIconSize is the edge length of the generic fallback icon.
	DefaultIconSize = 24
	// DefaultAssociationColor is used for association types without a color.
	DefaultAssociationColor = "#b2b2b2"
)

// Icon is the image drawn for a topic. Image is nil until the icon has been
// decoded; surfaces that load images themselves (the browser canvas) use
// Source and keep their own cache.
type Icon struct {
	Source string
	Width  int
	Height int
	Image  image.Image
}

// Loaded reports whether the decoded image is available.
func (i *Icon) Loaded() bool {
	return i != nil && i.Image != nil
}

func (i *Icon) String() string {
	if i == nil {
		return "<nil icon>"
	}
	return fmt.Sprintf("icon %q %dx%d loaded=%v", i.Source, i.Width, i.Height, i.Loaded())
}

// Styles is the type/style lookup collaborator.
type Styles interface {
	TopicIcon(typeURI string) *Icon
	AssociationColor(typeURI string) color.Color
}

// Table is a Styles implementation backed by explicit registrations. It is
// safe for concurrent use so icons can be registered by loader goroutines.
type Table struct {
	mu           sync.RWMutex
	icons        map[string]*Icon
	colors       map[string]color.Color
	fallbackIcon *Icon
	fallbackColr color.Color
}

// NewTable creates a table with the generic fallback icon and color.
func NewTable() *Table {
	return &Table{
		icons:        make(map[string]*Icon),
		colors:       make(map[string]color.Color),
		fallbackIcon: GenericIcon(),
		fallbackColr: MustParseColor(DefaultAssociationColor),
	}
}

// SetIcon registers the icon for a topic type.
func (t *Table) SetIcon(typeURI string, icon *Icon) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.icons[typeURI] = icon
}

// SetColor registers the stroke color for an association type.
func (t *Table) SetColor(typeURI string, c color.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.colors[typeURI] = c
}

// Forget drops the registration of a type, making it resolve to fallbacks.
func (t *Table) Forget(typeURI string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.icons, typeURI)
	delete(t.colors, typeURI)
}

// TopicIcon implements Styles.
func (t *Table) TopicIcon(typeURI string) *Icon {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if icon, ok := t.icons[typeURI]; ok {
		return icon
	}
	return t.fallbackIcon
}

// AssociationColor implements Styles.
func (t *Table) AssociationColor(typeURI string) color.Color {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.colors[typeURI]; ok {
		return c
	}
	return t.fallbackColr
}

// GenericIcon returns the fallback icon: a filled square in a neutral color.
func GenericIcon() *Icon {
	img := image.NewRGBA(image.Rect(0, 0, DefaultIconSize, DefaultIconSize))
	fill := MustParseColor("#9a9a9a")
	for y := 0; y < DefaultIconSize; y++ {
		for x := 0; x < DefaultIconSize; x++ {
			img.Set(x, y, fill)
		}
	}
	return &Icon{
		Source: "generic",
		Width:  DefaultIconSize,
		Height: DefaultIconSize,
		Image:  img,
	}
}

// ParseColor parses a "#rrggbb" hex color.
func ParseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("parse color %q: %w", hex, err)
	}
	return c, nil
}

// MustParseColor is ParseColor for constant inputs.
func MustParseColor(hex string) color.Color {
	c, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats any color as "#rrggbb", dropping alpha.
func Hex(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cf.Hex()
}
