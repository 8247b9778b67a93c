package render

import (
	"sort"
	"sync"
)

// DefaultType is the topicmap type served by the icon renderer.
const DefaultType = "dm4.webclient.default_topicmap_renderer"

// Factory builds a renderer for one topicmap type.
type Factory func(Options) Renderer

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		DefaultType: func(o Options) Renderer { return NewDefault(o) },
		"default":   func(o Options) Renderer { return NewDefault(o) },
		"outline":   func(o Options) Renderer { return NewOutline(o) },
	}
)

// Register adds or replaces the factory for a topicmap type.
func Register(topicmapType string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[topicmapType] = f
}

// Lookup returns the factory for topicmapType and whether it was
// registered. Unknown types get the default factory.
func Lookup(topicmapType string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if f, ok := registry[topicmapType]; ok {
		return f, true
	}
	return registry["default"], false
}

// Types lists the registered topicmap types in sorted order.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
