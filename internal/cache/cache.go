// Package cache keeps rendered topicmap snapshots in memory so repeated
// requests for the same content, format and size skip the renderer.
// Entries are tagged with the files they were derived from and evicted
// under a byte budget.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Entry is one cached artifact.
type Entry struct {
	Key          string
	Size         int64
	Created      time.Time
	LastAccess   time.Time
	AccessCount  int
	Dependencies []string

	data []byte
}

// Stats tracks cache performance.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	TotalSize  int64 `json:"total_size"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy defines which entry goes first when the cache is full.
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// LFU removes least frequently used entries
	LFU
	// FIFO removes oldest entries first
	FIFO
)

// Config holds cache configuration.
type Config struct {
	MaxSize  int64         // bytes, 0 means unlimited
	MaxAge   time.Duration // 0 means entries never expire
	Strategy EvictionStrategy

	// Now is the clock, for tests.
	Now func() time.Time
}

// DefaultConfig returns a 32 MB LRU cache without expiry.
func DefaultConfig() Config {
	return Config{MaxSize: 32 << 20, Strategy: LRU}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*Entry
	stats   Stats
}

// New creates an empty cache.
func New(cfg Config) *Cache {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{cfg: cfg, entries: make(map[string]*Entry)}
}

// Get returns a cached artifact.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.expired(e) {
		c.removeLocked(key)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e.LastAccess = c.cfg.Now()
	e.AccessCount++
	c.stats.Hits++
	return e.data, true
}

// Put stores an artifact derived from deps. Artifacts larger than the
// whole budget are not stored.
func (c *Cache) Put(key string, data []byte, deps ...string) {
	size := int64(len(data))
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxSize > 0 && size > c.cfg.MaxSize {
		return
	}
	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
	}
	c.ensureSpaceLocked(size)

	now := c.cfg.Now()
	c.entries[key] = &Entry{
		Key:          key,
		Size:         size,
		Created:      now,
		LastAccess:   now,
		Dependencies: deps,
		data:         data,
	}
	c.stats.TotalSize += size
	c.stats.EntryCount = len(c.entries)
}

// Delete removes an entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// InvalidateByDependency removes entries derived from dep and returns how
// many were removed.
func (c *Cache) InvalidateByDependency(dep string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		for _, d := range e.Dependencies {
			if d == dep {
				c.removeLocked(key)
				count++
				break
			}
		}
	}
	return count
}

// Clear removes all entries and resets the statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.stats = Stats{}
}

// Stats returns a copy of the statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Key derives a cache key from inputs. Inputs are length prefixed so
// ("ab","c") and ("a","bc") differ.
func Key(inputs ...string) string {
	h := sha256.New()
	for _, in := range inputs {
		var n [8]byte
		l := uint64(len(in))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(in))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) expired(e *Entry) bool {
	return c.cfg.MaxAge > 0 && c.cfg.Now().Sub(e.Created) > c.cfg.MaxAge
}

func (c *Cache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.stats.TotalSize -= e.Size
	c.stats.EntryCount = len(c.entries)
}

func (c *Cache) ensureSpaceLocked(needed int64) {
	if c.cfg.MaxSize <= 0 {
		return
	}
	for c.stats.TotalSize+needed > c.cfg.MaxSize && len(c.entries) > 0 {
		victim := c.victimLocked()
		if victim == "" {
			return
		}
		c.removeLocked(victim)
		c.stats.Evictions++
	}
}

func (c *Cache) victimLocked() string {
	var (
		key  string
		pick *Entry
	)
	for k, e := range c.entries {
		if pick == nil || c.before(e, pick) || (!c.before(pick, e) && k < key) {
			key, pick = k, e
		}
	}
	return key
}

// before reports whether a should be evicted ahead of b.
func (c *Cache) before(a, b *Entry) bool {
	switch c.cfg.Strategy {
	case LFU:
		return a.AccessCount < b.AccessCount
	case FIFO:
		return a.Created.Before(b.Created)
	default:
		return a.LastAccess.Before(b.LastAccess)
	}
}
