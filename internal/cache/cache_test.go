package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock advances one second per reading.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(time.Second)
	return f.t
}

func newCache(cfg Config) *Cache {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cfg.Now = clock.Now
	return New(cfg)
}

func TestCache_GetPut(t *testing.T) {
	c := newCache(Config{MaxSize: 1 << 20})

	data := []byte("png bytes")
	c.Put("k", data)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("Expected hit")
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected %q, got %q", data, got)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Expected miss for unknown key")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %+v", stats)
	}
	if stats.TotalSize != int64(len(data)) || stats.EntryCount != 1 {
		t.Errorf("Expected size %d in 1 entry, got %+v", len(data), stats)
	}
}

func TestCache_Replace(t *testing.T) {
	c := newCache(Config{})
	c.Put("k", []byte("aaaa"))
	c.Put("k", []byte("bb"))

	if s := c.Stats(); s.TotalSize != 2 || s.EntryCount != 1 {
		t.Errorf("Expected one 2 byte entry, got %+v", s)
	}
}

func TestCache_Eviction(t *testing.T) {
	tests := []struct {
		name     string
		strategy EvictionStrategy
		touch    []string
		evicted  string
	}{
		{"LRU", LRU, []string{"a", "c"}, "b"},
		{"LFU", LFU, []string{"a", "a", "b"}, "c"},
		{"FIFO", FIFO, []string{"a", "b", "c"}, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCache(Config{MaxSize: 30, Strategy: tt.strategy})
			for _, k := range []string{"a", "b", "c"} {
				c.Put(k, make([]byte, 10))
			}
			for _, k := range tt.touch {
				c.Get(k)
			}
			c.Put("d", make([]byte, 10))

			if _, ok := c.Get(tt.evicted); ok {
				t.Errorf("Expected %s evicted", tt.evicted)
			}
			if s := c.Stats(); s.Evictions != 1 || s.TotalSize != 30 {
				t.Errorf("Expected 1 eviction and 30 bytes, got %+v", s)
			}
		})
	}
}

func TestCache_TooLarge(t *testing.T) {
	c := newCache(Config{MaxSize: 4})
	c.Put("big", []byte("12345"))
	if _, ok := c.Get("big"); ok {
		t.Error("Expected oversized artifact not stored")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := newCache(Config{MaxAge: 2 * time.Second})
	c.Put("k", []byte("x"))
	c.Get("k")
	c.Get("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
	if s := c.Stats(); s.EntryCount != 0 {
		t.Errorf("Expected expired entry removed, got %+v", s)
	}
}

func TestCache_InvalidateByDependency(t *testing.T) {
	c := newCache(Config{})
	c.Put("png", []byte("1"), "maps/a.yaml")
	c.Put("svg", []byte("2"), "maps/a.yaml", "icons/")
	c.Put("other", []byte("3"), "maps/b.yaml")

	if n := c.InvalidateByDependency("maps/a.yaml"); n != 2 {
		t.Errorf("Expected 2 invalidated, got %d", n)
	}
	if _, ok := c.Get("other"); !ok {
		t.Error("Expected unrelated entry kept")
	}
}

func TestCache_Clear(t *testing.T) {
	c := newCache(Config{})
	c.Put("a", []byte("1"))
	c.Get("a")
	c.Clear()
	if s := c.Stats(); s != (Stats{}) {
		t.Errorf("Expected zero stats, got %+v", s)
	}
}

func TestKey(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Expected length prefixed keys to differ")
	}
	if Key("png", "800") != Key("png", "800") {
		t.Error("Expected stable keys")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := newCache(Config{MaxSize: 1 << 10})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				k := fmt.Sprintf("k%d-%d", i, j%5)
				c.Put(k, []byte("data"))
				c.Get(k)
			}
		}(i)
	}
	wg.Wait()
	if s := c.Stats(); s.TotalSize != int64(s.EntryCount*4) {
		t.Errorf("Expected size to match entries, got %+v", s)
	}
}
