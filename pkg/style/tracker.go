package style

import (
	"context"
	"sync"
)

// Tracker is a counted barrier over a set of image sources. Each source is
// settled exactly once, whether it loaded or failed; when the last one
// settles the tracker becomes ready and runs its callbacks. The canvas uses
// it to defer the first draw until every type icon has been seen.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]struct{}
	ready   chan struct{}
	onReady []func()
}

// NewTracker creates a tracker waiting for the given sources. A tracker
// with no sources is ready immediately.
func NewTracker(sources ...string) *Tracker {
	t := &Tracker{
		pending: make(map[string]struct{}, len(sources)),
		ready:   make(chan struct{}),
	}
	for _, src := range sources {
		t.pending[src] = struct{}{}
	}
	if len(t.pending) == 0 {
		close(t.ready)
	}
	return t
}

// Done settles one source. Unknown or already settled sources are ignored.
func (t *Tracker) Done(source string) {
	t.mu.Lock()
	if _, ok := t.pending[source]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.pending, source)
	if len(t.pending) > 0 {
		t.mu.Unlock()
		return
	}
	callbacks := t.onReady
	t.onReady = nil
	close(t.ready)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Pending returns the number of unsettled sources.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Ready returns a channel closed once every source has settled.
func (t *Tracker) Ready() <-chan struct{} {
	return t.ready
}

// OnReady runs fn once the tracker is ready; immediately if it already is.
func (t *Tracker) OnReady(fn func()) {
	t.mu.Lock()
	select {
	case <-t.ready:
		t.mu.Unlock()
		fn()
		return
	default:
	}
	t.onReady = append(t.onReady, fn)
	t.mu.Unlock()
}

// Wait blocks until the tracker is ready or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
