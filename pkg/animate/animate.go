// Package animate runs fixed-length step sequences such as scrolling the
// canvas to a position. A sequence is either driven by Run, which waits a
// fixed delay between steps, or stepped explicitly with Advance by an event
// loop that owns its own timer.
package animate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Defaults for scroll animations.
const (
	DefaultSteps = 30
	DefaultDelay = 10 * time.Millisecond
)

// ErrCancelled is returned by Run when the sequence was cancelled with
// Cancel before its last step.
var ErrCancelled = errors.New("animation cancelled")

// Clock is the time source Run waits on.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Step applies step i (1-based) of n.
type Step func(i, n int)

// Sequence is a bounded series of steps.
type Sequence struct {
	mu        sync.Mutex
	steps     int
	delay     time.Duration
	step      Step
	next      int
	cancelled bool
	clock     Clock
}

// New creates a sequence of steps calls to step, delay apart. Non-positive
// values take the defaults.
func New(steps int, delay time.Duration, step Step) *Sequence {
	if steps <= 0 {
		steps = DefaultSteps
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Sequence{steps: steps, delay: delay, step: step, next: 1, clock: realClock{}}
}

// WithClock replaces the time source.
func (s *Sequence) WithClock(c Clock) *Sequence {
	s.clock = c
	return s
}

// Delay returns the pause between steps.
func (s *Sequence) Delay() time.Duration { return s.delay }

// Steps returns the total number of steps.
func (s *Sequence) Steps() int { return s.steps }

// Advance applies the next step. It returns false once the sequence is
// finished or cancelled, without calling step.
func (s *Sequence) Advance() bool {
	s.mu.Lock()
	if s.cancelled || s.next > s.steps {
		s.mu.Unlock()
		return false
	}
	i := s.next
	s.next++
	s.mu.Unlock()

	s.step(i, s.steps)
	return true
}

// Done reports whether no step remains.
func (s *Sequence) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled || s.next > s.steps
}

// Cancel stops the sequence before its next step. Steps already applied
// stay applied.
func (s *Sequence) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// Cancelled reports whether Cancel was called.
func (s *Sequence) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Run applies all remaining steps, waiting the delay before each. It
// returns ctx.Err() or ErrCancelled when stopped early.
func (s *Sequence) Run(ctx context.Context) error {
	for !s.Done() {
		select {
		case <-ctx.Done():
			s.Cancel()
			return ctx.Err()
		case <-s.clock.After(s.delay):
		}
		s.Advance()
	}
	if s.Cancelled() && s.progress() <= s.steps {
		return ErrCancelled
	}
	return nil
}

func (s *Sequence) progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Translate builds a sequence moving a translation from start to end. Each
// step calls apply with the absolute translation for that step; the last
// step lands exactly on end.
func Translate(start, end topicmap.Point, steps int, delay time.Duration, apply func(topicmap.Point)) *Sequence {
	d := end.Sub(start)
	return New(steps, delay, func(i, n int) {
		apply(topicmap.Point{
			X: start.X + d.X*i/n,
			Y: start.Y + d.Y*i/n,
		})
	})
}
