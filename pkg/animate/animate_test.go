package animate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

// instantClock fires immediately and counts waits.
type instantClock struct{ waits int }

func (c *instantClock) After(time.Duration) <-chan time.Time {
	c.waits++
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestDefaults(t *testing.T) {
	s := New(0, 0, func(int, int) {})
	if s.Steps() != DefaultSteps || s.Delay() != DefaultDelay {
		t.Errorf("Expected defaults %d/%v, got %d/%v", DefaultSteps, DefaultDelay, s.Steps(), s.Delay())
	}
}

func TestRunAppliesAllSteps(t *testing.T) {
	var got []int
	clock := &instantClock{}
	s := New(5, time.Millisecond, func(i, n int) {
		if n != 5 {
			t.Errorf("Expected n=5, got %d", n)
		}
		got = append(got, i)
	}).WithClock(clock)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 5 || got[0] != 1 || got[4] != 5 {
		t.Errorf("Expected steps 1..5, got %v", got)
	}
	if clock.waits != 5 {
		t.Errorf("Expected 5 waits, got %d", clock.waits)
	}
	if s.Advance() {
		t.Error("Expected finished sequence not to advance")
	}
}

func TestCancel(t *testing.T) {
	var s *Sequence
	count := 0
	s = New(10, time.Millisecond, func(i, n int) {
		count++
		if i == 3 {
			s.Cancel()
		}
	}).WithClock(&instantClock{})

	err := s.Run(context.Background())
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 steps before cancel, got %d", count)
	}
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	count := 0
	s := New(10, time.Hour, func(int, int) { count++ })
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no steps, got %d", count)
	}
	if !s.Cancelled() {
		t.Error("Expected sequence to be marked cancelled")
	}
}

func TestTranslateLandsOnTarget(t *testing.T) {
	var last topicmap.Point
	var path []topicmap.Point
	s := Translate(topicmap.Point{X: 0, Y: 100}, topicmap.Point{X: -97, Y: 13}, 7, time.Millisecond, func(p topicmap.Point) {
		path = append(path, p)
		last = p
	})
	for s.Advance() {
	}
	if last != (topicmap.Point{X: -97, Y: 13}) {
		t.Errorf("Expected to land on (-97,13), got %v", last)
	}
	if len(path) != 7 {
		t.Errorf("Expected 7 steps, got %d", len(path))
	}
	for i := 1; i < len(path); i++ {
		if path[i].X > path[i-1].X || path[i].Y > path[i-1].Y {
			t.Errorf("Expected monotonic path, got %v", path)
			break
		}
	}
}
