package indexer

import (
	"context"
	"sync/atomic"
	"time"
)

// Scheduler runs fn at some later point. Each tick reschedules the next one
// through it, so the crawl never recurses or blocks its caller.
type Scheduler interface {
	Schedule(fn func(), aggressive bool)
}

// IdleScheduler runs fn on its own goroutine after Delay, or at once when
// aggressive.
type IdleScheduler struct {
	Delay time.Duration
}

func (s IdleScheduler) Schedule(fn func(), aggressive bool) {
	delay := s.Delay
	if aggressive || delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, fn)
}

// Clock abstracts time so throttles and backoff are deterministic in tests.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Visibility reports whether the host is in the background. Non-aggressive
// runs pause while hidden.
type Visibility interface {
	Hidden() bool
}

type alwaysVisible struct{}

func (alwaysVisible) Hidden() bool { return false }

// VisibilityFlag is a Visibility a host can flip from any goroutine.
type VisibilityFlag struct {
	hidden atomic.Bool
}

func (v *VisibilityFlag) Hidden() bool { return v.hidden.Load() }

func (v *VisibilityFlag) SetHidden(hidden bool) { v.hidden.Store(hidden) }

// Toggle flips the flag and returns the new hidden state.
func (v *VisibilityFlag) Toggle() bool {
	for {
		old := v.hidden.Load()
		if v.hidden.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
