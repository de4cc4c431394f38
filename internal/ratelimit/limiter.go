package ratelimit

import (
	"sync"
	"time"
)

// Defaults applied when the limiter is constructed with non-positive values.
const (
	DefaultMaxRequests = 5
	DefaultWindow      = time.Minute
)

// Limiter admits or rejects requests per sender key using a sliding window:
// timestamps older than the window span are purged on every admission check,
// so a sender can never exceed the maximum within any trailing interval.
// State is process-local; separate instances do not synchronize.
type Limiter struct {
	max  int
	span time.Duration

	mu      sync.RWMutex
	windows map[string]*window

	sweep *time.Ticker
	done  chan struct{}

	clock func() time.Time
}

type window struct {
	mu         sync.Mutex
	dead       bool
	timestamps []time.Time
}

// New constructs a Limiter and starts its background sweeper. The caller
// owns the limiter and must Stop it on shutdown.
func New(maxRequests int, span time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if span <= 0 {
		span = DefaultWindow
	}

	l := &Limiter{
		max:     maxRequests,
		span:    span,
		windows: make(map[string]*window),
		sweep:   time.NewTicker(span),
		done:    make(chan struct{}),
		clock:   time.Now,
	}

	go l.sweepLoop()
	return l
}

// Allow reports whether the sender may proceed, recording the attempt when
// admitted. Rejected attempts are not recorded and do not extend the window.
func (l *Limiter) Allow(sender string) bool {
	w := l.acquire(sender)
	defer w.mu.Unlock()

	now := l.clock()
	w.purge(now.Add(-l.span))

	if len(w.timestamps) >= l.max {
		return false
	}

	w.timestamps = append(w.timestamps, now)
	return true
}

// MaxRequests returns the admission ceiling per window.
func (l *Limiter) MaxRequests() int { return l.max }

// Window returns the configured sliding-window span.
func (l *Limiter) Window() time.Duration { return l.span }

// Stop terminates the background sweeper. The limiter remains usable for
// admission checks afterwards; idle senders just stop being evicted.
func (l *Limiter) Stop() {
	l.sweep.Stop()
	close(l.done)
}

// acquire returns the sender's window with its mutex held, retrying when a
// sweep retired the window in between.
func (l *Limiter) acquire(sender string) *window {
	for {
		w := l.window(sender)
		w.mu.Lock()
		if !w.dead {
			return w
		}
		w.mu.Unlock()
	}
}

func (l *Limiter) window(sender string) *window {
	l.mu.RLock()
	w, ok := l.windows[sender]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok = l.windows[sender]; ok {
		return w
	}
	w = &window{}
	l.windows[sender] = w
	return w
}

func (l *Limiter) sweepLoop() {
	for {
		select {
		case <-l.done:
			return
		case <-l.sweep.C:
			l.evictIdle()
		}
	}
}

// evictIdle drops senders whose windows have fully drained, keeping the map
// from growing without bound.
func (l *Limiter) evictIdle() {
	cutoff := l.clock().Add(-l.span)

	l.mu.Lock()
	defer l.mu.Unlock()

	for sender, w := range l.windows {
		w.mu.Lock()
		w.purge(cutoff)
		if len(w.timestamps) == 0 {
			w.dead = true
			delete(l.windows, sender)
		}
		w.mu.Unlock()
	}
}

func (w *window) purge(cutoff time.Time) {
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept
}
