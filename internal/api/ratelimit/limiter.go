package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of admissions allowed per window.
	DefaultMaxRequests = 10
	// DefaultWindow is the length of a counting window.
	DefaultWindow = time.Minute
	// DefaultCleanupInterval is how often Run sweeps expired entries.
	DefaultCleanupInterval = 5 * time.Minute
)

// Limiter enforces a fixed-window request limit per identity (user id, session id, IP).
//
// Identities that have never been seen are always admitted. Windows reset on
// expiry; they do not slide.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	store  map[string]*entry
}

type entry struct {
	count     int
	windowEnd time.Time
}

// Decision is the outcome of a CheckLimit call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a new Limiter. Non-positive arguments fall back to the defaults.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		store:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured admissions per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// CheckLimit records an attempt for id and reports whether it is admitted.
// A window whose end equals the current time is treated as expired.
func (l *Limiter) CheckLimit(id string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.store[id]
	if !ok || !now.Before(e.windowEnd) {
		l.store[id] = &entry{count: 1, windowEnd: now.Add(l.window)}
		return Decision{Allowed: true, Remaining: l.limit - 1, ResetIn: l.window}
	}

	if e.count >= l.limit {
		return Decision{Allowed: false, Remaining: 0, ResetIn: e.windowEnd.Sub(now)}
	}

	e.count++
	return Decision{Allowed: true, Remaining: l.limit - e.count, ResetIn: e.windowEnd.Sub(now)}
}

// Cleanup removes expired entries from the limiter to avoid unbounded growth.
// It returns the number of entries removed.
func (l *Limiter) Cleanup() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, e := range l.store {
		if !now.Before(e.windowEnd) {
			delete(l.store, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.store)
}

// Run calls Cleanup every interval until ctx is cancelled. The optional
// onSweep callback receives the number of entries removed by each pass.
func (l *Limiter) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) error {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed := l.Cleanup()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}

// count is used by tests to inspect an entry without mutating it.
func (l *Limiter) count(id string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.store[id]
	if !ok {
		return 0, false
	}
	return e.count, true
}
