package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements fixed-window rate limiting per client identifier.
// A window opens on the first request (or the first request at or past
// the previous window's reset time) and closes window-duration later.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window

	limit  int
	period time.Duration
}

// window tracks a single client's counter for the current window.
type window struct {
	count   int
	resetAt time.Time
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// NewLimiter creates a limiter admitting limit requests per period.
func NewLimiter(limit int, period time.Duration) *Limiter {
	return &Limiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
	}
}

// Admit decides whether a request from clientID arriving at now is
// allowed. Decisions for the same client are strictly ordered: the
// mutex ensures no two concurrent calls observe the same stale counter.
// A request arriving exactly at the reset time starts a new window.
func (l *Limiter) Admit(clientID string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[clientID]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 0, resetAt: now.Add(l.period)}
		l.clients[clientID] = w
	}

	if w.count >= l.limit {
		// Rejected requests do not consume quota.
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Remaining: max(0, l.limit-w.count),
		ResetAt:   w.resetAt,
	}
}

// Limit returns the configured per-window request limit.
func (l *Limiter) Limit() int { return l.limit }

// Cleanup removes windows whose reset time passed long enough ago that
// the client is considered gone. Keeps the per-client table bounded.
func (l *Limiter) Cleanup(now time.Time) {
	cutoff := now.Add(-3 * l.period)

	l.mu.Lock()
	defer l.mu.Unlock()

	for clientID, w := range l.clients {
		if w.resetAt.Before(cutoff) {
			delete(l.clients, clientID)
		}
	}
}

// StartJanitor sweeps stale windows once per period until ctx is done.
func (l *Limiter) StartJanitor(ctx context.Context) {
	t := time.NewTicker(l.period)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.Cleanup(now)
			}
		}
	}()
}
