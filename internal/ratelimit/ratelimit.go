// Package ratelimit implements the per-client sliding-window limiter applied
// to fingerprint submissions.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter tracks request timestamps per client key over a sliding window.
// A request is allowed while fewer than limit requests landed inside the
// window ending now.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	stamps   []time.Time
	lastSeen time.Time
}

// New builds a limiter allowing limit requests per window. Non-positive
// arguments fall back to 120 requests per minute.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
	}
}

// Allow records a request for key and reports whether it fits the window.
// Denied requests are not recorded, so a saturated client recovers as soon
// as old stamps age out.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	client := l.clients[key]
	if client == nil {
		client = &clientWindow{}
		l.clients[key] = client
	}
	client.lastSeen = now

	kept := client.stamps[:0]
	for _, stamp := range client.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	client.stamps = kept

	if len(client.stamps) >= l.limit {
		return false
	}
	client.stamps = append(client.stamps, now)
	return true
}

// Sweep drops clients idle for longer than maxIdle and returns how many were
// removed. Keeps the map bounded on long-running daemons.
func (l *Limiter) Sweep(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, client := range l.clients {
		if client.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Run sweeps on a ticker until the context ends.
func (l *Limiter) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(maxIdle)
		}
	}
}

// Tracked reports how many client windows are currently held.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
