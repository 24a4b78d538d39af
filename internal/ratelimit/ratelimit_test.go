package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	l := New(limit, window)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for attempt := 0; attempt < 3; attempt++ {
		if !l.Allow("client") {
			t.Fatalf("attempt %d denied under limit", attempt)
		}
	}
	if l.Allow("client") {
		t.Fatal("fourth request should be denied")
	}
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	if !l.Allow("client") || !l.Allow("client") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("client") {
		t.Fatal("third request inside the window should be denied")
	}

	*clock = clock.Add(61 * time.Second)
	if !l.Allow("client") {
		t.Fatal("request after the window slid should pass")
	}
}

func TestDeniedRequestsNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	if !l.Allow("client") {
		t.Fatal("first request should pass")
	}
	for i := 0; i < 10; i++ {
		l.Allow("client")
	}
	// Only the single allowed stamp must age out for recovery.
	*clock = clock.Add(61 * time.Second)
	if !l.Allow("client") {
		t.Fatal("client should recover once the allowed stamp ages out")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if !l.Allow("client-a") {
		t.Fatal("client-a first request should pass")
	}
	if l.Allow("client-a") {
		t.Fatal("client-a second request should be denied")
	}
	if !l.Allow("client-b") {
		t.Fatal("client-b should be unaffected by client-a")
	}
}

func TestSweepDropsIdleClients(t *testing.T) {
	l, clock := newTestLimiter(10, time.Minute)

	l.Allow("old")
	*clock = clock.Add(10 * time.Minute)
	l.Allow("fresh")

	removed := l.Sweep(5 * time.Minute)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if l.Tracked() != 1 {
		t.Fatalf("tracked = %d, want 1", l.Tracked())
	}
}

func TestDefaults(t *testing.T) {
	l := New(0, 0)
	if l.limit != 120 || l.window != time.Minute {
		t.Fatalf("defaults = %d per %v", l.limit, l.window)
	}
}
