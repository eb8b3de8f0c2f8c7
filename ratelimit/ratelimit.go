// Package ratelimit provides per-client request limiting for the HTTP API
// using token buckets. Each client gets a bucket that refills continuously
// over the configured window.
package ratelimit

import (
	"sync"
	"time"
)

// window is the refill period for all buckets.
const window = time.Minute

// idleTTL is how long an untouched bucket survives before being swept.
const idleTTL = 10 * time.Minute

// bucket is a token bucket for a single client.
type bucket struct {
	capacity   int
	available  float64
	lastRefill time.Time
	lastSeen   time.Time
}

// refill adds tokens proportional to elapsed time since last refill.
func (b *bucket) refill(now time.Time, rate float64) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	b.available += rate * elapsed.Seconds()
	if b.available > float64(b.capacity) {
		b.available = float64(b.capacity)
	}
	b.lastRefill = now
}

// Limiter tracks token buckets per client key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	perWindow int     // tokens granted per window
	burst     int     // bucket capacity
	rate      float64 // tokens per second

	nowFunc   func() time.Time // for testing
	lastSweep time.Time
}

// NewLimiter creates a limiter granting perWindow requests per minute with
// the given burst capacity. A perWindow of zero disables limiting.
func NewLimiter(perWindow, burst int) *Limiter {
	if burst <= 0 {
		burst = perWindow
	}
	return &Limiter{
		buckets:   make(map[string]*bucket),
		perWindow: perWindow,
		burst:     burst,
		rate:      float64(perWindow) / window.Seconds(),
		nowFunc:   time.Now,
		lastSweep: time.Now(),
	}
}

// Allow reports whether the client may make a request now, consuming a
// token if so.
func (l *Limiter) Allow(client string) bool {
	if l.perWindow <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.sweep(now)

	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{
			capacity:   l.burst,
			available:  float64(l.burst),
			lastRefill: now,
		}
		l.buckets[client] = b
	}

	b.refill(now, l.rate)
	b.lastSeen = now

	if b.available >= 1 {
		b.available--
		return true
	}
	return false
}

// Remaining returns the whole tokens currently available to a client.
func (l *Limiter) Remaining(client string) int {
	if l.perWindow <= 0 {
		return l.burst
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[client]
	if !ok {
		return l.burst
	}
	b.refill(l.nowFunc(), l.rate)
	return int(b.available)
}

// sweep drops buckets that have not been touched within idleTTL. Called with
// the lock held, at most once per TTL period.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleTTL {
		return
	}
	for client, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(l.buckets, client)
		}
	}
	l.lastSweep = now
}
