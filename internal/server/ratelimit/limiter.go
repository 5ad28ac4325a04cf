// Package ratelimit is a per-key token bucket limiter for HTTP endpoints.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter allows up to burst requests per window per key, refilling
// continuously at burst/window tokens per second.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	stopCh   chan struct{}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New starts a limiter and its stale-bucket sweeper. Call Stop to end the
// sweeper.
func New(requests int, window time.Duration) *Limiter {
	l := newLimiter(requests, window, time.Now)
	go l.sweep(2 * window)
	return l
}

func newLimiter(requests int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		now:     now,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Stop ends the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.dropIdle(every)
		case <-l.stopCh:
			return
		}
	}
}

// dropIdle removes buckets untouched for longer than idle; they would be full
// again anyway.
func (l *Limiter) dropIdle(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.seen) > idle {
			delete(l.buckets, key)
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
