// Package ratelimit throttles writes per client with a fixed one-minute
// window.
package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter counts requests per key in fixed one-minute windows.
type Limiter struct {
	mu         sync.Mutex
	windows    map[string]*window
	limit      int
	sweepEvery time.Duration
	idleTTL    time.Duration
	now        func() time.Time

	rejected int64
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start time.Time
	seen  time.Time
	count int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig allows 120 requests per minute and sweeps idle clients every
// five minutes.
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 120, CleanupInterval: 5 * time.Minute}
}

// NewLimiter starts the sweep goroutine; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		windows:    make(map[string]*window),
		limit:      cfg.RequestsPerMinute,
		sweepEvery: cfg.CleanupInterval,
		idleTTL:    10 * time.Minute,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow counts one request for key and reports whether it fits the current
// window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.windows[key] = &window{start: now, seen: now, count: 1}
		return true
	}
	w.seen = now
	w.count++
	if w.count > l.limit {
		atomic.AddInt64(&l.rejected, 1)
		return false
	}
	return true
}

func (l *Limiter) sweepLoop() {
	t := time.NewTicker(l.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep forgets keys idle for longer than idleTTL and returns how many.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	n := 0
	for key, w := range l.windows {
		if w.seen.Before(cutoff) {
			delete(l.windows, key)
			n++
		}
	}
	return n
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the sweep goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Metrics struct {
	Rejected    int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		Rejected:    atomic.LoadInt64(&l.rejected),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware limits requests whose method is listed (every method when none
// are). Over the limit it sets Retry-After and calls onLimit, or answers a
// plain 429 when onLimit is nil.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request), methods ...string) func(http.Handler) http.Handler {
	only := make(map[string]bool, len(methods))
	for _, m := range methods {
		only[m] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(only) > 0 && !only[r.Method] {
				next.ServeHTTP(w, r)
				return
			}
			if l.Allow(extractIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "60")
			if onLimit == nil {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
