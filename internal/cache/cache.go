// Package cache holds the in-process caches: memoized earnings views and
// remote slot reads.
package cache

import (
	"context"
	"sync"
	"time"

	"scoreboard/internal/log"
)

// Stats is a point-in-time snapshot of cache usage.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps registered caches.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	logger *log.Logger
}

// NewManager creates an empty manager.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.WithComponent("cache")
	}
	return &Manager{caches: make(map[string]Cleaner), logger: logger}
}

// Register adds a cache under name.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Sweep cleans every registered cache once and returns the total removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for name, c := range m.caches {
		n := c.CleanExpired()
		if n > 0 {
			m.logger.Debug("Expired cache entries removed", log.FieldCache, name, log.FieldCount, n)
		}
		total += n
	}
	return total
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return nil
		}
	}
}
