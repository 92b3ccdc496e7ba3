package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scoreboard/internal/log"
)

// Flusher retries saves that failed earlier.
type Flusher interface {
	FlushPending(ctx context.Context) error
}

// PersistRetrier periodically flushes a snapshot whose save failed, so a
// transient store outage does not lose the board.
type PersistRetrier struct {
	flusher  Flusher
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPersistRetrier creates a retrier; interval defaults to 30s.
func NewPersistRetrier(f Flusher, interval time.Duration) *PersistRetrier {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PersistRetrier{
		flusher:  f,
		interval: interval,
		logger:   log.WithComponent(log.ComponentPersist),
	}
}

// Start begins the retry loop. Returns an error if already running.
func (p *PersistRetrier) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("persist retrier is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.runLoop(ctx, p.stopCh, p.doneCh)
	return nil
}

// Stop signals the loop and waits for it to exit or ctx to end.
func (p *PersistRetrier) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Persist retrier stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the loop is active
func (p *PersistRetrier) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PersistRetrier) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.flusher.FlushPending(ctx); err != nil {
				p.logger.WarnContext(ctx, "Pending save still failing", log.FieldError, err)
			}
		}
	}
}
