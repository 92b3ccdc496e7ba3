package amqp

import (
	"errors"
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
)

// ErrBreakerOpen is returned by publishes skipped while the broker is
// considered down.
var ErrBreakerOpen = errors.New("circuit breaker is open, skipping publish")

// breaker opens after maxFailures consecutive failures and lets one trial
// publish through once openTimeout has passed. A failed trial reopens it.
type breaker struct {
	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	now      func() time.Time
}

func (b *breaker) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerOpen && b.clock().Sub(b.openedAt) > openTimeout {
		b.state = breakerHalfOpen
	}
	return b.state != breakerOpen
}

func (b *breaker) success() {
	b.mu.Lock()
	b.state, b.failures = breakerClosed, 0
	b.mu.Unlock()
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= maxFailures || b.state == breakerHalfOpen {
		b.state, b.openedAt = breakerOpen, b.clock()
	}
}
