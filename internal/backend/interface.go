// Package backend selects and builds the slot store named by DATA_BACKEND.
package backend

import (
	"context"

	"scoreboard/internal/blob"
	"scoreboard/internal/cache"
)

type CleanupFunc func() error

// ReadyFunc reports whether the store can currently serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult is a built store with its lifecycle hooks. Cleanup and Ready
// are never nil.
type BackendResult struct {
	Store   blob.Store
	Cleanup CleanupFunc
	Ready   ReadyFunc
	// Caches are caches the caller should sweep for expired entries.
	Caches map[string]cache.Cleaner
}

type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error)
}
