// Package blob defines the key/value slot store the scoreboard persists into.
package blob

import "context"

// Ports for persistence adapters.
type (
	// Reader loads one slot. A missing slot is (nil, false, nil).
	Reader interface {
		Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	}

	Writer interface {
		Set(ctx context.Context, key string, value []byte) error
	}

	// BatchWriter is implemented by stores that can replace several slots at once.
	BatchWriter interface {
		SetMany(ctx context.Context, values map[string][]byte) error
	}

	Store interface {
		Reader
		Writer
	}
)
