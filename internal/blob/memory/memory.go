package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"scoreboard/internal/blob"
)

// Store keeps slots in process memory. Nothing survives a restart.
type Store struct {
	mu    sync.Mutex
	slots map[string][]byte
}

var (
	_ blob.Store       = (*Store)(nil)
	_ blob.BatchWriter = (*Store)(nil)
)

func New() *Store {
	return &Store{slots: make(map[string][]byte)}
}

// NewFromFiles seeds the store from <base>/<key>.json for each key. Missing
// or empty files are skipped.
func NewFromFiles(base string, keys []string) *Store {
	s := New()
	for _, key := range keys {
		raw, err := os.ReadFile(filepath.Join(base, key+".json"))
		if err != nil || len(raw) == 0 {
			continue
		}
		s.slots[key] = raw
	}
	return s
}

// Get implements blob.Reader
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements blob.Writer
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = append([]byte(nil), value...)
	return nil
}

// SetMany implements blob.BatchWriter
func (s *Store) SetMany(_ context.Context, blobs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range blobs {
		s.slots[k] = append([]byte(nil), v...)
	}
	return nil
}

// Len returns the number of stored slots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
