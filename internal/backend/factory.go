package backend

import (
	"context"
	"fmt"

	"scoreboard/internal/blob/google"
	"scoreboard/internal/blob/memory"
	"scoreboard/internal/cache"
	"scoreboard/internal/log"
	"scoreboard/internal/persist"
	"scoreboard/internal/storage"
)

type factory struct {
	logger *log.Logger
}

// NewFactory returns the factory for the built-in stores. logger may be nil.
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.WithComponent(log.ComponentBackend)
	}
	return &factory{logger: logger}
}

func (f *factory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case SQLite:
		return f.sqlite(cfg.SQLitePath)
	case Sheets:
		return f.sheets(ctx, cfg.Sheets)
	default:
		return f.memory(cfg.SeedDir), nil
	}
}

func (f *factory) sqlite(path string) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", path)
	return &BackendResult{Store: repo, Cleanup: repo.Close, Ready: repo.Ping}, nil
}

func (f *factory) sheets(ctx context.Context, opts google.Options) (*BackendResult, error) {
	client, err := google.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open sheets store: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", opts.SheetName, "read_cache_ttl", opts.CacheTTL)

	res := &BackendResult{Store: client, Cleanup: noCleanup, Ready: alwaysReady}
	if rc := client.ReadCache(); rc != nil {
		res.Caches = map[string]cache.Cleaner{"sheets_reads": rc}
	}
	return res, nil
}

func (f *factory) memory(seedDir string) *BackendResult {
	if seedDir == "" {
		seedDir = "data"
	}
	store := memory.NewFromFiles(seedDir, persist.Keys)
	f.logger.Info("Initialized memory backend", "data_directory", seedDir, "seeded_slots", store.Len())
	return &BackendResult{Store: store, Cleanup: noCleanup, Ready: alwaysReady}
}

func noCleanup() error { return nil }

func alwaysReady(context.Context) error { return nil }
