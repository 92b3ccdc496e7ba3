// Package cli provides the start-up steps shared by cmd/scoreboard,
// cmd/scoreboardctl and cmd/scoreboard-notifier.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"scoreboard/internal/backend"
	"scoreboard/internal/config"
	"scoreboard/internal/log"
	"scoreboard/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger installs the process logger described by cfg.
func SetupLogger(cfg *config.Config) *log.Logger {
	return log.Setup(cfg.LogLevel, cfg.LogFormat)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Scoreboard bundles a loaded service with the backend it persists into.
type Scoreboard struct {
	Service *services.ScoreboardService
	Backend *backend.BackendResult
}

// Close releases the backend.
func (s *Scoreboard) Close() error {
	return s.Backend.Cleanup()
}

// OpenScoreboard builds the configured backend and loads the board from it.
// notifier may be nil.
func OpenScoreboard(ctx context.Context, cfg *config.Config, notifier services.Notifier, logger *log.Logger) (*Scoreboard, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	svc := services.NewScoreboardService(res.Store, notifier, services.Options{
		ViewCacheSize: cfg.EarningsCacheSize,
		Logger:        logger.WithComponent(log.ComponentBoard),
	})
	svc.Load(ctx)
	return &Scoreboard{Service: svc, Backend: res}, nil
}
