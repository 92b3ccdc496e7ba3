package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"scoreboard/internal/amqp"
	"scoreboard/internal/cache"
	"scoreboard/internal/cli"
	"scoreboard/internal/config"
	apphttp "scoreboard/internal/http"
	"scoreboard/internal/log"
	"scoreboard/internal/services"
)

const (
	persistRetryInterval = 30 * time.Second
	cacheSweepInterval   = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.WithComponent(log.ComponentApp).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	notifier, closeNotifier := newNotifier(cfg, logger)
	defer closeNotifier()

	board, err := cli.OpenScoreboard(ctx, cfg, notifier, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := board.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(":"+cfg.Port, board.Service, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              board.Backend.Ready,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	})
	if err != nil {
		return err
	}

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache))
	for name, c := range board.Backend.Caches {
		caches.Register(name, c)
	}

	retrier := services.NewPersistRetrier(board.Service, persistRetryInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting scoreboard server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"amqp", cfg.AMQPEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := retrier.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		return caches.Run(gctx, cacheSweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := retrier.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		// Last chance for a save that failed while serving.
		if err := board.Service.FlushPending(shutdownCtx); err != nil {
			logger.Error("Unsaved changes at shutdown", log.FieldError, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// newNotifier connects to the broker when AMQP_URL is set. An unreachable
// broker disables notices rather than stopping the board.
func newNotifier(cfg *config.Config, logger *log.Logger) (services.Notifier, func()) {
	if !cfg.AMQPEnabled() {
		logger.Info("Rollover notices disabled - no AMQP_URL provided")
		return services.NopNotifier{}, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, rollover notices disabled", log.FieldError, err)
		return services.NopNotifier{}, func() {}
	}
	logger.Info("Rollover notices enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return services.NewAMQPNotifier(client), func() {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close failed", log.FieldError, err)
		}
	}
}
