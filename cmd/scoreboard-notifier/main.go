package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"scoreboard/internal/amqp"
	"scoreboard/internal/cache"
	"scoreboard/internal/cli"
	"scoreboard/internal/log"
	"scoreboard/internal/worker"
)

// seenNotices bounds the redelivery de-duplication memory.
const seenNotices = 1024

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.WithComponent(log.ComponentApp).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentNotifier)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	logger.Info("Starting scoreboard-notifier", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	w := worker.NewNoticeWorker(seenNotices, logger)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache))
	caches.Register("seen_notices", w.Seen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeRolloverNotices(gctx, w.HandleRolloverNotice)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Hour)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	st := w.Stats()
	logger.Info("Notifier stopped", "handled", st.Handled, "skipped", st.Skipped)
}
