// Command scheduler runs the background worker: the periodic autosave flush
// and on-demand draft sync pushes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forwarding_portal_backend/internal/drafts/repository"
	draftsync "forwarding_portal_backend/internal/drafts/sync"
	"forwarding_portal_backend/internal/email"
	"forwarding_portal_backend/internal/events"
	"forwarding_portal_backend/internal/notification"
	"forwarding_portal_backend/internal/scheduler"
	"forwarding_portal_backend/platform/config"
	"forwarding_portal_backend/platform/db"
	"forwarding_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required for the scheduler")
	}

	var pool *pgxpool.Pool
	err := withRetry(ctx, log, "database", func() error {
		var err error
		pool, err = db.NewPool(ctx, cfg)
		return err
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	bus := events.NewInMemoryBus(log)

	renderer, err := email.NewRenderer()
	if err != nil {
		return err
	}
	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		sender = email.NewLogSender(log)
	}
	notification.New(bus, sender, renderer, cfg, cfg.GetEmailFromAddress(), log)

	store := repository.New(pool)
	adapter := draftsync.NewAdapter(cfg)
	status := draftsync.NewStatusStore(redisClient)
	saver := draftsync.NewSaver(store, adapter, status, bus, log)

	worker := scheduler.NewWorker(store, saver, log)
	server, err := scheduler.NewServer(cfg, log)
	if err != nil {
		return err
	}
	periodic, err := scheduler.NewPeriodicScheduler(cfg)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("worker starting", "queue", cfg.GetAsynqQueueName(), "concurrency", cfg.GetAsynqConcurrency())
		return server.Run(worker.Mux())
	})
	g.Go(func() error {
		log.Info("periodic scheduler starting", "autosave_interval", cfg.GetAutosaveInterval().String())
		return periodic.Run()
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		periodic.Shutdown()
		server.Shutdown()
		return nil
	})

	return g.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, init func() error) error {
	const attempts = 5
	const backoff = 3 * time.Second

	var err error
	for i := 1; i <= attempts; i++ {
		if err = init(); err == nil {
			return nil
		}
		log.Warn("init retry", "dependency", name, "attempt", i, "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("init %s: %w", name, err)
}
