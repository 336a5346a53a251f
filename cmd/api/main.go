// Command api runs the forwarding portal HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forwarding_portal_backend/internal/catalog"
	"forwarding_portal_backend/internal/drafts"
	draftservice "forwarding_portal_backend/internal/drafts/service"
	"forwarding_portal_backend/internal/email"
	"forwarding_portal_backend/internal/events"
	apphttp "forwarding_portal_backend/internal/http"
	"forwarding_portal_backend/internal/http/router"
	"forwarding_portal_backend/internal/notification"
	"forwarding_portal_backend/internal/quotes"
	"forwarding_portal_backend/internal/scheduler"
	"forwarding_portal_backend/platform/config"
	"forwarding_portal_backend/platform/db"
	"forwarding_portal_backend/platform/logger"
	"forwarding_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

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
		return fmt.Errorf("REDIS_URL is required for the sync status store")
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

	if err := db.RunMigrations(ctx, cfg, "migrations"); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	validate := validator.New()
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

	// Pushes requested by mutations go through asynq so they survive API
	// restarts; the scheduler worker performs the actual upstream save.
	var requester draftservice.SyncRequester
	if cfg.IsUpstreamEnabled() {
		asynqClient, err := scheduler.NewClient(cfg)
		if err != nil {
			return err
		}
		defer asynqClient.Close()
		requester = scheduler.NewEnqueuer(asynqClient, cfg, log)
	}

	draftsModule := drafts.New(pool, redisClient, cfg, requester, bus, validate, log)
	quotesModule := quotes.New(pool, draftsModule.Service(), renderer, bus, validate, log)
	catalogModule := catalog.New(pool, validate)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: bus,
		Modules:  []apphttp.Module{draftsModule, quotesModule, catalogModule},
	}

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.GetHTTPAddr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// withRetry retries a dependency initialization with a fixed backoff so the
// service survives a database that comes up slightly later than it does.
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
