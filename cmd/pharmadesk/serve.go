package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	v1 "pharmadesk/internal/infrastructure/http/v1"
	"pharmadesk/internal/infrastructure/http/v1/middleware"
	"pharmadesk/internal/infrastructure/storage/postgres"
	"pharmadesk/pkg/logger"
)

func serveCmd(env *environment) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			return runServer(cmd, env, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before starting")
	return cmd
}

func runServer(cmd *cobra.Command, env *environment, migrate bool) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	svc, err := env.services(ctx)
	if err != nil {
		return err
	}
	log := env.log
	cfg := env.cfg

	if migrate {
		applied, err := postgres.NewMigrator(env.pool, postgres.Migrations()).Up(ctx)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Infow("migrations applied", "count", applied)
	}

	var idempotency middleware.IdempotencyStore
	var store *postgres.IdempotencyStore
	if cfg.Idempotency.Enabled {
		store = postgres.NewIdempotencyStore(svc.TxManager, cfg.Idempotency.TTL)
		idempotency = store
	}

	router := v1.NewRouter(v1.RouterConfig{
		DB:          env.pool,
		Services:    svc,
		Idempotency: idempotency,
		Logger:      log,
		Version:     version,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	var wg sync.WaitGroup
	if store != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runIdempotencyJanitor(ctx, store, log, cfg.Idempotency.TTL)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting",
			"port", cfg.HTTP.Port,
			"version", version,
			"idempotency", cfg.Idempotency.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	wg.Wait()

	log.Info("server stopped")
	return nil
}

// runIdempotencyJanitor deletes expired idempotency keys until ctx is done.
func runIdempotencyJanitor(ctx context.Context, store *postgres.IdempotencyStore, log *logger.Logger, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	if interval > time.Hour {
		interval = time.Hour
	}

	log = log.WithComponent("idempotency-janitor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.CleanupExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Errorw("idempotency cleanup failed", "error", err)
				}
				continue
			}
			if deleted > 0 {
				log.Infow("expired idempotency keys deleted", "count", deleted)
			}
		}
	}
}
