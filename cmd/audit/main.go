// The audit service tails every bus topic into an append-only Postgres
// trail and serves filtered, paged queries over it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rezkam/taskflow/internal/application/audit"
	"github.com/rezkam/taskflow/internal/config"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/eventbus"
	httpserver "github.com/rezkam/taskflow/internal/infrastructure/http"
	"github.com/rezkam/taskflow/internal/infrastructure/http/handler"
	"github.com/rezkam/taskflow/internal/infrastructure/kv"
	"github.com/rezkam/taskflow/internal/infrastructure/observability"
	"github.com/rezkam/taskflow/internal/infrastructure/persistence/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadAudit()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.Enabled,
		ServiceName: audit.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer providers.Shutdown()
	logger := providers.Logger()

	slog.InfoContext(ctx, "starting audit service")

	store, err := postgres.NewAuditStore(ctx, postgres.DBConfig{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	defer store.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	processed := kv.NewIdempotencyStore(redisClient, audit.ServiceName)
	svc := audit.NewService(store, processed, logger)

	errResult := make(chan error, 2)

	subscriber := eventbus.NewSubscriber(redisClient, audit.ServiceName, consumerName(),
		eventbus.WithBlockTimeout(cfg.Bus.BlockTimeout),
		eventbus.WithReclaimMinIdle(cfg.Bus.ReclaimMinIdle),
	)
	for _, topic := range event.Topics {
		subscriber.Subscribe(topic, svc.HandleEvent)
	}
	go func() {
		if err := subscriber.Start(ctx); err != nil {
			errResult <- fmt.Errorf("subscriber failed: %w", err)
		}
	}()

	trail := handler.NewAuditHandler(svc)
	srv := httpserver.NewServer(httpserver.ServerConfig{
		ServiceName:       audit.ServiceName,
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	}, func(r chi.Router) {
		r.Mount("/", trail.Routes())
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errResult:
		return err
	}
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		return audit.ServiceName
	}
	return host
}
