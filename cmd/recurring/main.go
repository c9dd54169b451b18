// The recurring-task service turns completed tasks into their next
// occurrence. It consumes task-events, talks to the command service over
// the sidecar invocation channel, and publishes recurring.generated events.
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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rezkam/taskflow/internal/application/recurring"
	"github.com/rezkam/taskflow/internal/config"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/eventbus"
	httpserver "github.com/rezkam/taskflow/internal/infrastructure/http"
	"github.com/rezkam/taskflow/internal/infrastructure/invocation"
	"github.com/rezkam/taskflow/internal/infrastructure/kv"
	"github.com/rezkam/taskflow/internal/infrastructure/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadRecurring()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.Enabled,
		ServiceName: recurring.Source,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer providers.Shutdown()
	logger := providers.Logger()

	slog.InfoContext(ctx, "starting recurring-task service")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	commandAPI := invocation.NewCommandClient(cfg.Invocation.BaseURL, cfg.Invocation.CommandAppID)
	processed := kv.NewIdempotencyStore(redisClient, recurring.Source)
	h := recurring.NewHandler(commandAPI, eventbus.NewPublisher(redisClient), processed, logger)

	errResult := make(chan error, 2)

	subscriber := eventbus.NewSubscriber(redisClient, recurring.Source, consumerName(),
		eventbus.WithBlockTimeout(cfg.Bus.BlockTimeout),
		eventbus.WithReclaimMinIdle(cfg.Bus.ReclaimMinIdle),
	)
	subscriber.Subscribe(event.TopicTaskEvents, h.HandleTaskCompleted)
	go func() {
		if err := subscriber.Start(ctx); err != nil {
			errResult <- fmt.Errorf("subscriber failed: %w", err)
		}
	}()

	// Health only; this service has no request surface of its own.
	srv := httpserver.NewServer(httpserver.ServerConfig{
		ServiceName:       recurring.Source,
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	}, nil)
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
		return recurring.Source
	}
	return host
}
