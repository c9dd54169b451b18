// The command service owns the task database and is the platform's only
// writer. It serves the public task API and the internal invocation
// endpoints, stages every event in a transactional outbox, relays staged
// envelopes to the bus, and consumes reminder outcomes to close the
// reminder lifecycle.
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

	"github.com/rezkam/taskflow/internal/application/command"
	"github.com/rezkam/taskflow/internal/application/outbox"
	"github.com/rezkam/taskflow/internal/config"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/eventbus"
	httpserver "github.com/rezkam/taskflow/internal/infrastructure/http"
	"github.com/rezkam/taskflow/internal/infrastructure/http/handler"
	mw "github.com/rezkam/taskflow/internal/infrastructure/http/middleware"
	"github.com/rezkam/taskflow/internal/infrastructure/kv"
	"github.com/rezkam/taskflow/internal/infrastructure/observability"
	"github.com/rezkam/taskflow/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/taskflow/internal/infrastructure/scheduler"
	"github.com/rezkam/taskflow/pkg/jwt"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadCommand()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.Enabled,
		ServiceName: command.Source,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer providers.Shutdown()
	logger := providers.Logger()

	slog.InfoContext(ctx, "starting command service")

	store, err := postgres.NewTaskStore(ctx, postgres.DBConfig{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to open task store: %w", err)
	}
	defer store.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	processed := kv.NewIdempotencyStore(redisClient, command.Source)
	jobs := scheduler.NewClient(cfg.Scheduler.BaseURL)
	svc := command.NewService(store, jobs, processed, logger)

	errResult := make(chan error, 3)

	// Outbox relay: the only path from committed mutations to the bus.
	relay := outbox.New(store, eventbus.NewPublisher(redisClient),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
	)
	go func() {
		if err := relay.Start(ctx); err != nil {
			errResult <- fmt.Errorf("outbox relay failed: %w", err)
		}
	}()

	// Reminder outcomes close the loop on the reminders table.
	subscriber := eventbus.NewSubscriber(redisClient, command.Source, consumerName(),
		eventbus.WithBlockTimeout(cfg.Bus.BlockTimeout),
		eventbus.WithReclaimMinIdle(cfg.Bus.ReclaimMinIdle),
	)
	subscriber.Subscribe(event.TopicReminderEvents, svc.HandleReminderEvent)
	go func() {
		if err := subscriber.Start(ctx); err != nil {
			errResult <- fmt.Errorf("subscriber failed: %w", err)
		}
	}()

	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	api := handler.NewCommandHandler(svc)
	srv := httpserver.NewServer(serverConfig(cfg), func(r chi.Router) {
		r.Route("/api", func(r chi.Router) {
			r.Use(mw.NewAuth(tokens).Validate)
			r.Mount("/", api.Routes())
		})
		r.Mount("/internal", api.InternalRoutes())
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

func serverConfig(cfg *config.CommandConfig) httpserver.ServerConfig {
	return httpserver.ServerConfig{
		ServiceName:       command.Source,
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	}
}

// consumerName identifies this instance inside the shared consumer group.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		return command.Source
	}
	return host
}
