// The notification service receives scheduler callbacks when reminder jobs
// fire, publishes the reminder lifecycle events, and cancels scheduled jobs
// when the underlying task goes away. It keeps no database.
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

	"github.com/rezkam/taskflow/internal/application/notification"
	"github.com/rezkam/taskflow/internal/config"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/eventbus"
	httpserver "github.com/rezkam/taskflow/internal/infrastructure/http"
	"github.com/rezkam/taskflow/internal/infrastructure/http/handler"
	"github.com/rezkam/taskflow/internal/infrastructure/kv"
	"github.com/rezkam/taskflow/internal/infrastructure/observability"
	"github.com/rezkam/taskflow/internal/infrastructure/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadNotification()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.Enabled,
		ServiceName: notification.Source,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer providers.Shutdown()
	logger := providers.Logger()

	slog.InfoContext(ctx, "starting notification service")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	processed := kv.NewIdempotencyStore(redisClient, notification.Source)
	jobs := scheduler.NewClient(cfg.Scheduler.BaseURL)
	svc := notification.NewService(eventbus.NewPublisher(redisClient), jobs, processed, logger)

	errResult := make(chan error, 2)

	subscriber := eventbus.NewSubscriber(redisClient, notification.Source, consumerName(),
		eventbus.WithBlockTimeout(cfg.Bus.BlockTimeout),
		eventbus.WithReclaimMinIdle(cfg.Bus.ReclaimMinIdle),
	)
	subscriber.Subscribe(event.TopicTaskEvents, svc.HandleTaskEvent)
	subscriber.Subscribe(event.TopicReminderEvents, svc.HandleReminderEvent)
	go func() {
		if err := subscriber.Start(ctx); err != nil {
			errResult <- fmt.Errorf("subscriber failed: %w", err)
		}
	}()

	callbacks := handler.NewNotificationHandler(svc)
	srv := httpserver.NewServer(httpserver.ServerConfig{
		ServiceName:       notification.Source,
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	}, func(r chi.Router) {
		r.Mount("/", callbacks.Routes())
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
		return notification.Source
	}
	return host
}
