// The websocket gateway fans bus events out to connected browsers. Every
// instance observes every event through its own consumer group, pushes
// frames to locally connected users, and queues reminders for offline ones.
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

	"github.com/rezkam/taskflow/internal/application/gateway"
	"github.com/rezkam/taskflow/internal/config"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/eventbus"
	httpserver "github.com/rezkam/taskflow/internal/infrastructure/http"
	"github.com/rezkam/taskflow/internal/infrastructure/http/handler"
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

	cfg, err := config.LoadGateway()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.Enabled,
		ServiceName: gateway.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer providers.Shutdown()
	logger := providers.Logger()

	instance := cfg.Instance
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to resolve instance name: %w", err)
		}
		instance = host
	}

	slog.InfoContext(ctx, "starting websocket gateway", "instance", instance)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	svc := gateway.NewService(
		gateway.NewHub(),
		kv.NewPresenceStore(redisClient),
		kv.NewReminderQueue(redisClient),
		instance,
		logger,
	)

	errResult := make(chan error, 2)

	// A per-instance group makes the subscription a broadcast: every gateway
	// sees every event and serves whoever is connected locally.
	group := gateway.ServiceName + ":" + instance
	subscriber := eventbus.NewSubscriber(redisClient, group, instance,
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

	sockets := handler.NewGatewayHandler(svc)
	srv := httpserver.NewServer(httpserver.ServerConfig{
		ServiceName:       gateway.ServiceName,
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	}, func(r chi.Router) {
		r.Mount("/", sockets.Routes())
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
