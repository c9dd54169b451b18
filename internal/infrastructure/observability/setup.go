package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Providers bundles the three OTel providers a service binary owns.
type Providers struct {
	logger *slog.Logger
	lp     *log.LoggerProvider
	tp     *sdktrace.TracerProvider
	mp     *sdkmetric.MeterProvider
}

// Init initializes logging, tracing, and metrics for a binary and installs
// the returned logger as the slog default.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	lp, logger, err := InitLogger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	tp, err := InitTracerProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mp, err := InitMeterProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Providers{logger: logger, lp: lp, tp: tp, mp: mp}, nil
}

// Logger returns the bridged slog logger.
func (p *Providers) Logger() *slog.Logger {
	return p.logger
}

// Shutdown flushes and stops every provider. Each shutdown gets its own
// timeout so an unreachable collector cannot hang process exit.
func (p *Providers) Shutdown() {
	shutdown := func(name string, fn func(context.Context) error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to shutdown "+name+" provider", "error", err)
		}
	}
	shutdown("tracer", p.tp.Shutdown)
	shutdown("meter", p.mp.Shutdown)
	shutdown("logger", p.lp.Shutdown)
}
