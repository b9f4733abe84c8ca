package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/hiroki-koketsu/go-todolists/internal/config"
	"github.com/hiroki-koketsu/go-todolists/internal/handler"
	"github.com/hiroki-koketsu/go-todolists/internal/persistence"
	"github.com/hiroki-koketsu/go-todolists/internal/repository"
	"github.com/hiroki-koketsu/go-todolists/internal/storage/fs"
	"github.com/hiroki-koketsu/go-todolists/internal/storage/gcs"
	"github.com/hiroki-koketsu/go-todolists/internal/telemetry"
	"github.com/hiroki-koketsu/go-todolists/internal/web"
)

func main() {
	// Create a basic logger for startup (before OTel is initialized)
	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		startupLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	startupLogger.Info("starting application",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageType),
		slog.Bool("otel", cfg.OTelEnabled),
	)

	ctx := context.Background()
	logger := startupLogger

	if cfg.OTelEnabled {
		tp, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize tracer provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown tracer provider", slog.Any("error", err))
			}
		}()

		mp, err := telemetry.InitMeterProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize meter provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := mp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown meter provider", slog.Any("error", err))
			}
		}()

		// Logger provider last so log records correlate with traces
		lp, otelLogger, err := telemetry.InitLoggerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize logger provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := lp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown logger provider", slog.Any("error", err))
			}
		}()
		logger = otelLogger
	}

	backend, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize storage backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeBackend()

	gateway, err := persistence.NewGateway(backend, logger)
	if err != nil {
		logger.Error("failed to initialize persistence gateway", slog.Any("error", err))
		os.Exit(1)
	}

	// Load the store once; every handler shares this instance
	store := repository.NewStore(ctx, gateway)

	meter := otel.Meter(cfg.ServiceName)
	metrics, err := telemetry.NewMetrics(meter, store)
	if err != nil {
		logger.Error("failed to create metrics", slog.Any("error", err))
		os.Exit(1)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		logger.Error("failed to load templates", slog.Any("error", err))
		os.Exit(1)
	}

	r := handler.NewRouter(store, renderer, logger, metrics)

	// Wrap router with OpenTelemetry HTTP instrumentation
	otelHandler := otelhttp.NewHandler(r, "http-server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			// Skip tracing for health checks
			return r.URL.Path != "/health"
		}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      otelHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
}

// newBackend selects where the store document lives.
func newBackend(ctx context.Context, cfg *config.Config) (persistence.Backend, func(), error) {
	switch cfg.StorageType {
	case config.StorageGCS:
		b, err := gcs.NewBackend(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	case config.StorageFS:
		return fs.NewBackend(cfg.DataFile), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type: %s", cfg.StorageType)
	}
}
