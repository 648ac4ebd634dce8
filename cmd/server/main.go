package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/llmbench/llmbench/internal/api"
	"github.com/llmbench/llmbench/internal/chat"
	"github.com/llmbench/llmbench/internal/config"
	"github.com/llmbench/llmbench/internal/logging"
	benchsvc "github.com/llmbench/llmbench/internal/service/benchmark"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfigured()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize logging
	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("starting LLM benchmark server",
		slog.String("version", "0.1.0"),
		slog.Int("port", cfg.Server.Port),
		slog.String("default_endpoint", cfg.Benchmark.DefaultEndpoint),
		slog.Bool("verify_tls", cfg.Benchmark.VerifyTLS))

	if cfg.UsesDefaultCredentials() {
		logger.Warn("using default API credentials, set BENCHMARK_API_USER and BENCHMARK_API_PASS")
	}
	if !cfg.Benchmark.VerifyTLS {
		logger.Warn("upstream TLS certificates are not verified")
	}

	// Initialize services
	client := chat.NewClient(
		chat.WithLogger(logger),
		chat.WithVerifyTLS(cfg.Benchmark.VerifyTLS))
	runner := benchsvc.NewRunner(client, benchsvc.WithLogger(logger))

	server, err := api.New(runner,
		api.WithLogger(logger),
		api.WithHost(cfg.Server.Host),
		api.WithPort(cfg.Server.Port),
		api.WithCredentials(cfg.Auth.Username, cfg.Auth.Password),
		api.WithPasswordHash(cfg.Auth.PasswordHash),
		api.WithDefaultEndpoint(cfg.Benchmark.DefaultEndpoint),
		api.WithVerifyTLS(cfg.Benchmark.VerifyTLS),
		api.WithRateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))
	if err != nil {
		logger.Error("failed to create API server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server.SetReady(true)

	// Handle shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		// Mark server as not ready to stop accepting new requests
		server.SetReady(false)

		// In-flight runs get the shutdown timeout to finish
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
	}()

	// Start server
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}
