package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	apihttp "dirstream/internal/api/http"
	"dirstream/internal/app"
	"dirstream/internal/metrics"
	"dirstream/internal/telemetry"
	"dirstream/internal/upstream"
	"dirstream/internal/usecase"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "dirstream", version)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "dirstream"),
		slog.String("version", version),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("upstream", cfg.UpstreamBaseURL),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Int64("listingTimeoutSec", cfg.ListingTimeoutSeconds),
		slog.Int64("streamTimeoutSec", cfg.StreamTimeoutSeconds),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := upstream.New(cfg.UpstreamBaseURL,
		upstream.WithListingTimeout(time.Duration(cfg.ListingTimeoutSeconds)*time.Second),
		upstream.WithStreamTimeout(time.Duration(cfg.StreamTimeoutSeconds)*time.Second),
	)
	if err != nil {
		logger.Error("upstream client init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	browseUC := usecase.Browse{Fetcher: client}
	sizeUC := usecase.FileSize{Fetcher: client}
	streamUC := usecase.StreamFile{Fetcher: client, Logger: logger}

	options := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithFileSize(sizeUC),
		apihttp.WithStreamFile(streamUC),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
	}
	if cfg.OpenAPIPath != "" {
		options = append(options, apihttp.WithOpenAPIPath(cfg.OpenAPIPath))
	}

	handler := apihttp.NewServer(browseUC, options...)

	// Periodically push transfer snapshots to websocket subscribers.
	go broadcastTransfers(rootCtx, handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func broadcastTransfers(ctx context.Context, handler *apihttp.Server) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			handler.BroadcastTransfers()
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
