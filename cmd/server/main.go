package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/instagrab/internal/api"
	"github.com/iconidentify/instagrab/internal/api/handler"
	"github.com/iconidentify/instagrab/internal/config"
	"github.com/iconidentify/instagrab/internal/downloader"
	"github.com/iconidentify/instagrab/internal/resolver"
	"github.com/iconidentify/instagrab/pkg/instagram"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("instagrab-server %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Bootstrap logger until the configured level is known
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, err := config.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting instagrab",
		"version", Version,
		"build_time", BuildTime,
		"allowed_origins", cfg.Server.AllowedOrigins,
		"strict_resolve_status", cfg.Server.StrictResolveStatus,
	)

	// Initialize dependencies
	igClient := instagram.NewClient(cfg.Instagram)
	postResolver := resolver.New(igClient, logger)
	fetcher := downloader.NewMediaFetcher(cfg.Proxy, logger)

	// Initialize handlers
	resolveHandler := handler.NewResolveHandler(postResolver, cfg.Server.StrictResolveStatus, logger)
	proxyHandler := handler.NewProxyHandler(fetcher, cfg.Proxy.CacheMaxAge, logger)
	healthHandler := handler.NewHealthHandler()

	// Setup router
	router := api.NewRouter(resolveHandler, proxyHandler, healthHandler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKey:         cfg.Server.APIKey,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// In-flight fetches are bounded by the proxy timeout, so wait a little longer than that
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Proxy.Timeout+10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
