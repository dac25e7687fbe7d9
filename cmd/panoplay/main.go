// The panoplay daemon runs the manifest-rewriting proxy: it fetches HLS
// master playlists, filters them to a pinned rendition, and serves the
// rewritten text to a host media engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panoplay/panoplay/cache"
	"github.com/panoplay/panoplay/circuitbreaker"
	"github.com/panoplay/panoplay/config"
	"github.com/panoplay/panoplay/fetcher"
	"github.com/panoplay/panoplay/handlers"
	"github.com/panoplay/panoplay/interceptor"
	"github.com/panoplay/panoplay/logging"
)

const version = "1.0.0"

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML configuration file")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("panoplay v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLogLevel(cfg.LogLevel), "[panoplay]")
	logger.Info("Starting panoplay", map[string]interface{}{
		"version":   version,
		"port":      cfg.HTTP.Port,
		"cache":     cfg.Cache.Backend,
		"log_level": cfg.LogLevel,
	})

	storage, err := buildStorage(cfg)
	if err != nil {
		logger.Error("Failed to initialize cache storage", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Timeout:          cfg.Breaker.Timeout,
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
		Logger:           logger,
		Host:             "upstream",
	})

	fetch := fetcher.New(cfg.Upstream.Timeout, storage, cfg.Cache.TTL, breaker, logger)

	schemes := interceptor.SchemeMap{
		HTTP:  cfg.Interceptor.HTTPScheme,
		HTTPS: cfg.Interceptor.HTTPSScheme,
	}
	ic := interceptor.New(schemes, fetch, logger)

	handler := handlers.SetupRoutes(handlers.Dependencies{
		Interceptor: ic,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func buildStorage(cfg *config.Config) (cache.Storage, error) {
	if cfg.Cache.Backend == "disk" {
		return cache.NewFileStorage(cfg.Cache.Dir)
	}
	return cache.NewMemoryStorage(), nil
}
