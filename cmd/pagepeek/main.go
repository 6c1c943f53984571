// Package main provides the entry point for the pagepeek capture service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pagepeek/pagepeek-go/internal/blocklist"
	"github.com/pagepeek/pagepeek-go/internal/config"
	"github.com/pagepeek/pagepeek-go/internal/handlers"
	"github.com/pagepeek/pagepeek-go/internal/metrics"
	"github.com/pagepeek/pagepeek-go/internal/pipeline"
	"github.com/pagepeek/pagepeek-go/internal/selectors"
	"github.com/pagepeek/pagepeek-go/internal/stats"
	"github.com/pagepeek/pagepeek-go/pkg/version"
)

func main() {
	cfg := config.Load()

	// Logging first so validation warnings are visible
	setupLogging(cfg.LogLevel)
	cfg.Validate()

	printBanner()

	selectorMgr, err := selectors.NewManager(cfg.SelectorsPath, cfg.SelectorsHotReload)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load selectors")
	}

	// The filter engine is compiled once and shared read-only by every
	// request.
	var bl *blocklist.Engine
	if cfg.BlocklistEnabled {
		startupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		bl = blocklist.New(startupCtx, cfg.BlocklistURLs)
		cancel()
		log.Info().Int("rules", bl.Size()).Msg("Request blocklist compiled")
	}

	tracker := stats.NewTracker()
	pipe := pipeline.New(cfg, selectorMgr, bl, tracker)
	handler := handlers.New(pipe, tracker, cfg)
	router := handlers.NewRouter(handler, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestMaxDuration + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopCh := make(chan struct{})

	var metricsServer *http.Server
	if cfg.PrometheusEnabled {
		metrics.SetBuildInfo(version.Full(), version.GoVersion())
		go metrics.StartMemoryCollector(10*time.Second, stopCh)

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.PrometheusPort),
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		go func() {
			log.Info().Int("port", cfg.PrometheusPort).Msg("Prometheus metrics server started")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	go func() {
		log.Info().
			Str("address", addr).
			Bool("metrics_enabled", cfg.PrometheusEnabled).
			Bool("rate_limit_enabled", cfg.RateLimitEnabled).
			Bool("blocklist_enabled", cfg.BlocklistEnabled).
			Msg("pagepeek is ready to accept requests")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	close(stopCh)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}
	if err := selectorMgr.Close(); err != nil {
		log.Error().Err(err).Msg("Selector manager close error")
	}

	log.Info().Msg("Shutdown complete")
}

// setupLogging configures zerolog based on the log level.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// printBanner prints the startup banner.
func printBanner() {
	banner := `
                                      _
 _ __   __ _  __ _  ___ _ __   ___  ___| | __
| '_ \ / _' |/ _' |/ _ \ '_ \ / _ \/ _ \ |/ /
| |_) | (_| | (_| |  __/ |_) |  __/  __/   <
| .__/ \__,_|\__, |\___| .__/ \___|\___|_|\_\
|_|          |___/     |_|
`
	fmt.Println(banner)
	fmt.Printf("  Version: %s\n", version.Full())
	fmt.Printf("  URL to visual capture service\n\n")
}
