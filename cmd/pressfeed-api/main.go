package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pevans/pressfeed/api"
	"github.com/pevans/pressfeed/config"
	"github.com/pevans/pressfeed/output"
	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/scraper"
	"github.com/pevans/pressfeed/state"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	addr := flag.String("addr", getEnv("PRESSFEED_API_ADDR", "localhost:8080"), "Listen address (PRESSFEED_API_ADDR)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	registry, err := parsers.DefaultRegistry(cfg.Publishers)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build parser registry")
	}

	statePath, err := cfg.StatePath()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve state path")
	}
	if err := os.MkdirAll(filepath.Dir(statePath), 0o700); err != nil {
		logger.Fatal().Err(err).Msg("failed to create state directory")
	}
	stateStore, err := state.NewStore(statePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open state store")
	}
	defer stateStore.Close()

	outputDir, err := cfg.OutputDir()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve output directory")
	}
	outputStore, err := output.NewStore(outputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open output store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	fetcher := scraper.NewHTTPFetcher(cfg.Fetch)
	if err := fetcher.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize fetcher")
	}
	defer fetcher.Dispose()

	server := api.NewServer(registry,
		api.WithScraper(scraper.New(registry, fetcher, scraper.WithLogger(logger))),
		api.WithStateStore(stateStore),
		api.WithOutputStore(outputStore),
		api.WithLogger(logger),
	)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", "http://"+*addr+"/api/v1").Msg("starting API server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
