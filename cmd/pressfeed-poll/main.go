package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pevans/pressfeed"
	"github.com/pevans/pressfeed/config"
	"github.com/pevans/pressfeed/output"
	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/scraper"
	"github.com/pevans/pressfeed/state"
)

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// orDefault returns v unless it is zero.
func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	defaults := pressfeed.DefaultPollConfig()

	// Flags override environment variables, which override the config file.
	pollInterval := flag.Duration("poll-interval", getEnvDuration("PRESSFEED_POLL_INTERVAL", orDefault(cfg.Poll.Interval, defaults.Interval)), "Time between polls (PRESSFEED_POLL_INTERVAL)")
	concurrency := flag.Int("concurrency", getEnvInt("PRESSFEED_CONCURRENCY", orDefault(cfg.Poll.Concurrency, defaults.Concurrency)), "Maximum number of publishers polled in parallel (PRESSFEED_CONCURRENCY)")
	maxAttempts := flag.Int("max-attempts", getEnvInt("PRESSFEED_MAX_ATTEMPTS", orDefault(cfg.Poll.MaxAttempts, defaults.MaxAttempts)), "Attempts per article before giving up (PRESSFEED_MAX_ATTEMPTS)")
	batchSize := flag.Int("batch-size", getEnvInt("PRESSFEED_BATCH_SIZE", orDefault(cfg.Poll.BatchSize, defaults.BatchSize)), "Articles scraped per publisher per poll (PRESSFEED_BATCH_SIZE)")
	publisherTimeout := flag.Duration("publisher-timeout", getEnvDuration("PRESSFEED_PUBLISHER_TIMEOUT", defaults.PublisherTimeout), "Timeout per publisher poll (PRESSFEED_PUBLISHER_TIMEOUT)")
	verbose := flag.Bool("verbose", false, "Log debug output")
	flag.Parse()

	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
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
	logger.Info().Str("path", statePath).Msg("opening state store")
	stateStore, err := state.NewStore(statePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open state store")
	}
	defer stateStore.Close()

	outputDir, err := cfg.OutputDir()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve output directory")
	}
	logger.Info().Str("path", outputDir).Msg("opening output store")
	outputStore, err := output.NewStore(outputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open output store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := scraper.NewHTTPFetcher(cfg.Fetch)
	if err := fetcher.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize fetcher")
	}
	defer fetcher.Dispose()

	s := scraper.New(registry, fetcher, scraper.WithLogger(logger))
	service := pressfeed.NewPollService(s, registry.Publishers(), stateStore, outputStore, &pressfeed.PollConfig{
		Interval:         *pollInterval,
		Concurrency:      *concurrency,
		MaxAttempts:      *maxAttempts,
		BatchSize:        *batchSize,
		PublisherTimeout: *publisherTimeout,
	}, pressfeed.WithLogger(logger))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	errChan := make(chan error, 1)
	go func() {
		errChan <- service.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		service.Stop()

		shutdownTimer := time.NewTimer(60 * time.Second)
		select {
		case <-errChan:
			logger.Info().Msg("service stopped")
		case <-shutdownTimer.C:
			logger.Warn().Msg("shutdown timeout exceeded, cancelling in-flight polls")
			cancel()
			<-errChan
		}
	case err := <-errChan:
		if err != nil {
			logger.Fatal().Err(err).Msg("service error")
		}
	}
}
