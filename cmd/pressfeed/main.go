package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/pevans/pressfeed/config"
	"github.com/pevans/pressfeed/output"
	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/scraper"
	"github.com/pevans/pressfeed/state"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "parse":
		handleParse(args)
	case "discover":
		handleDiscover(args)
	case "validate":
		handleValidate(args)
	case "transform":
		handleTransform(args)
	case "scrape":
		handleScrape(args)
	case "poll":
		handlePoll(args)
	case "articles":
		handleArticles(args)
	case "tracked":
		handleTracked(args)
	case "parsers":
		handleParsers(args)
	case "init":
		handleInit(args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("pressfeed - Publisher article ingestion and ANF conversion")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pressfeed <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  parse      Parse an article page into an intermediary document")
	fmt.Println("  discover   List article links on a page or publisher")
	fmt.Println("  validate   Validate an intermediary document")
	fmt.Println("  transform  Transform an intermediary document into ANF")
	fmt.Println("  scrape     Scrape, transform and store one article")
	fmt.Println("  poll       Poll every publisher once")
	fmt.Println("  articles   List, show or delete stored ANF bundles")
	fmt.Println("  tracked    List tracked article URLs")
	fmt.Println("  parsers    List registered parsers and publishers")
	fmt.Println("  init       Create the default config file and storage")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  PRESSFEED_CONFIG      Path to config file (default: ~/.pressfeed/config.yaml)")
	fmt.Println("  PRESSFEED_STATE_DSN   Path to state database (default: ~/.pressfeed/state.db)")
	fmt.Println("  PRESSFEED_OUTPUT_DSN  Path to bundle directory (default: ~/.pressfeed/bundles)")
	fmt.Println("  PRESSFEED_USER_AGENT  User-Agent for fetches")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig loads configuration, exiting on an invalid config file.
func loadConfig() *config.FileConfig {
	cfg, err := config.Load()
	if err != nil {
		fatalf("failed to load config: %v", err)
	}
	return cfg
}

func newRegistry(cfg *config.FileConfig) *parsers.Registry {
	registry, err := parsers.DefaultRegistry(cfg.Publishers)
	if err != nil {
		fatalf("failed to build parser registry: %v", err)
	}
	return registry
}

// newScraper builds a scraper over an initialized HTTP fetcher. The
// returned function disposes of the fetcher.
func newScraper(ctx context.Context, cfg *config.FileConfig, logger zerolog.Logger) (*scraper.Scraper, func()) {
	fetcher := scraper.NewHTTPFetcher(cfg.Fetch)
	if err := fetcher.Init(ctx); err != nil {
		fatalf("failed to initialize fetcher: %v", err)
	}
	s := scraper.New(newRegistry(cfg), fetcher, scraper.WithLogger(logger))
	return s, func() { fetcher.Dispose() }
}

func openState(cfg *config.FileConfig) *state.Store {
	path, err := cfg.StatePath()
	if err != nil {
		fatalf("%v", err)
	}
	if err := ensureParentDir(path); err != nil {
		fatalf("failed to create state directory: %v", err)
	}
	store, err := state.NewStore(path)
	if err != nil {
		fatalf("failed to open state store: %v", err)
	}
	return store
}

func openOutput(cfg *config.FileConfig) *output.Store {
	dir, err := cfg.OutputDir()
	if err != nil {
		fatalf("%v", err)
	}
	store, err := output.NewStore(dir)
	if err != nil {
		fatalf("failed to open output store: %v", err)
	}
	return store
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
