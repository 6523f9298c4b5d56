package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pevans/pressfeed"
	"github.com/pevans/pressfeed/anf"
	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/config"
	"github.com/pevans/pressfeed/output"
	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/state"
)

func handleScrape(args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	cms := fs.String("cms", "", "CMS hint")
	fs.Parse(args)

	if fs.NArg() != 1 || !isURL(fs.Arg(0)) {
		fmt.Fprintf(os.Stderr, "Usage: pressfeed scrape [--cms CMS] <url>\n")
		os.Exit(1)
	}
	pageURL := fs.Arg(0)

	cfg := loadConfig()
	ctx := context.Background()
	s, dispose := newScraper(ctx, cfg, newLogger(false))
	defer dispose()

	a, err := s.ScrapeArticle(ctx, pageURL, *cms)
	if err != nil {
		fatalf("%v", err)
	}

	result, err := anf.Transform(a)
	if err != nil {
		var transformErr *anf.TransformError
		if errors.As(err, &transformErr) {
			printWarnings(transformErr.Warnings)
		}
		fatalf("%v", err)
	}
	printWarnings(result.Warnings)

	store := openOutput(cfg)
	bundle := output.Bundle{Document: result.Document, Article: a, Warnings: result.Warnings}
	if err := store.Write(bundle); err != nil {
		fatalf("%v", err)
	}

	// Record the article so the poller does not scrape it again.
	stateStore := openState(cfg)
	defer stateStore.Close()
	d := article.DiscoveredArticle{URL: pageURL, Title: a.Metadata.Title, SourceID: a.Source.Publisher}
	if _, _, err := stateStore.Track(d, ""); err != nil {
		fatalf("failed to track article: %v", err)
	}
	if err := stateStore.MarkScraped(pageURL, result.Document.Identifier); err != nil {
		fatalf("failed to mark article scraped: %v", err)
	}

	fmt.Printf("✓ Scraped: %s\n", a.Metadata.Title)
	fmt.Printf("  Identifier: %s\n", result.Document.Identifier)
	fmt.Printf("  Components: %d\n", len(result.Document.Components))
	fmt.Printf("  Warnings: %d\n", len(result.Warnings))
}

func handlePoll(args []string) {
	fs := flag.NewFlagSet("poll", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show verbose output")
	publisherID := fs.String("publisher", "", "Poll only this publisher")
	fs.Parse(args)

	cfg := loadConfig()
	ctx := context.Background()
	logger := newLogger(*verbose)

	s, dispose := newScraper(ctx, cfg, logger)
	defer dispose()

	pubs := s.Registry().Publishers()
	if *publisherID != "" {
		pub, ok := findPublisher(pubs, *publisherID)
		if !ok {
			fatalf("unknown publisher: %s", *publisherID)
		}
		pubs = []parsers.Publisher{pub}
	}

	stateStore := openState(cfg)
	defer stateStore.Close()

	service := pressfeed.NewPollService(s, pubs, stateStore, openOutput(cfg), pollConfig(cfg), pressfeed.WithLogger(logger))

	fmt.Printf("Polling %d publishers...\n", len(pubs))
	results, err := service.PollOnce(ctx)
	if err != nil {
		fatalf("poll failed: %v", err)
	}

	fmt.Println()
	fmt.Println("Poll completed:")
	failed := 0
	for _, r := range results {
		fmt.Printf("  %s new: %-4d scraped: %-4d failed: %-4d warnings: %d\n",
			cell(r.PublisherID, 24), r.New, r.Scraped, r.Failed, r.Warnings)
		if r.Err != nil {
			failed++
			if *verbose {
				fmt.Printf("    error: %v\n", r.Err)
			}
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func handleArticles(args []string) {
	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	store := openOutput(loadConfig())

	switch action {
	case "list":
		fs := flag.NewFlagSet("articles list", flag.ExitOnError)
		format := fs.String("format", "table", "Output format (table, json)")
		fs.Parse(args)

		result, err := store.List()
		if err != nil {
			fatalf("%v", err)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", &e)
		}
		if *format == "json" {
			printJSON(map[string]any{"articles": result.Bundles, "total": len(result.Bundles)})
			return
		}
		printBundlesTable(result.Bundles)
	case "show":
		if len(args) != 1 {
			fatalf("usage: pressfeed articles show <identifier>")
		}
		bundle, err := store.Get(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		printJSON(bundle.Document)
	case "delete":
		if len(args) != 1 {
			fatalf("usage: pressfeed articles delete <identifier>")
		}
		if err := store.Delete(args[0]); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("✓ Deleted %s\n", args[0])
	default:
		fatalf("unknown articles command: %s (list, show, delete)", action)
	}
}

func handleTracked(args []string) {
	fs := flag.NewFlagSet("tracked", flag.ExitOnError)
	publisher := fs.String("publisher", "", "Filter by publisher id")
	status := fs.String("status", "", "Filter by status (discovered, scraped, failed)")
	limit := fs.Int("limit", 50, "Maximum number of records")
	format := fs.String("format", "table", "Output format (table, json)")
	fs.Parse(args)

	stateStore := openState(loadConfig())
	defer stateStore.Close()

	filter := state.Filter{Limit: *limit}
	if *publisher != "" {
		filter.PublisherID = publisher
	}
	if *status != "" {
		st := state.Status(*status)
		filter.Status = &st
	}

	records, err := stateStore.List(filter)
	if err != nil {
		fatalf("%v", err)
	}

	if *format == "json" {
		printJSON(map[string]any{"records": records, "total": len(records)})
		return
	}

	counts, err := stateStore.Counts(*publisher)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("discovered: %d  scraped: %d  failed: %d\n\n",
		counts[state.StatusDiscovered], counts[state.StatusScraped], counts[state.StatusFailed])
	printTrackedTable(records)
}

func handleInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	fs.Parse(args)

	fmt.Println("Initializing pressfeed storage...")
	fmt.Println()

	created, err := config.WriteDefaultConfigFile(*force)
	path, _ := config.DefaultConfigPath()
	switch {
	case err != nil:
		fatalf("failed to create config file: %v", err)
	case created:
		fmt.Printf("  ✓ Config file: %s\n", path)
	default:
		fmt.Printf("  Config file: %s (already exists)\n", path)
	}

	cfg := loadConfig()
	stateStore := openState(cfg)
	stateStore.Close()
	statePath, _ := cfg.StatePath()
	fmt.Printf("  ✓ State database: %s\n", statePath)

	store := openOutput(cfg)
	fmt.Printf("  ✓ Output directory: %s\n", store.Dir())

	fmt.Println()
	fmt.Println("✓ Storage initialized successfully")
	fmt.Println()
	fmt.Println("You can now:")
	fmt.Println("  - Add publishers to the config file")
	fmt.Println("  - Run 'pressfeed poll' to ingest articles")
}

func pollConfig(cfg *config.FileConfig) *pressfeed.PollConfig {
	return &pressfeed.PollConfig{
		Interval:    cfg.Poll.Interval,
		Concurrency: cfg.Poll.Concurrency,
		MaxAttempts: cfg.Poll.MaxAttempts,
		BatchSize:   cfg.Poll.BatchSize,
	}
}
