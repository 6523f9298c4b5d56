package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pevans/pressfeed/anf"
	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/output"
)

func handleParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	pageURL := fs.String("url", "", "Page URL (required when parsing a file)")
	cms := fs.String("cms", "", "CMS hint (ghost, wordpress, selector, generic)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: pressfeed parse [--url URL] [--cms CMS] <file|url|->\n")
		os.Exit(1)
	}
	input := fs.Arg(0)
	cfg := loadConfig()

	var (
		a   *article.Article
		err error
	)
	if isURL(input) {
		s, dispose := newScraper(context.Background(), cfg, zerolog.Nop())
		defer dispose()
		a, err = s.ScrapeArticle(context.Background(), input, *cms)
	} else {
		if *pageURL == "" {
			fatalf("--url is required when parsing a file")
		}
		data, readErr := readInput(input)
		if readErr != nil {
			fatalf("failed to read %s: %v", input, readErr)
		}
		a, err = newRegistry(cfg).ParseArticle(string(data), *pageURL, *cms)
		if err == nil {
			err = article.Validate(a)
		}
	}
	if err != nil {
		fatalf("%v", err)
	}

	printJSON(a)
}

func handleDiscover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	pageURL := fs.String("url", "", "Page URL (required when reading a file)")
	cms := fs.String("cms", "", "CMS hint")
	format := fs.String("format", "table", "Output format (table, json)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: pressfeed discover [--cms CMS] [--format table|json] <publisher-id|url|file>\n")
		os.Exit(1)
	}
	input := fs.Arg(0)
	cfg := loadConfig()
	ctx := context.Background()

	var found []article.DiscoveredArticle
	switch {
	case isURL(input):
		s, dispose := newScraper(ctx, cfg, zerolog.Nop())
		defer dispose()
		items, err := s.DiscoverURL(ctx, input, *cms)
		if err != nil {
			fatalf("%v", err)
		}
		found = items
	case *pageURL != "":
		data, err := readInput(input)
		if err != nil {
			fatalf("failed to read %s: %v", input, err)
		}
		found, err = newRegistry(cfg).Discover(string(data), *pageURL, *cms)
		if err != nil {
			fatalf("%v", err)
		}
	default:
		s, dispose := newScraper(ctx, cfg, newLogger(false))
		defer dispose()
		pub, ok := findPublisher(s.Registry().Publishers(), input)
		if !ok {
			fatalf("unknown publisher: %s (use 'pressfeed parsers' to list them)", input)
		}
		items, err := s.DiscoverArticles(ctx, pub)
		if err != nil {
			fatalf("%v", err)
		}
		for _, d := range items {
			found = append(found, d.DiscoveredArticle)
		}
	}

	if *format == "json" {
		if found == nil {
			found = []article.DiscoveredArticle{}
		}
		printJSON(map[string]any{"articles": found, "total": len(found)})
		return
	}
	printDiscoveredTable(found)
}

func handleValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: pressfeed validate <article.json|->\n")
		os.Exit(1)
	}

	data, err := readInput(fs.Arg(0))
	if err != nil {
		fatalf("failed to read %s: %v", fs.Arg(0), err)
	}
	if _, err := article.Decode(data); err != nil {
		fmt.Printf("✗ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Valid")
}

func handleTransform(args []string) {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	write := fs.Bool("write", false, "Write the bundle to the output store instead of printing")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: pressfeed transform [--write] <article.json|->\n")
		os.Exit(1)
	}

	data, err := readInput(fs.Arg(0))
	if err != nil {
		fatalf("failed to read %s: %v", fs.Arg(0), err)
	}
	a, err := article.Decode(data)
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

	if !*write {
		printJSON(result.Document)
		return
	}

	store := openOutput(loadConfig())
	bundle := output.Bundle{Document: result.Document, Article: a, Warnings: result.Warnings}
	if err := store.Write(bundle); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("✓ Wrote %s\n", result.Document.Identifier)
}

func handleParsers(args []string) {
	fs := flag.NewFlagSet("parsers", flag.ExitOnError)
	format := fs.String("format", "table", "Output format (table, json)")
	fs.Parse(args)

	registry := newRegistry(loadConfig())
	if *format == "json" {
		printJSON(registry.Publishers())
		return
	}

	fmt.Printf("%-24s %-10s %-30s %s\n", "PARSER", "CMS", "DOMAINS", "FEED")
	fmt.Println("----------------------------------------------------------------------------------------------------")
	for _, pub := range registry.Publishers() {
		name := pub.ID
		if p, ok := registry.Lookup(pub.ID); ok {
			name = p.Name()
		}
		domains := strings.Join(pub.Domains, ",")
		fmt.Printf("%s %-10s %s %s\n", cell(name, 24), pub.CMS, cell(domains, 30), pub.FeedURL)
	}
	fmt.Printf("%-24s %-10s %s\n", "generic (fallback)", "generic", "*")
}
