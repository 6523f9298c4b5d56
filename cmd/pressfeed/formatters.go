package main

import (
	"fmt"
	"os"

	"github.com/pevans/pressfeed/anf"
	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/output"
	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/state"
)

func findPublisher(pubs []parsers.Publisher, id string) (parsers.Publisher, bool) {
	for _, p := range pubs {
		if p.ID == id {
			return p, true
		}
	}
	return parsers.Publisher{}, false
}

// printWarnings prints transform warnings to stderr
func printWarnings(warnings []anf.Warning) {
	for _, w := range warnings {
		if w.Component != "" {
			fmt.Fprintf(os.Stderr, "warning: %s (%s): %s\n", w.Type, w.Component, w.Message)
			continue
		}
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Type, w.Message)
	}
}

// printDiscoveredTable prints discovered articles in human-readable form
func printDiscoveredTable(found []article.DiscoveredArticle) {
	if len(found) == 0 {
		fmt.Println("No articles found.")
		return
	}

	fmt.Printf("Found %d articles\n\n", len(found))
	for _, d := range found {
		fmt.Printf("  %s\n", truncate(d.Title, 70))
		if d.PublishedAt != nil {
			fmt.Printf("   Published: %s\n", d.PublishedAt.Format("2006-01-02 15:04"))
		}
		if d.Excerpt != "" {
			fmt.Printf("   %s\n", truncate(d.Excerpt, 150))
		}
		fmt.Printf("   URL: %s\n", d.URL)
		fmt.Println()
	}
}

// printBundlesTable prints stored bundle summaries
func printBundlesTable(bundles []output.Summary) {
	if len(bundles) == 0 {
		fmt.Println("No articles stored.")
		return
	}

	fmt.Printf("%-40s %-40s %-6s %-8s %s\n", "IDENTIFIER", "TITLE", "COMP", "WARN", "WRITTEN")
	fmt.Println("----------------------------------------------------------------------------------------------------------------")
	for _, b := range bundles {
		fmt.Printf("%s %s %-6d %-8d %s\n",
			cell(b.Identifier, 40),
			cell(b.Title, 40),
			b.Components,
			b.Warnings,
			b.WrittenAt.Format("2006-01-02 15:04"),
		)
	}
}

// printTrackedTable prints tracked article records
func printTrackedTable(records []state.Record) {
	if len(records) == 0 {
		fmt.Println("No tracked articles.")
		return
	}

	fmt.Printf("%-12s %-16s %-8s %s\n", "STATUS", "PUBLISHER", "ATTEMPTS", "URL")
	fmt.Println("----------------------------------------------------------------------------------------------------")
	for _, r := range records {
		fmt.Printf("%-12s %s %-8d %s\n", r.Status, cell(r.PublisherID, 16), r.Attempts, r.URL)
		if r.LastError != nil && r.Status == state.StatusFailed {
			fmt.Printf("%-12s %s\n", "", truncate(*r.LastError, 100))
		}
	}
}
