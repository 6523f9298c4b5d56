package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
)

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	// 0700: owner-only access
	return os.MkdirAll(dir, 0o700)
}

// printJSON prints v as indented JSON
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("failed to marshal JSON: %v", err)
	}
	fmt.Println(string(data))
}

// truncate shortens s to n terminal columns for table display
func truncate(s string, n int) string {
	return runewidth.Truncate(s, n, "...")
}

// cell truncates s and pads it to exactly n columns. Wide characters
// in titles break fmt's rune-based padding.
func cell(s string, n int) string {
	return runewidth.FillRight(truncate(s, n), n)
}
