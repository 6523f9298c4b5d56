package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTruncate verifies long values are cut to the column width
func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "hello...", truncate("hello world", 8))
}

// TestCell verifies cells always occupy the requested display width,
// including titles with wide characters
func TestCell(t *testing.T) {
	assert.Equal(t, "abc  ", cell("abc", 5))
	assert.Equal(t, 8, runewidth.StringWidth(cell("日本語のニュース記事", 8)))
	assert.Equal(t, 8, runewidth.StringWidth(cell("日本", 8)))
}

// TestIsURL verifies only http and https inputs are treated as URLs
func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://example.com/a"))
	assert.True(t, isURL("http://example.com/a"))
	assert.False(t, isURL("article.json"))
	assert.False(t, isURL("ftp://example.com/a"))
}

// TestEnsureParentDir verifies missing parent directories are created
func TestEnsureParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")
	require.NoError(t, ensureParentDir(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, ensureParentDir("state.db"))
}

// TestReadInput verifies files are read from disk
func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "article.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1"}`), 0o600))

	data, err := readInput(path)
	require.NoError(t, err)
	assert.Equal(t, `{"version":"1"}`, string(data))

	_, err = readInput(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
