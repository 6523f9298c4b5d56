package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/pressfeed/anf"
	"github.com/pevans/pressfeed/article"
)

// Test helper: create a test store
func setupTestStore(t *testing.T) *Store {
	store, err := NewStore(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	return store
}

func sampleBundle(t *testing.T, slug string, body ...article.Component) Bundle {
	t.Helper()
	a := &article.Article{
		Version:     article.SchemaVersion,
		ExtractedAt: time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
		Source: article.Source{
			URL:       "https://example.com/" + slug + "/",
			Publisher: "ex",
			CMS:       "ghost",
			Method:    article.MethodScrape,
		},
		Metadata: article.Metadata{
			Title:       "Story " + slug,
			Language:    "en",
			PublishedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Authors: []article.Author{},
		Body:    body,
	}

	res, err := anf.Transform(a)
	require.NoError(t, err)
	return Bundle{Document: res.Document, Article: a, Warnings: res.Warnings}
}

// TestWrite_CreatesBundleFiles verifies the on-disk layout
func TestWrite_CreatesBundleFiles(t *testing.T) {
	store := setupTestStore(t)
	b := sampleBundle(t, "one", article.Paragraph{Text: "Hi", Format: article.FormatText})

	require.NoError(t, store.Write(b))

	for _, name := range []string{DocumentFile, SourceFile, WarningsFile} {
		info, err := os.Stat(filepath.Join(store.Dir(), "ex-one", name))
		require.NoError(t, err, name)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

// TestGet_RoundTrip verifies a written bundle reads back
func TestGet_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	b := sampleBundle(t, "one",
		article.Heading{Level: 2, Text: "Head", Format: article.FormatText},
		article.Image{URL: "https://example.com/a.jpg"},
	)
	require.NoError(t, store.Write(b))

	got, err := store.Get("ex-one")
	require.NoError(t, err)
	assert.Equal(t, b.Document.Components, got.Document.Components)
	assert.Equal(t, b.Warnings, got.Warnings)
	require.NotNil(t, got.Article)
	assert.Equal(t, "Story one", got.Article.Metadata.Title)
	assert.Len(t, got.Article.Body, 2)
}

// TestGet_NotFound verifies the sentinel error
func TestGet_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrBundleNotFound)
}

// TestPath_RejectsTraversal verifies identifiers stay inside the store
func TestPath_RejectsTraversal(t *testing.T) {
	store := setupTestStore(t)

	for _, id := range []string{"", ".", "..", "../etc", `a\b`} {
		_, err := store.Get(id)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, id)
	}
}

// TestList_CollectsErrors verifies unreadable bundles do not fail the list
func TestList_CollectsErrors(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Write(sampleBundle(t, "b", article.Divider{})))
	require.NoError(t, store.Write(sampleBundle(t, "a", article.Divider{})))

	broken := filepath.Join(store.Dir(), "broken")
	require.NoError(t, os.MkdirAll(broken, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(broken, DocumentFile), []byte("{not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "stray.txt"), []byte("x"), 0o600))

	result, err := store.List()
	require.NoError(t, err)
	require.Len(t, result.Bundles, 2)
	assert.Equal(t, "ex-a", result.Bundles[0].Identifier)
	assert.Equal(t, "ex-b", result.Bundles[1].Identifier)
	assert.Equal(t, "Story a", result.Bundles[0].Title)
	assert.Equal(t, 1, result.Bundles[0].Components)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "broken", result.Errors[0].Identifier)
}

// TestDelete verifies bundle removal
func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Write(sampleBundle(t, "one", article.Divider{})))

	require.NoError(t, store.Delete("ex-one"))
	_, err := store.Get("ex-one")
	assert.ErrorIs(t, err, ErrBundleNotFound)
	assert.ErrorIs(t, store.Delete("ex-one"), ErrBundleNotFound)
}

// TestWrite_RequiresDocument verifies empty bundles are rejected
func TestWrite_RequiresDocument(t *testing.T) {
	store := setupTestStore(t)
	assert.Error(t, store.Write(Bundle{}))
}

// TestWrite_RewritesSameArticle verifies a re-scraped article replaces its
// own bundle
func TestWrite_RewritesSameArticle(t *testing.T) {
	store := setupTestStore(t)
	first := sampleBundle(t, "one", article.Paragraph{Text: "Hi", Format: article.FormatText})
	require.NoError(t, store.Write(first))

	second := sampleBundle(t, "one", article.Paragraph{Text: "Updated", Format: article.FormatText})
	require.NoError(t, store.Write(second))

	got, err := store.Get("ex-one")
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Document.Components[0].(anf.Body).Text)
}

// TestWrite_IdentifierConflict verifies a different article sharing the
// last URL segment does not overwrite an existing bundle
func TestWrite_IdentifierConflict(t *testing.T) {
	store := setupTestStore(t)
	first := sampleBundle(t, "2024/01/update", article.Paragraph{Text: "First", Format: article.FormatText})
	second := sampleBundle(t, "2025/02/update", article.Paragraph{Text: "Second", Format: article.FormatText})
	require.Equal(t, first.Document.Identifier, second.Document.Identifier)

	require.NoError(t, store.Write(first))
	err := store.Write(second)
	assert.ErrorIs(t, err, ErrIdentifierConflict)

	got, err := store.Get(first.Document.Identifier)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Document.Components[0].(anf.Body).Text)
	assert.Equal(t, "https://example.com/2024/01/update/", got.Article.Source.URL)
}

// TestWrite_RemovesStaleSource verifies a bundle written without its
// intermediary document does not keep the previous one
func TestWrite_RemovesStaleSource(t *testing.T) {
	store := setupTestStore(t)
	b := sampleBundle(t, "one", article.Paragraph{Text: "Hi", Format: article.FormatText})
	require.NoError(t, store.Write(b))

	b.Article = nil
	require.NoError(t, store.Write(b))

	_, err := os.Stat(filepath.Join(store.Dir(), "ex-one", SourceFile))
	assert.True(t, os.IsNotExist(err))

	got, err := store.Get("ex-one")
	require.NoError(t, err)
	assert.Nil(t, got.Article)
}
