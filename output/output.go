// Package output writes transformed articles to disk. Each article is a
// bundle directory named by its ANF identifier holding the ANF document,
// the intermediary document it came from and the transform warnings.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pevans/pressfeed/anf"
	"github.com/pevans/pressfeed/article"
)

// Bundle file names.
const (
	DocumentFile = "article.json"
	SourceFile   = "source.json"
	WarningsFile = "warnings.json"
)

var (
	ErrBundleNotFound    = errors.New("bundle not found")
	ErrInvalidIdentifier = errors.New("invalid bundle identifier")
	// ErrIdentifierConflict is returned when a different article already
	// owns the bundle identifier.
	ErrIdentifierConflict = errors.New("bundle identifier belongs to another article")
)

// Bundle is one written article.
type Bundle struct {
	Document *anf.Document    `json:"document"`
	Article  *article.Article `json:"article,omitempty"`
	Warnings []anf.Warning    `json:"warnings"`
}

// Summary describes a bundle without its components.
type Summary struct {
	Identifier   string    `json:"identifier"`
	Title        string    `json:"title"`
	CanonicalURL string    `json:"canonical_url,omitempty"`
	Components   int       `json:"components"`
	Warnings     int       `json:"warnings"`
	WrittenAt    time.Time `json:"written_at"`
}

// ReadError describes a failure to read a single bundle.
type ReadError struct {
	Identifier string
	Err        error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Identifier, e.Err)
}

// ListResult contains the readable bundles plus any per-bundle errors.
type ListResult struct {
	Bundles []Summary
	Errors  []ReadError
}

// Store is a directory of bundles.
type Store struct {
	dir string
}

// NewStore creates the output directory if needed.
func NewStore(dir string) (*Store, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Write saves a bundle. An earlier bundle for the same article is
// replaced; one written for a different canonical URL under the same
// identifier is left alone and ErrIdentifierConflict is returned.
func (s *Store) Write(b Bundle) error {
	if b.Document == nil {
		return fmt.Errorf("bundle has no document")
	}
	dir, err := s.path(b.Document.Identifier)
	if err != nil {
		return err
	}
	if err := s.checkOwner(dir, b.Document); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create bundle directory: %w", err)
	}

	warnings := b.Warnings
	if warnings == nil {
		warnings = []anf.Warning{}
	}

	files := []struct {
		name string
		v    any
	}{
		{DocumentFile, b.Document},
		{WarningsFile, warnings},
	}
	if b.Article != nil {
		files = append(files, struct {
			name string
			v    any
		}{SourceFile, b.Article})
	} else if err := os.Remove(filepath.Join(dir, SourceFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale %s: %w", SourceFile, err)
	}

	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return err
		}
	}
	return nil
}

// checkOwner compares doc with the document already stored in dir, if any.
func (s *Store) checkOwner(dir string, doc *anf.Document) error {
	// A missing or unreadable bundle is simply replaced.
	var existing anf.Document
	if err := readJSON(filepath.Join(dir, DocumentFile), &existing); err != nil {
		return nil
	}

	if existing.Metadata == nil || doc.Metadata == nil {
		return nil
	}
	if existing.Metadata.CanonicalURL != doc.Metadata.CanonicalURL {
		return fmt.Errorf("%w: %s is held by %s", ErrIdentifierConflict,
			doc.Identifier, existing.Metadata.CanonicalURL)
	}
	return nil
}

// Get reads a bundle by identifier.
func (s *Store) Get(identifier string) (*Bundle, error) {
	dir, err := s.path(identifier)
	if err != nil {
		return nil, err
	}

	var doc anf.Document
	if err := readJSON(filepath.Join(dir, DocumentFile), &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBundleNotFound
		}
		return nil, err
	}
	b := &Bundle{Document: &doc, Warnings: []anf.Warning{}}

	if err := readJSON(filepath.Join(dir, WarningsFile), &b.Warnings); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var a article.Article
	switch err := readJSON(filepath.Join(dir, SourceFile), &a); {
	case err == nil:
		b.Article = &a
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	return b, nil
}

// List summarizes every bundle, sorted by identifier. Unreadable bundles
// are collected in the result's Errors slice rather than failing the
// whole listing.
func (s *Store) List() (*ListResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	result := &ListResult{Bundles: []Summary{}}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		summary, err := s.summarize(entry.Name())
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Identifier: entry.Name(), Err: err})
			continue
		}
		result.Bundles = append(result.Bundles, *summary)
	}

	sort.Slice(result.Bundles, func(i, j int) bool {
		return result.Bundles[i].Identifier < result.Bundles[j].Identifier
	})
	return result, nil
}

// Delete removes a bundle.
func (s *Store) Delete(identifier string) error {
	dir, err := s.path(identifier)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ErrBundleNotFound
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete bundle: %w", err)
	}
	return nil
}

func (s *Store) summarize(identifier string) (*Summary, error) {
	path := filepath.Join(s.dir, identifier, DocumentFile)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var doc anf.Document
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}

	var warnings []anf.Warning
	if err := readJSON(filepath.Join(s.dir, identifier, WarningsFile), &warnings); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	summary := &Summary{
		Identifier: doc.Identifier,
		Title:      doc.Title,
		Components: len(doc.Components),
		Warnings:   len(warnings),
		WrittenAt:  info.ModTime().UTC(),
	}
	if doc.Metadata != nil {
		summary.CanonicalURL = doc.Metadata.CanonicalURL
	}
	return summary, nil
}

// path maps an identifier to its bundle directory, rejecting identifiers
// that would escape the output directory.
func (s *Store) path(identifier string) (string, error) {
	if identifier == "" || identifier == "." || identifier == ".." ||
		strings.ContainsAny(identifier, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, identifier)
	}
	return filepath.Join(s.dir, identifier), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	// 0600: owner-only read/write
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}
