// Package state tracks discovered article URLs and what happened to them,
// so the poller scrapes each article once and retries failures a bounded
// number of times.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pevans/pressfeed/article"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrInvalidStatus   = errors.New("status must be discovered, scraped, or failed")
)

// Status is the processing state of a tracked article.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusScraped    Status = "scraped"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDiscovered, StatusScraped, StatusFailed:
		return true
	}
	return false
}

// Record is one tracked article URL.
type Record struct {
	ID           uuid.UUID  `json:"id"`
	URL          string     `json:"url"`
	PublisherID  string     `json:"publisher_id"`
	Title        string     `json:"title"`
	Excerpt      string     `json:"excerpt,omitempty"`
	Thumbnail    string     `json:"thumbnail,omitempty"`
	FeedURL      string     `json:"feed_url,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	Status       Status     `json:"status"`
	Attempts     int        `json:"attempts"`
	LastError    *string    `json:"last_error,omitempty"`
	Identifier   *string    `json:"identifier,omitempty"`
	DiscoveredAt time.Time  `json:"discovered_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ScrapedAt    *time.Time `json:"scraped_at,omitempty"`
}

// Filter narrows List results.
type Filter struct {
	PublisherID *string
	Status      *Status
	Limit       int
	Offset      int
}

// Store keeps article state in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		publisher_id TEXT NOT NULL,
		title TEXT NOT NULL,
		excerpt TEXT,
		thumbnail TEXT,
		feed_url TEXT,
		published_at TEXT,
		status TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		last_error TEXT,
		identifier TEXT,
		discovered_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		scraped_at TEXT
	);
	CREATE INDEX IF NOT EXISTS articles_publisher_status ON articles (publisher_id, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Track records a discovered article. Known URLs are left untouched and
// reported with created false.
func (s *Store) Track(d article.DiscoveredArticle, feedURL string) (*Record, bool, error) {
	now := time.Now()
	id := uuid.New()

	result, err := s.db.Exec(`
		INSERT INTO articles (
			id, url, publisher_id, title, excerpt, thumbnail, feed_url,
			published_at, status, discovered_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`,
		id.String(),
		d.URL,
		d.SourceID,
		d.Title,
		nullString(d.Excerpt),
		nullString(d.Thumbnail),
		nullString(feedURL),
		formatTime(d.PublishedAt),
		string(StatusDiscovered),
		formatTime(&now),
		formatTime(&now),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert article: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	record, err := s.Get(d.URL)
	if err != nil {
		return nil, false, err
	}
	return record, rows > 0, nil
}

const selectColumns = `
	SELECT id, url, publisher_id, title, excerpt, thumbnail, feed_url,
	       published_at, status, attempts, last_error, identifier,
	       discovered_at, updated_at, scraped_at
	FROM articles
`

// Get returns the record for a URL.
func (s *Store) Get(url string) (*Record, error) {
	row := s.db.QueryRow(selectColumns+" WHERE url = ?", url)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}
	return record, nil
}

// List returns records, newest first.
func (s *Store) List(filter Filter) ([]Record, error) {
	query := selectColumns

	var whereClauses []string
	var args []any

	if filter.PublisherID != nil {
		whereClauses = append(whereClauses, "publisher_id = ?")
		args = append(args, *filter.PublisherID)
	}
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, string(*filter.Status))
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	return s.query(query, args...)
}

// Pending returns a publisher's articles that still need scraping, oldest
// first: newly discovered ones and failures with fewer than maxAttempts
// attempts.
func (s *Store) Pending(publisherID string, limit, maxAttempts int) ([]Record, error) {
	query := selectColumns + `
		WHERE publisher_id = ?
		  AND (status = ? OR (status = ? AND attempts < ?))
		ORDER BY rowid ASC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return s.query(query, publisherID, string(StatusDiscovered), string(StatusFailed), maxAttempts)
}

// MarkScraped records a successful scrape and the identifier of the
// document written for it.
func (s *Store) MarkScraped(url, identifier string) error {
	now := time.Now()
	return s.update(`
		UPDATE articles
		SET status = ?, identifier = ?, last_error = NULL, scraped_at = ?, updated_at = ?
		WHERE url = ?
	`, string(StatusScraped), identifier, formatTime(&now), formatTime(&now), url)
}

// MarkFailed records a failed attempt.
func (s *Store) MarkFailed(url string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	now := time.Now()
	return s.update(`
		UPDATE articles
		SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE url = ?
	`, string(StatusFailed), msg, formatTime(&now), url)
}

// MarkAbandoned records a failure that will not go away on retry. The
// attempt counter is raised to at least maxAttempts so Pending skips it.
func (s *Store) MarkAbandoned(url string, cause error, maxAttempts int) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	now := time.Now()
	return s.update(`
		UPDATE articles
		SET status = ?, attempts = MAX(attempts + 1, ?), last_error = ?, updated_at = ?
		WHERE url = ?
	`, string(StatusFailed), maxAttempts, msg, formatTime(&now), url)
}

// Counts returns the number of records per status, optionally for a
// single publisher.
func (s *Store) Counts(publisherID string) (map[Status]int, error) {
	query := "SELECT status, COUNT(*) FROM articles"
	var args []any
	if publisherID != "" {
		query += " WHERE publisher_id = ?"
		args = append(args, publisherID)
	}
	query += " GROUP BY status"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{
		StatusDiscovered: 0,
		StatusScraped:    0,
		StatusFailed:     0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *Store) update(query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (s *Store) query(query string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var idStr, url, publisherID, title, status, discoveredAt, updatedAt string
	var excerpt, thumbnail, feedURL, publishedAt, lastError, identifier, scrapedAt sql.NullString
	var attempts int

	err := row.Scan(
		&idStr, &url, &publisherID, &title, &excerpt, &thumbnail, &feedURL,
		&publishedAt, &status, &attempts, &lastError, &identifier,
		&discoveredAt, &updatedAt, &scrapedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article ID: %w", err)
	}

	record := &Record{
		ID:           id,
		URL:          url,
		PublisherID:  publisherID,
		Title:        title,
		Excerpt:      excerpt.String,
		Thumbnail:    thumbnail.String,
		FeedURL:      feedURL.String,
		Status:       Status(status),
		Attempts:     attempts,
		DiscoveredAt: parseTime(discoveredAt),
		UpdatedAt:    parseTime(updatedAt),
	}

	if publishedAt.Valid {
		t := parseTime(publishedAt.String)
		record.PublishedAt = &t
	}
	if scrapedAt.Valid {
		t := parseTime(scrapedAt.String)
		record.ScrapedAt = &t
	}
	if lastError.Valid {
		record.LastError = &lastError.String
	}
	if identifier.Valid {
		record.Identifier = &identifier.String
	}

	return record, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
