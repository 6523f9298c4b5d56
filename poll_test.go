package pressfeed

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/output"
	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/scraper"
	"github.com/pevans/pressfeed/state"
)

// fakeSource serves canned discovery results and articles.
type fakeSource struct {
	mu          sync.Mutex
	discovered  map[string][]scraper.Discovered
	discoverErr map[string]error
	articles    map[string]*article.Article
	scrapeErr   map[string]error
	scrapes     map[string]int

	active    atomic.Int32
	maxActive atomic.Int32
	delay     time.Duration
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		discovered:  map[string][]scraper.Discovered{},
		discoverErr: map[string]error{},
		articles:    map[string]*article.Article{},
		scrapeErr:   map[string]error{},
		scrapes:     map[string]int{},
	}
}

func (f *fakeSource) DiscoverArticles(ctx context.Context, pub parsers.Publisher) ([]scraper.Discovered, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.discoverErr[pub.ID]; err != nil {
		return nil, err
	}
	return f.discovered[pub.ID], nil
}

func (f *fakeSource) ScrapeArticle(ctx context.Context, pageURL, cmsHint string) (*article.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrapes[pageURL]++
	if err := f.scrapeErr[pageURL]; err != nil {
		return nil, err
	}
	a, ok := f.articles[pageURL]
	if !ok {
		return nil, fmt.Errorf("no article for %s", pageURL)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeSource) scrapeCount(pageURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrapes[pageURL]
}

func sampleArticle(pageURL, publisher string, body ...article.Component) *article.Article {
	if len(body) == 0 {
		body = []article.Component{article.Paragraph{Text: "Body text.", Format: article.FormatText}}
	}
	return &article.Article{
		Version:     article.SchemaVersion,
		ExtractedAt: time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
		Source: article.Source{
			URL:       pageURL,
			Publisher: publisher,
			CMS:       parsers.CMSGhost,
			Method:    article.MethodScrape,
		},
		Metadata: article.Metadata{
			Title:       "Story",
			Language:    "en",
			PublishedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Authors: []article.Author{},
		Body:    body,
	}
}

func ref(pageURL, feedURL string) scraper.Discovered {
	return scraper.Discovered{
		DiscoveredArticle: article.DiscoveredArticle{URL: pageURL, Title: "Title"},
		FeedURL:           feedURL,
	}
}

// Test helper: create a service over temporary stores
func setupTestService(t *testing.T, source Source, pubs []parsers.Publisher, config *PollConfig) (*PollService, *state.Store, *output.Store) {
	t.Helper()
	tempDir := t.TempDir()

	stateStore, err := state.NewStore(filepath.Join(tempDir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { stateStore.Close() })

	outputStore, err := output.NewStore(filepath.Join(tempDir, "bundles"))
	require.NoError(t, err)

	return NewPollService(source, pubs, stateStore, outputStore, config), stateStore, outputStore
}

var examplePub = parsers.Publisher{ID: "ex", CMS: parsers.CMSGhost, Domains: []string{"example.com"}}

// TestPollOnce_IngestsNewArticles verifies discovery, scraping, transform
// and write for a publisher
func TestPollOnce_IngestsNewArticles(t *testing.T) {
	source := newFakeSource()
	source.discovered["ex"] = []scraper.Discovered{
		ref("https://example.com/first/", "https://example.com/rss/"),
		ref("https://example.com/second/", ""),
	}
	source.articles["https://example.com/first/"] = sampleArticle("https://example.com/first/", "ex")
	source.scrapeErr["https://example.com/second/"] = errors.New("connection reset")

	service, stateStore, outputStore := setupTestService(t, source, []parsers.Publisher{examplePub}, nil)

	results, err := service.PollOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ex", results[0].PublisherID)
	assert.Equal(t, 2, results[0].Discovered)
	assert.Equal(t, 2, results[0].New)
	assert.Equal(t, 1, results[0].Scraped)
	assert.Equal(t, 1, results[0].Failed)
	assert.NoError(t, results[0].Err)

	first, err := stateStore.Get("https://example.com/first/")
	require.NoError(t, err)
	assert.Equal(t, state.StatusScraped, first.Status)
	require.NotNil(t, first.Identifier)
	assert.Equal(t, "ex-first", *first.Identifier)

	second, err := stateStore.Get("https://example.com/second/")
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, second.Status)
	assert.Equal(t, 1, second.Attempts)
	require.NotNil(t, second.LastError)
	assert.Contains(t, *second.LastError, "connection reset")

	bundle, err := outputStore.Get("ex-first")
	require.NoError(t, err)
	require.NotNil(t, bundle.Article)
	assert.Equal(t, "https://example.com/rss/", bundle.Article.Source.FeedURL)
	assert.Equal(t, "Story", bundle.Document.Title)
}

// TestPollOnce_RetriesTransientFailures verifies scraped articles are not
// fetched again and failures are retried up to MaxAttempts
func TestPollOnce_RetriesTransientFailures(t *testing.T) {
	source := newFakeSource()
	source.discovered["ex"] = []scraper.Discovered{
		ref("https://example.com/ok/", ""),
		ref("https://example.com/flaky/", ""),
	}
	source.articles["https://example.com/ok/"] = sampleArticle("https://example.com/ok/", "ex")
	source.scrapeErr["https://example.com/flaky/"] = &scraper.StatusError{URL: "https://example.com/flaky/", Code: 503, Status: "503 Service Unavailable"}

	service, stateStore, _ := setupTestService(t, source, []parsers.Publisher{examplePub}, &PollConfig{MaxAttempts: 2})

	for range 4 {
		_, err := service.PollOnce(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, source.scrapeCount("https://example.com/ok/"))
	assert.Equal(t, 2, source.scrapeCount("https://example.com/flaky/"))

	flaky, err := stateStore.Get("https://example.com/flaky/")
	require.NoError(t, err)
	assert.Equal(t, 2, flaky.Attempts)
}

// TestPollOnce_AbandonsPermanentFailures verifies permanent errors are not
// retried
func TestPollOnce_AbandonsPermanentFailures(t *testing.T) {
	source := newFakeSource()
	source.discovered["ex"] = []scraper.Discovered{
		ref("https://example.com/gone/", ""),
		ref("https://example.com/broken/", ""),
		ref("https://example.com/empty/", ""),
	}
	source.scrapeErr["https://example.com/gone/"] = fmt.Errorf("failed to fetch article: %w",
		&scraper.StatusError{URL: "https://example.com/gone/", Code: 404, Status: "404 Not Found"})
	source.scrapeErr["https://example.com/broken/"] = fmt.Errorf("failed to parse article: %w", parsers.ErrStructure)
	source.articles["https://example.com/empty/"] = sampleArticle("https://example.com/empty/", "ex",
		article.RawHTML{HTML: "<script>x()</script>"})

	service, stateStore, outputStore := setupTestService(t, source, []parsers.Publisher{examplePub}, &PollConfig{MaxAttempts: 3})

	results, err := service.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, results[0].Failed)

	_, err = service.PollOnce(context.Background())
	require.NoError(t, err)

	for _, u := range []string{"https://example.com/gone/", "https://example.com/broken/", "https://example.com/empty/"} {
		assert.Equal(t, 1, source.scrapeCount(u), u)
		record, err := stateStore.Get(u)
		require.NoError(t, err)
		assert.Equal(t, state.StatusFailed, record.Status)
		assert.Equal(t, 3, record.Attempts, u)
	}

	list, err := outputStore.List()
	require.NoError(t, err)
	assert.Empty(t, list.Bundles, "no placeholder bundles are written")
}

// TestPollOnce_DiscoveryFailureStillProcessesPending verifies a failed
// discovery does not block earlier pending articles
func TestPollOnce_DiscoveryFailureStillProcessesPending(t *testing.T) {
	source := newFakeSource()
	source.discovered["ex"] = []scraper.Discovered{ref("https://example.com/later/", "")}
	source.scrapeErr["https://example.com/later/"] = errors.New("timeout")

	service, stateStore, _ := setupTestService(t, source, []parsers.Publisher{examplePub}, nil)

	_, err := service.PollOnce(context.Background())
	require.NoError(t, err)

	source.mu.Lock()
	source.discoverErr["ex"] = errors.New("homepage down")
	delete(source.scrapeErr, "https://example.com/later/")
	source.articles["https://example.com/later/"] = sampleArticle("https://example.com/later/", "ex")
	source.mu.Unlock()

	results, err := service.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Error(t, results[0].Err)
	assert.Equal(t, 1, results[0].Scraped)

	record, err := stateStore.Get("https://example.com/later/")
	require.NoError(t, err)
	assert.Equal(t, state.StatusScraped, record.Status)
}

// TestPollOnce_IsolatesPublishers verifies one publisher's failure does not
// affect another and concurrency stays bounded
func TestPollOnce_IsolatesPublishers(t *testing.T) {
	source := newFakeSource()
	source.delay = 20 * time.Millisecond

	var pubs []parsers.Publisher
	for i := range 6 {
		id := fmt.Sprintf("pub%d", i)
		pubs = append(pubs, parsers.Publisher{ID: id, CMS: parsers.CMSGhost, Domains: []string{id + ".example"}})
		u := fmt.Sprintf("https://%s.example/story/", id)
		source.discovered[id] = []scraper.Discovered{ref(u, "")}
		source.articles[u] = sampleArticle(u, id)
	}
	source.discoverErr["pub0"] = errors.New("down")

	service, _, outputStore := setupTestService(t, source, pubs, &PollConfig{Concurrency: 2})

	results, err := service.PollOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)
	assert.Error(t, results[0].Err)
	for _, r := range results[1:] {
		assert.NoError(t, r.Err, r.PublisherID)
		assert.Equal(t, 1, r.Scraped, r.PublisherID)
	}
	assert.LessOrEqual(t, source.maxActive.Load(), int32(2))

	list, err := outputStore.List()
	require.NoError(t, err)
	assert.Len(t, list.Bundles, 5)
}

// TestPollOnce_CancelledContext verifies a cancelled context stops the poll
func TestPollOnce_CancelledContext(t *testing.T) {
	service, _, _ := setupTestService(t, newFakeSource(), []parsers.Publisher{examplePub}, &PollConfig{Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The semaphore has room, so select may pick either branch; both must
	// return without hanging.
	_, err := service.PollOnce(ctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

// TestRun_StopsGracefully verifies Run returns after Stop and after
// cancellation
func TestRun_StopsGracefully(t *testing.T) {
	service, _, _ := setupTestService(t, newFakeSource(), []parsers.Publisher{examplePub}, &PollConfig{Interval: time.Hour})

	done := make(chan error, 1)
	go func() { done <- service.Run(context.Background()) }()

	service.Stop()
	service.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	other, _, _ := setupTestService(t, newFakeSource(), nil, &PollConfig{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { done <- other.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

// TestNewPollService_Defaults verifies zero config fields take defaults
func TestNewPollService_Defaults(t *testing.T) {
	service, _, _ := setupTestService(t, newFakeSource(), nil, &PollConfig{Concurrency: 7})

	cfg := service.Config()
	assert.Equal(t, 7, cfg.Concurrency)
	assert.Equal(t, DefaultPollConfig().Interval, cfg.Interval)
	assert.Equal(t, DefaultPollConfig().MaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, DefaultPollConfig().BatchSize, cfg.BatchSize)
}

// TestIsPermanentError verifies error classification
func TestIsPermanentError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("connection refused"), false},
		{"404", &scraper.StatusError{Code: 404}, true},
		{"410 wrapped", fmt.Errorf("x: %w", &scraper.StatusError{Code: 410}), true},
		{"408", &scraper.StatusError{Code: 408}, false},
		{"429", &scraper.StatusError{Code: 429}, false},
		{"500", &scraper.StatusError{Code: 500}, false},
		{"body too large", scraper.ErrBodyTooLarge, true},
		{"structure", fmt.Errorf("x: %w", parsers.ErrStructure), true},
		{"invalid article", article.ErrInvalid, true},
		{"identifier conflict", fmt.Errorf("x: %w", output.ErrIdentifierConflict), true},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPermanentError(tt.err))
		})
	}
}
