package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramkansal/sitescout/internal/canonical"
	"github.com/ramkansal/sitescout/internal/fetcher"
	"github.com/ramkansal/sitescout/pkg/plugin"
)

// fakePage describes how the fake fetcher answers one URL.
type fakePage struct {
	status int
	links  []string
	err    error
	delay  time.Duration
}

// fakeFetcher serves an in-memory site and records every fetch.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]fakePage
	fetched []string
}

func newFakeFetcher(pages map[string]fakePage) *fakeFetcher {
	return &fakeFetcher{pages: pages}
}

func (f *fakeFetcher) Name() string { return "fake" }
func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*plugin.PageData, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	p, ok := f.pages[url]
	f.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return &plugin.PageData{URL: url}, ctx.Err()
		}
	}
	if !ok {
		return &plugin.PageData{URL: url, StatusCode: http.StatusNotFound}, fmt.Errorf("not found")
	}
	if p.err != nil {
		return &plugin.PageData{URL: url}, p.err
	}
	status := p.status
	if status == 0 {
		status = http.StatusOK
	}
	return &plugin.PageData{URL: url, FinalURL: url, StatusCode: status, Links: p.links}, nil
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func strs(urls []canonical.URL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.String()
	}
	return out
}

func testConfig() CrawlConfig {
	cfg := DefaultConfig()
	cfg.Name = "test"
	cfg.PageTimeout = 2 * time.Second
	return cfg
}

func TestCrawlBreadthFirst(t *testing.T) {
	t.Parallel()

	const base = "https://example.com"
	f := newFakeFetcher(map[string]fakePage{
		base:        {links: []string{"/b", "/c"}},
		base + "/b": {links: []string{"/d", "/"}},
		base + "/c": {links: []string{"d", "/e#top", "https://example.com/e/"}},
		base + "/d": {links: []string{"/b"}},
		base + "/e": {},
	})

	res := Crawl(context.Background(), canonical.MustParse(base), f, testConfig())

	assert.Equal(t, []string{base, base + "/b", base + "/c", base + "/d", base + "/e"}, strs(res.URLs))
	assert.Equal(t, StopFrontierExhausted, res.Reason)
	assert.Equal(t, 5, f.fetchCount(), "every page is fetched exactly once")
	assert.Equal(t, strs(res.URLs), strs(res.Visited))
	assert.Zero(t, res.Errors)
	assert.NotEmpty(t, res.Log)
}

func TestCrawlFiltersOutOfScopeLinks(t *testing.T) {
	t.Parallel()

	const base = "https://example.com"
	f := newFakeFetcher(map[string]fakePage{
		base: {links: []string{
			"https://other.org/page",
			"mailto:someone@example.com",
			"/wp-admin/options.php",
			"/logo.png",
			"/sitemap.xml",
			"/docs",
		}},
		base + "/docs": {},
	})

	res := Crawl(context.Background(), canonical.MustParse(base), f, testConfig())

	assert.Equal(t, []string{base, base + "/docs"}, strs(res.URLs))
	assert.Equal(t, 2, f.fetchCount())
}

func TestCrawlMaxPages(t *testing.T) {
	t.Parallel()

	const base = "https://example.com"
	pages := map[string]fakePage{}
	var links []string
	for i := 0; i < 50; i++ {
		p := fmt.Sprintf("/p%d", i)
		links = append(links, p)
		pages[base+p] = fakePage{}
	}
	pages[base] = fakePage{links: links}
	f := newFakeFetcher(pages)

	cfg := testConfig()
	cfg.MaxPages = 10
	res := Crawl(context.Background(), canonical.MustParse(base), f, cfg)

	assert.Len(t, res.URLs, 10)
	assert.Equal(t, StopPageCap, res.Reason)
	assert.Equal(t, 10, f.fetchCount())
}

func TestCrawlSkipsErrorStatuses(t *testing.T) {
	t.Parallel()

	const base = "https://example.com"
	f := newFakeFetcher(map[string]fakePage{
		base:           {links: []string{"/gone", "/ok"}},
		base + "/gone": {status: http.StatusGone},
		base + "/ok":   {},
	})

	res := Crawl(context.Background(), canonical.MustParse(base), f, testConfig())

	assert.Equal(t, []string{base, base + "/ok"}, strs(res.URLs))
	assert.Equal(t, []string{base, base + "/gone", base + "/ok"}, strs(res.Visited), "skipped pages still count as visited")
	assert.Zero(t, res.Errors, "plain error statuses do not feed the breaker")
}

func TestCrawlCircuitBreaker(t *testing.T) {
	t.Parallel()

	const base = "https://example.com"

	t.Run("blocked pages", func(t *testing.T) {
		t.Parallel()

		pages := map[string]fakePage{}
		var links []string
		for i := 0; i < 20; i++ {
			p := fmt.Sprintf("/p%d", i)
			links = append(links, p)
			pages[base+p] = fakePage{status: http.StatusForbidden}
		}
		pages[base] = fakePage{links: links}
		f := newFakeFetcher(pages)

		cfg := testConfig()
		cfg.MaxErrors = 5
		res := Crawl(context.Background(), canonical.MustParse(base), f, cfg)

		assert.True(t, res.Aborted())
		assert.Equal(t, 6, f.fetchCount(), "root plus five blocked pages")
		assert.Equal(t, 5, res.Blocked)
		assert.Equal(t, []string{base}, strs(res.URLs))
	})

	t.Run("blocked root", func(t *testing.T) {
		t.Parallel()

		f := newFakeFetcher(map[string]fakePage{base: {status: http.StatusForbidden}})
		cfg := testConfig()
		cfg.MaxErrors = 5
		res := Crawl(context.Background(), canonical.MustParse(base), f, cfg)

		assert.Empty(t, res.URLs)
		assert.Equal(t, StopFrontierExhausted, res.Reason)
	})

	t.Run("transport errors", func(t *testing.T) {
		t.Parallel()

		pages := map[string]fakePage{}
		var links []string
		for i := 0; i < 10; i++ {
			p := fmt.Sprintf("/p%d", i)
			links = append(links, p)
			pages[base+p] = fakePage{err: errors.New("connection reset")}
		}
		pages[base] = fakePage{links: links}
		f := newFakeFetcher(pages)

		cfg := testConfig()
		cfg.MaxErrors = 3
		res := Crawl(context.Background(), canonical.MustParse(base), f, cfg)

		assert.Equal(t, StopCircuitOpen, res.Reason)
		assert.Equal(t, 3, res.Errors)
		assert.Equal(t, 4, f.fetchCount())
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		pages := map[string]fakePage{}
		var links []string
		for i := 0; i < 10; i++ {
			p := fmt.Sprintf("/p%d", i)
			links = append(links, p)
			pages[base+p] = fakePage{status: http.StatusServiceUnavailable}
		}
		pages[base] = fakePage{links: links}
		f := newFakeFetcher(pages)

		res := Crawl(context.Background(), canonical.MustParse(base), f, testConfig())

		assert.Equal(t, StopFrontierExhausted, res.Reason)
		assert.Equal(t, 11, f.fetchCount())
		assert.Equal(t, 10, res.Blocked)
	})
}

func TestCrawlTimeBudget(t *testing.T) {
	t.Parallel()

	const base = "https://example.com"
	pages := map[string]fakePage{}
	var links []string
	for i := 0; i < 100; i++ {
		p := fmt.Sprintf("/p%d", i)
		links = append(links, p)
		pages[base+p] = fakePage{delay: 20 * time.Millisecond}
	}
	pages[base] = fakePage{links: links}
	f := newFakeFetcher(pages)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := Crawl(ctx, canonical.MustParse(base), f, testConfig())

	assert.Equal(t, StopTimeBudget, res.Reason)
	assert.Less(t, time.Since(start), time.Second)
	assert.Less(t, len(res.URLs), 101)
	assert.NotEmpty(t, res.URLs)
}

func TestCrawlCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFakeFetcher(map[string]fakePage{"https://example.com": {}})
	res := Crawl(ctx, canonical.MustParse("https://example.com"), f, testConfig())

	assert.Equal(t, StopCancelled, res.Reason)
	assert.Zero(t, f.fetchCount())
}

func TestCrawlEvents(t *testing.T) {
	t.Parallel()

	const base = "https://example.com"
	f := newFakeFetcher(map[string]fakePage{
		base:              {links: []string{"/a", "/blocked"}},
		base + "/a":       {},
		base + "/blocked": {status: http.StatusForbidden},
	})

	var events []plugin.CrawlEvent
	cfg := testConfig()
	cfg.Events = func(e plugin.CrawlEvent) { events = append(events, e) }
	Crawl(context.Background(), canonical.MustParse(base), f, cfg)

	require.Len(t, events, 3)
	assert.Equal(t, plugin.EventPageDone, events[0].Type)
	assert.Equal(t, 1, events[0].Count)
	assert.Equal(t, plugin.EventPageDone, events[1].Type)
	assert.Equal(t, plugin.EventPageBlocked, events[2].Type)
	assert.ErrorIs(t, events[2].Error, ErrBlocked)
	for _, e := range events {
		assert.Equal(t, "test", e.Strategy)
	}
}

func TestCrawlRateLimit(t *testing.T) {
	t.Parallel()

	const base = "https://example.com"
	f := newFakeFetcher(map[string]fakePage{
		base:        {links: []string{"/a", "/b"}},
		base + "/a": {},
		base + "/b": {},
	})

	cfg := testConfig()
	cfg.RateLimit = 50 * time.Millisecond
	start := time.Now()
	res := Crawl(context.Background(), canonical.MustParse(base), f, cfg)

	assert.Len(t, res.URLs, 3)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestCrawlWithHTTPFetcher(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/{$}", page(`<a href="/docs">Docs</a><a href="/blog/">Blog</a>`))
	mux.HandleFunc("/docs", page(`<a href="/docs/intro">Intro</a><a href="/">Home</a>`))
	mux.HandleFunc("/docs/intro", page(`<a href="../blog">Blog</a>`))
	mux.HandleFunc("/blog", page(`<a href="/private">p</a>`))
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, err := fetcher.NewHTTPFetcher(fetcher.HTTPFetcherConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer f.Close()

	root, err := canonical.Parse(srv.URL, nil)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.MaxErrors = 5
	res := Crawl(context.Background(), root, f, cfg)

	assert.Equal(t, []string{
		root.String(),
		root.String() + "/docs",
		root.String() + "/blog",
		root.String() + "/docs/intro",
	}, strs(res.URLs))
	assert.Equal(t, 1, res.Blocked)
}
