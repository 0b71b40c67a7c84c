package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/ramkansal/sitescout/internal/extractor"
	"github.com/ramkansal/sitescout/pkg/plugin"
)

// HTTPFetcher uses Colly for plain HTTP fetching without script execution.
type HTTPFetcher struct {
	collector *colly.Collector
	extractor extractor.Extractor
	headers   map[string]string
}

// HTTPFetcherConfig holds configuration for the HTTP fetcher.
type HTTPFetcherConfig struct {
	UserAgent       string
	Timeout         time.Duration
	MaxResponseSize int
	// Proxy is an http, https or socks5 proxy URL.
	Proxy string
	// CustomHeaders are "Name: value" pairs sent with every request.
	CustomHeaders    []string
	DisableRedirects bool
	Extractor        extractor.Extractor
}

// NewHTTPFetcher creates a new Colly-based HTTP fetcher. It fails only on
// an unusable proxy URL.
func NewHTTPFetcher(cfg HTTPFetcherConfig) (*HTTPFetcher, error) {
	// The crawl loop owns dedup and scoping, so the collector must not
	// second-guess it with its own visited store or robots rules.
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = true

	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}

	// Set request timeout
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}

	if cfg.Proxy != "" {
		if err := c.SetProxy(cfg.Proxy); err != nil {
			return nil, fmt.Errorf("set proxy: %w", err)
		}
	}

	// Set max response size
	if cfg.MaxResponseSize > 0 {
		c.MaxBodySize = cfg.MaxResponseSize
	}

	// Disable redirects
	if cfg.DisableRedirects {
		c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		})
	}

	ext := cfg.Extractor
	if ext == nil {
		ext = extractor.Default()
	}

	return &HTTPFetcher{
		collector: c,
		extractor: ext,
		headers:   parseHeaders(cfg.CustomHeaders),
	}, nil
}

func (f *HTTPFetcher) Name() string { return "http" }

// Fetch downloads targetURL and extracts the links from its HTML body.
// On an error status the returned page carries the status code alongside the error.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (*plugin.PageData, error) {
	start := time.Now()

	page := &plugin.PageData{
		URL:         targetURL,
		FinalURL:    targetURL,
		FetcherUsed: "http",
		FetchedAt:   start,
	}

	// Clone shares the transport but no callbacks, so every handler is
	// registered on the clone.
	c := f.collector.Clone()
	c.Context = ctx

	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.8")
		for k, v := range f.headers {
			r.Headers.Set(k, v)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.Body = string(r.Body)
		page.FinalURL = r.Request.URL.String()
		page.ContentType = r.Headers.Get("Content-Type")
		page.Headers = r.Headers.Clone()
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			page.StatusCode = r.StatusCode
			if r.Request != nil {
				page.FinalURL = r.Request.URL.String()
			}
		}
		page.Error = err.Error()
	})

	err := c.Visit(targetURL)
	c.Wait()
	page.FetchDuration = time.Since(start)

	if fetchErr == nil && err != nil {
		fetchErr = err
		page.Error = err.Error()
	}
	if fetchErr != nil {
		return page, fetchErr
	}

	if isHTML(page.ContentType) {
		links, err := f.extractor.Extract(page.Body, page.FinalURL)
		if err != nil {
			page.Error = "link extraction failed: " + err.Error()
		}
		page.Links = links
	}

	return page, nil
}

func (f *HTTPFetcher) Close() error {
	return nil
}

func parseHeaders(raw []string) map[string]string {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
