package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ramkansal/sitescout/internal/canonical"
	"github.com/ramkansal/sitescout/internal/crawler"
	"github.com/ramkansal/sitescout/internal/sitemap"
	"github.com/ramkansal/sitescout/pkg/plugin"
)

// Status classifies how a strategy run ended.
type Status string

const (
	// StatusSuccess means the strategy ran to its natural end.
	StatusSuccess Status = "success"
	// StatusPartial means it stopped early (budget, breaker) but returned URLs.
	StatusPartial Status = "partial"
	// StatusFailed means it could not run or crashed.
	StatusFailed Status = "failed"
	// StatusSkipped means the orchestrator never started it.
	StatusSkipped Status = "skipped"
)

// Outcome is the typed result of one strategy run.
type Outcome struct {
	Strategy string
	Status   Status
	URLs     []canonical.URL
	// Fetched counts the documents or pages requested.
	Fetched int
	Logs    []string
	Err     error
	Elapsed time.Duration
}

// Target describes what a strategy should discover.
type Target struct {
	Root     canonical.URL
	MaxPages int
	Logger   *slog.Logger
	Events   plugin.EventSink
}

// Strategy is one way of enumerating a site's pages. Run must respect ctx
// as the shared time budget and must release every resource it acquires
// before returning.
type Strategy interface {
	Name() string
	Run(ctx context.Context, t Target) Outcome
}

// SitemapStrategy adapts a sitemap.Discoverer.
type SitemapStrategy struct {
	Discoverer *sitemap.Discoverer
}

func (s *SitemapStrategy) Name() string { return "sitemap" }

func (s *SitemapStrategy) Run(ctx context.Context, t Target) Outcome {
	res, err := s.Discoverer.Discover(ctx, t.Root, t.MaxPages)
	out := Outcome{Strategy: s.Name(), Status: StatusSuccess, Err: err}
	if res != nil {
		out.URLs = res.URLs
		out.Fetched = len(res.Documents)
		out.Logs = res.Log
	}
	if err != nil {
		out.Status = StatusFailed
		if len(out.URLs) > 0 {
			out.Status = StatusPartial
		}
	}
	return out
}

// FetcherFactory opens a fetcher for a single strategy run.
type FetcherFactory func() (plugin.Fetcher, error)

// CrawlStrategy runs the breadth-first crawl with fetchers from New.
// Rendered and plain-fetch crawling are both CrawlStrategies.
type CrawlStrategy struct {
	Label  string
	New    FetcherFactory
	Config crawler.CrawlConfig
}

func (s *CrawlStrategy) Name() string { return s.Label }

func (s *CrawlStrategy) Run(ctx context.Context, t Target) Outcome {
	out := Outcome{Strategy: s.Label}

	f, err := s.New()
	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %s: %v", ErrUnavailable, s.Label, err)
		out.Logs = []string{fmt.Sprintf("[%s] unavailable: %v", s.Label, err)}
		return out
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && t.Logger != nil {
			t.Logger.Warn("closing fetcher failed", "strategy", s.Label, "error", cerr)
		}
	}()

	cfg := s.Config
	cfg.Name = s.Label
	cfg.MaxPages = t.MaxPages
	cfg.Logger = t.Logger
	cfg.Events = t.Events

	res := crawler.Crawl(ctx, t.Root, f, cfg)
	out.URLs = res.URLs
	out.Fetched = len(res.Visited)
	out.Logs = res.Log

	switch res.Reason {
	case crawler.StopFrontierExhausted, crawler.StopPageCap:
		out.Status = StatusSuccess
	default:
		out.Status = StatusPartial
		if res.Aborted() {
			out.Err = fmt.Errorf("%s: %w", s.Label, ErrCircuitOpen)
		}
	}
	return out
}
