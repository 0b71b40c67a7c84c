package discovery

import (
	"log/slog"
	"net/http"

	"github.com/ramkansal/sitescout/internal/canonical"
	"github.com/ramkansal/sitescout/internal/config"
	"github.com/ramkansal/sitescout/internal/crawler"
	"github.com/ramkansal/sitescout/internal/fetcher"
	"github.com/ramkansal/sitescout/internal/sitemap"
	"github.com/ramkansal/sitescout/pkg/plugin"
)

// NewFromConfig builds the production Orchestrator: sitemap, then a
// rendered crawl with headless Chrome (when enabled), then a plain HTTP crawl.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	policy := canonical.Policy{KeepQuery: cfg.KeepQuery}

	s := Strategies{
		Sitemap: &SitemapStrategy{Discoverer: sitemap.New(sitemap.Config{
			Client:    &http.Client{Timeout: cfg.PageTimeout},
			UserAgent: cfg.UserAgent,
			Policy:    policy,
			Logger:    logger,
		})},
		Plain: &CrawlStrategy{
			Label: "plain",
			New: func() (plugin.Fetcher, error) {
				return fetcher.NewHTTPFetcher(fetcher.HTTPFetcherConfig{
					UserAgent:       cfg.UserAgent,
					Timeout:         cfg.PageTimeout,
					MaxResponseSize: 10 << 20,
				}), nil
			},
			Config: crawler.CrawlConfig{
				PageTimeout: cfg.PageTimeout,
				RateLimit:   cfg.RateLimit,
				MaxErrors:   cfg.MaxErrors,
				Policy:      policy,
			},
		},
	}

	if cfg.RenderingEnabled {
		s.Rendered = &CrawlStrategy{
			Label: "rendered",
			New: func() (plugin.Fetcher, error) {
				var ev fetcher.Evasion = fetcher.NoEvasion{UserAgent: cfg.UserAgent}
				if cfg.StealthEnabled {
					ev = fetcher.StealthEvasion{}
				}
				return fetcher.NewBrowserFetcher(fetcher.BrowserFetcherConfig{
					PageTimeout: cfg.PageTimeout,
					Headless:    true,
					Bin:         cfg.BrowserBin,
					UserAgent:   cfg.UserAgent,
					Evasion:     ev,
				})
			},
			Config: crawler.CrawlConfig{
				PageTimeout: cfg.PageTimeout,
				RateLimit:   cfg.RateLimit,
				Policy:      policy,
			},
		}
	}

	return New(Config{
		DefaultMaxPages:   cfg.DefaultMaxPages,
		MaxPagesLimit:     cfg.MaxPagesLimit,
		DefaultMaxTime:    cfg.DefaultMaxTime,
		MaxTimeLimit:      cfg.MaxTimeLimit,
		SitemapThreshold:  cfg.SitemapThreshold,
		RenderedThreshold: cfg.RenderedThreshold,
		Policy:            policy,
		Logger:            logger,
	}, s)
}

func httpFetcherConfig(cfg *config.Config) fetcher.HTTPFetcherConfig {
	return fetcher.HTTPFetcherConfig{
		UserAgent:        cfg.UserAgent,
		Timeout:          cfg.PageTimeout,
		MaxResponseSize:  10 << 20,
		Proxy:            cfg.Proxy,
		CustomHeaders:    cfg.CustomHeaders,
		DisableRedirects: cfg.DisableRedirects,
	}
}
