package crawler

import (
	"log/slog"
	"time"

	"github.com/ramkansal/sitescout/internal/canonical"
	"github.com/ramkansal/sitescout/pkg/plugin"
)

// CrawlConfig holds the settings for one breadth-first crawl.
type CrawlConfig struct {
	// Name labels log lines and events ("rendered", "plain").
	Name string

	// Crawl control
	MaxPages    int
	PageTimeout time.Duration
	RateLimit   time.Duration

	// MaxErrors aborts the crawl once this many fetches failed or were
	// blocked. Zero disables the circuit breaker.
	MaxErrors int

	Policy canonical.Policy

	Logger *slog.Logger
	Events plugin.EventSink
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() CrawlConfig {
	return CrawlConfig{
		Name:        "crawl",
		MaxPages:    3000,
		PageTimeout: 15 * time.Second,
		MaxErrors:   0,
		Policy:      canonical.DefaultPolicy,
	}
}

// StopReason records why a crawl loop ended.
type StopReason string

const (
	StopFrontierExhausted StopReason = "frontier-exhausted"
	StopPageCap           StopReason = "page-cap"
	StopTimeBudget        StopReason = "time-budget"
	StopCircuitOpen       StopReason = "circuit-open"
	StopCancelled         StopReason = "cancelled"
)
