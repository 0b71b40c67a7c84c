// Package plugin defines the public interfaces for sitescout.
// External tools can import this package to write custom fetchers or
// consume live discovery events without forking the project.
package plugin

import (
	"context"
	"net/http"
	"time"
)

// ---------- Core Data Types ----------

// PageData represents a single fetched page and the links found on it.
type PageData struct {
	URL           string        `json:"url"`
	FinalURL      string        `json:"final_url"`
	StatusCode    int           `json:"status_code"`
	Headers       http.Header   `json:"-"`
	Body          string        `json:"-"`
	ContentType   string        `json:"content_type"`
	Links         []string      `json:"links,omitempty"`
	FetchedAt     time.Time     `json:"fetched_at"`
	FetchDuration time.Duration `json:"fetch_duration"`
	FetcherUsed   string        `json:"fetcher_used"`
	Error         string        `json:"error,omitempty"`
}

// OK reports whether the page answered with a 2xx status.
func (p *PageData) OK() bool {
	return p != nil && p.StatusCode >= 200 && p.StatusCode < 300
}

// Blocked reports whether the server refused the request in a way that
// usually means bot protection (403 or 503).
func (p *PageData) Blocked() bool {
	return p != nil && (p.StatusCode == http.StatusForbidden || p.StatusCode == http.StatusServiceUnavailable)
}

// ---------- Event Types ----------

// CrawlEvent represents a real-time event emitted during discovery.
type CrawlEvent struct {
	Type     EventType
	Strategy string
	URL      string
	Count    int
	Error    error
	Message  string
}

// EventType identifies the kind of event.
type EventType int

const (
	EventStrategyStarted EventType = iota
	EventStrategyFinished
	EventStrategyFailed
	EventPageDone
	EventPageBlocked
	EventPageSkipped
	EventPageError
	EventDiscoveryFinished
)

// String returns a short label for the event type.
func (t EventType) String() string {
	switch t {
	case EventStrategyStarted:
		return "strategy-started"
	case EventStrategyFinished:
		return "strategy-finished"
	case EventStrategyFailed:
		return "strategy-failed"
	case EventPageDone:
		return "page-done"
	case EventPageBlocked:
		return "page-blocked"
	case EventPageSkipped:
		return "page-skipped"
	case EventPageError:
		return "page-error"
	case EventDiscoveryFinished:
		return "discovery-finished"
	default:
		return "unknown"
	}
}

// EventSink receives events. Implementations must not block for long; the
// crawl loop calls it synchronously.
type EventSink func(CrawlEvent)

// Emit calls the sink if it is set.
func (s EventSink) Emit(e CrawlEvent) {
	if s != nil {
		s(e)
	}
}

// ---------- Plugin Interfaces ----------

// Fetcher defines how pages are retrieved during a crawl.
type Fetcher interface {
	// Name returns a human-readable identifier for this fetcher.
	Name() string

	// Fetch retrieves the page at the given URL and reports the links on it.
	// A non-nil PageData may accompany an error when the server answered
	// with an error status.
	Fetch(ctx context.Context, url string) (*PageData, error)

	// Close releases any resources held by the fetcher.
	Close() error
}
