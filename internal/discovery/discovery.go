// Package discovery sequences the page discovery strategies for one site
// under a shared page and time budget and assembles the result tree.
//
// Strategies run one after another, never concurrently: the sitemap first,
// then the rendered crawl when the sitemap is thin, then the plain-fetch
// crawl when rendering also comes up short. Every run owns its own crawl
// state, so one Orchestrator can serve concurrent callers.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ramkansal/sitescout/internal/canonical"
	"github.com/ramkansal/sitescout/internal/tracelog"
	"github.com/ramkansal/sitescout/internal/tree"
	"github.com/ramkansal/sitescout/pkg/plugin"
)

// Request is one discovery call. Non-positive limits take the configured defaults.
type Request struct {
	RootURL        string `json:"root_url"`
	MaxPages       int    `json:"max_pages,omitempty"`
	MaxTimeSeconds int    `json:"max_time_seconds,omitempty"`
}

// Result is the payload handed back to callers. Failures are reported in
// Error, never as a Go error.
type Result struct {
	BaseURL    string     `json:"base_url"`
	TotalCount int        `json:"total_count"`
	Tree       *tree.Node `json:"tree"`
	DebugLogs  []string   `json:"debug_logs"`
	Error      *string    `json:"error"`

	// Outcomes lists each strategy attempted, in order.
	Outcomes []Summary `json:"-"`
}

// Summary is an Outcome without its URLs and logs.
type Summary struct {
	Strategy string
	Status   Status
	Count    int
	Fetched  int
	Elapsed  time.Duration
	Err      error
}

// Config holds the orchestrator's limits and thresholds.
type Config struct {
	DefaultMaxPages int
	MaxPagesLimit   int
	DefaultMaxTime  time.Duration
	MaxTimeLimit    time.Duration

	// SitemapThreshold: more sitemap URLs than this skips crawling.
	SitemapThreshold int
	// RenderedThreshold: fewer rendered URLs than this runs the plain crawl.
	RenderedThreshold int

	Policy canonical.Policy
	Logger *slog.Logger
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		DefaultMaxPages:   3000,
		MaxPagesLimit:     10000,
		DefaultMaxTime:    120 * time.Second,
		MaxTimeLimit:      600 * time.Second,
		SitemapThreshold:  10,
		RenderedThreshold: 5,
		Policy:            canonical.DefaultPolicy,
	}
}

// Strategies are the three stages. Rendered or Plain may be nil when the
// capability is disabled.
type Strategies struct {
	Sitemap  Strategy
	Rendered Strategy
	Plain    Strategy
}

// Orchestrator runs discovery requests.
type Orchestrator struct {
	cfg        Config
	strategies Strategies
	logger     *slog.Logger
	events     plugin.EventSink
	build      func(base canonical.URL, urls []canonical.URL) *tree.Node
}

// New creates an Orchestrator.
func New(cfg Config, s Strategies) *Orchestrator {
	d := DefaultConfig()
	if cfg.DefaultMaxPages <= 0 {
		cfg.DefaultMaxPages = d.DefaultMaxPages
	}
	if cfg.MaxPagesLimit <= 0 {
		cfg.MaxPagesLimit = d.MaxPagesLimit
	}
	if cfg.DefaultMaxTime <= 0 {
		cfg.DefaultMaxTime = d.DefaultMaxTime
	}
	if cfg.MaxTimeLimit <= 0 {
		cfg.MaxTimeLimit = d.MaxTimeLimit
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, strategies: s, logger: logger, build: tree.Build}
}

// OnEvent registers a sink for live strategy and page events. It must be
// set before Discover is called.
func (o *Orchestrator) OnEvent(sink plugin.EventSink) {
	o.events = sink
}

// Discover enumerates the pages of req.RootURL. It never panics; every
// failure is reported through Result.Error.
func (o *Orchestrator) Discover(ctx context.Context, req Request) (res Result) {
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)
	trace := tracelog.New(logger)

	maxPages := clamp(req.MaxPages, o.cfg.DefaultMaxPages, o.cfg.MaxPagesLimit)
	maxTime := budget(req.MaxTimeSeconds, o.cfg.DefaultMaxTime, o.cfg.MaxTimeLimit)

	root, err := o.cfg.Policy.Parse(req.RootURL, nil)
	if err != nil {
		trace.Addf("invalid root url %q: %v", req.RootURL, err)
		logger.Warn("discovery rejected", "root_url", req.RootURL, "error", err)
		return Result{
			BaseURL:   strings.TrimSpace(req.RootURL),
			DebugLogs: trace.Entries(),
			Error:     errString(err),
		}
	}

	found := newUnion(root, maxPages)
	var summaries []Summary

	defer func() {
		if r := recover(); r != nil {
			logger.Error("discovery panicked", "panic", r)
			trace.Addf("fatal: %v", r)
			res = o.salvage(root, found, trace, summaries, fmt.Errorf("%w: %v", ErrCatastrophic, r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, maxTime)
	defer cancel()

	logger.Info("discovery started", "root", root.String(), "max_pages", maxPages, "max_time", maxTime)
	trace.Addf("discovering %s (max %d pages, %s)", root, maxPages, maxTime)

	target := Target{Root: root, MaxPages: maxPages, Logger: logger, Events: o.events}
	step := func(s Strategy) Outcome {
		out := o.runStrategy(ctx, s, target, trace)
		found.add(out.URLs)
		if out.Strategy == "" {
			return out
		}
		summaries = append(summaries, Summary{
			Strategy: out.Strategy,
			Status:   out.Status,
			Count:    len(out.URLs),
			Fetched:  out.Fetched,
			Elapsed:  out.Elapsed,
			Err:      out.Err,
		})
		return out
	}

	sm := step(o.strategies.Sitemap)
	if len(sm.URLs) > o.cfg.SitemapThreshold {
		trace.Addf("sitemap yielded %d urls, skipping crawlers", len(sm.URLs))
	} else {
		trace.Addf("sitemap yielded %d urls, crawling", len(sm.URLs))
		var rendered Outcome
		if o.strategies.Rendered == nil {
			trace.Addf("[rendered] unavailable: rendering disabled")
		} else {
			rendered = step(o.strategies.Rendered)
		}
		if len(rendered.URLs) < o.cfg.RenderedThreshold {
			step(o.strategies.Plain)
		}
	}

	res = o.assemble(root, found, trace, summaries, nil)
	logger.Info("discovery finished", "root", root.String(), "total", res.TotalCount)
	o.events.Emit(plugin.CrawlEvent{Type: plugin.EventDiscoveryFinished, URL: root.String(), Count: res.TotalCount})
	return res
}

// runStrategy runs s, turning a panic or a missing strategy into a failed
// Outcome. It never starts a strategy once the budget is spent.
func (o *Orchestrator) runStrategy(ctx context.Context, s Strategy, t Target, trace *tracelog.Log) (out Outcome) {
	if s == nil {
		return Outcome{Status: StatusSkipped}
	}
	name := s.Name()
	if err := ctx.Err(); err != nil {
		trace.Addf("[%s] skipped: time budget exhausted", name)
		return Outcome{Strategy: name, Status: StatusSkipped, Err: err}
	}

	start := time.Now()
	o.events.Emit(plugin.CrawlEvent{Type: plugin.EventStrategyStarted, Strategy: name, URL: t.Root.String()})

	defer func() {
		if r := recover(); r != nil {
			t.Logger.Error("strategy panicked", "strategy", name, "panic", r)
			out = Outcome{Strategy: name, Status: StatusFailed, Err: fmt.Errorf("%w: %s: %v", ErrStrategyPanic, name, r)}
		}
		out.Strategy = name
		out.Elapsed = time.Since(start)

		trace.Append(out.Logs)
		trace.Addf("[%s] %s: %d urls in %s", name, out.Status, len(out.URLs), out.Elapsed.Truncate(time.Millisecond))

		ev := plugin.CrawlEvent{Type: plugin.EventStrategyFinished, Strategy: name, Count: len(out.URLs), Message: string(out.Status)}
		if out.Status == StatusFailed {
			ev.Type = plugin.EventStrategyFailed
			ev.Error = out.Err
			trace.Addf("[%s] failed: %v", name, out.Err)
		}
		o.events.Emit(ev)
	}()

	return s.Run(ctx, t)
}

func (o *Orchestrator) assemble(root canonical.URL, found *union, trace *tracelog.Log, summaries []Summary, err error) Result {
	t := o.build(root, found.urls)
	return Result{
		BaseURL:    root.String(),
		TotalCount: t.Count,
		Tree:       t,
		DebugLogs:  trace.Entries(),
		Error:      errString(err),
		Outcomes:   summaries,
	}
}

// salvage assembles the partial result after a panic. If the tree cannot be
// built either, the result carries no tree and only the error and log.
func (o *Orchestrator) salvage(root canonical.URL, found *union, trace *tracelog.Log, summaries []Summary, err error) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("tree build panicked", "panic", r)
			trace.Addf("fatal: tree build failed: %v", r)
			res = Result{
				BaseURL:   root.String(),
				DebugLogs: trace.Entries(),
				Error:     errString(err),
				Outcomes:  summaries,
			}
		}
	}()
	return o.assemble(root, found, trace, summaries, err)
}

// union accumulates strategy URLs in first-seen order, capped at limit.
type union struct {
	root  canonical.URL
	limit int
	seen  map[string]bool
	urls  []canonical.URL
}

func newUnion(root canonical.URL, limit int) *union {
	return &union{root: root, limit: limit, seen: make(map[string]bool)}
}

func (u *union) add(urls []canonical.URL) {
	for _, x := range urls {
		if len(u.urls) >= u.limit {
			return
		}
		if !x.SameSite(u.root) || u.seen[x.String()] {
			continue
		}
		u.seen[x.String()] = true
		u.urls = append(u.urls, x)
	}
}

func clamp(v, def, limit int) int {
	if v <= 0 {
		v = def
	}
	if v > limit {
		v = limit
	}
	return v
}

// budget converts a requested number of seconds into a duration, applying
// the default and ceiling before multiplying so huge requests cannot overflow.
func budget(secs int, def, limit time.Duration) time.Duration {
	if secs <= 0 {
		return min(def, limit)
	}
	if int64(secs) > int64(limit/time.Second) {
		return limit
	}
	return time.Duration(secs) * time.Second
}

func errString(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}
