// Package crawler implements the breadth-first traversal shared by every
// link-following discovery strategy. The strategies differ only in the
// plugin.Fetcher they pass in.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/ramkansal/sitescout/internal/canonical"
	"github.com/ramkansal/sitescout/internal/tracelog"
	"github.com/ramkansal/sitescout/pkg/plugin"
)

// ErrBlocked marks a page the server refused with 403 or 503.
var ErrBlocked = errors.New("blocked response")

// Result is everything one crawl produced.
type Result struct {
	// URLs holds discovered pages in discovery order.
	URLs []canonical.URL
	// Visited holds every URL a fetch was attempted for, in order.
	Visited []canonical.URL

	Errors  int
	Blocked int
	Reason  StopReason
	Log     []string
}

// Aborted reports whether the circuit breaker ended the crawl.
func (r *Result) Aborted() bool {
	return r.Reason == StopCircuitOpen
}

// state is the CrawlState of a single Crawl call. It is never shared.
type state struct {
	visited    map[string]bool
	seen       map[string]bool
	frontier   []canonical.URL
	discovered []canonical.URL
	visitOrder []canonical.URL
	startedAt  time.Time
	errorCount int
	blocked    int
}

func newState(root canonical.URL) *state {
	return &state{
		visited:   make(map[string]bool),
		seen:      map[string]bool{root.String(): true},
		frontier:  []canonical.URL{root},
		startedAt: time.Now(),
	}
}

// enqueue appends u to the frontier unless it was already queued, visited or discovered.
func (s *state) enqueue(u canonical.URL) bool {
	key := u.String()
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.frontier = append(s.frontier, u)
	return true
}

// dequeue pops the next URL from the frontier.
func (s *state) dequeue() (canonical.URL, bool) {
	if len(s.frontier) == 0 {
		return canonical.URL{}, false
	}
	u := s.frontier[0]
	s.frontier = s.frontier[1:]
	return u, true
}

// crawl carries the per-call collaborators.
type crawl struct {
	root    canonical.URL
	fetcher plugin.Fetcher
	cfg     CrawlConfig
	log     *tracelog.Log
	state   *state
}

// Crawl walks the site breadth-first from root using f until the frontier
// is empty, MaxPages pages were discovered, the context ends, or the
// circuit breaker trips. The time budget is checked once per iteration,
// before the next fetch; a fetch in progress is bounded by PageTimeout.
func Crawl(ctx context.Context, root canonical.URL, f plugin.Fetcher, cfg CrawlConfig) *Result {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = DefaultConfig().PageTimeout
	}
	if cfg.Name == "" {
		cfg.Name = f.Name()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &crawl{
		root:    root,
		fetcher: f,
		cfg:     cfg,
		log:     tracelog.New(logger.With("strategy", cfg.Name)),
		state:   newState(root),
	}
	reason := c.run(ctx)

	st := c.state
	elapsed := time.Since(st.startedAt)
	c.log.Addf("[%s] finished: %d pages discovered, %d visited, %d errors, %d blocked in %s (%s)",
		cfg.Name, len(st.discovered), len(st.visitOrder), st.errorCount, st.blocked,
		elapsed.Truncate(time.Millisecond), reason)

	return &Result{
		URLs:    st.discovered,
		Visited: st.visitOrder,
		Errors:  st.errorCount,
		Blocked: st.blocked,
		Reason:  reason,
		Log:     c.log.Entries(),
	}
}

func (c *crawl) run(ctx context.Context) StopReason {
	st := c.state
	c.log.Addf("[%s] starting at %s with %s (max %d pages)", c.cfg.Name, c.root, c.fetcher.Name(), c.cfg.MaxPages)

	var limiter *rate.Limiter
	if c.cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(c.cfg.RateLimit), 1)
	}

	for {
		if len(st.frontier) == 0 {
			return StopFrontierExhausted
		}
		if len(st.discovered) >= c.cfg.MaxPages {
			return StopPageCap
		}
		if err := ctx.Err(); err != nil {
			return budgetReason(err)
		}

		next, _ := st.dequeue()
		key := next.String()
		if st.visited[key] {
			continue
		}
		st.visited[key] = true
		st.visitOrder = append(st.visitOrder, next)

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return budgetReason(ctx.Err())
			}
		}

		pageCtx, cancel := context.WithTimeout(ctx, c.cfg.PageTimeout)
		page, err := c.fetcher.Fetch(pageCtx, key)
		cancel()

		c.handle(next, page, err)

		if c.cfg.MaxErrors > 0 && st.errorCount >= c.cfg.MaxErrors {
			c.log.Addf("[%s] circuit open after %d failed fetches, stopping early", c.cfg.Name, st.errorCount)
			return StopCircuitOpen
		}
	}
}

// handle classifies one fetch outcome and expands the frontier on success.
func (c *crawl) handle(u canonical.URL, page *plugin.PageData, err error) {
	st := c.state
	name := c.cfg.Name

	switch {
	case page.Blocked():
		st.errorCount++
		st.blocked++
		c.log.Addf("[%s] blocked (%d): %s", name, page.StatusCode, u)
		c.cfg.Events.Emit(plugin.CrawlEvent{Type: plugin.EventPageBlocked, Strategy: name, URL: u.String(), Error: ErrBlocked})

	case page != nil && page.StatusCode != 0 && !page.OK():
		c.log.Addf("[%s] skipped (%d): %s", name, page.StatusCode, u)
		c.cfg.Events.Emit(plugin.CrawlEvent{Type: plugin.EventPageSkipped, Strategy: name, URL: u.String()})

	case err != nil || page == nil:
		if err == nil {
			err = errors.New("fetcher returned no page")
		}
		st.errorCount++
		c.log.Addf("[%s] error: %s: %v", name, u, err)
		c.cfg.Events.Emit(plugin.CrawlEvent{Type: plugin.EventPageError, Strategy: name, URL: u.String(), Error: err})

	default:
		st.discovered = append(st.discovered, u)
		added := c.expand(u, page)
		c.log.Addf("[%s] %d %s (+%d links)", name, page.StatusCode, u, added)
		c.cfg.Events.Emit(plugin.CrawlEvent{
			Type:     plugin.EventPageDone,
			Strategy: name,
			URL:      u.String(),
			Count:    len(st.discovered),
		})
	}
}

// expand canonicalizes the page's links and queues the in-scope ones.
func (c *crawl) expand(u canonical.URL, page *plugin.PageData) int {
	base := u
	if page.FinalURL != "" {
		if final, err := c.cfg.Policy.Parse(page.FinalURL, nil); err == nil {
			base = final
		}
	}

	added := 0
	for _, href := range page.Links {
		link, err := c.cfg.Policy.Parse(href, &base)
		if err != nil {
			continue
		}
		if !link.SameSite(c.root) || link.Excluded() || link.IsSitemap() {
			continue
		}
		if c.state.enqueue(link) {
			added++
		}
	}
	return added
}

func budgetReason(err error) StopReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return StopTimeBudget
	}
	return StopCancelled
}
