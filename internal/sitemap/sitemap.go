// Package sitemap discovers a site's pages from its robots.txt Sitemap
// directives and the conventional sitemap locations, following sitemap
// indexes.
package sitemap

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/temoto/robotstxt"

	"github.com/ramkansal/sitescout/internal/canonical"
	"github.com/ramkansal/sitescout/internal/tracelog"
)

// ErrParse is returned when a sitemap document is not well-formed XML.
var ErrParse = errors.New("sitemap parse error")

const (
	defaultMaxDocuments = 50
	maxDocumentSize     = 50 << 20
)

// Namespace-agnostic queries; most sitemaps declare the sitemaps.org default namespace.
const (
	indexLocQuery = "//*[local-name()='sitemap']/*[local-name()='loc']"
	urlLocQuery   = "//*[local-name()='url']/*[local-name()='loc']"
	anyLocQuery   = "//*[local-name()='loc']"
)

// wellKnown are always tried after the robots.txt directives.
var wellKnown = []string{"/sitemap.xml", "/sitemap_index.xml"}

// Config holds the discoverer settings.
type Config struct {
	Client       *http.Client
	UserAgent    string
	Policy       canonical.Policy
	MaxDocuments int
	Logger       *slog.Logger
}

// Discoverer reads sitemaps. It keeps no state between Discover calls.
type Discoverer struct {
	client       *http.Client
	userAgent    string
	policy       canonical.Policy
	maxDocuments int
	logger       *slog.Logger
}

// New creates a Discoverer, filling unset fields with defaults.
func New(cfg Config) *Discoverer {
	d := &Discoverer{
		client:       cfg.Client,
		userAgent:    cfg.UserAgent,
		policy:       cfg.Policy,
		maxDocuments: cfg.MaxDocuments,
		logger:       cfg.Logger,
	}
	if d.client == nil {
		d.client = &http.Client{Timeout: 15 * time.Second}
	}
	if d.maxDocuments <= 0 {
		d.maxDocuments = defaultMaxDocuments
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Kind classifies a fetched sitemap document.
type Kind string

const (
	KindIndex   Kind = "index"
	KindURLSet  Kind = "urlset"
	KindInvalid Kind = "invalid"
)

// Document records what happened to one sitemap document.
type Document struct {
	URL     string
	Status  int
	Kind    Kind
	Entries int
	Err     error
}

// Result is the outcome of one Discover call.
type Result struct {
	URLs      []canonical.URL
	Documents []Document
	Log       []string
}

// run is the state of a single Discover call.
type run struct {
	root     canonical.URL
	maxPages int
	log      *tracelog.Log

	queue  []string
	queued map[string]bool

	seen map[string]bool
	urls []canonical.URL
	docs []Document
}

func (r *run) enqueue(doc string) {
	if r.queued[doc] {
		return
	}
	r.queued[doc] = true
	r.queue = append(r.queue, doc)
}

func (r *run) full() bool {
	return r.maxPages > 0 && len(r.urls) >= r.maxPages
}

// Discover collects the pages listed in root's sitemaps, up to maxPages.
// Individual documents that fail to download or parse are logged and skipped.
// An error is returned only when ctx ends before the queue is drained; the
// Result then holds everything collected so far.
func (d *Discoverer) Discover(ctx context.Context, root canonical.URL, maxPages int) (*Result, error) {
	r := &run{
		root:     root,
		maxPages: maxPages,
		log:      tracelog.New(d.logger.With("strategy", "sitemap")),
		queued:   make(map[string]bool),
		seen:     make(map[string]bool),
	}
	r.log.Addf("[sitemap] looking for sitemaps of %s", root)

	for _, doc := range d.robotsSitemaps(ctx, r) {
		r.enqueue(doc)
	}
	for _, p := range wellKnown {
		r.enqueue(root.Origin() + p)
	}

	var err error
	for fetched := 0; len(r.queue) > 0 && !r.full(); fetched++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.log.Addf("[sitemap] budget exhausted with %d documents pending", len(r.queue))
			err = fmt.Errorf("sitemap discovery: %w", ctxErr)
			break
		}
		if fetched >= d.maxDocuments {
			r.log.Addf("[sitemap] document limit %d reached, %d left unread", d.maxDocuments, len(r.queue))
			break
		}

		doc := r.queue[0]
		r.queue = r.queue[1:]
		r.docs = append(r.docs, d.readDocument(ctx, r, doc))
	}

	r.log.Addf("[sitemap] found %d urls in %d documents", len(r.urls), len(r.docs))
	return &Result{URLs: r.urls, Documents: r.docs, Log: r.log.Entries()}, err
}

// robotsSitemaps returns the Sitemap directives of root's robots.txt.
// Any failure is logged and yields none.
func (d *Discoverer) robotsSitemaps(ctx context.Context, r *run) []string {
	robotsURL := r.root.Origin() + "/robots.txt"
	resp, err := d.get(ctx, robotsURL)
	if err != nil {
		r.log.Addf("[sitemap] robots.txt unavailable: %v", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		r.log.Addf("[sitemap] robots.txt unreadable: %v", err)
		return nil
	}
	if len(data.Sitemaps) > 0 {
		r.log.Addf("[sitemap] robots.txt lists %d sitemaps", len(data.Sitemaps))
	}

	var out []string
	for _, s := range data.Sitemaps {
		u, err := canonical.Parse(s, &r.root)
		if err != nil {
			r.log.Addf("[sitemap] ignoring robots.txt sitemap %q: %v", s, err)
			continue
		}
		out = append(out, u.String())
	}
	return out
}

func (d *Discoverer) readDocument(ctx context.Context, r *run, docURL string) Document {
	doc := Document{URL: docURL}

	resp, err := d.get(ctx, docURL)
	if err != nil {
		doc.Err = err
		r.log.Addf("[sitemap] fetch %s failed: %v", docURL, err)
		return doc
	}
	defer resp.Body.Close()

	doc.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		doc.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		r.log.Addf("[sitemap] %s answered %d, skipping", docURL, resp.StatusCode)
		return doc
	}

	body, err := decodeBody(resp, docURL)
	if err != nil {
		doc.Err = err
		r.log.Addf("[sitemap] %s: %v", docURL, err)
		return doc
	}

	node, err := xmlquery.Parse(body)
	if err != nil {
		doc.Kind = KindInvalid
		doc.Err = fmt.Errorf("%w: %s: %v", ErrParse, docURL, err)
		r.log.Addf("[sitemap] %v", doc.Err)
		return doc
	}

	if children := xmlquery.Find(node, indexLocQuery); len(children) > 0 {
		doc.Kind = KindIndex
		for _, n := range children {
			child, err := canonical.Parse(strings.TrimSpace(n.InnerText()), &r.root)
			if err != nil {
				continue
			}
			doc.Entries++
			r.enqueue(child.String())
		}
		r.log.Addf("[sitemap] index %s references %d sitemaps", docURL, doc.Entries)
		return doc
	}

	doc.Kind = KindURLSet
	locs := xmlquery.Find(node, urlLocQuery)
	if len(locs) == 0 {
		locs = xmlquery.Find(node, anyLocQuery)
	}
	added := 0
	for _, n := range locs {
		doc.Entries++
		if r.full() {
			continue
		}
		if r.accept(strings.TrimSpace(n.InnerText()), d.policy) {
			added++
		}
	}
	r.log.Addf("[sitemap] %s lists %d urls, %d kept", docURL, doc.Entries, added)
	return doc
}

// accept canonicalizes loc and records it when it belongs to the site.
func (r *run) accept(loc string, policy canonical.Policy) bool {
	u, err := policy.Parse(loc, &r.root)
	if err != nil {
		return false
	}
	if !u.SameSite(r.root) || u.IsSitemap() || u.Excluded() {
		return false
	}
	key := u.String()
	if r.seen[key] {
		return false
	}
	r.seen[key] = true
	r.urls = append(r.urls, u)
	return true
}

func (d *Discoverer) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "application/xml,text/xml;q=0.9,*/*;q=0.8")
	return d.client.Do(req)
}

// decodeBody limits the body and transparently gunzips .xml.gz documents
// served without a Content-Encoding header.
func decodeBody(resp *http.Response, docURL string) (io.Reader, error) {
	body := io.LimitReader(resp.Body, maxDocumentSize)
	if !strings.HasSuffix(strings.ToLower(docURL), ".gz") &&
		!strings.Contains(resp.Header.Get("Content-Type"), "gzip") {
		return body, nil
	}
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	return zr, nil
}
