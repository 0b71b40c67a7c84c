package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ramkansal/sitescout/pkg/plugin"
)

// anchorsJS collects link targets from the rendered DOM. The browser has
// already resolved them to absolute URLs.
const anchorsJS = `() => Array.from(document.querySelectorAll('a[href]'), a => a.href)`

// BrowserFetcher uses Rod (headless Chrome) for JS-rendered page fetching.
// It owns one browser, one incognito context and one tab; navigation is
// strictly sequential.
type BrowserFetcher struct {
	launcher    *launcher.Launcher
	browser     *rod.Browser
	context     *rod.Browser
	page        *rod.Page
	pageTimeout time.Duration
	settle      time.Duration
}

// BrowserFetcherConfig holds configuration for the browser fetcher.
type BrowserFetcherConfig struct {
	PageTimeout time.Duration
	Settle      time.Duration
	UserAgent   string
	Headless    bool
	Bin         string
	// Proxy is passed to Chrome as --proxy-server.
	Proxy   string
	Evasion Evasion
}

// NewBrowserFetcher launches Chrome and prepares a single tab. The caller
// must Close the fetcher on every path once it is no longer needed.
func NewBrowserFetcher(cfg BrowserFetcherConfig) (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	f := &BrowserFetcher{
		launcher:    l,
		pageTimeout: cfg.PageTimeout,
		settle:      cfg.Settle,
	}
	if f.pageTimeout <= 0 {
		f.pageTimeout = 15 * time.Second
	}
	if f.settle <= 0 {
		f.settle = time.Second
	}

	f.browser = rod.New().ControlURL(u)
	if err := f.browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	if err := f.open(cfg); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (f *BrowserFetcher) open(cfg BrowserFetcherConfig) error {
	incognito, err := f.browser.Incognito()
	if err != nil {
		return fmt.Errorf("create browser context: %w", err)
	}
	f.context = incognito

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	f.page = page

	ev := cfg.Evasion
	if ev == nil {
		ev = NoEvasion{UserAgent: cfg.UserAgent}
	}
	if err := ev.Apply(page); err != nil {
		return fmt.Errorf("apply %s evasion: %w", ev.Name(), err)
	}
	return nil
}

func (f *BrowserFetcher) Name() string { return "browser" }

// Fetch navigates the tab to targetURL, waits for the initial render and
// reads the anchors from the live DOM.
func (f *BrowserFetcher) Fetch(ctx context.Context, targetURL string) (*plugin.PageData, error) {
	start := time.Now()

	page := &plugin.PageData{
		URL:         targetURL,
		FinalURL:    targetURL,
		FetcherUsed: "browser",
		FetchedAt:   start,
	}

	ctx, cancel := context.WithTimeout(ctx, f.pageTimeout)
	defer cancel()
	p := f.page.Context(ctx)

	var status int
	var mimeType string
	wait := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.FrameID != p.FrameID {
			return false
		}
		status = e.Response.Status
		mimeType = e.Response.MIMEType
		return true
	})

	if err := p.Navigate(targetURL); err != nil {
		page.Error = err.Error()
		page.FetchDuration = time.Since(start)
		return page, err
	}
	wait()
	if err := ctx.Err(); err != nil {
		page.Error = err.Error()
		page.FetchDuration = time.Since(start)
		return page, fmt.Errorf("navigate %s: %w", targetURL, err)
	}

	page.StatusCode = status
	if page.StatusCode == 0 {
		// Served without a network response (cache, service worker).
		page.StatusCode = 200
	}
	page.ContentType = mimeType

	if !page.OK() {
		page.FetchDuration = time.Since(start)
		return page, nil
	}

	_ = p.WaitLoad()

	// Give client-side code a moment to render navigation. A page that
	// never settles is still usable.
	settleCtx, cancelSettle := context.WithTimeout(ctx, 3*f.settle)
	_ = p.Context(settleCtx).WaitStable(f.settle)
	cancelSettle()

	if info, err := p.Info(); err == nil {
		page.FinalURL = info.URL
	}

	res, err := p.Eval(anchorsJS)
	if err != nil {
		page.Error = "link extraction failed: " + err.Error()
	} else {
		for _, v := range res.Value.Arr() {
			if href := v.Str(); href != "" {
				page.Links = append(page.Links, href)
			}
		}
	}

	page.FetchDuration = time.Since(start)
	return page, nil
}

// Close closes the tab, the browser context and the browser process.
func (f *BrowserFetcher) Close() error {
	var errs []error
	if f.page != nil {
		errs = append(errs, f.page.Close())
	}
	if f.context != nil {
		errs = append(errs, f.context.Close())
	}
	if f.browser != nil {
		errs = append(errs, f.browser.Close())
	}
	if f.launcher != nil {
		f.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

// BrowserAvailable reports whether a Chrome binary can be found locally
// without downloading one.
func BrowserAvailable(bin string) bool {
	if bin != "" {
		return true
	}
	_, found := launcher.LookPath()
	return found
}
