package fetcher

import (
	"math/rand/v2"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Evasion prepares a browser tab before any navigation happens. It is applied
// once per browser context and must only affect how automated the browser
// looks, never what the crawl discovers.
type Evasion interface {
	Name() string
	Apply(page *rod.Page) error
}

// NoEvasion leaves the tab as launched, except for an optional fixed user agent.
type NoEvasion struct {
	UserAgent string
}

func (NoEvasion) Name() string { return "none" }

func (e NoEvasion) Apply(page *rod.Page) error {
	if e.UserAgent == "" {
		return nil
	}
	return page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: e.UserAgent})
}

// StealthEvasion injects the go-rod/stealth patches and randomizes the
// identifying surface of the tab (user agent, languages, viewport).
type StealthEvasion struct {
	// UserAgents to choose from. Empty means the built-in desktop list.
	UserAgents []string
}

var desktopUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-AU,en;q=0.9,en-US;q=0.8",
}

var viewports = [][2]int{
	{1280, 800},
	{1366, 768},
	{1440, 900},
	{1536, 864},
	{1920, 1080},
}

func (StealthEvasion) Name() string { return "stealth" }

func (e StealthEvasion) Apply(page *rod.Page) error {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return err
	}

	agents := e.UserAgents
	if len(agents) == 0 {
		agents = desktopUserAgents
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      pick(agents),
		AcceptLanguage: pick(acceptLanguages),
	}); err != nil {
		return err
	}

	vp := viewports[rand.IntN(len(viewports))]
	return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp[0],
		Height:            vp[1],
		DeviceScaleFactor: 1,
	})
}

func pick(options []string) string {
	return options[rand.IntN(len(options))]
}
