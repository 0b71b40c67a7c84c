package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/ramkansal/sitescout/pkg/plugin"
)

func TestEventPrinter(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	p := &eventPrinter{out: &buf}
	sink := p.sink()

	sink(plugin.CrawlEvent{Type: plugin.EventStrategyStarted, Strategy: "sitemap"})
	sink(plugin.CrawlEvent{Type: plugin.EventPageDone, Strategy: "plain", URL: "https://example.com/a", Count: 1})
	sink(plugin.CrawlEvent{Type: plugin.EventPageBlocked, Strategy: "plain", URL: "https://example.com/b"})
	sink(plugin.CrawlEvent{Type: plugin.EventStrategyFailed, Strategy: "rendered", Error: errors.New("no browser")})
	sink(plugin.CrawlEvent{Type: plugin.EventDiscoveryFinished, URL: "https://example.com", Count: 7})

	out := buf.String()
	assert.Contains(t, out, "sitemap")
	assert.NotContains(t, out, "https://example.com/a")
	assert.Contains(t, out, "blocked https://example.com/b")
	assert.Contains(t, out, "rendered failed: no browser")
	assert.Contains(t, out, "7 pages under https://example.com")

	buf.Reset()
	p.pages = true
	sink(plugin.CrawlEvent{Type: plugin.EventPageDone, URL: "https://example.com/a", Count: 1})
	assert.Contains(t, buf.String(), "https://example.com/a (1)")
}
