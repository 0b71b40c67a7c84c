package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/ramkansal/sitescout/pkg/plugin"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	dim    = color.New(color.FgHiBlack).SprintFunc()
)

// eventPrinter renders live discovery events, one line each.
type eventPrinter struct {
	mu  sync.Mutex
	out io.Writer
	// pages prints every fetched page, not only strategy transitions.
	pages bool
}

func (p *eventPrinter) sink() plugin.EventSink {
	return p.print
}

func (p *eventPrinter) print(e plugin.CrawlEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Type {
	case plugin.EventStrategyStarted:
		fmt.Fprintf(p.out, "  %s %s\n", cyan("▶"), cyan(e.Strategy))

	case plugin.EventStrategyFinished:
		fmt.Fprintf(p.out, "  %s %s %s, %d urls\n", green("✓"), e.Strategy, e.Message, e.Count)

	case plugin.EventStrategyFailed:
		fmt.Fprintf(p.out, "  %s %s failed: %v\n", red("✗"), e.Strategy, e.Error)

	case plugin.EventPageDone:
		if p.pages {
			fmt.Fprintf(p.out, "    %s %s %s\n", green("●"), e.URL, dim(fmt.Sprintf("(%d)", e.Count)))
		}

	case plugin.EventPageBlocked:
		fmt.Fprintf(p.out, "    %s blocked %s\n", yellow("!"), e.URL)

	case plugin.EventPageSkipped:
		if p.pages {
			fmt.Fprintf(p.out, "    %s skipped %s\n", dim("-"), dim(e.URL))
		}

	case plugin.EventPageError:
		if p.pages {
			fmt.Fprintf(p.out, "    %s %s: %v\n", red("✗"), e.URL, e.Error)
		}

	case plugin.EventDiscoveryFinished:
		fmt.Fprintf(p.out, "  %s %s pages under %s\n\n", green("■"), green(e.Count), e.URL)
	}
}
