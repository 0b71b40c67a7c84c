package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ramkansal/sitescout/internal/discovery"
	"github.com/ramkansal/sitescout/internal/tree"
)

// TextWriter renders a discovery result as an indented outline, mirroring
// the terminal output without ANSI color codes.
type TextWriter struct {
	// Verbose appends the debug log.
	Verbose bool
	// URLs lists every page under its folder instead of counts only.
	URLs bool
}

// NewTextWriter creates a new plain-text output writer.
func NewTextWriter(verbose bool) *TextWriter {
	return &TextWriter{Verbose: verbose, URLs: true}
}

func (w *TextWriter) Name() string { return "text" }

func (w *TextWriter) Write(out io.Writer, res *discovery.Result) error {
	var b strings.Builder

	b.WriteString("\n  SITESCOUT\n")
	b.WriteString("  " + strings.Repeat("-", 58) + "\n\n")
	b.WriteString(fmt.Sprintf("  Target: %s\n", res.BaseURL))

	if len(res.Outcomes) > 0 {
		b.WriteString("  Strategies:\n")
		for _, o := range res.Outcomes {
			line := fmt.Sprintf("    %-9s %-8s %5d urls %5d fetched  %s", o.Strategy, o.Status, o.Count, o.Fetched, fmtDur(o.Elapsed))
			if o.Err != nil {
				line += "  (" + o.Err.Error() + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	b.WriteString("\n")

	if res.Tree != nil {
		res.Tree.Walk(func(n *tree.Node, depth int) {
			indent := strings.Repeat("  ", depth+1)
			b.WriteString(fmt.Sprintf("%s%s (%d)\n", indent, n.Name, n.Count))
			if !w.URLs {
				return
			}
			for _, p := range n.URLs {
				b.WriteString(fmt.Sprintf("%s  +-- %s  %s\n", indent, p.Title, p.URL))
			}
		})
	}

	b.WriteString("\n  " + strings.Repeat("-", 50) + "\n")
	b.WriteString(fmt.Sprintf("  Discovered %d pages\n", res.TotalCount))
	if res.Error != nil {
		b.WriteString(fmt.Sprintf("  Error: %s\n", *res.Error))
	}

	if w.Verbose && len(res.DebugLogs) > 0 {
		b.WriteString("\n  Debug log:\n")
		for _, line := range res.DebugLogs {
			b.WriteString("    " + line + "\n")
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(out, b.String())
	return err
}

// ---------- helpers ----------

func fmtDur(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}
