package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramkansal/sitescout/internal/discovery"
	"github.com/ramkansal/sitescout/internal/output"
)

var (
	discoverMaxPages   int
	discoverMaxTime    int
	discoverFormat     string
	discoverOutput     string
	discoverNoRender   bool
	discoverNoStealth  bool
	discoverStripQuery bool
	discoverSilent     bool
	discoverProxy      string
	discoverHeaders    []string
)

var discoverCmd = &cobra.Command{
	Use:   "discover <url>",
	Short: "Discover the pages of one site and print the tree",
	Long: `Run one discovery against a site and print its page tree.

Live progress goes to stderr; the result goes to stdout or the file given
with -o. The exit status is non-zero when discovery reports an error.

Examples:
  sitescout discover example.com
  sitescout discover example.com --no-render --max-time 30
  sitescout discover https://example.com/docs --format json -o docs.json`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	f := discoverCmd.Flags()
	f.IntVar(&discoverMaxPages, "max-pages", 0, "Page cap (0 uses the configured default)")
	f.IntVar(&discoverMaxTime, "max-time", 0, "Time budget in seconds (0 uses the configured default)")
	f.StringVar(&discoverFormat, "format", "text", "Output format: text or json")
	f.StringVarP(&discoverOutput, "output", "o", "", "Write the result to a file instead of stdout")
	f.BoolVar(&discoverNoRender, "no-render", false, "Skip the headless browser crawl")
	f.BoolVar(&discoverNoStealth, "no-stealth", false, "Render without fingerprint evasion")
	f.BoolVar(&discoverStripQuery, "strip-query", false, "Drop query strings when comparing URLs")
	f.BoolVar(&discoverSilent, "silent", false, "Suppress live progress")
	f.StringVar(&discoverProxy, "proxy", "", "Proxy URL for all requests (http, https or socks5)")
	f.StringArrayVarP(&discoverHeaders, "header", "H", nil, `Extra request header "Name: value" (repeatable)`)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if discoverNoRender {
		cfg.RenderingEnabled = false
	}
	if discoverNoStealth {
		cfg.StealthEnabled = false
	}
	if discoverStripQuery {
		cfg.KeepQuery = false
	}
	if discoverProxy != "" {
		cfg.Proxy = discoverProxy
	}
	cfg.CustomHeaders = append(cfg.CustomHeaders, discoverHeaders...)
	if err := cfg.Validate(); err != nil {
		return err
	}

	w, err := output.New(discoverFormat, verbose)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
	defer stop()

	orch := discovery.NewFromConfig(cfg, logger)
	if !discoverSilent {
		p := &eventPrinter{out: cmd.ErrOrStderr(), pages: verbose}
		orch.OnEvent(p.sink())
		fmt.Fprintf(p.out, "\n  %s %s\n", cyan("Target:"), args[0])
	}

	start := time.Now()
	res := orch.Discover(ctx, discovery.Request{
		RootURL:        args[0],
		MaxPages:       discoverMaxPages,
		MaxTimeSeconds: discoverMaxTime,
	})
	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Warn("interrupted, writing partial result", "elapsed", time.Since(start))
	}

	if err := writeResult(cmd.OutOrStdout(), w, &res); err != nil {
		return err
	}
	if res.Error != nil {
		return errors.New(*res.Error)
	}
	return nil
}

func writeResult(stdout io.Writer, w output.Writer, res *discovery.Result) error {
	if discoverOutput == "" {
		return w.Write(stdout, res)
	}

	f, err := os.Create(discoverOutput)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := w.Write(f, res); err != nil {
		f.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n", green("Output:"), discoverOutput)
	return nil
}
