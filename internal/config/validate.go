package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return ErrInvalidPort
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return ErrInvalidGinMode
	}
	if c.MaxConcurrentDiscoveries <= 0 {
		return ErrInvalidConcurrency
	}
	if c.DefaultMaxPages <= 0 || c.MaxPagesLimit <= 0 || c.DefaultMaxPages > c.MaxPagesLimit {
		return ErrInvalidMaxPages
	}
	if c.DefaultMaxTime <= 0 || c.MaxTimeLimit <= 0 || c.DefaultMaxTime > c.MaxTimeLimit {
		return ErrInvalidMaxTime
	}
	if c.PageTimeout <= 0 {
		return ErrInvalidPageTimeout
	}
	if c.MaxErrors < 0 {
		return ErrInvalidMaxErrors
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.SitemapThreshold < 0 || c.RenderedThreshold < 0 {
		return ErrInvalidThreshold
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return ErrInvalidLogLevel
	}
	if c.Proxy != "" {
		u, err := url.Parse(c.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidProxy
		}
	}
	for _, h := range c.CustomHeaders {
		name, _, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidHeader, h)
		}
	}
	return nil
}
