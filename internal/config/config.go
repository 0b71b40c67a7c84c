package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvConfigFile names the environment variable holding an optional YAML
// overlay path.
const EnvConfigFile = "SITESCOUT_CONFIG"

// Config holds the application configuration values.
type Config struct {
	// Server
	Host                     string `yaml:"host"`
	Port                     string `yaml:"port"`
	GinMode                  string `yaml:"gin_mode"`
	MaxConcurrentDiscoveries int    `yaml:"max_concurrent_discoveries"`

	LogLevel  string `yaml:"log_level"`
	UserAgent string `yaml:"user_agent"`

	// Request defaults and ceilings
	DefaultMaxPages int           `yaml:"default_max_pages"`
	MaxPagesLimit   int           `yaml:"max_pages_limit"`
	DefaultMaxTime  time.Duration `yaml:"default_max_time"`
	MaxTimeLimit    time.Duration `yaml:"max_time_limit"`

	// Crawling
	PageTimeout       time.Duration `yaml:"page_timeout"`
	MaxErrors         int           `yaml:"max_errors"`
	RateLimit         time.Duration `yaml:"rate_limit"`
	RenderingEnabled  bool          `yaml:"rendering_enabled"`
	StealthEnabled    bool          `yaml:"stealth_enabled"`
	KeepQuery         bool          `yaml:"keep_query"`
	SitemapThreshold  int           `yaml:"sitemap_threshold"`
	RenderedThreshold int           `yaml:"rendered_threshold"`
	BrowserBin        string        `yaml:"browser_bin"`

	// Outbound requests
	Proxy            string   `yaml:"proxy"`
	CustomHeaders    []string `yaml:"custom_headers"`
	DisableRedirects bool     `yaml:"disable_redirects"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:                     "0.0.0.0",
		Port:                     "8080",
		GinMode:                  "release",
		MaxConcurrentDiscoveries: 4,
		LogLevel:                 "info",
		UserAgent:                "Mozilla/5.0 (compatible; sitescout/1.0)",
		DefaultMaxPages:          3000,
		MaxPagesLimit:            10000,
		DefaultMaxTime:           120 * time.Second,
		MaxTimeLimit:             600 * time.Second,
		PageTimeout:              15 * time.Second,
		MaxErrors:                50,
		RenderingEnabled:         true,
		StealthEnabled:           true,
		KeepQuery:                true,
		SitemapThreshold:         10,
		RenderedThreshold:        5,
	}
}

// Load reads configuration from environment variables (optionally a .env
// file), then applies the YAML file at path, or at $SITESCOUT_CONFIG when
// path is empty. The result is validated.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv overlays environment variables on Default.
func FromEnv() (*Config, error) {
	cfg := Default()
	e := &envReader{}

	cfg.Host = e.getString("HOST", cfg.Host)
	cfg.Port = e.getString("PORT", cfg.Port)
	cfg.GinMode = e.getString("GIN_MODE", cfg.GinMode)
	cfg.MaxConcurrentDiscoveries = e.getInt("MAX_CONCURRENT_DISCOVERIES", cfg.MaxConcurrentDiscoveries)
	cfg.LogLevel = e.getString("LOG_LEVEL", cfg.LogLevel)
	cfg.UserAgent = e.getString("USER_AGENT", cfg.UserAgent)

	cfg.DefaultMaxPages = e.getInt("DEFAULT_MAX_PAGES", cfg.DefaultMaxPages)
	cfg.MaxPagesLimit = e.getInt("MAX_PAGES_LIMIT", cfg.MaxPagesLimit)
	cfg.DefaultMaxTime = e.getSeconds("DEFAULT_MAX_TIME_SECONDS", cfg.DefaultMaxTime)
	cfg.MaxTimeLimit = e.getSeconds("MAX_TIME_SECONDS_LIMIT", cfg.MaxTimeLimit)

	cfg.PageTimeout = e.getDuration("PAGE_TIMEOUT", cfg.PageTimeout)
	cfg.MaxErrors = e.getInt("MAX_ERRORS", cfg.MaxErrors)
	cfg.RateLimit = e.getDuration("RATE_LIMIT", cfg.RateLimit)
	cfg.RenderingEnabled = e.getBool("RENDERING_ENABLED", cfg.RenderingEnabled)
	cfg.StealthEnabled = e.getBool("STEALTH_ENABLED", cfg.StealthEnabled)
	cfg.KeepQuery = e.getBool("KEEP_QUERY", cfg.KeepQuery)
	cfg.SitemapThreshold = e.getInt("SITEMAP_THRESHOLD", cfg.SitemapThreshold)
	cfg.RenderedThreshold = e.getInt("RENDERED_THRESHOLD", cfg.RenderedThreshold)
	cfg.BrowserBin = e.getString("BROWSER_BIN", cfg.BrowserBin)

	cfg.Proxy = e.getString("PROXY", cfg.Proxy)
	cfg.CustomHeaders = e.getList("CUSTOM_HEADERS", cfg.CustomHeaders)
	cfg.DisableRedirects = e.getBool("DISABLE_REDIRECTS", cfg.DisableRedirects)

	if e.err != nil {
		return nil, e.err
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Level returns the slog level named by LogLevel, defaulting to Info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// envReader reads typed values and keeps the first parse error.
type envReader struct {
	err error
}

func (e *envReader) getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getList splits on ";" since header values may contain commas.
func (e *envReader) getList(key string, def []string) []string {
	raw := e.getString(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(raw, ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (e *envReader) getInt(key string, def int) int {
	raw := e.getString(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *envReader) getBool(key string, def bool) bool {
	raw := e.getString(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *envReader) getDuration(key string, def time.Duration) time.Duration {
	raw := e.getString(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *envReader) getSeconds(key string, def time.Duration) time.Duration {
	raw := e.getString(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return time.Duration(n) * time.Second
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
