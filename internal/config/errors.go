package config

import "errors"

// Configuration errors returned by Load, ApplyFile and Validate. Callers
// match them with errors.Is.
var (
	// ErrConfigNotFound is returned when an explicitly named config file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidPort is returned when the port is not a number in 1..65535.
	ErrInvalidPort = errors.New("invalid port: must be 1-65535")

	// ErrInvalidGinMode is returned when GinMode is not debug, release or test.
	ErrInvalidGinMode = errors.New("invalid gin mode: must be debug, release or test")

	// ErrInvalidConcurrency is returned when MaxConcurrentDiscoveries is not positive.
	ErrInvalidConcurrency = errors.New("invalid max concurrent discoveries: must be positive")

	// ErrInvalidMaxPages is returned when the page default or ceiling is not
	// positive, or the default exceeds the ceiling.
	ErrInvalidMaxPages = errors.New("invalid max pages: default and limit must be positive and default <= limit")

	// ErrInvalidMaxTime is the time budget counterpart of ErrInvalidMaxPages.
	ErrInvalidMaxTime = errors.New("invalid max time: default and limit must be positive and default <= limit")

	ErrInvalidPageTimeout = errors.New("invalid page timeout: must be positive")

	// ErrInvalidMaxErrors is returned when the breaker ceiling is negative.
	// Zero disables the breaker.
	ErrInvalidMaxErrors = errors.New("invalid max errors: must be non-negative")

	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidThreshold is returned when a strategy threshold is negative.
	ErrInvalidThreshold = errors.New("invalid strategy threshold: must be non-negative")

	ErrInvalidLogLevel = errors.New("invalid log level: use debug, info, warn or error")

	// ErrInvalidProxy is returned when Proxy is set but lacks a scheme or host.
	ErrInvalidProxy = errors.New("invalid proxy: must be an absolute URL such as http://host:port")

	// ErrInvalidHeader is returned when a custom header is not "Name: value".
	ErrInvalidHeader = errors.New("invalid custom header: use \"Name: value\"")
)
