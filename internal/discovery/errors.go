package discovery

import "errors"

var (
	// ErrUnavailable is returned when a strategy cannot start, for example
	// because no browser could be launched.
	ErrUnavailable = errors.New("strategy unavailable")

	// ErrStrategyPanic wraps a panic recovered from a single strategy.
	ErrStrategyPanic = errors.New("strategy panicked")

	// ErrCircuitOpen marks a crawl stopped by its error ceiling.
	ErrCircuitOpen = errors.New("too many failed fetches")

	// ErrCatastrophic wraps a panic recovered outside any strategy.
	ErrCatastrophic = errors.New("discovery failed")
)
