// Package tracelog keeps the human-readable trace that is returned to callers
// as debug_logs.
package tracelog

import (
	"fmt"
	"log/slog"
	"sync"
)

// Log is an ordered, append-only list of trace lines. Every line is also
// written to the attached slog logger at debug level. The zero value is ready
// to use.
type Log struct {
	mu      sync.Mutex
	entries []string
	logger  *slog.Logger
}

// New returns a Log that mirrors entries to logger. A nil logger disables mirroring.
func New(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Addf formats and appends one line.
func (l *Log) Addf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.entries = append(l.entries, line)
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Debug(line)
	}
}

// Append copies lines from another trace, keeping their order.
func (l *Log) Append(lines []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, lines...)
}

// Entries returns a copy of all lines in insertion order.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of lines.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
