// Package output renders discovery results for people and programs.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ramkansal/sitescout/internal/discovery"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer renders a discovery result.
type Writer interface {
	Name() string
	Write(w io.Writer, res *discovery.Result) error
}

// New returns the writer for format ("text" or "json").
func New(format string, verbose bool) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return NewTextWriter(verbose), nil
	case "json":
		return &JSONWriter{Indent: "  "}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSONWriter writes the result payload exactly as the HTTP API returns it.
type JSONWriter struct {
	Indent string
}

func (w *JSONWriter) Name() string { return "json" }

func (w *JSONWriter) Write(out io.Writer, res *discovery.Result) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if w.Indent != "" {
		enc.SetIndent("", w.Indent)
	}
	return enc.Encode(res)
}
