// Package extractor pulls crawlable links out of fetched documents.
package extractor

// Extractor finds outgoing links in a document body.
type Extractor interface {
	// Name returns a human-readable identifier (e.g., "links").
	Name() string

	// Extract returns absolute link targets found in body, which was
	// served from pageURL.
	Extract(body, pageURL string) ([]string, error)
}

// Default returns the extractor used when none is configured.
func Default() Extractor {
	return NewLinksExtractor()
}
