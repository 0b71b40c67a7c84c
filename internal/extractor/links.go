package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinksExtractor extracts hyperlinks from an HTML document.
type LinksExtractor struct{}

func NewLinksExtractor() *LinksExtractor { return &LinksExtractor{} }

func (e *LinksExtractor) Name() string { return "links" }

// Extract returns every anchor href in body resolved against pageURL (or the
// document's <base href>), deduplicated, in document order.
func (e *LinksExtractor) Extract(body, pageURL string) ([]string, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b := resolveURL(baseURL, strings.TrimSpace(href)); b != "" {
			if parsed, err := url.Parse(b); err == nil {
				baseURL = parsed
			}
		}
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		// Skip fragments, javascript:, mailto:, tel:
		trimmed := strings.TrimSpace(href)
		if trimmed == "" || skipHref(trimmed) {
			return
		}

		resolved := resolveURL(baseURL, trimmed)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})

	return links, nil
}

func skipHref(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "#") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:")
}

// resolveURL resolves a potentially relative URL against a base URL.
func resolveURL(base *url.URL, raw string) string {
	if base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
