package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinksExtractor(t *testing.T) {
	t.Parallel()

	t.Run("resolves and dedupes anchors", func(t *testing.T) {
		t.Parallel()

		body := `<html><body>
			<a href="/about">About</a>
			<a href="docs/intro">Intro</a>
			<a href="https://other.org/x">Other</a>
			<a href="/about">About again</a>
			<a href="#top">Top</a>
			<a href="mailto:hi@example.com">Mail</a>
			<a href="javascript:void(0)">JS</a>
			<a href="tel:123">Call</a>
			<a href="">Empty</a>
			<a>No href</a>
		</body></html>`

		links, err := NewLinksExtractor().Extract(body, "https://example.com/start/")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://example.com/about",
			"https://example.com/start/docs/intro",
			"https://other.org/x",
		}, links)
	})

	t.Run("honours base href", func(t *testing.T) {
		t.Parallel()

		body := `<html><head><base href="https://example.com/v2/"></head>
			<body><a href="guide">Guide</a></body></html>`

		links, err := NewLinksExtractor().Extract(body, "https://example.com/index")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/v2/guide"}, links)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		links, err := Default().Extract("  ", "https://example.com")
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}
