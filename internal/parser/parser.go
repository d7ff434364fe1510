// Package parser turns configured sources into article URLs and parsed
// articles. Discovery and article extraction are separate concerns composed
// into one source parser; both must degrade to minimal output instead of
// failing the pipeline.
package parser

import (
	"context"
	"regexp"
	"strings"

	"presscrawl/internal/article"
)

// Discoverer enumerates candidate article URLs for a source.
type Discoverer interface {
	DiscoverURLs(ctx context.Context) ([]string, error)
}

// ArticleParser extracts an article from a fetched page. Implementations
// never return an error: on malformed input they emit a minimal article with
// the URL set and whatever content could be salvaged.
type ArticleParser interface {
	Parse(url string, body []byte) article.Article
}

// Source combines a Discoverer and an ArticleParser into the parser handed
// to the pipeline.
type Source struct {
	Discoverer
	ArticleParser
}

// NewSource composes a source parser.
func NewSource(d Discoverer, p ArticleParser) Source {
	return Source{Discoverer: d, ArticleParser: p}
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// stripTags is the last-resort text extraction: replace markup with spaces
// and collapse whitespace.
func stripTags(html string) string {
	return collapseWhitespace(tagPattern.ReplaceAllString(html, " "))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
