package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"presscrawl/internal/article"
)

// Generic extracts whatever an HTML page offers without site-specific
// selectors: document title, meta description, tag-stripped body text. It is
// the parser used for sources that have no dedicated one.
type Generic struct {
	ids    *article.IDGenerator
	logger *zap.Logger
}

// NewGeneric builds the fallback parser.
func NewGeneric(ids *article.IDGenerator, logger *zap.Logger) *Generic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generic{ids: ids, logger: logger}
}

// Parse never fails; an empty or unparseable body yields a minimal article.
func (g *Generic) Parse(url string, body []byte) article.Article {
	a := article.Article{
		ID:        g.ids.Next(),
		SourceURL: url,
		RawHTML:   string(body),
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return a
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		g.logger.Debug("html parse failed, falling back to tag stripping",
			zap.String("url", url), zap.Error(err))
		a.Text = stripTags(a.RawHTML)
		return a
	}

	a.Title = collapseWhitespace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		a.Teaser = strings.TrimSpace(desc)
	}

	doc.Find("script, style, noscript").Remove()
	a.Text = collapseWhitespace(doc.Find("body").Text())
	if a.Text == "" {
		a.Text = stripTags(a.RawHTML)
	}
	return a
}
