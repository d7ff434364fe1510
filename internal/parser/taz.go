package parser

import (
	"bytes"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"presscrawl/internal/article"
)

// bodySelectors are tried in order when extracting article text; the first
// container that yields paragraphs wins.
var bodySelectors = []string{
	"div.article__body",
	"div.article__content",
	"div.lead-body",
	"div.article-content",
	"section.article-body",
	"div.story-body",
	"div#content",
	"article",
	"div.teaser-body",
}

// Taz parses articles from taz.de markup.
type Taz struct {
	ids    *article.IDGenerator
	logger *zap.Logger
}

// NewTaz builds the taz.de article parser.
func NewTaz(ids *article.IDGenerator, logger *zap.Logger) *Taz {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Taz{ids: ids, logger: logger}
}

// Parse extracts taz article metadata and body. It never fails: unparseable
// input yields a minimal article carrying the raw HTML.
func (t *Taz) Parse(url string, body []byte) article.Article {
	a := article.Article{
		ID:        t.ids.Next(),
		SourceURL: url,
		RawHTML:   string(body),
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return a
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.logger.Debug("taz html parse failed", zap.String("url", url), zap.Error(err))
		a.Text = stripTags(a.RawHTML)
		return a
	}

	a.Title = collapseWhitespace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if a.Title == "" {
		a.Title = collapseWhitespace(doc.Find("title").First().Text())
	}
	a.Teaser = t.extractTeaser(doc)
	a.Author = t.extractAuthor(doc)
	a.Category = t.extractCategory(doc)
	a.PublishedAt = t.extractPublished(doc)
	a.Text = extractBodyText(doc)
	return a
}

// extractPublished reads <time datetime> first, then the published-time meta
// tags. Unparseable timestamps are dropped, not errors.
func (t *Taz) extractPublished(doc *goquery.Document) *time.Time {
	raw := strings.TrimSpace(doc.Find("time[datetime]").First().AttrOr("datetime", ""))
	if raw == "" {
		raw = strings.TrimSpace(doc.Find(`meta[property="article:published_time"]`).AttrOr("content", ""))
	}
	if raw == "" {
		raw = strings.TrimSpace(doc.Find(`meta[name="pubdate"]`).AttrOr("content", ""))
	}
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	t.logger.Debug("unparseable published timestamp", zap.String("value", raw))
	return nil
}

func (t *Taz) extractAuthor(doc *goquery.Document) string {
	name := doc.Find(`div[class*="author-name-wrapper"] a[class*="teaser-link"] span[class*="typo-name-detail-bold"]`).
		First().Text()
	if author := collapseWhitespace(name); author != "" {
		return author
	}
	return strings.TrimSpace(doc.Find(`meta[name="author"]`).AttrOr("content", ""))
}

func (t *Taz) extractCategory(doc *goquery.Document) string {
	marker := doc.Find(`span[class*="typo-r-topline-detail"], div[class*="typo-r-topline-detail"]`).First()
	if marker.Length() == 0 {
		return ""
	}
	// prefer the visible headline span in the same h2
	if head := marker.Closest("h2").Find(`span[class*="typo-r-head-detail"]`).First(); head.Length() > 0 {
		if text := collapseWhitespace(head.Text()); text != "" {
			return text
		}
	}
	if next := marker.NextFiltered(`span[class*="typo-r-head-detail"]`); next.Length() > 0 {
		if text := collapseWhitespace(next.Text()); text != "" {
			return text
		}
	}
	return collapseWhitespace(marker.Text())
}

func (t *Taz) extractTeaser(doc *goquery.Document) string {
	if p := doc.Find(`p[class*="typo-r-subline-detail"]`).First(); p.Length() > 0 {
		if teaser := collapseWhitespace(p.Text()); teaser != "" {
			return teaser
		}
	}
	return strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
}

// extractBodyText gathers paragraph text from the first matching article
// container, falling back to every <p> on the page.
func extractBodyText(doc *goquery.Document) string {
	var paragraphs []string
	collect := func(sel *goquery.Selection) {
		sel.Find("p").Each(func(_ int, p *goquery.Selection) {
			if text := collapseWhitespace(p.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
	}

	for _, selector := range bodySelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		collect(container)
		if len(paragraphs) > 0 {
			break
		}
	}
	if len(paragraphs) == 0 {
		doc.Find("p").Each(func(_ int, p *goquery.Selection) {
			if text := collapseWhitespace(p.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
	}
	return strings.Join(paragraphs, "\n\n")
}
