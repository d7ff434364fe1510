package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"presscrawl/internal/fetch"
)

// FeedDiscoverer enumerates article URLs from an RSS/Atom feed.
type FeedDiscoverer struct {
	feedURL string
	parser  *gofeed.Parser
	logger  *zap.Logger
}

// NewFeedDiscoverer builds a discoverer for the given feed.
func NewFeedDiscoverer(feedURL string, logger *zap.Logger) *FeedDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedDiscoverer{feedURL: feedURL, parser: gofeed.NewParser(), logger: logger}
}

// DiscoverURLs fetches and parses the feed.
func (d *FeedDiscoverer) DiscoverURLs(ctx context.Context) ([]string, error) {
	feed, err := d.parser.ParseURLWithContext(d.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", d.feedURL, err)
	}

	urls := make([]string, 0, len(feed.Items))
	seen := make(map[string]struct{}, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		urls = append(urls, link)
	}
	d.logger.Debug("feed discovery complete",
		zap.String("feed", d.feedURL), zap.Int("urls", len(urls)))
	return urls, nil
}

// LinkDiscoverer scrapes a listing page for anchors whose absolute URL
// matches a per-source article pattern.
type LinkDiscoverer struct {
	fetcher fetch.Fetcher
	baseURL string
	pattern *regexp.Regexp
	logger  *zap.Logger
}

// NewLinkDiscoverer builds a discoverer scraping baseURL. pattern may be nil
// to accept every same-host link.
func NewLinkDiscoverer(fetcher fetch.Fetcher, baseURL string, pattern *regexp.Regexp, logger *zap.Logger) *LinkDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkDiscoverer{fetcher: fetcher, baseURL: baseURL, pattern: pattern, logger: logger}
}

// DiscoverURLs fetches the listing page and extracts candidate links.
func (d *LinkDiscoverer) DiscoverURLs(ctx context.Context) ([]string, error) {
	base, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %s: %w", d.baseURL, err)
	}

	body, err := d.fetcher.Fetch(ctx, d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", d.baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", d.baseURL, err)
	}

	var urls []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || href == "#" ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if abs.Host != base.Host {
			return
		}
		resolved := abs.String()
		if d.pattern != nil && !d.pattern.MatchString(resolved) {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		urls = append(urls, resolved)
	})

	d.logger.Debug("listing discovery complete",
		zap.String("base_url", d.baseURL), zap.Int("urls", len(urls)))
	return urls, nil
}
