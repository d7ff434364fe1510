package cmd

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"presscrawl/internal/article"
	"presscrawl/internal/config"
	"presscrawl/internal/fetch"
	"presscrawl/internal/parser"
	"presscrawl/internal/pipeline"
)

// buildSources maps source configs onto pipeline sources: a feed URL selects
// RSS discovery, otherwise the base URL is walked for links; the parser key
// selects a site-specific article parser, defaulting to the generic one.
// An unrecognized parser name or url_pattern fails here, before any fetch.
func buildSources(cfg config.Config, ids *article.IDGenerator, logger *zap.Logger) ([]pipeline.Source, error) {
	sources := make([]pipeline.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		log := logger.Named(sc.Name)

		fetcher := fetch.NewCollyFetcher(fetch.Config{
			UserAgent: cfg.Crawl.UserAgent,
			Timeout:   cfg.FetchTimeout(sc),
		})

		var discoverer parser.Discoverer
		switch {
		case sc.FeedURL != "":
			discoverer = parser.NewFeedDiscoverer(sc.FeedURL, log)
		default:
			var pattern *regexp.Regexp
			if sc.URLPattern != "" {
				var err error
				pattern, err = regexp.Compile(sc.URLPattern)
				if err != nil {
					return nil, fmt.Errorf("source %s: compile url_pattern: %w", sc.Name, err)
				}
			}
			discoverer = parser.NewLinkDiscoverer(fetcher, sc.BaseURL, pattern, log)
		}

		var articles parser.ArticleParser
		switch sc.Parser {
		case "taz":
			articles = parser.NewTaz(ids, log)
		case "", "generic":
			articles = parser.NewGeneric(ids, log)
		default:
			return nil, fmt.Errorf("source %s: unknown parser %q", sc.Name, sc.Parser)
		}

		sources = append(sources, pipeline.Source{
			Name:       sc.Name,
			Collection: sc.Collection,
			Parser:     parser.NewSource(discoverer, articles),
			Fetcher:    fetcher,
			Workers:    cfg.Workers(sc),
		})
	}
	return sources, nil
}
