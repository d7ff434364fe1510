// Package enrich annotates parsed articles with token-level analysis. The
// NLP capability is resolved once at startup: enrichment is either the
// prose-backed tagger or the identity function, never a per-call decision.
package enrich

import (
	"fmt"
	"sort"
	"strings"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"presscrawl/internal/article"
)

const (
	// maxTextBytes guards the tagger against pathological documents; larger
	// texts are stored untagged.
	maxTextBytes = 200_000
	// maxTagEntries caps how many token annotations are kept per article.
	maxTagEntries = 50_000

	defaultMaxKeywords = 20
)

// Enricher mutates an article in place. A returned error means the article
// proceeds unenriched; it is never fatal for the URL.
type Enricher interface {
	Enrich(a *article.Article) error
}

// New resolves the enrichment capability. Disabled enrichment yields the
// identity function.
func New(enabled bool, maxKeywords int, logger *zap.Logger) Enricher {
	if !enabled {
		return Identity{}
	}
	if maxKeywords <= 0 {
		maxKeywords = defaultMaxKeywords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{maxKeywords: maxKeywords, logger: logger}
}

// Identity leaves articles untouched.
type Identity struct{}

// Enrich is a no-op.
func (Identity) Enrich(*article.Article) error { return nil }

// Tagger tokenizes the article text, records POS annotations and derives
// keywords from noun frequency.
type Tagger struct {
	maxKeywords int
	logger      *zap.Logger
}

// Enrich tags a.Text. Articles without text, or with text beyond the size
// guard, pass through unchanged.
func (t *Tagger) Enrich(a *article.Article) error {
	text := strings.TrimSpace(a.Text)
	if text == "" {
		return nil
	}
	if len(text) > maxTextBytes {
		t.logger.Warn("skipping pos tagging, text too large",
			zap.String("url", a.SourceURL), zap.Int("bytes", len(text)))
		return nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return fmt.Errorf("tokenize: %w", err)
	}

	tokens := doc.Tokens()
	tags := make([]article.POSTag, 0, min(len(tokens), maxTagEntries))
	counts := make(map[string]int)
	for i, tok := range tokens {
		if i >= maxTagEntries {
			break
		}
		lemma := strings.ToLower(tok.Text)
		tags = append(tags, article.POSTag{
			Ordinal: i,
			Token:   tok.Text,
			Lemma:   lemma,
			Tag:     tok.Tag,
			POS:     coarsePOS(tok.Tag),
		})
		if isNoun(tok.Tag) && len(lemma) > 2 {
			counts[lemma]++
		}
	}

	a.POSTags = tags
	a.Keywords = topKeywords(counts, t.maxKeywords)
	return nil
}

func isNoun(tag string) bool {
	return strings.HasPrefix(tag, "NN")
}

// coarsePOS maps Penn Treebank tags onto coarse word classes.
func coarsePOS(tag string) string {
	switch {
	case strings.HasPrefix(tag, "NN"):
		return "NOUN"
	case strings.HasPrefix(tag, "VB"):
		return "VERB"
	case strings.HasPrefix(tag, "JJ"):
		return "ADJ"
	case strings.HasPrefix(tag, "RB"):
		return "ADV"
	case strings.HasPrefix(tag, "PRP"), tag == "WP", tag == "WP$":
		return "PRON"
	case tag == "DT", tag == "WDT", tag == "PDT":
		return "DET"
	case tag == "IN", tag == "TO":
		return "ADP"
	case tag == "CC":
		return "CCONJ"
	case tag == "CD":
		return "NUM"
	default:
		return "X"
	}
}

// topKeywords returns the most frequent nouns, ties broken alphabetically so
// the output is deterministic.
func topKeywords(counts map[string]int, limit int) []string {
	if len(counts) == 0 {
		return nil
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}
