// Package article defines the article entity shared across the crawl pipeline.
package article

import (
	"strings"
	"time"
)

// POSTag is a single token annotation produced by enrichment. Ordinal is a
// stable reinsertion order within the article, not an external identifier.
type POSTag struct {
	Ordinal int    `bson:"ordinal" json:"ordinal"`
	Token   string `bson:"token" json:"token"`
	Lemma   string `bson:"lemma" json:"lemma"`
	Tag     string `bson:"tag" json:"tag"`
	POS     string `bson:"pos" json:"pos"`
}

// Article is one piece of content discovered from a source, together with the
// fingerprint used as its dedup key. Most fields are optional; the Parser
// fills in what it can extract and leaves the rest zero.
type Article struct {
	// ID is a process-local, strictly increasing integer assigned once at
	// creation. It is used for in-memory correlation only and is never the
	// dedup key.
	ID        int64  `bson:"id" json:"id"`
	SourceURL string `bson:"url,omitempty" json:"url,omitempty"`

	Title    string `bson:"title,omitempty" json:"title,omitempty"`
	Teaser   string `bson:"teaser,omitempty" json:"teaser,omitempty"`
	Author   string `bson:"author,omitempty" json:"author,omitempty"`
	Category string `bson:"category,omitempty" json:"category,omitempty"`

	// PublishedAt is the publication time claimed by the source.
	// ParsedAt is set by the pipeline when a parse produced actual content;
	// it is what distinguishes "seen" from "successfully parsed" records.
	PublishedAt *time.Time `bson:"published_date,omitempty" json:"published_date,omitempty"`
	ParsedAt    *time.Time `bson:"parsed_date,omitempty" json:"parsed_date,omitempty"`

	RawHTML string `bson:"html,omitempty" json:"html,omitempty"`
	Text    string `bson:"text,omitempty" json:"text,omitempty"`

	Keywords []string `bson:"keywords,omitempty" json:"keywords,omitempty"`
	POSTags  []POSTag `bson:"pos_tags,omitempty" json:"pos_tags,omitempty"`

	// Fingerprint is the lowercase hex SHA-256 dedup key. It is computed by
	// the fingerprint package, never user-supplied.
	Fingerprint string `bson:"fingerprint,omitempty" json:"fingerprint,omitempty"`
}

// Contentful reports whether the article carries any body at all. Articles
// without content are not worth persisting.
func (a Article) Contentful() bool {
	return strings.TrimSpace(a.Text) != "" || strings.TrimSpace(a.RawHTML) != ""
}
