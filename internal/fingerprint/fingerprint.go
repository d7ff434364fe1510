// Package fingerprint computes the SHA-256 dedup key for articles.
//
// The digest format (lowercase hex SHA-256) is a bit-exact contract with the
// store: fingerprints written in earlier runs, possibly by other
// implementations, must compare equal byte for byte.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"presscrawl/internal/article"
)

// FromURL returns the digest of the raw URL bytes when the URL is a
// well-formed absolute http(s) URL. URL fingerprints are cheap and let the
// pipeline skip fetches for content it has already seen.
func FromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return digest(raw), true
}

// Compute applies the fingerprint policy to an article, first match wins:
//
//  1. an already-set fingerprint is kept untouched,
//  2. a well-formed absolute http(s) SourceURL is hashed,
//  3. otherwise the trimmed Text (or RawHTML) is hashed.
//
// The second return is false when none of the policies apply; such articles
// cannot be deduplicated.
func Compute(a *article.Article) (string, bool) {
	if a.Fingerprint != "" {
		return a.Fingerprint, true
	}
	if d, ok := FromURL(a.SourceURL); ok {
		return d, true
	}
	if body := strings.TrimSpace(a.Text); body != "" {
		return digest(body), true
	}
	if body := strings.TrimSpace(a.RawHTML); body != "" {
		return digest(body), true
	}
	return "", false
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
