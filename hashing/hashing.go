// Package hashing computes a change-detection content hash over cleaned
// page HTML and applies a phrase-based soft-404 heuristic to classify
// pages that return 200 OK but whose body is an error message.
package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// softWordCountCeiling is the word-count threshold below which a page that
// matches a known soft-404 phrase is reclassified as a soft 404.
const softWordCountCeiling = 150

var whitespaceRun = regexp.MustCompile(`\s+`)

// ContentHash returns the MD5 hex digest of cleanHTML after collapsing all
// whitespace runs to a single space and trimming the ends, so that
// byte-identical renders with incidental whitespace churn hash equal.
// Returns "" if cleanHTML is empty (content_hash is null iff no content was
// extracted).
func ContentHash(cleanHTML string) string {
	if strings.TrimSpace(cleanHTML) == "" {
		return ""
	}
	normalized := whitespaceRun.ReplaceAllString(strings.TrimSpace(cleanHTML), " ")
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// DefaultSoft404Phrases are the known "nothing here" phrases checked
// against title/body text. Callers can supply their own list; this is
// the built-in default.
var DefaultSoft404Phrases = []string{
	"page not found",
	"404 error",
	"content not found",
	"this page doesn't exist",
}

// IsSoft404 reports whether a 2xx page's title/body text matches a known
// 404 phrase while its word count stays below the ceiling.
func IsSoft404(title, bodyText string, wordCount int, phrases []string) bool {
	if wordCount >= softWordCountCeiling {
		return false
	}
	if len(phrases) == 0 {
		phrases = DefaultSoft404Phrases
	}
	haystack := strings.ToLower(title + " " + bodyText)
	for _, phrase := range phrases {
		if strings.Contains(haystack, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
