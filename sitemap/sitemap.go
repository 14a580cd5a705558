// Package sitemap resolves sitemap indexes, expanding them into the
// child sitemaps and pages they reference, and emits normalized URL
// entries annotated with a type hint derived from the sitemap filename.
//
// Sitemap XML fetch/parse sits behind a narrow interface (the Source
// below) so callers can swap in a caching or rate-limited fetcher; the
// default adapter here is a plain stdlib encoding/xml decoder.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"archivecrawl/urlnorm"
)

// Source fetches the raw XML bytes for a sitemap URL. Index-vs-urlset
// detection is this package's job, not the source's.
type Source interface {
	Fetch(ctx context.Context, sitemapURL string) ([]byte, error)
}

// Entry is one intake record: a raw sitemap <loc>, its canonical form, the
// sitemap it came from, and a derived type hint.
type Entry struct {
	Raw           string
	Canonical     string
	SitemapSource string
	TypeHint      *string
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []locEntry `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name   `xml:"sitemapindex"`
	Sitemaps []locEntry `xml:"sitemap"`
}

type locEntry struct {
	Loc string `xml:"loc"`
}

// typeHintRules is the fixed regex table mapping a sitemap filename to a
// type hint, evaluated in order; first match wins.
var typeHintRules = []struct {
	pattern *regexp.Regexp
	hint    string
}{
	{regexp.MustCompile(`(?i)^post-sitemap`), "post"},
	{regexp.MustCompile(`(?i)^page-sitemap`), "page"},
	{regexp.MustCompile(`(?i)product`), "product"},
	{regexp.MustCompile(`(?i)category|tag|author`), "pagination"},
	{regexp.MustCompile(`(?i)blog|news|article`), "post"},
	{regexp.MustCompile(`(?i)event`), "event"},
	{regexp.MustCompile(`(?i)portfolio|project`), "portfolio"},
}

func typeHintFor(sitemapURL string) *string {
	base := path.Base(sitemapURL)
	for _, rule := range typeHintRules {
		if rule.pattern.MatchString(base) {
			hint := rule.hint
			return &hint
		}
	}
	return nil
}

// Intake resolves one or more seed sitemap URLs into a deduplicated stream
// of entries. A sitemap index is expanded exactly one level into child
// sitemaps. Failures fetching or parsing one seed (or one child sitemap) are
// logged and skipped; they never abort the others.
type Intake struct {
	source Source
	log    *logrus.Logger
}

// New builds an Intake backed by source, logging through log (nil uses the
// standard logger).
func New(source Source, log *logrus.Logger) *Intake {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Intake{source: source, log: log}
}

// Run expands the given seeds into an entry list, one entry per distinct
// raw <loc> across all seeds. Seeds are processed independently; a failure
// on one does not affect the others.
//
// Entries are deduplicated only on the exact raw URL string, not on its
// canonical form: two raw URLs that normalize to the same canonical (e.g.
// a tracking-parameter variant and the bare URL) are both kept, since each
// one is its own alias of record even though they collapse to a single
// fetch and a single Page.
func (in *Intake) Run(ctx context.Context, seeds []string) []Entry {
	seen := make(map[string]bool)
	var out []Entry

	for _, seed := range seeds {
		entries, err := in.expandSeed(ctx, seed)
		if err != nil {
			in.log.WithError(err).WithField("seed", seed).Warn("sitemap intake failed for seed")
			continue
		}
		for _, e := range entries {
			if seen[e.Raw] {
				continue
			}
			seen[e.Raw] = true
			out = append(out, e)
		}
	}
	return out
}

func (in *Intake) expandSeed(ctx context.Context, seed string) ([]Entry, error) {
	body, err := in.source.Fetch(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", seed, err)
	}

	if looksLikeIndex(body) {
		var idx sitemapIndex
		if err := xml.Unmarshal(body, &idx); err != nil {
			return nil, fmt.Errorf("parse sitemap index %s: %w", seed, err)
		}
		var out []Entry
		for _, child := range idx.Sitemaps {
			if child.Loc == "" {
				continue
			}
			childEntries, err := in.expandChildSitemap(ctx, child.Loc)
			if err != nil {
				in.log.WithError(err).WithField("sitemap", child.Loc).Warn("child sitemap failed")
				continue
			}
			out = append(out, childEntries...)
		}
		return out, nil
	}

	return in.expandChildSitemap(ctx, seed)
}

func (in *Intake) expandChildSitemap(ctx context.Context, sitemapURL string) ([]Entry, error) {
	body, err := in.source.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sitemapURL, err)
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}

	hint := typeHintFor(sitemapURL)

	out := make([]Entry, 0, len(set.URLs))
	for _, u := range set.URLs {
		if u.Loc == "" {
			continue
		}
		canonical, err := urlnorm.Normalize(u.Loc)
		if err != nil {
			in.log.WithError(err).WithField("url", u.Loc).Warn("dropping invalid sitemap url")
			continue
		}
		out = append(out, Entry{
			Raw:           u.Loc,
			Canonical:     canonical,
			SitemapSource: sitemapURL,
			TypeHint:      hint,
		})
	}
	return out, nil
}

// looksLikeIndex reports whether body's root element is <sitemapindex>,
// scanning the first kilobyte rather than fully parsing twice.
func looksLikeIndex(body []byte) bool {
	n := len(body)
	if n > 1024 {
		n = 1024
	}
	return strings.Contains(string(body[:n]), "<sitemapindex")
}
