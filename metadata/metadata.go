// Package metadata extracts page-level metadata (title, h1, meta
// description, canonical URL, og:image, language), each resolved by a
// fixed priority chain over candidate sources in the document.
package metadata

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"archivecrawl/urlnorm"
)

// Metadata is the set of fields extracted from the parsed document head and
// first heading.
type Metadata struct {
	Title           string
	H1              string
	MetaDescription string
	Canonical       string
	OGImage         string
	Language        string
	HasMultipleH1   bool
}

const maxH1Len = 500

// Extract reads metadata out of doc. pageURL is used to resolve canonical
// and og:image to absolute form.
func Extract(doc *goquery.Document, pageURL string) Metadata {
	m := Metadata{}

	m.Title = firstNonEmpty(
		doc.Find("title").First().Text(),
		attrOf(doc, `meta[property="og:title"]`, "content"),
		doc.Find("h1").First().Text(),
	)
	m.Title = strings.TrimSpace(m.Title)

	h1s := doc.Find("h1")
	m.HasMultipleH1 = h1s.Length() > 1
	if h1s.Length() > 0 {
		h1 := strings.TrimSpace(h1s.First().Text())
		if len(h1) > maxH1Len {
			h1 = h1[:maxH1Len]
		}
		m.H1 = h1
	}

	m.MetaDescription = firstNonEmpty(
		attrOf(doc, `meta[name="description"]`, "content"),
		attrOf(doc, `meta[property="og:description"]`, "content"),
	)

	if href := attrOf(doc, `link[rel="canonical"]`, "href"); href != "" {
		if abs, err := urlnorm.Resolve(href, pageURL); err == nil {
			m.Canonical = abs
		}
	}

	if img := attrOf(doc, `meta[property="og:image"]`, "content"); img != "" {
		if abs, err := urlnorm.Resolve(img, pageURL); err == nil {
			m.OGImage = abs
		}
	}

	lang := attrOf(doc, "html", "lang")
	if lang == "" {
		lang = attrOf(doc, `meta[http-equiv="content-language"]`, "content")
	}
	m.Language = normalizeLang(lang)

	return m
}

func attrOf(doc *goquery.Document, selector, attr string) string {
	val, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(val)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// normalizeLang reduces a lang tag like "en-US" to the two-letter lowercase
// primary subtag "en".
func normalizeLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	if idx := strings.IndexAny(lang, "-_"); idx != -1 {
		lang = lang[:idx]
	}
	lang = strings.ToLower(lang)
	if len(lang) != 2 {
		return ""
	}
	return lang
}
