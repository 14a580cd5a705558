// Package markdown converts HTML to Markdown with structural-marker
// insertion, heading hierarchy normalization, boilerplate stripping, and
// H1 hoisting. It produces two products from one pass: a marked
// ("enhanced") Markdown and a plain Markdown with all markers stripped.
package markdown

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"

	"archivecrawl/models"
)

// Result is the Markdown Builder's output.
type Result struct {
	Markdown         string
	MarkdownEnhanced string
	H1IssueDetected  bool // an h1 existed in the source but not at position 0
}

// markerToken is the stable comment-marker syntax downstream consumers parse.
func markerToken(typ, role string) string {
	return fmt.Sprintf("<!-- STRUCT:%s:%s -->", typ, role)
}

// sentinel is the plain-text placeholder spliced into the HTML before
// conversion; html-to-markdown does not preserve HTML comments as content,
// so markers round-trip as text and are rewritten to comments afterward.
func sentinel(typ, role string) string {
	return fmt.Sprintf("§§STRUCT:%s:%s§§", typ, role)
}

var sentinelPattern = regexp.MustCompile(`\x{00a7}\x{00a7}STRUCT:([A-Z_]+):([A-Z_]+)\x{00a7}\x{00a7}`)

var markerTypeNames = map[models.StructuralType]string{
	models.StructFAQ:          "FAQ",
	models.StructTOC:          "TOC",
	models.StructBreadcrumb:   "BREADCRUMB",
	models.StructCTA:          "CTA",
	models.StructAccordion:    "ACCORDION",
	models.StructTestimonial:  "TESTIMONIAL",
	models.StructAuthorBio:    "AUTHOR",
	models.StructRelatedPosts: "RELATED",
}

// markerRegex strips any balanced marker comment, used to derive the plain
// Markdown from the enhanced Markdown (spec property: stripping markers with
// this regex and newline collapse yields the plain Markdown exactly).
var markerRegex = regexp.MustCompile(`<!-- STRUCT:[A-Z_]+:[A-Z_]+ -->`)

// Build runs the full pass: marker splicing, conversion, post-processing,
// and H1 hoisting, deriving the plain Markdown from the enhanced one.
func Build(rawHTML string, elements []models.StructuralElement, pageURL, h1 string) (Result, error) {
	markered := spliceMarkers(rawHTML, elements)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markered))
	if err != nil {
		return Result{}, fmt.Errorf("markdown: parse failed: %w", err)
	}

	removeNavigationLists(doc)
	sanitizeImages(doc)

	cleanedHTML, err := doc.Html()
	if err != nil {
		return Result{}, fmt.Errorf("markdown: serialize failed: %w", err)
	}

	raw, err := htmltomarkdown.ConvertString(cleanedHTML, converter.WithDomain(pageURL))
	if err != nil {
		return Result{}, fmt.Errorf("markdown: conversion failed: %w", err)
	}

	text := normalizeHeadingHierarchy(raw)
	text = stripBoilerplateLines(text)
	text = collapseWhitespace(text)

	text, h1Issue := hoistH1(text, h1)

	enhanced := sentinelPattern.ReplaceAllStringFunc(text, func(m string) string {
		groups := sentinelPattern.FindStringSubmatch(m)
		return markerToken(groups[1], groups[2])
	})
	enhanced = strings.TrimSpace(enhanced) + "\n"

	plain := StripMarkers(enhanced)

	return Result{
		Markdown:         plain,
		MarkdownEnhanced: enhanced,
		H1IssueDetected:  h1Issue,
	}, nil
}

// StripMarkers removes structural marker comments and collapses >=3
// consecutive newlines to 2.
func StripMarkers(enhanced string) string {
	stripped := markerRegex.ReplaceAllString(enhanced, "")
	return collapseWhitespace(stripped)
}

type markerEdit struct {
	pos      int
	replace  bool
	spanEnd  int
	insert   string
}

// spliceMarkers inserts sentinel marker text at each structural element's
// boundaries. FAQ elements with harvested questions have their entire span
// replaced with a synthetic rendering carrying Q/A sentinels, since a
// JSON-LD <script> region has no renderable text of its own.
func spliceMarkers(rawHTML string, elements []models.StructuralElement) string {
	if len(elements) == 0 {
		return rawHTML
	}

	var edits []markerEdit
	for _, e := range elements {
		name, ok := markerTypeNames[e.Type]
		if !ok {
			continue
		}
		if e.Type == models.StructFAQ && len(e.Questions) > 0 {
			edits = append(edits, markerEdit{
				pos:     e.StartIndex,
				replace: true,
				spanEnd: e.EndIndex,
				insert:  renderFAQBlock(name, e.Questions),
			})
			continue
		}
		edits = append(edits, markerEdit{pos: e.StartIndex, insert: "<p>" + sentinel(name, "START") + "</p>"})
		edits = append(edits, markerEdit{pos: e.EndIndex, insert: "<p>" + sentinel(name, "END") + "</p>"})
	}

	sort.SliceStable(edits, func(i, j int) bool { return edits[i].pos < edits[j].pos })

	var b strings.Builder
	cursor := 0
	for _, e := range edits {
		if e.pos < cursor {
			continue // overlapping edit from an earlier replace; skip to avoid corrupting offsets
		}
		b.WriteString(rawHTML[cursor:e.pos])
		b.WriteString(e.insert)
		if e.replace {
			cursor = e.spanEnd
		} else {
			cursor = e.pos
		}
	}
	b.WriteString(rawHTML[cursor:])
	return b.String()
}

func renderFAQBlock(name string, questions []models.FAQItem) string {
	var b strings.Builder
	b.WriteString("<div><p>")
	b.WriteString(sentinel(name, "START"))
	b.WriteString("</p>")
	for _, q := range questions {
		b.WriteString("<p>")
		b.WriteString(sentinel(name, "Q"))
		b.WriteString("</p><h3>")
		b.WriteString(escapeHTML(q.Question))
		b.WriteString("</h3><p>")
		b.WriteString(sentinel(name, "A"))
		b.WriteString("</p><p>")
		b.WriteString(escapeHTML(q.Answer))
		b.WriteString("</p>")
	}
	b.WriteString("<p>")
	b.WriteString(sentinel(name, "END"))
	b.WriteString("</p></div>")
	return b.String()
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
