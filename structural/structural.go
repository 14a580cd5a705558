// Package structural detects FAQ/TOC/CTA/breadcrumb/accordion/
// testimonial/author-bio/related-posts regions in raw HTML, identified
// by byte offsets so the Markdown Builder can wrap them with markers.
package structural

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"archivecrawl/models"
)

// selectorTable is the fixed per-type selector list, tried in order; every
// match is kept (not just the first), then deduplicated by start offset.
var selectorTable = map[models.StructuralType][]string{
	models.StructFAQ: {
		".faq", ".faqs", ".faq-section", ".faq-list", "[class*=faq]", "dl.faq",
	},
	models.StructTOC: {
		".toc", "#toc", ".table-of-contents", "[class*=table-of-contents]", "nav.toc", "[class*=toc]",
	},
	models.StructBreadcrumb: {
		".breadcrumb", ".breadcrumbs", "[class*=breadcrumb]", "nav[aria-label=breadcrumb]", "[itemtype*=BreadcrumbList]",
	},
	models.StructCTA: {
		".cta", ".call-to-action", ".template-cta", "[class*=cta]",
	},
	models.StructAccordion: {
		".accordion", "[class*=accordion]",
	},
	models.StructTestimonial: {
		".testimonial", ".testimonials", "[class*=testimonial]", ".review", ".reviews",
	},
	models.StructAuthorBio: {
		".author-bio", ".author-box", "[class*=author-bio]", "[itemprop=author]",
	},
	models.StructRelatedPosts: {
		".related-posts", ".related-articles", "[class*=related-post]", ".you-may-also-like",
	},
}

// questionSelectors harvest question text within a selector-matched FAQ
// region, including accordion-widget variants and definition lists.
var questionSelectors = []string{
	"h2", "h3", "h4", ".faq-question", ".question", ".accordion-title", ".accordion-header", "dt",
}

var answerSelectors = []string{
	".faq-answer", ".answer", ".accordion-body", ".accordion-content", "dd",
}

// Detect scans rawHTML for structural regions and returns them ordered by
// start offset, alongside aggregate counts.
func Detect(rawHTML string) ([]models.StructuralElement, models.StructuralStats) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.StructuralStats{}
	}

	cursor := newCursor(rawHTML)
	var elements []models.StructuralElement

	elements = append(elements, detectFAQSchema(doc, cursor)...)

	faqSelectorElements := detectSelectorFAQ(doc, cursor)
	elements = append(elements, faqSelectorElements...)

	for typ, selectors := range selectorTable {
		if typ == models.StructFAQ {
			continue
		}
		for _, sel := range selectors {
			doc.Find(sel).Each(func(_ int, node *goquery.Selection) {
				el, ok := buildElement(typ, sel, node, cursor)
				if !ok {
					return
				}
				if typ == models.StructTOC && !isTOC(node) {
					return
				}
				elements = append(elements, el)
			})
		}
	}

	elements = dedupeByStart(elements)
	elements = suppressAccordionsCoincidingWithFAQ(elements)

	sort.Slice(elements, func(i, j int) bool { return elements[i].StartIndex < elements[j].StartIndex })

	return elements, aggregateStats(elements)
}

// offsetCursor maps repeated outer-HTML substrings to successive, non-overlapping
// byte offsets in rawHTML so duplicate elements don't collide on the same span.
type offsetCursor struct {
	raw    string
	cursor map[string]int
}

func newCursor(raw string) *offsetCursor {
	return &offsetCursor{raw: raw, cursor: make(map[string]int)}
}

// find locates the next unclaimed occurrence of needle at or after the
// previous occurrence claimed for this exact needle text.
func (c *offsetCursor) find(needle string) (int, int, bool) {
	if needle == "" {
		return 0, 0, false
	}
	start := c.cursor[needle]
	idx := strings.Index(c.raw[start:], needle)
	if idx == -1 {
		idx = strings.Index(c.raw, needle)
		if idx == -1 {
			return 0, 0, false
		}
		c.cursor[needle] = idx + len(needle)
		return idx, idx + len(needle), true
	}
	absolute := start + idx
	c.cursor[needle] = absolute + len(needle)
	return absolute, absolute + len(needle), true
}

func buildElement(typ models.StructuralType, selector string, node *goquery.Selection, cursor *offsetCursor) (models.StructuralElement, bool) {
	outer, err := goquery.OuterHtml(node)
	if err != nil || strings.TrimSpace(outer) == "" {
		return models.StructuralElement{}, false
	}
	start, end, ok := cursor.find(outer)
	if !ok {
		return models.StructuralElement{}, false
	}
	return models.StructuralElement{
		Type:       typ,
		StartIndex: start,
		EndIndex:   end,
		Selector:   selector,
	}, true
}

// detectFAQSchema finds <script type="application/ld+json"> blocks whose
// @type is FAQPage and enumerates questions from mainEntity.
func detectFAQSchema(doc *goquery.Document, cursor *offsetCursor) []models.StructuralElement {
	var out []models.StructuralElement
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, node *goquery.Selection) {
		raw := node.Text()
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return
		}
		if !isFAQPageType(payload["@type"]) {
			return
		}
		questions := extractLDQuestions(payload["mainEntity"])
		if len(questions) == 0 {
			return
		}

		outer, err := goquery.OuterHtml(node)
		if err != nil {
			return
		}
		start, end, ok := cursor.find(outer)
		if !ok {
			return
		}
		out = append(out, models.StructuralElement{
			Type:       models.StructFAQ,
			StartIndex: start,
			EndIndex:   end,
			Selector:   `script[type="application/ld+json"]`,
			HasSchema:  true,
			Questions:  questions,
		})
	})
	return out
}

func isFAQPageType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "FAQPage")
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "FAQPage") {
				return true
			}
		}
	}
	return false
}

func extractLDQuestions(v interface{}) []models.FAQItem {
	entries, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []models.FAQItem
	for _, e := range entries {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		var answer string
		if accepted, ok := m["acceptedAnswer"].(map[string]interface{}); ok {
			answer, _ = accepted["text"].(string)
		}
		if name == "" {
			continue
		}
		out = append(out, models.FAQItem{Question: strings.TrimSpace(name), Answer: strings.TrimSpace(answer)})
	}
	return out
}

// detectSelectorFAQ finds selector-matched FAQ sections and harvests question
// text via questionSelectors/answerSelectors, including accordion-widget and
// definition-list variants.
func detectSelectorFAQ(doc *goquery.Document, cursor *offsetCursor) []models.StructuralElement {
	var out []models.StructuralElement
	for _, sel := range selectorTable[models.StructFAQ] {
		doc.Find(sel).Each(func(_ int, node *goquery.Selection) {
			el, ok := buildElement(models.StructFAQ, sel, node, cursor)
			if !ok {
				return
			}
			questions := harvestQuestions(node)
			el.Questions = questions
			out = append(out, el)
		})
	}
	return out
}

func harvestQuestions(region *goquery.Selection) []models.FAQItem {
	var items []models.FAQItem
	questionTexts := []string{}
	region.Find(strings.Join(questionSelectors, ", ")).Each(func(_ int, q *goquery.Selection) {
		text := strings.TrimSpace(q.Text())
		if text != "" {
			questionTexts = append(questionTexts, text)
		}
	})
	answerTexts := []string{}
	region.Find(strings.Join(answerSelectors, ", ")).Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		if text != "" {
			answerTexts = append(answerTexts, text)
		}
	})
	for i, q := range questionTexts {
		a := ""
		if i < len(answerTexts) {
			a = answerTexts[i]
		}
		items = append(items, models.FAQItem{Question: q, Answer: a})
	}
	return items
}

// isTOC requires >= 50% of links inside the region be anchor links.
func isTOC(region *goquery.Selection) bool {
	links := region.Find("a")
	total := links.Length()
	if total == 0 {
		return false
	}
	anchorCount := 0
	links.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "#") {
			anchorCount++
		}
	})
	return float64(anchorCount)/float64(total) >= 0.5
}

func dedupeByStart(elements []models.StructuralElement) []models.StructuralElement {
	seen := make(map[int]bool)
	out := make([]models.StructuralElement, 0, len(elements))
	for _, e := range elements {
		if seen[e.StartIndex] {
			continue
		}
		seen[e.StartIndex] = true
		out = append(out, e)
	}
	return out
}

// suppressAccordionsCoincidingWithFAQ drops accordion elements whose span is
// contained within a FAQ element's span; FAQ wins.
func suppressAccordionsCoincidingWithFAQ(elements []models.StructuralElement) []models.StructuralElement {
	var faqs []models.StructuralElement
	for _, e := range elements {
		if e.Type == models.StructFAQ {
			faqs = append(faqs, e)
		}
	}
	if len(faqs) == 0 {
		return elements
	}

	out := make([]models.StructuralElement, 0, len(elements))
	for _, e := range elements {
		if e.Type == models.StructAccordion {
			suppressed := false
			for _, f := range faqs {
				if e.StartIndex >= f.StartIndex && e.EndIndex <= f.EndIndex {
					suppressed = true
					break
				}
			}
			if suppressed {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func aggregateStats(elements []models.StructuralElement) models.StructuralStats {
	var stats models.StructuralStats
	for _, e := range elements {
		switch e.Type {
		case models.StructFAQ:
			stats.FAQModules++
		case models.StructTOC:
			stats.TOCSections++
		case models.StructBreadcrumb:
			stats.Breadcrumbs++
		case models.StructCTA:
			stats.TemplateCTAs++
		case models.StructAccordion:
			stats.Accordions++
		case models.StructTestimonial:
			stats.Testimonials++
		case models.StructAuthorBio:
			stats.AuthorBios++
		case models.StructRelatedPosts:
			stats.RelatedPosts++
		}
	}
	return stats
}

// At returns the innermost element containing offset, found by a linear
// scan that keeps the narrowest containing span (the input order does not
// matter).
func At(offset int, elements []models.StructuralElement) *models.StructuralElement {
	var best *models.StructuralElement
	bestWidth := -1
	for i := range elements {
		e := &elements[i]
		if offset < e.StartIndex || offset > e.EndIndex {
			continue
		}
		width := e.EndIndex - e.StartIndex
		if bestWidth == -1 || width < bestWidth {
			best = e
			bestWidth = width
		}
	}
	return best
}
