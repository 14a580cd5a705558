// Package nav extracts primary/footer/utility/language navigation
// clusters, the breadcrumb trail, and per-link classification of
// in-content links by structural context.
package nav

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"archivecrawl/models"
	"archivecrawl/structural"
	"archivecrawl/urlnorm"
)

const maxMenuDepth = 3

var utilityPrefixes = []string{"tel:", "mailto:", "sms:", "whatsapp:"}

var socialDomains = map[string]bool{
	"facebook.com": true, "twitter.com": true, "x.com": true,
	"instagram.com": true, "linkedin.com": true, "youtube.com": true,
	"tiktok.com": true, "pinterest.com": true,
}

func isUtilityLink(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range utilityPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	domain := urlnorm.Domain(href)
	return socialDomains[domain]
}

var primaryNavSelectors = []string{
	"header nav.primary", "nav.main-menu", ".primary-menu", ".main-navigation",
	"header nav", "nav[role=navigation]",
}
var primaryNavFallback = "header"

var footerNavSelectors = []string{
	"footer nav", "footer .menu", "footer ul.menu",
}
var footerNavFallback = "footer"

var utilityContainerSelectors = []string{
	".utility-nav", ".header-utility", ".top-bar", "[class*=utility-header]",
}

var languageSwitcherSelectors = []string{
	".language-switcher", ".lang-switcher", "[class*=language-select]", "[class*=lang-switch]",
}

var breadcrumbSelectors = []string{
	`nav[aria-label="breadcrumb"]`, ".breadcrumb", ".breadcrumbs", `[itemtype*="BreadcrumbList"]`,
}

// mainContentSelectors names the region content links are enumerated from.
var mainContentSelectors = []string{
	"main", "#main-content", "#content", ".content", "article", ".entry-content", ".post-content", ".page-content", "[role=main]",
}

// Result bundles every cluster the extractor produces.
type Result struct {
	NavStructure models.NavStructure
}

// Extract runs the full navigation pass: clusters, breadcrumb, and
// content links. elements is the structural-detector output over the same
// raw HTML (for content-link source_type classification).
func Extract(doc *goquery.Document, rawHTML, pageURL string, elements []models.StructuralElement) models.NavStructure {
	ns := models.NavStructure{}

	ns.PrimaryNav = extractPrimaryNav(doc, pageURL)
	ns.FooterNav = extractFooterNav(doc, pageURL)
	ns.UtilityHeader = extractUtilityHeader(doc, pageURL)
	ns.LanguageSwitcher = extractLanguageSwitcher(doc, pageURL)
	ns.Breadcrumb = extractBreadcrumb(doc)
	ns.ContentLinks = extractContentLinks(doc, rawHTML, pageURL, elements)
	ns.StructuralStats = structuralStatsFromElements(elements)

	clusterCount := 0
	for _, n := range [][]models.NavItem{ns.PrimaryNav, ns.FooterNav, ns.UtilityHeader, ns.LanguageSwitcher} {
		if len(n) > 0 {
			clusterCount++
		}
	}
	ns.ExtractionMeta = models.ExtractionMeta{
		ClusterCount: clusterCount,
		HasMegaMenu:  hasMegaMenu(doc),
	}

	return ns
}

func structuralStatsFromElements(elements []models.StructuralElement) models.StructuralStats {
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

func hasMegaMenu(doc *goquery.Document) bool {
	return doc.Find("[class*=mega-menu]").Length() > 0
}

// extractPrimaryNav tries the priority selector list, accepting the first
// container yielding >= 3 internal non-utility links after filtering; falls
// back to a broad header scan.
func extractPrimaryNav(doc *goquery.Document, pageURL string) []models.NavItem {
	for _, sel := range primaryNavSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		items := walkMenu(container, pageURL, 0, nil)
		if countNonUtilityInternal(items) >= 3 {
			return items
		}
	}
	container := doc.Find(primaryNavFallback).First()
	if container.Length() > 0 {
		items := walkMenu(container, pageURL, 0, nil)
		if countNonUtilityInternal(items) >= 3 {
			return items
		}
	}
	return nil
}

func countNonUtilityInternal(items []models.NavItem) int {
	n := 0
	for _, it := range items {
		if !it.IsExternal && it.URL != "" && !isUtilityLink(it.URL) {
			n++
		}
	}
	return n
}

// extractFooterNav requires >= 2 links; falls back to a generic footer scan
// of any internal non-utility link, capped at 20.
func extractFooterNav(doc *goquery.Document, pageURL string) []models.NavItem {
	for _, sel := range footerNavSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		items := walkMenu(container, pageURL, 0, nil)
		if len(items) >= 2 {
			return items
		}
	}

	footer := doc.Find(footerNavFallback).First()
	if footer.Length() == 0 {
		return nil
	}
	var items []models.NavItem
	order := 0
	footer.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(items) >= 20 {
			return false
		}
		href, _ := a.Attr("href")
		if href == "" || isUtilityLink(href) {
			return true
		}
		abs, err := urlnorm.Resolve(href, pageURL)
		if err != nil || isExternal(abs, pageURL) {
			return true
		}
		items = append(items, models.NavItem{
			URL:        abs,
			Label:      ownText(a),
			Depth:      0,
			Order:      order,
			IsExternal: isExternal(abs, pageURL),
			LinkType:   classifyLinkType(a),
		})
		order++
		return true
	})
	return items
}

// extractUtilityHeader aggregates links under utility containers plus any
// header tel:/mailto: anchors, deduplicated by URL.
func extractUtilityHeader(doc *goquery.Document, pageURL string) []models.NavItem {
	seen := make(map[string]bool)
	var items []models.NavItem
	order := 0

	add := func(a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		key := href
		if seen[key] {
			return
		}
		var abs string
		var err error
		if strings.HasPrefix(strings.ToLower(href), "tel:") || strings.HasPrefix(strings.ToLower(href), "mailto:") {
			abs = href
		} else {
			abs, err = urlnorm.Resolve(href, pageURL)
			if err != nil {
				return
			}
		}
		seen[key] = true
		items = append(items, models.NavItem{
			URL:        abs,
			Label:      ownText(a),
			Depth:      0,
			Order:      order,
			IsExternal: isExternal(abs, pageURL),
			LinkType:   classifyLinkType(a),
		})
		order++
	}

	for _, sel := range utilityContainerSelectors {
		doc.Find(sel).Find("a[href]").Each(func(_ int, a *goquery.Selection) { add(a) })
	}
	doc.Find(`header a[href^="tel:"], header a[href^="mailto:"]`).Each(func(_ int, a *goquery.Selection) { add(a) })

	return items
}

// extractLanguageSwitcher accepts 2-10 short-labeled links, falling back to
// hreflang or a class-derived code for the label.
func extractLanguageSwitcher(doc *goquery.Document, pageURL string) []models.NavItem {
	for _, sel := range languageSwitcherSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		var items []models.NavItem
		order := 0
		container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if href == "" {
				return
			}
			abs, err := urlnorm.Resolve(href, pageURL)
			if err != nil {
				return
			}
			label := ownText(a)
			if label == "" {
				if hl, ok := a.Attr("hreflang"); ok {
					label = hl
				}
			}
			if label == "" {
				label = classDerivedCode(a)
			}
			if len(label) > 10 {
				return
			}
			items = append(items, models.NavItem{
				URL:        abs,
				Label:      label,
				Depth:      0,
				Order:      order,
				IsExternal: isExternal(abs, pageURL),
				LinkType:   classifyLinkType(a),
			})
			order++
		})
		if len(items) >= 2 && len(items) <= 10 {
			return items
		}
	}
	return nil
}

func classDerivedCode(a *goquery.Selection) string {
	class, _ := a.Attr("class")
	for _, c := range strings.Fields(class) {
		if len(c) == 2 && strings.ToLower(c) == c {
			return c
		}
	}
	return ""
}

// extractBreadcrumb tokenizes anchor+span text inside candidate containers,
// dropping separators and overlong items, falling back to a text split when
// the structured pass yields fewer than two items.
func extractBreadcrumb(doc *goquery.Document) []models.BreadcrumbItem {
	for _, sel := range breadcrumbSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		items := tokenizeBreadcrumb(container)
		if len(items) >= 2 {
			return items
		}
		text := strings.TrimSpace(container.Text())
		if text != "" {
			if split := splitBreadcrumbText(text); len(split) >= 2 {
				return split
			}
		}
	}
	return nil
}

var breadcrumbSeparators = map[string]bool{">": true, "/": true, "»": true, "›": true, "|": true}

func tokenizeBreadcrumb(container *goquery.Selection) []models.BreadcrumbItem {
	var items []models.BreadcrumbItem
	seenLabels := make(map[string]bool)
	container.Find("a, span").Each(func(_ int, node *goquery.Selection) {
		if node.Is("span") && node.Find("a").Length() > 0 {
			return
		}
		text := strings.TrimSpace(node.Text())
		if text == "" || breadcrumbSeparators[text] || len(text) > 100 {
			return
		}
		if seenLabels[text] {
			return
		}
		seenLabels[text] = true
		item := models.BreadcrumbItem{Label: text}
		if href, ok := node.Attr("href"); ok {
			item.URL = href
		}
		items = append(items, item)
	})
	return items
}

func splitBreadcrumbText(text string) []models.BreadcrumbItem {
	var sep string
	for _, candidate := range []string{">", "»", "/", "|"} {
		if strings.Contains(text, candidate) {
			sep = candidate
			break
		}
	}
	if sep == "" {
		return nil
	}
	parts := strings.Split(text, sep)
	var items []models.BreadcrumbItem
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || len(p) > 100 {
			continue
		}
		items = append(items, models.BreadcrumbItem{Label: p})
	}
	return items
}

// walkMenu renders a menu container as a depth-ordered NavItem tree: top-level
// <li> children are depth-0, nested ul.sub-menu|ul.dropdown-menu|ul recurse up
// to maxMenuDepth.
func walkMenu(container *goquery.Selection, pageURL string, depth int, parentLabels []string) []models.NavItem {
	if depth > maxMenuDepth {
		return nil
	}

	var items []models.NavItem
	order := 0

	lis := container.ChildrenFiltered("li")
	if lis.Length() == 0 {
		lis = container.ChildrenFiltered("ul").ChildrenFiltered("li")
	}

	lis.Each(func(_ int, li *goquery.Selection) {
		a := li.ChildrenFiltered("a").First()
		if a.Length() == 0 {
			a = li.Find("a").First()
		}

		submenu := li.ChildrenFiltered("ul.sub-menu, ul.dropdown-menu, ul").First()
		hasSubmenu := submenu.Length() > 0

		if a.Length() == 0 {
			return
		}
		href, _ := a.Attr("href")
		if href == "#" && !hasSubmenu {
			return
		}

		label := ownText(a)
		var url string
		if href != "" && href != "#" {
			abs, err := urlnorm.Resolve(href, pageURL)
			if err == nil {
				url = abs
			}
		}

		item := models.NavItem{
			URL:          url,
			Label:        label,
			Depth:        depth,
			Order:        order,
			ParentLabels: append([]string(nil), parentLabels...),
			IsExternal:   url != "" && isExternal(url, pageURL),
			LinkType:     classifyLinkType(a),
		}
		items = append(items, item)
		order++

		if hasSubmenu {
			childLabels := append(append([]string(nil), parentLabels...), label)
			items = append(items, walkMenu(submenu, pageURL, depth+1, childLabels)...)
		}
	})

	return renumberByDepth(items)
}

// renumberByDepth ensures order values are dense and zero-based within each
// cluster at a given depth (invariant 5).
func renumberByDepth(items []models.NavItem) []models.NavItem {
	counters := map[int]int{}
	for i := range items {
		d := items[i].Depth
		items[i].Order = counters[d]
		counters[d]++
	}
	return items
}

func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return strings.TrimSpace(sel.Text())
	}
	return text
}

func classifyLinkType(a *goquery.Selection) models.LinkType {
	if a.Find("img").Length() > 0 {
		return models.LinkImage
	}
	if a.Find("[class*=icon], svg, i.fa, i.fas, i.far").Length() > 0 && strings.TrimSpace(a.Text()) == "" {
		return models.LinkIcon
	}
	return models.LinkText
}

func isExternal(absURL, pageURL string) bool {
	return urlnorm.Domain(absURL) != urlnorm.Domain(pageURL)
}

// extractContentLinks enumerates all a[href] within the main content region
// in document order, excluding nav/header/footer/sidebar descendants,
// classifying each by the structural element at its HTML offset.
func extractContentLinks(doc *goquery.Document, rawHTML, pageURL string, elements []models.StructuralElement) []models.ContentLink {
	region := mainContentRegion(doc)
	if region.Length() == 0 {
		return nil
	}

	cursor := map[string]int{}
	var rawLinks []*goquery.Selection
	region.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if hasExcludedAncestor(a) {
			return
		}
		rawLinks = append(rawLinks, a)
	})

	total := len(rawLinks)
	var out []models.ContentLink
	for i, a := range rawLinks {
		href, _ := a.Attr("href")
		if href == "" {
			continue
		}
		label := ownText(a)
		if label == "" {
			if alt, ok := a.Find("img").Attr("alt"); ok {
				label = alt
			}
		}

		abs, err := urlnorm.Resolve(href, pageURL)
		if err != nil {
			continue
		}

		outer, _ := goquery.OuterHtml(a)
		offset := findOffset(rawHTML, outer, cursor)

		var st models.SourceType
		if el := structural.At(offset, elements); el != nil {
			st = mapStructuralToSourceType(el.Type)
		} else {
			st = models.SourceContextualBody
		}
		if strings.HasPrefix(href, "#") || (isExternal(abs, pageURL) == false && strings.Contains(href, "#")) {
			st = models.SourceTOCOrJump
		}

		heading := nearestHeading(a)

		out = append(out, models.ContentLink{
			URL:             abs,
			Label:           label,
			SourceType:      st,
			NearestHeading:  heading,
			BodyPositionPct: bodyPositionPct(i, total),
			IsExternal:      isExternal(abs, pageURL),
		})
	}
	return out
}

func findOffset(rawHTML, needle string, cursor map[string]int) int {
	if needle == "" {
		return -1
	}
	start := cursor[needle]
	idx := strings.Index(rawHTML[min(start, len(rawHTML)):], needle)
	if idx == -1 {
		idx = strings.Index(rawHTML, needle)
		if idx == -1 {
			return -1
		}
		cursor[needle] = idx + len(needle)
		return idx
	}
	absolute := min(start, len(rawHTML)) + idx
	cursor[needle] = absolute + len(needle)
	return absolute
}

func mapStructuralToSourceType(t models.StructuralType) models.SourceType {
	switch t {
	case models.StructFAQ:
		return models.SourceFAQModule
	case models.StructTOC:
		return models.SourceTOCOrJump
	case models.StructBreadcrumb:
		return models.SourceBreadcrumb
	case models.StructCTA:
		return models.SourceTemplateCTA
	case models.StructTestimonial:
		return models.SourceTestimonial
	case models.StructAuthorBio:
		return models.SourceAuthorBio
	case models.StructRelatedPosts:
		return models.SourceRelatedPosts
	case models.StructAccordion:
		return models.SourceFAQModule
	default:
		return models.SourceContextualBody
	}
}

func bodyPositionPct(index, total int) int {
	if total <= 0 {
		total = 1
	}
	pct := int(math.Round(100 * float64(index) / float64(total)))
	if pct > 100 {
		pct = 100
	}
	return pct
}

var excludedAncestorSelectors = []string{"nav", "header", "footer", "aside", "[class*=sidebar]"}

func hasExcludedAncestor(a *goquery.Selection) bool {
	for _, sel := range excludedAncestorSelectors {
		if a.ParentsFiltered(sel).Length() > 0 {
			return true
		}
		if a.Closest(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func mainContentRegion(doc *goquery.Document) *goquery.Selection {
	for _, sel := range mainContentSelectors {
		region := doc.Find(sel).First()
		if region.Length() > 0 {
			return region
		}
	}
	return doc.Find("body")
}

// nearestHeading walks previous siblings then parent-previous-siblings to
// find the closest preceding h1..h6.
func nearestHeading(a *goquery.Selection) string {
	node := a
	for depth := 0; depth < 10 && node.Length() > 0; depth++ {
		prev := node.Prev()
		for prev.Length() > 0 {
			if heading := headingText(prev); heading != "" {
				return heading
			}
			if h := prev.Find("h1,h2,h3,h4,h5,h6").Last(); h.Length() > 0 {
				return strings.TrimSpace(h.Text())
			}
			prev = prev.Prev()
		}
		node = node.Parent()
	}
	return ""
}

func headingText(sel *goquery.Selection) string {
	if sel.Is("h1,h2,h3,h4,h5,h6") {
		return strings.TrimSpace(sel.Text())
	}
	return ""
}

// Fingerprint is the MD5 of sorted non-external URLs joined by "|",
// truncated to 16 hex characters.
func Fingerprint(items []models.NavItem) string {
	var urls []string
	for _, it := range items {
		if !it.IsExternal && it.URL != "" {
			urls = append(urls, it.URL)
		}
	}
	sort.Strings(urls)
	sum := md5.Sum([]byte(strings.Join(urls, "|")))
	return hex.EncodeToString(sum[:])[:16]
}
