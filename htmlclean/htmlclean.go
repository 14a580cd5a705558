// Package htmlclean strips scripts, styles, navigational chrome, ads, and
// empty anchors on a best-effort basis, with an optional domain-provided
// removal-selector list applied in the same pass.
package htmlclean

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// fixedRemoveSelectors are always stripped, regardless of domain override.
var fixedRemoveSelectors = []string{
	"script", "style", "noscript", "iframe",
	"nav", "header", "footer", "aside",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]", "[role=complementary]",
	".banner", ".menu", ".sidebar", ".modal", ".popup", ".ad", ".ads", ".advertisement",
	"[class*=cookie-banner]", "[class*=newsletter-signup]",
}

// Clean removes the fixed chrome selectors, any domain-supplied removeSelectors,
// HTML comments, and empty anchors (no text, no image descendant) from rawHTML.
// It returns the cleaned body's inner HTML. A DOM parse failure is non-fatal:
// the input is returned unmodified with a warning logged.
func Clean(rawHTML string, removeSelectors []string, log *logrus.Logger) string {
	if log == nil {
		log = logrus.StandardLogger()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		log.WithError(err).Warn("htmlclean: parse failed, returning input unmodified")
		return rawHTML
	}

	for _, sel := range fixedRemoveSelectors {
		doc.Find(sel).Remove()
	}
	for _, sel := range removeSelectors {
		if sel == "" {
			continue
		}
		doc.Find(sel).Remove()
	}

	removeComments(doc.Selection)
	removeEmptyAnchors(doc)

	body := doc.Find("body")
	if body.Length() == 0 {
		html, _ := doc.Html()
		return html
	}
	out, err := body.Html()
	if err != nil {
		log.WithError(err).Warn("htmlclean: serialization failed, returning input unmodified")
		return rawHTML
	}
	return out
}

// removeEmptyAnchors drops <a> elements with no text and no image descendant.
func removeEmptyAnchors(doc *goquery.Document) {
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		if strings.TrimSpace(sel.Text()) != "" {
			return
		}
		if sel.Find("img").Length() > 0 {
			return
		}
		sel.Remove()
	})
}

// removeComments walks the tree removing comment nodes. goquery does not
// expose a comment selector, so this descends the underlying html.Node tree.
func removeComments(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		node := child.Get(0)
		if node == nil {
			return
		}
		if node.Type == html.CommentNode {
			child.Remove()
			return
		}
		removeComments(child)
	})
}
