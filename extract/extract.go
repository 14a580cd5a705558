// Package extract runs the content extraction cascade: domain-override
// selectors, readability-style extraction, semantic tags, CMS patterns,
// and a fallback that never fails.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"archivecrawl/models"
)

// wordThreshold is the minimum word count a non-fallback strategy must
// clear to be considered a success.
const wordThreshold = 100

// Result is the outcome of running the cascade.
type Result struct {
	CleanHTML string
	WordCount int
	Method    models.ExtractionMethod
	JunkScore float64
}

// cmsSelectors is the fixed selector list for the CMS-pattern strategy.
var cmsSelectors = []string{
	".entry-content", ".post-content", ".article-content", ".content-area",
	"#content", ".main-content", "[itemprop=articleBody]",
}

// semanticSelectors is the fixed selector list for the semantic-tag strategy.
var semanticSelectors = []string{"article", "main", "[role=main]", "[itemprop=articleBody]"}

// Extract runs the cascade over the cleaned DOM (cleanedHTML, already passed
// through htmlclean.Clean) using rawHTML/pageURL for strategies that need
// the full document (readability) or absolute-URL resolution.
func Extract(cleanedHTML, rawHTML, pageURL string, domainSelectors []string) Result {
	if len(domainSelectors) > 0 {
		if doc, err := parse(cleanedHTML); err == nil {
			for _, sel := range domainSelectors {
				if sel == "" {
					continue
				}
				if html, wc, ok := trySelector(doc, sel); ok {
					return Result{CleanHTML: html, WordCount: wc, Method: models.ExtractionDomainOverride, JunkScore: junkScore(doc, html)}
				}
			}
		}
	}

	if html, wc, ok := tryReadability(rawHTML, pageURL); ok {
		doc, _ := parse(html)
		return Result{CleanHTML: html, WordCount: wc, Method: models.ExtractionReadability, JunkScore: junkScore(doc, html)}
	}

	if doc, err := parse(cleanedHTML); err == nil {
		for _, sel := range semanticSelectors {
			if html, wc, ok := trySelector(doc, sel); ok {
				return Result{CleanHTML: html, WordCount: wc, Method: models.ExtractionSemantic, JunkScore: junkScore(doc, html)}
			}
		}
		for _, sel := range cmsSelectors {
			if html, wc, ok := trySelector(doc, sel); ok {
				return Result{CleanHTML: html, WordCount: wc, Method: models.ExtractionCMSPattern, JunkScore: junkScore(doc, html)}
			}
		}
	}

	doc, err := parse(cleanedHTML)
	if err != nil {
		return Result{CleanHTML: cleanedHTML, WordCount: wordCount(cleanedHTML), Method: models.ExtractionFallback}
	}
	return Result{CleanHTML: cleanedHTML, WordCount: wordCount(doc.Text()), Method: models.ExtractionFallback, JunkScore: junkScore(doc, cleanedHTML)}
}

func parse(htmlStr string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
}

// trySelector returns the first element matching selector if its text
// clears the word threshold; later matches are not tried.
func trySelector(doc *goquery.Document, selector string) (string, int, bool) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", 0, false
	}
	html, err := goquery.OuterHtml(sel)
	if err != nil || strings.TrimSpace(html) == "" {
		return "", 0, false
	}
	wc := wordCount(sel.Text())
	if wc < wordThreshold {
		return "", 0, false
	}
	return html, wc, true
}

func tryReadability(rawHTML, pageURL string) (string, int, bool) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", 0, false
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return "", 0, false
	}
	content := strings.TrimSpace(article.Content)
	if content == "" {
		return "", 0, false
	}
	wc := wordCount(article.TextContent)
	if wc < wordThreshold {
		return "", 0, false
	}
	return content, wc, true
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// junkScore is the ratio of characters inside <a> elements to total text
// characters, clamped to [0,1].
func junkScore(doc *goquery.Document, fallbackHTML string) float64 {
	if doc == nil {
		return 0
	}
	total := len(doc.Text())
	if total == 0 {
		return 0
	}
	linkChars := 0
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		linkChars += len(sel.Text())
	})
	score := float64(linkChars) / float64(total)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
