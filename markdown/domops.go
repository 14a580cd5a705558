package markdown

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// navListThreshold is the fraction of list items that must be single links
// for the whole list to be classified as navigation and dropped.
const navListThreshold = 0.8

// removeNavigationLists drops <ul>/<ol> elements where most items are bare
// links, since these are navigation/menu chrome rather than content; the
// same links still surface independently via the Navigation Extractor.
func removeNavigationLists(doc *goquery.Document) {
	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		items := list.ChildrenFiltered("li")
		total := items.Length()
		if total == 0 {
			return
		}
		linkItems := 0
		items.Each(func(_ int, li *goquery.Selection) {
			if isLinkItem(li) {
				linkItems++
			}
		})
		if float64(linkItems)/float64(total) >= navListThreshold {
			list.Remove()
		}
	})
}

func isLinkItem(li *goquery.Selection) bool {
	links := li.Find("a")
	if links.Length() != 1 {
		return false
	}
	liText := strings.TrimSpace(li.Text())
	linkText := strings.TrimSpace(links.First().Text())
	return liText != "" && liText == linkText
}

var base64ImagePattern = regexp.MustCompile(`^data:image/([a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=]{50,})`)

// sanitizeImages truncates inline base64 image sources to a stable
// placeholder so they don't bloat the Markdown output with binary data.
func sanitizeImages(doc *goquery.Document) {
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		m := base64ImagePattern.FindStringSubmatch(src)
		if m == nil {
			return
		}
		img.SetAttr("src", "data:image/"+m[1]+";base64,...")
	})
}
