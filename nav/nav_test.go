package nav

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivecrawl/models"
	"archivecrawl/structural"
)

func parseDoc(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

const pageHTML = `<html><body>
<header>
<nav class="main-menu">
  <ul>
    <li><a href="/">Home</a></li>
    <li><a href="/products">Products</a>
      <ul class="sub-menu">
        <li><a href="/products/a">Product A</a></li>
        <li><a href="/products/b">Product B</a></li>
      </ul>
    </li>
    <li><a href="/about">About</a></li>
  </ul>
</nav>
<a href="tel:+15551234567">Call us</a>
</header>
<main>
<nav aria-label="breadcrumb" class="breadcrumb">
  <a href="/">Home</a> &gt; <a href="/blog">Blog</a> &gt; <span>Current Post</span>
</nav>
<h2>Intro</h2>
<p>Some text with a <a href="/related-article">related article</a> link.</p>
<p><a href="https://external.com/page">external link</a></p>
</main>
<footer>
<ul class="menu">
  <li><a href="/privacy">Privacy</a></li>
  <li><a href="/terms">Terms</a></li>
</ul>
</footer>
</body></html>`

func TestExtract_PrimaryNavAndDepth(t *testing.T) {
	doc := parseDoc(t, pageHTML)
	ns := Extract(doc, pageHTML, "https://example.com/blog/post", nil)

	require.NotEmpty(t, ns.PrimaryNav)
	var depths []int
	for _, item := range ns.PrimaryNav {
		depths = append(depths, item.Depth)
	}
	assert.Contains(t, depths, 0)
	assert.Contains(t, depths, 1)
}

func TestExtract_FooterNav(t *testing.T) {
	doc := parseDoc(t, pageHTML)
	ns := Extract(doc, pageHTML, "https://example.com/blog/post", nil)
	require.Len(t, ns.FooterNav, 2)
}

func TestExtract_UtilityHeaderCapturesTel(t *testing.T) {
	doc := parseDoc(t, pageHTML)
	ns := Extract(doc, pageHTML, "https://example.com/blog/post", nil)
	require.NotEmpty(t, ns.UtilityHeader)
	assert.Equal(t, "tel:+15551234567", ns.UtilityHeader[0].URL)
}

func TestExtract_Breadcrumb(t *testing.T) {
	doc := parseDoc(t, pageHTML)
	ns := Extract(doc, pageHTML, "https://example.com/blog/post", nil)
	require.GreaterOrEqual(t, len(ns.Breadcrumb), 2)
	assert.Equal(t, "Home", ns.Breadcrumb[0].Label)
}

func TestExtract_ContentLinksClassification(t *testing.T) {
	doc := parseDoc(t, pageHTML)
	elements, _ := structural.Detect(pageHTML)
	ns := Extract(doc, pageHTML, "https://example.com/blog/post", elements)

	require.NotEmpty(t, ns.ContentLinks)
	found := false
	for _, link := range ns.ContentLinks {
		if strings.Contains(link.URL, "related-article") {
			found = true
			assert.Equal(t, models.SourceContextualBody, link.SourceType)
			assert.Equal(t, "Intro", link.NearestHeading)
		}
		if strings.Contains(link.URL, "external.com") {
			assert.True(t, link.IsExternal)
		}
	}
	assert.True(t, found)
}

func TestFingerprint_Deterministic(t *testing.T) {
	items := []models.NavItem{
		{URL: "https://example.com/b", IsExternal: false},
		{URL: "https://example.com/a", IsExternal: false},
		{URL: "https://external.com/x", IsExternal: true},
	}
	fp1 := Fingerprint(items)
	fp2 := Fingerprint([]models.NavItem{items[1], items[0], items[2]})
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 16)
}
