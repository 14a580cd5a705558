package metadata

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func TestExtract_FullPriorityChain(t *testing.T) {
	raw := `<html lang="en-US"><head>
<title>Page Title</title>
<meta name="description" content="the meta description">
<link rel="canonical" href="/canonical-path">
<meta property="og:image" content="/images/hero.png">
</head><body><h1>Heading One</h1></body></html>`

	doc := parse(t, raw)
	m := Extract(doc, "https://example.com/page")

	assert.Equal(t, "Page Title", m.Title)
	assert.Equal(t, "Heading One", m.H1)
	assert.Equal(t, "the meta description", m.MetaDescription)
	assert.Equal(t, "https://example.com/canonical-path", m.Canonical)
	assert.Equal(t, "https://example.com/images/hero.png", m.OGImage)
	assert.Equal(t, "en", m.Language)
	assert.False(t, m.HasMultipleH1)
}

func TestExtract_TitleFallsBackToOGThenH1(t *testing.T) {
	doc := parse(t, `<html><head><meta property="og:title" content="OG Title"></head><body></body></html>`)
	m := Extract(doc, "https://example.com/")
	assert.Equal(t, "OG Title", m.Title)

	doc2 := parse(t, `<html><body><h1>Fallback H1</h1></body></html>`)
	m2 := Extract(doc2, "https://example.com/")
	assert.Equal(t, "Fallback H1", m2.Title)
}

func TestExtract_MultipleH1Flag(t *testing.T) {
	doc := parse(t, `<html><body><h1>One</h1><h1>Two</h1></body></html>`)
	m := Extract(doc, "https://example.com/")
	assert.True(t, m.HasMultipleH1)
	assert.Equal(t, "One", m.H1)
}

func TestExtract_H1Truncation(t *testing.T) {
	long := strings.Repeat("a", 600)
	doc := parse(t, `<html><body><h1>`+long+`</h1></body></html>`)
	m := Extract(doc, "https://example.com/")
	assert.Len(t, m.H1, maxH1Len)
}

func TestExtract_LanguageFallback(t *testing.T) {
	doc := parse(t, `<html><head><meta http-equiv="content-language" content="FR"></head><body></body></html>`)
	m := Extract(doc, "https://example.com/")
	assert.Equal(t, "fr", m.Language)
}
