package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivecrawl/structural"
)

const faqPageHTML = `<html><body>
<h1>Old Title</h1>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"FAQPage","mainEntity":[
 {"@type":"Question","name":"What is this?","acceptedAnswer":{"@type":"Answer","text":"It is a test."}}
]}
</script>
<main>
<p>Some intro content about the article body with enough padding words to exceed the extraction threshold comfortably here.</p>
<img src="data:image/png;base64,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA">
</main>
</body></html>`

func TestBuild_FAQMarkersAndQA(t *testing.T) {
	elements, stats := structural.Detect(faqPageHTML)
	require.GreaterOrEqual(t, stats.FAQModules, 1)

	result, err := Build(faqPageHTML, elements, "https://example.com/article", "Frequently Asked Stuff")
	require.NoError(t, err)

	assert.Contains(t, result.MarkdownEnhanced, "<!-- STRUCT:FAQ:START -->")
	assert.Contains(t, result.MarkdownEnhanced, "<!-- STRUCT:FAQ:Q -->")
	assert.Contains(t, result.MarkdownEnhanced, "<!-- STRUCT:FAQ:A -->")
	assert.Contains(t, result.MarkdownEnhanced, "<!-- STRUCT:FAQ:END -->")
	assert.Contains(t, result.MarkdownEnhanced, "What is this?")
	assert.Contains(t, result.MarkdownEnhanced, "It is a test.")

	assert.NotContains(t, result.Markdown, "STRUCT:")
	assert.Equal(t, StripMarkers(result.MarkdownEnhanced), result.Markdown)
}

func TestBuild_H1HoistingReplacesMismatch(t *testing.T) {
	elements, _ := structural.Detect(faqPageHTML)
	result, err := Build(faqPageHTML, elements, "https://example.com/article", "Frequently Asked Stuff")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(strings.TrimLeft(result.Markdown, "\n"), "# Frequently Asked Stuff"))
	assert.False(t, result.H1IssueDetected)
	assert.NotContains(t, result.Markdown, "Old Title")
}

func TestBuild_H1NotAtTopIsHoistedAndFlagged(t *testing.T) {
	raw := `<html><body><p>Some lead-in paragraph with enough padding words to survive extraction thresholds here.</p><h1>Old Title</h1><main><p>Body text that is long enough to pass extraction thresholds comfortably in this fixture.</p></main></body></html>`
	result, err := Build(raw, nil, "https://example.com/y", "Correct Title")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(strings.TrimLeft(result.Markdown, "\n"), "# Correct Title"))
	assert.True(t, result.H1IssueDetected)
	assert.NotContains(t, result.Markdown, "Old Title")
}

func TestBuild_H1AlreadyCorrectIsLeftAlone(t *testing.T) {
	raw := `<html><body><h1>Correct Title</h1><main><p>Body text that is long enough to pass extraction thresholds comfortably in this fixture.</p></main></body></html>`
	result, err := Build(raw, nil, "https://example.com/x", "Correct Title")
	require.NoError(t, err)
	assert.False(t, result.H1IssueDetected)
	assert.Equal(t, 1, strings.Count(result.Markdown, "# Correct Title"))
}

func TestBuild_Base64ImageTruncated(t *testing.T) {
	elements, _ := structural.Detect(faqPageHTML)
	result, err := Build(faqPageHTML, elements, "https://example.com/article", "Frequently Asked Stuff")
	require.NoError(t, err)
	assert.Contains(t, result.Markdown, "data:image/png;base64,...")
	assert.NotContains(t, result.Markdown, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
}

func TestNormalizeHeadingHierarchy_ClampsSkippedLevels(t *testing.T) {
	in := "# Title\n\n## Section\n\n#### Too Deep\n"
	out := normalizeHeadingHierarchy(in)
	assert.Contains(t, out, "### Too Deep")
	assert.NotContains(t, out, "#### Too Deep")
}

func TestStripBoilerplateLines_RemovesKnownPatterns(t *testing.T) {
	in := "Real content line.\nHome > Blog > Post\nPosted on Jan 1 by Admin\n© 2024 Example Inc.\nLast updated: today\nMore real content."
	out := stripBoilerplateLines(in)
	assert.Contains(t, out, "Real content line.")
	assert.Contains(t, out, "More real content.")
	assert.NotContains(t, out, "Home >")
	assert.NotContains(t, out, "Posted on")
	assert.NotContains(t, out, "©")
	assert.NotContains(t, out, "Last updated")
}

func TestStripBoilerplateLines_CollapsesAdjacentDuplicates(t *testing.T) {
	in := "Same line.\nSame line.\nDifferent line."
	out := stripBoilerplateLines(in)
	assert.Equal(t, 1, strings.Count(out, "Same line."))
}

func TestCollapseWhitespace_LimitsBlankLineRuns(t *testing.T) {
	in := "a\n\n\n\n\nb"
	out := collapseWhitespace(in)
	assert.Equal(t, "a\n\nb", out)
}

func TestStripMarkers_RemovesCommentsAndCollapses(t *testing.T) {
	in := "# Title\n\n<!-- STRUCT:FAQ:START -->\n\nContent\n\n<!-- STRUCT:FAQ:END -->\n"
	out := StripMarkers(in)
	assert.NotContains(t, out, "STRUCT:")
	assert.Contains(t, out, "Content")
}
