package markdown

import (
	"regexp"
	"strings"
)

var headingLine = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// normalizeHeadingHierarchy rewrites ATX heading levels so no heading skips
// more than one level deeper than the previous heading, and none exceed h6.
func normalizeHeadingHierarchy(text string) string {
	lines := strings.Split(text, "\n")
	prevLevel := 0
	for i, line := range lines {
		m := headingLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := len(m[1])
		if prevLevel > 0 && level > prevLevel+1 {
			level = prevLevel + 1
		}
		if level > 6 {
			level = 6
		}
		lines[i] = strings.Repeat("#", level) + " " + m[2]
		prevLevel = level
	}
	return strings.Join(lines, "\n")
}

var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^Home\s*>.*$`),
	regexp.MustCompile(`(?i)^Posted on .* by .*$`),
	regexp.MustCompile(`(?i)^\s*©.*$`),
	regexp.MustCompile(`(?i)^.*copyright\s+\d{4}.*$`),
	regexp.MustCompile(`(?i)^.*last updated.*$`),
}

// stripBoilerplateLines drops lines matching known template-boilerplate
// patterns and collapses immediately-repeated lines.
func stripBoilerplateLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var prev string
	first := true
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isBoilerplate(trimmed) {
			continue
		}
		if !first && trimmed != "" && trimmed == strings.TrimSpace(prev) {
			continue
		}
		out = append(out, line)
		prev = line
		first = false
	}
	return strings.Join(out, "\n")
}

func isBoilerplate(line string) bool {
	if line == "" {
		return false
	}
	for _, p := range boilerplatePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

var threeOrMoreBlankLines = regexp.MustCompile(`\n{3,}`)

// collapseWhitespace collapses runs of 3+ consecutive newlines to 2.
func collapseWhitespace(text string) string {
	return threeOrMoreBlankLines.ReplaceAllString(text, "\n\n")
}

var existingH1 = regexp.MustCompile(`(?m)^# (.+)$`)
var atxH1Line = regexp.MustCompile(`^# (.+)$`)

// hoistH1 ensures the document opens with the canonical h1. If an h1 already
// sits at position 0 and its text matches h1, the document is left alone;
// otherwise all existing h1 lines are removed and the canonical one is
// prepended. The bool return reports whether an h1 existed but none sat at
// position 0; an h1 at the top whose text differs is replaced without being
// flagged.
func hoistH1(text, h1 string) (string, bool) {
	h1 = strings.TrimSpace(h1)
	if h1 == "" {
		return text, false
	}

	trimmedDoc := strings.TrimLeft(text, "\n\t ")
	firstLineEnd := strings.IndexByte(trimmedDoc, '\n')
	firstLine := trimmedDoc
	if firstLineEnd != -1 {
		firstLine = trimmedDoc[:firstLineEnd]
	}

	matches := existingH1.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "# " + h1 + "\n\n" + strings.TrimLeft(text, "\n"), false
	}

	atTop := false
	h1AtTop := false
	if m := atxH1Line.FindStringSubmatch(strings.TrimSpace(firstLine)); m != nil {
		h1AtTop = true
		atTop = m[1] == h1
	}
	if atTop {
		return text, false
	}

	stripped := existingH1.ReplaceAllString(text, "")
	stripped = collapseWhitespace(stripped)
	return "# " + h1 + "\n\n" + strings.TrimLeft(stripped, "\n"), !h1AtTop
}
