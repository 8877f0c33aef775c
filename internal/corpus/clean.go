// Copyright fmforge, 2026. All rights reserved.

package corpus

import (
	"regexp"
	"strings"
)

// Cleaning removes document noise before chunking: trailing reference
// sections, inline citation markers, page-number lines, and excess blank
// lines. The goal is retrieval quality; cleaning never has to be
// perfect, only conservative.

var (
	// referenceHeading matches a heading line that opens a reference
	// section, with or without markdown prefix or trailing colon.
	referenceHeading = regexp.MustCompile(`(?i)^#{0,4}\s*(references|bibliography|works cited|literature)\s*:?\s*$`)

	// numericCitation matches inline markers like [3], [1,2] or [4-7].
	numericCitation = regexp.MustCompile(`\[\d+(?:\s*[,-]\s*\d+)*\]`)

	// authorYearCitation matches markers like (Smith et al., 2020) or
	// (Doe & Roe 2019).
	authorYearCitation = regexp.MustCompile(`\([A-Z][A-Za-z.&'\x60 ,-]*\d{4}[a-z]?\)`)

	// pageNumberLine matches lines holding nothing but a page number.
	pageNumberLine = regexp.MustCompile(`^\s*\d{1,4}\s*$`)

	// blankRuns collapses three or more newlines into a paragraph break.
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// Clean runs the full cleaning pipeline over one document.
func Clean(text string) string {
	text = CutReferences(text)
	text = StripCitations(text)
	return normalize(text)
}

// CutReferences drops everything from a reference-section heading to the
// end of the document. Only headings in the second half count, so a
// table of contents entry near the top never truncates the body.
func CutReferences(text string) string {
	lines := strings.Split(text, "\n")
	cut := -1
	for i, line := range lines {
		if referenceHeading.MatchString(line) && i*2 >= len(lines) {
			cut = i
		}
	}
	if cut < 0 {
		return text
	}
	return strings.Join(lines[:cut], "\n")
}

// StripCitations removes inline citation markers.
func StripCitations(text string) string {
	text = numericCitation.ReplaceAllString(text, "")
	return authorYearCitation.ReplaceAllString(text, "")
}

// normalize trims trailing spaces, drops page-number lines, and
// collapses blank-line runs.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if pageNumberLine.MatchString(line) {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	joined := strings.Join(out, "\n")
	joined = blankRuns.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}
