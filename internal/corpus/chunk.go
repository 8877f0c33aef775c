// Copyright fmforge, 2026. All rights reserved.

package corpus

import (
	"fmt"
	"strings"

	"github.com/fmforge/fmforge/pkg/types"
)

// section is a span of text under one heading.
type section struct {
	heading string
	body    string
}

// ChunkDocument cuts cleaned text into retrieval chunks: split at
// headings, then at paragraph boundaries to respect the size cap, then
// merge undersized fragments forward. Chunk ids are sequential within
// the document, so re-chunking unchanged text yields identical ids.
func ChunkDocument(source, text string, cfg types.CorpusConfig) []types.Chunk {
	maxChars := cfg.MaxChunkChars
	if maxChars <= 0 {
		maxChars = 2500
	}
	minChars := cfg.MinChunkChars
	if minChars < 0 {
		minChars = 0
	}

	var pieces []section
	for _, sec := range splitByHeadings(text) {
		for _, body := range splitBySize(sec.body, maxChars) {
			pieces = append(pieces, section{heading: sec.heading, body: body})
		}
	}
	pieces = mergeSmall(pieces, minChars, maxChars)

	chunks := make([]types.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, types.Chunk{
			ChunkID: fmt.Sprintf("%s::chunk::%d", source, i),
			Source:  source,
			Heading: p.heading,
			Text:    strings.TrimSpace(p.body),
		})
	}
	return chunks
}

// splitByHeadings cuts text at markdown headings (#, ##, ###). Text
// before the first heading becomes a headingless section. Documents
// without headings yield a single section.
func splitByHeadings(text string) []section {
	lines := strings.Split(text, "\n")
	var sections []section
	heading := ""
	var body []string

	flush := func() {
		joined := strings.Join(body, "\n")
		if heading != "" || strings.TrimSpace(joined) != "" {
			sections = append(sections, section{heading: heading, body: joined})
		}
		body = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isHeading(trimmed) {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "# ") ||
		strings.HasPrefix(line, "## ") ||
		strings.HasPrefix(line, "### ")
}

// splitBySize cuts a body into pieces of at most maxChars runes,
// preferring paragraph boundaries and falling back to a hard cut for a
// single oversized paragraph.
func splitBySize(body string, maxChars int) []string {
	if len([]rune(body)) <= maxChars {
		return []string{body}
	}

	var pieces []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			pieces = append(pieces, cur.String())
		}
		cur.Reset()
		curLen = 0
	}

	for _, para := range strings.Split(body, "\n\n") {
		plen := len([]rune(para))
		if plen > maxChars {
			flush()
			for _, part := range hardSplit(para, maxChars) {
				pieces = append(pieces, part)
			}
			continue
		}
		if curLen > 0 && curLen+plen+2 > maxChars {
			flush()
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(para)
		curLen += plen
	}
	flush()
	return pieces
}

// hardSplit cuts an oversized paragraph at rune boundaries.
func hardSplit(para string, maxChars int) []string {
	runes := []rune(para)
	var out []string
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// mergeSmall folds pieces under minChars into their predecessor when the
// result stays within the cap. The first piece merges forward instead.
func mergeSmall(pieces []section, minChars, maxChars int) []section {
	if minChars <= 0 || len(pieces) < 2 {
		return pieces
	}

	var out []section
	for _, p := range pieces {
		plen := len([]rune(strings.TrimSpace(p.body)))
		if len(out) > 0 && plen < minChars {
			prev := &out[len(out)-1]
			if len([]rune(prev.body))+plen+2 <= maxChars {
				prev.body = prev.body + "\n\n" + p.body
				continue
			}
		}
		out = append(out, p)
	}

	// A tiny leading piece merges into its successor.
	if len(out) >= 2 && len([]rune(strings.TrimSpace(out[0].body))) < minChars {
		if len([]rune(out[0].body))+len([]rune(out[1].body))+2 <= maxChars {
			out[1].body = out[0].body + "\n\n" + out[1].body
			if out[1].heading == "" {
				out[1].heading = out[0].heading
			}
			out = out[1:]
		}
	}
	return out
}
