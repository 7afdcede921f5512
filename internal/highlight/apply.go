package highlight

import (
	"html"
	"regexp"
	"strings"

	"github.com/igusev/rgs/internal/types"
)

// DefaultMaxSnippets is the snippet cap used by Apply
const DefaultMaxSnippets = 3

// the bracketed match line inside a display_content fragment, raw or HTML-escaped
var matchLinePattern = regexp.MustCompile(`(?:>>>|&gt;&gt;&gt;) (.*) (?:<<<|&lt;&lt;&lt;)`)

// Apply attaches highlighted variants and snippets to each record
//
// Server fragments are preferred; anything the server did not highlight falls back
// to client-side highlighting of the record's own text. The input slice is not modified.
func Apply(records []types.StoredSearchResult, hl types.HighlightMap, q string) []types.StoredSearchResult {
	out := make([]types.StoredSearchResult, len(records))
	for i, rec := range records {
		display := hl.Fragments(rec.ID, types.FieldDisplayContent)
		if len(display) > 0 {
			rec.HighlightedDisplay = strings.Join(display, "\n")
		}
		displayLines := fragmentLines(display)

		rec.HighlightedMatch = matchHighlight(rec, hl, displayLines, q)
		rec.HighlightedContextBefore = contextHighlights(rec.ContextBefore,
			hl.Fragments(rec.ID, types.FieldContextBefore), displayLines, q)
		rec.HighlightedContextAfter = contextHighlights(rec.ContextAfter,
			hl.Fragments(rec.ID, types.FieldContextAfter), displayLines, q)
		rec.Snippets = Snippets(rec, hl, q, DefaultMaxSnippets)
		out[i] = rec
	}
	return out
}

func matchHighlight(rec types.StoredSearchResult, hl types.HighlightMap, displayLines []string, q string) string {
	// legacy per-field fragments
	for _, field := range []string{types.FieldMatchText, types.FieldFullLine} {
		if frags := hl.Fragments(rec.ID, field); len(frags) > 0 {
			return frags[0]
		}
	}

	for _, line := range displayLines {
		if m := matchLinePattern.FindStringSubmatch(line); m != nil && markOpenPattern.MatchString(m[1]) {
			return m[1]
		}
	}

	return Text(lineText(rec), q, "")
}

func contextHighlights(lines, legacy, displayLines []string, q string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if frag, ok := findFragment(line, legacy); ok {
			out[i] = frag
			continue
		}
		if frag, ok := findFragment(line, displayLines); ok {
			out[i] = frag
			continue
		}
		out[i] = Text(line, q, "")
	}
	return out
}

// findFragment returns the highlighted fragment whose plain text is exactly line
func findFragment(line string, fragments []string) (string, bool) {
	want := strings.TrimSpace(line)
	if want == "" {
		return "", false
	}
	for _, frag := range fragments {
		if !markOpenPattern.MatchString(frag) {
			continue
		}
		if strings.TrimSpace(html.UnescapeString(Strip(frag))) == want {
			return frag, true
		}
	}
	return "", false
}

func fragmentLines(fragments []string) []string {
	var lines []string
	for _, frag := range fragments {
		lines = append(lines, strings.Split(frag, "\n")...)
	}
	return lines
}

// lineText picks the best available text of the matched line
func lineText(rec types.StoredSearchResult) string {
	for _, s := range []string{rec.FullLineRaw, rec.FullLine, rec.MatchTextRaw, rec.MatchText} {
		if s != "" {
			return s
		}
	}
	return ""
}
