package highlight

import "github.com/igusev/rgs/internal/types"

// Snippets returns at most limit highlighted excerpts for a record
//
// Server fragments of the natural-language aggregate win, then the code aggregate,
// then the highlighted lines of the display block. Otherwise the first line among
// full line, context after and context before that contains a query term is
// highlighted locally.
func Snippets(rec types.StoredSearchResult, hl types.HighlightMap, q string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxSnippets
	}

	for _, field := range []string{types.FieldContentAll, types.FieldCodeAll} {
		if frags := hl.Fragments(rec.ID, field); len(frags) > 0 {
			return capped(frags, limit)
		}
	}
	if lines := markedLines(hl.Fragments(rec.ID, types.FieldDisplayContent)); len(lines) > 0 {
		return capped(lines, limit)
	}

	snippets := []string{}
	terms := ExtractTerms(q)
	if len(terms) == 0 {
		return snippets
	}

	candidates := make([]string, 0, 1+len(rec.ContextAfter)+len(rec.ContextBefore))
	candidates = append(candidates, lineText(rec))
	candidates = append(candidates, rec.ContextAfter...)
	candidates = append(candidates, rec.ContextBefore...)

	for _, line := range candidates {
		if ContainsTerm(line, terms) {
			return append(snippets, Text(line, q, ""))
		}
	}
	return snippets
}

// markedLines returns the highlighted lines of display_content fragments,
// with the match line markers removed
func markedLines(fragments []string) []string {
	var out []string
	for _, line := range fragmentLines(fragments) {
		if m := matchLinePattern.FindStringSubmatch(line); m != nil {
			line = m[1]
		}
		if markOpenPattern.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}

func capped(frags []string, limit int) []string {
	if len(frags) > limit {
		frags = frags[:limit]
	}
	return append([]string{}, frags...)
}
