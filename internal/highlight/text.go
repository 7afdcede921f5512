package highlight

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	phrasePattern      = regexp.MustCompile(`"([^"]*)"`)
	operatorPattern    = regexp.MustCompile(`\b(AND|OR|NOT)\b|&&|\|\|`)
	fieldPrefixPattern = regexp.MustCompile(`(^|[\s(+\-!])[A-Za-z_][A-Za-z0-9_.]*:`)
	suffixPattern      = regexp.MustCompile(`[\^~][0-9.]*$`)
	wordSplitPattern   = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

	markPattern     = regexp.MustCompile(`(?s)<mark\b[^>]*>(.*?)</mark>`)
	markOpenPattern = regexp.MustCompile(`<mark\b[^>]*>`)
	markTagPattern  = regexp.MustCompile(`</?mark\b[^>]*>`)
)

// query syntax characters trimmed from the edges of bare terms
const edgeChars = `+-!()^~*?{}[]"'\`

// Segment is a run of plain or highlighted text
type Segment struct {
	Text        string `json:"text"`
	Highlighted bool   `json:"highlighted"`
}

// Stat summarizes the highlighting of one string
type Stat struct {
	TotalHighlights   int `json:"total_highlights"`
	HighlightedLength int `json:"highlighted_length"`
	TotalLength       int `json:"total_length"`
}

// ExtractTerms returns the distinct terms worth highlighting in a raw query
//
// Boolean operators and field prefixes are dropped, quoted spans are kept as single
// terms and bare tokens are also split at non-alphanumeric boundaries.
func ExtractTerms(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" || q == "*" || q == "*:*" {
		return nil
	}

	var terms []string
	seen := make(map[string]bool)
	add := func(term string) {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if !meaningful(term) || seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, term)
	}

	for _, m := range phrasePattern.FindAllStringSubmatch(q, -1) {
		add(m[1])
	}

	rest := phrasePattern.ReplaceAllString(q, " ")
	rest = fieldPrefixPattern.ReplaceAllString(rest, "${1}")
	rest = operatorPattern.ReplaceAllString(rest, " ")

	for _, tok := range strings.Fields(rest) {
		tok = suffixPattern.ReplaceAllString(tok, "")
		tok = strings.Trim(unescape(tok), edgeChars)
		add(tok)

		parts := wordSplitPattern.Split(tok, -1)
		if len(parts) < 2 {
			continue
		}
		for _, part := range parts {
			if utf8.RuneCountInString(part) >= 2 {
				add(part)
			}
		}
	}

	return terms
}

// meaningful rejects empty terms and terms made only of punctuation
func meaningful(term string) bool {
	for _, r := range term {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// unescape drops query-syntax backslash escapes
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// termsPattern matches any term case-insensitively, longest term first
func termsPattern(terms []string) *regexp.Regexp {
	sorted := append([]string(nil), terms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	quoted := make([]string, len(sorted))
	for i, t := range sorted {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

// Text HTML-escapes text and wraps every occurrence of the query terms in a mark element
//
// Matching runs on the unescaped text, so terms with markup characters such as <div>
// still match, and every occurrence is wrapped exactly once.
func Text(text, q, className string) string {
	if text == "" {
		return ""
	}
	terms := ExtractTerms(q)
	if len(terms) == 0 {
		return html.EscapeString(text)
	}
	if className == "" {
		className = DefaultClassName
	}
	open := `<mark class="` + html.EscapeString(className) + `">`

	matches := termsPattern(terms).FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return html.EscapeString(text)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] == m[1] {
			continue
		}
		b.WriteString(html.EscapeString(text[last:m[0]]))
		b.WriteString(open)
		b.WriteString(html.EscapeString(text[m[0]:m[1]]))
		b.WriteString(DefaultPostTag)
		last = m[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return b.String()
}

// ContainsTerm reports whether text contains any of the terms, ignoring case
func ContainsTerm(text string, terms []string) bool {
	if text == "" || len(terms) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// Parse splits marked-up text into plain and highlighted segments
// Adjacent highlighted spans stay separate segments
func Parse(s string) []Segment {
	if s == "" {
		return []Segment{}
	}

	segments := make([]Segment, 0, 4)
	last := 0
	for _, m := range markPattern.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			segments = append(segments, Segment{Text: s[last:m[0]]})
		}
		segments = append(segments, Segment{Text: s[m[2]:m[3]], Highlighted: true})
		last = m[1]
	}
	if last < len(s) {
		segments = append(segments, Segment{Text: s[last:]})
	}
	return segments
}

// Strip removes highlight tags and keeps their inner text
func Strip(s string) string {
	return markTagPattern.ReplaceAllString(s, "")
}

// Stats counts highlights and measures highlighted and total text length in characters
func Stats(s string) Stat {
	var st Stat
	st.TotalHighlights = len(markOpenPattern.FindAllStringIndex(s, -1))
	for _, seg := range Parse(s) {
		if seg.Highlighted {
			st.HighlightedLength += utf8.RuneCountInString(seg.Text)
		}
	}
	st.TotalLength = utf8.RuneCountInString(Strip(s))
	return st
}
