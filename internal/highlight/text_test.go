package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_SingleTerm(t *testing.T) {
	got := Text("hello world", "hello", "")
	assert.Equal(t, `<mark class="highlight">hello</mark> world`, got)
	assert.Equal(t, 1, strings.Count(got, "<mark"))
}

func TestText_CasePreserved(t *testing.T) {
	got := Text("Hello HELLO hello", "hello", "")
	assert.Equal(t, `<mark class="highlight">Hello</mark> <mark class="highlight">HELLO</mark> <mark class="highlight">hello</mark>`, got)
}

func TestText_EscapesMarkup(t *testing.T) {
	got := Text(`<script>alert("xss")</script>`, "script", "")
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;")
	assert.Contains(t, got, "&gt;")
	assert.Contains(t, got, `<mark class="highlight">script</mark>`)
}

func TestText_TermWithMarkupCharacters(t *testing.T) {
	got := Text("wrap <div> here", "<div>", "")
	assert.Equal(t, `wrap <mark class="highlight">&lt;div&gt;</mark> here`, got)
}

func TestText_BooleanOperatorsNotHighlighted(t *testing.T) {
	got := Text("error found", "error AND found", "")
	assert.Contains(t, got, `<mark class="highlight">error</mark>`)
	assert.Contains(t, got, `<mark class="highlight">found</mark>`)
	assert.NotContains(t, got, ">AND<")

	got = Text("this AND that", "this AND that", "")
	assert.Equal(t, `<mark class="highlight">this</mark> AND <mark class="highlight">that</mark>`, got)
}

func TestText_CustomClass(t *testing.T) {
	assert.Equal(t, `<mark class="hit">a1</mark>`, Text("a1", "a1", "hit"))
}

func TestText_EmptyInputs(t *testing.T) {
	assert.Equal(t, "", Text("", "hello", ""))
	assert.Equal(t, "a &amp; b", Text("a & b", "", ""))
	assert.Equal(t, "a &amp; b", Text("a & b", "   ", ""))
}

func TestText_NoRewrapOfOverlaps(t *testing.T) {
	// "hello world" and "world" overlap; the longer term wins and nothing is wrapped twice
	got := Text("say hello world", `"hello world" world`, "")
	assert.Equal(t, `say <mark class="highlight">hello world</mark>`, got)
	assert.Equal(t, 1, strings.Count(got, "<mark"))
}

func TestText_NoMatch(t *testing.T) {
	assert.Equal(t, "x &lt; y", Text("x < y", "zzz", ""))
}

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: nil},
		{query: "*:*", want: nil},
		{query: "hello", want: []string{"hello"}},
		{query: "error AND found", want: []string{"error", "found"}},
		{query: "NOT bad OR good", want: []string{"bad", "good"}},
		{query: "file_name:main.go", want: []string{"main.go", "main", "go"}},
		{query: `"hello world" again`, want: []string{"hello world", "again"}},
		{query: "getData()", want: []string{"getData"}},
		{query: "Hello hello", want: []string{"Hello"}},
		{query: "boost^2 fuzzy~1", want: []string{"boost", "fuzzy"}},
		{query: "&& ||", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTerms(tt.query))
		})
	}
}

func TestParse(t *testing.T) {
	segs := Parse("a <mark>b</mark> c <mark>d</mark> e")
	require.Len(t, segs, 5)

	texts := make([]string, len(segs))
	flags := make([]bool, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
		flags[i] = s.Highlighted
	}
	assert.Equal(t, []string{"a ", "b", " c ", "d", " e"}, texts)
	assert.Equal(t, []bool{false, true, false, true, false}, flags)
}

func TestParse_AdjacentHighlightsStaySeparate(t *testing.T) {
	segs := Parse(`<mark class="highlight">a</mark><mark>b</mark>`)
	assert.Equal(t, []Segment{{Text: "a", Highlighted: true}, {Text: "b", Highlighted: true}}, segs)
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.NotNil(t, Parse(""))
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "a b c", Strip(`a <mark class="highlight">b</mark> c`))
	assert.Equal(t, "plain", Strip("plain"))
}

func TestStrip_RoundTrip(t *testing.T) {
	cases := []struct{ text, query string }{
		{"hello world", "hello"},
		{"The quick brown fox", "quick OR fox"},
		{"func getData returns data", "getData data"},
		{"nothing matches here", "zzz"},
		{"Mixed CASE case", "case"},
	}
	for _, c := range cases {
		assert.Equal(t, c.text, Strip(Text(c.text, c.query, "")), "text %q query %q", c.text, c.query)
	}
}

func TestStats(t *testing.T) {
	st := Stats(`<mark class="highlight">hello</mark> big <mark>world</mark>`)
	assert.Equal(t, Stat{TotalHighlights: 2, HighlightedLength: 10, TotalLength: 15}, st)

	assert.Equal(t, Stat{}, Stats(""))
	assert.Equal(t, Stat{TotalLength: 5}, Stats("plain"))
}
