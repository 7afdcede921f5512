package highlight

import (
	"strings"
	"testing"

	"github.com/igusev/rgs/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() types.StoredSearchResult {
	return types.StoredSearchResult{
		ID:            "s1_app_js_line10_0",
		MatchText:     "fetchUser",
		MatchTextRaw:  "fetchUser",
		FullLine:      "const user = fetchUser(id)",
		FullLineRaw:   "const user = fetchUser(id)",
		ContextBefore: []string{"// load the user", "function load(id) {"},
		ContextAfter:  []string{"return user", "}"},
	}
}

func TestBuildParams_Defaults(t *testing.T) {
	p := BuildParams(Overrides{})
	assert.Equal(t, "true", p.Get(ParamEnabled))
	assert.Equal(t, "display_content", p.Get(ParamFields))
	assert.Equal(t, DefaultPreTag, p.Get(ParamPre))
	assert.Equal(t, DefaultPostTag, p.Get(ParamPost))
	assert.Equal(t, "150", p.Get(ParamFragSize))
	assert.Equal(t, "51200", p.Get(ParamMaxAnalyzedChars))
	assert.Equal(t, "true", p.Get(ParamMultiTerm))
	assert.Equal(t, "true", p.Get(ParamMergeContiguous))
	assert.False(t, strings.Contains(p.Get(ParamFields), ","), "only the canonical field is highlighted")
}

func TestBuildParams_Overrides(t *testing.T) {
	p := BuildParams(Overrides{PreTag: "<em>", PostTag: "</em>", FragmentSize: 80, Snippets: 5})
	assert.Equal(t, "<em>", p.Get(ParamPre))
	assert.Equal(t, "</em>", p.Get(ParamPost))
	assert.Equal(t, "80", p.Get(ParamFragSize))
	assert.Equal(t, "5", p.Get(ParamSnippets))
}

func TestApply_ClientFallback(t *testing.T) {
	rec := sampleRecord()
	out := Apply([]types.StoredSearchResult{rec}, nil, "user")
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, `const <mark class="highlight">user</mark> = fetch<mark class="highlight">User</mark>(id)`, got.HighlightedMatch)
	require.Len(t, got.HighlightedContextBefore, len(rec.ContextBefore))
	require.Len(t, got.HighlightedContextAfter, len(rec.ContextAfter))
	assert.Equal(t, `// load the <mark class="highlight">user</mark>`, got.HighlightedContextBefore[0])
	assert.Equal(t, "function load(id) {", got.HighlightedContextBefore[1])
	assert.Equal(t, "}", got.HighlightedContextAfter[1])
	assert.Empty(t, got.HighlightedDisplay)
	assert.Equal(t, []string{got.HighlightedMatch}, got.Snippets)

	// input untouched
	assert.Empty(t, rec.HighlightedMatch)
}

func TestApply_ServerDisplayFragment(t *testing.T) {
	rec := sampleRecord()
	frag := "function load(id) {\n&gt;&gt;&gt; const user = <mark>fetchUser</mark>(id) &lt;&lt;&lt;\n<mark>return</mark> user"
	hl := types.HighlightMap{rec.ID: {types.FieldDisplayContent: {frag}}}

	out := Apply([]types.StoredSearchResult{rec}, hl, "fetchUser")
	got := out[0]

	assert.Equal(t, frag, got.HighlightedDisplay)
	assert.Equal(t, "const user = <mark>fetchUser</mark>(id)", got.HighlightedMatch)
	assert.Equal(t, "<mark>return</mark> user", got.HighlightedContextAfter[0])
	// no server highlight for this line, client fallback finds nothing either
	assert.Equal(t, "// load the user", got.HighlightedContextBefore[0])
}

func TestApply_LegacyMatchFieldVerbatim(t *testing.T) {
	rec := sampleRecord()
	hl := types.HighlightMap{rec.ID: {
		types.FieldMatchText:     {"<em>fetchUser</em>"},
		types.FieldContextBefore: {"// load the <mark>user</mark>"},
	}}

	got := Apply([]types.StoredSearchResult{rec}, hl, "fetchUser")[0]
	assert.Equal(t, "<em>fetchUser</em>", got.HighlightedMatch)
	assert.Equal(t, "// load the <mark>user</mark>", got.HighlightedContextBefore[0])
}

func TestApply_MalformedRecord(t *testing.T) {
	out := Apply([]types.StoredSearchResult{{ID: "broken"}}, types.HighlightMap{"broken": nil}, "x")
	require.Len(t, out, 1)
	assert.Empty(t, out[0].HighlightedMatch)
	assert.NotNil(t, out[0].Snippets)
	assert.Empty(t, out[0].Snippets)
	assert.Empty(t, out[0].HighlightedContextBefore)
}

func TestSnippets_PreferenceOrder(t *testing.T) {
	rec := sampleRecord()

	hl := types.HighlightMap{rec.ID: {
		types.FieldContentAll: {"a", "b", "c", "d"},
		types.FieldCodeAll:    {"code"},
	}}
	assert.Equal(t, []string{"a", "b"}, Snippets(rec, hl, "user", 2))

	hl = types.HighlightMap{rec.ID: {types.FieldCodeAll: {"code1", "code2"}}}
	assert.Equal(t, []string{"code1", "code2"}, Snippets(rec, hl, "user", 3))
}

func TestSnippets_DisplayContentFragments(t *testing.T) {
	rec := sampleRecord()
	frag := "function load(id) {\n&gt;&gt;&gt; const user = <mark>fetchUser</mark>(id) &lt;&lt;&lt;\n<mark>return</mark> user"
	hl := types.HighlightMap{rec.ID: {types.FieldDisplayContent: {frag}}}

	assert.Equal(t, []string{"const user = <mark>fetchUser</mark>(id)", "<mark>return</mark> user"}, Snippets(rec, hl, "fetchUser", 3))
	assert.Equal(t, []string{"const user = <mark>fetchUser</mark>(id)"}, Snippets(rec, hl, "fetchUser", 1))

	// aggregate fragments still win
	hl[rec.ID][types.FieldCodeAll] = []string{"code"}
	assert.Equal(t, []string{"code"}, Snippets(rec, hl, "fetchUser", 3))

	// a display block without marks falls back to the client
	plain := types.HighlightMap{rec.ID: {types.FieldDisplayContent: {"&gt;&gt;&gt; const user = fetchUser(id) &lt;&lt;&lt;"}}}
	assert.Equal(t, []string{`const user = <mark class="highlight">fetchUser</mark>(id)`}, Snippets(rec, plain, "fetchUser", 3))
}

func TestSnippets_ContextFallbackOrder(t *testing.T) {
	rec := sampleRecord()

	// not on the match line, present both after and before: after wins
	rec.ContextBefore = []string{"needle before"}
	rec.ContextAfter = []string{"nothing", "needle after"}
	got := Snippets(rec, nil, "needle", 3)
	assert.Equal(t, []string{`<mark class="highlight">needle</mark> after`}, got)

	rec.ContextAfter = nil
	got = Snippets(rec, nil, "needle", 3)
	assert.Equal(t, []string{`<mark class="highlight">needle</mark> before`}, got)

	assert.Empty(t, Snippets(rec, nil, "absent", 3))
	assert.Empty(t, Snippets(rec, nil, "", 3))
}

func TestSnippets_NeverExceedsLimit(t *testing.T) {
	rec := sampleRecord()
	hl := types.HighlightMap{rec.ID: {types.FieldContentAll: {"1", "2", "3", "4", "5"}}}
	for limit := 1; limit <= 6; limit++ {
		assert.LessOrEqual(t, len(Snippets(rec, hl, "x", limit)), limit)
	}
	assert.Len(t, Snippets(rec, hl, "x", 0), DefaultMaxSnippets)
}
