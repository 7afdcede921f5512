package ripgrep

import (
	"strings"
	"testing"

	"github.com/igusev/rgs/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two matches in a.go sharing context line 4, one match in b.go
const fixture = `{"type":"begin","data":{"path":{"text":"a.go"}}}
{"type":"context","data":{"path":{"text":"a.go"},"lines":{"text":"package a\n"},"line_number":1,"absolute_offset":0,"submatches":[]}}
{"type":"context","data":{"path":{"text":"a.go"},"lines":{"text":"\n"},"line_number":2,"absolute_offset":10,"submatches":[]}}
{"type":"match","data":{"path":{"text":"a.go"},"lines":{"text":"func needle() { needle() }\n"},"line_number":3,"absolute_offset":11,"submatches":[{"match":{"text":"needle"},"start":5,"end":11},{"match":{"text":"needle"},"start":16,"end":22}]}}
{"type":"context","data":{"path":{"text":"a.go"},"lines":{"text":"// between\n"},"line_number":4,"absolute_offset":38,"submatches":[]}}
{"type":"match","data":{"path":{"text":"a.go"},"lines":{"text":"var needle = 1\n"},"line_number":5,"absolute_offset":49,"submatches":[{"match":{"text":"needle"},"start":4,"end":10}]}}
{"type":"end","data":{"path":{"text":"a.go"},"binary_offset":null,"stats":{}}}
{"type":"begin","data":{"path":{"bytes":"Yi5nbw=="}}}
{"type":"match","data":{"path":{"bytes":"Yi5nbw=="},"lines":{"text":"needle\r\n"},"line_number":1,"absolute_offset":0,"submatches":[{"match":{"text":"needle"},"start":0,"end":6}]}}
{"type":"context","data":{"path":{"bytes":"Yi5nbw=="},"lines":{"text":"after\n"},"line_number":2,"absolute_offset":8,"submatches":[]}}
{"type":"end","data":{"path":{"bytes":"Yi5nbw=="},"binary_offset":null,"stats":{}}}
{"type":"summary","data":{"elapsed_total":{"secs":0,"nanos":1,"human":"0s"},"stats":{}}}
`

func collect(t *testing.T, input string, w Window) []types.SearchResult {
	t.Helper()
	var got []types.SearchResult
	err := ParseStream(strings.NewReader(input), w, func(r types.SearchResult) bool {
		got = append(got, r)
		return true
	})
	require.NoError(t, err)
	return got
}

func TestParseStream(t *testing.T) {
	got := collect(t, fixture, Window{Before: 2, After: 2})
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "a.go", first.File)
	assert.Equal(t, 3, first.Line)
	assert.Equal(t, 5, first.Column)
	assert.Equal(t, "func needle() { needle() }", first.Content)
	assert.Len(t, first.Submatches, 2)
	assert.Equal(t, types.Submatch{Start: 16, End: 22, Text: "needle"}, first.Submatches[1])
	assert.Equal(t, []types.ContextLine{{Line: 1, Text: "package a"}, {Line: 2, Text: ""}, {Line: 4, Text: "// between"}}, first.Context)
	assert.InDelta(t, 1.1, first.Score, 1e-9)

	second := got[1]
	assert.Equal(t, 5, second.Line)
	assert.Equal(t, []types.ContextLine{{Line: 4, Text: "// between"}}, second.Context, "shared context line belongs to both matches")

	third := got[2]
	assert.Equal(t, "b.go", third.File, "bytes paths are base64 decoded")
	assert.Equal(t, "needle", third.Content)
	assert.Equal(t, []types.ContextLine{{Line: 2, Text: "after"}}, third.Context)
	assert.Equal(t, 1.0, third.Score)
}

func TestParseStream_WindowClips(t *testing.T) {
	got := collect(t, fixture, Window{Before: 1, After: 0})
	require.Len(t, got, 3)
	assert.Equal(t, []types.ContextLine{{Line: 2, Text: ""}}, got[0].Context)
	assert.Empty(t, got[2].Context)
}

func TestParseStream_Stop(t *testing.T) {
	var got []types.SearchResult
	err := ParseStream(strings.NewReader(fixture), Window{}, func(r types.SearchResult) bool {
		got = append(got, r)
		return false
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestParseStream_Malformed(t *testing.T) {
	err := ParseStream(strings.NewReader("not json\n"), Window{}, func(types.SearchResult) bool { return true })
	assert.Error(t, err)
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		opts types.SearchOptions
		want []string
	}{
		{
			name: "literal defaults",
			opts: types.SearchOptions{Query: "x"},
			want: []string{"-i", "-F", "--", "x", "."},
		},
		{
			name: "regex with flags and globs",
			opts: types.SearchOptions{
				Query:              "a.*b",
				UseRegex:           true,
				CaseSensitive:      true,
				WholeWord:          true,
				IncludePatterns:    []string{"*.go"},
				ExcludePatterns:    []string{"vendor/**"},
				ContextLinesBefore: 1,
				ContextLinesAfter:  3,
			},
			want: []string{"-s", "-w", "-g", "*.go", "-g", "!vendor/**", "-B", "1", "-A", "3", "--", "a.*b", "."},
		},
		{
			name: "legacy context",
			opts: types.SearchOptions{Query: "-x", ContextLines: 2},
			want: []string{"-i", "-F", "-B", "2", "-A", "2", "--", "-x", "."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildArgs(tt.opts, ""))
		})
	}
}

func TestParseCounts(t *testing.T) {
	out := []byte("a.go:3\nC:\\dir\\b.go:1\ngarbage\n:5\n")
	assert.Equal(t, []FileCount{{File: "a.go", Count: 3}, {File: `C:\dir\b.go`, Count: 1}}, parseCounts(out))
}

func TestSymbolPattern(t *testing.T) {
	p := SymbolPattern("Load.All")
	assert.Contains(t, p, `Load\.All\b`)
	assert.Contains(t, p, "func|")
}

func TestClip(t *testing.T) {
	three := types.SearchResult{Submatches: []types.Submatch{{Start: 0}, {Start: 7}, {Start: 14}}}

	tests := []struct {
		name     string
		res      types.SearchResult
		n        int
		wantKept int
		wantSubs int
	}{
		{name: "fits", res: three, n: 5, wantKept: 3, wantSubs: 3},
		{name: "clipped", res: three, n: 2, wantKept: 2, wantSubs: 2},
		{name: "no submatches", res: types.SearchResult{}, n: 1, wantKept: 1, wantSubs: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kept := Clip(tt.res, tt.n)
			assert.Equal(t, tt.wantKept, kept)
			assert.Len(t, got.Submatches, tt.wantSubs)
		})
	}
	assert.Len(t, three.Submatches, 3, "input is not modified")
	assert.Equal(t, 3, MatchCount(three))
}
