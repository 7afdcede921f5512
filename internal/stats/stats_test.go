package stats

import (
	"testing"
	"time"

	"github.com/igusev/rgs/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func rec(session, filePath, modified string) types.StoredSearchResult {
	name := filePath
	if i := lastSlash(filePath); i >= 0 {
		name = filePath[i+1:]
	}
	ext := ""
	if i := lastDot(name); i >= 0 {
		ext = name[i+1:]
	}
	return types.StoredSearchResult{
		SessionID:     session,
		FilePath:      filePath,
		FileName:      name,
		FileExtension: ext,
		FileModified:  modified,
		Timestamp:     "2026-10-19T10:00:00Z",
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func TestSegmentName(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"user.service", []string{"user", "service"}},
		{"getUserID", []string{"get", "user", "id"}},
		{"HTTPServer", []string{"http", "server"}},
		{"snake_case-name", []string{"snake", "case", "name"}},
		{"v2Api", []string{"v2", "api"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SegmentName(tt.name))
		})
	}
}

func TestAffixMatcher(t *testing.T) {
	m := DefaultMatcher()

	p, ok := m.Prefix("getUser.ts")
	assert.True(t, ok)
	assert.Equal(t, "get", p)

	s, ok := m.Suffix("user.service.ts")
	assert.True(t, ok)
	assert.Equal(t, "service", s)

	_, ok = m.Prefix("get.ts")
	assert.False(t, ok, "single segment has no affix")

	_, ok = m.Suffix("userThing.go")
	assert.False(t, ok)

	custom := NewAffixMatcher([]string{"zz"}, nil)
	p, ok = custom.Prefix("zz_top.go")
	assert.True(t, ok)
	assert.Equal(t, "zz", p)
}

func TestCompute(t *testing.T) {
	records := []types.StoredSearchResult{
		rec("s", "src/api/user.service.ts", "2026-10-18T09:00:00Z"),
		rec("s", "src/api/user.service.ts", "2026-10-18T09:00:00Z"),
		rec("s", "src/getUser.js", "2026-10-01T09:00:00Z"),
		rec("s", "README", ""),
		rec("s", "old/order.service.ts", "2025-01-01T00:00:00Z"),
	}

	r := Compute(records, Options{Now: now})
	assert.Equal(t, 5, r.Total)

	require.Len(t, r.Folders, 4)
	assert.Equal(t, Entry{Key: "src/api", Count: 2, Percentage: 40}, r.Folders[0])
	// ties keep first-occurrence order
	assert.Equal(t, []string{"src", ".", "old"}, keys(r.Folders[1:]))

	assert.Equal(t, "ts", r.Extensions[0].Key)
	assert.Equal(t, 3, r.Extensions[0].Count)
	assert.Contains(t, keys(r.Extensions), NoExtension)

	assert.Equal(t, []Entry{{Key: "-service", Count: 3, Percentage: 60}}, r.Suffixes)
	assert.Equal(t, []Entry{{Key: "get-", Count: 1, Percentage: 20}}, r.Prefixes)

	assert.Equal(t, []string{"2026-10-18", "2026-10-01"}, keys(r.Recent))
}

func TestCompute_TopN(t *testing.T) {
	records := []types.StoredSearchResult{
		rec("s", "a/x.go", ""), rec("s", "b/x.go", ""), rec("s", "c/x.go", ""), rec("s", "c/y.go", ""),
	}
	r := Compute(records, Options{TopN: 2, Now: now})
	assert.Equal(t, []string{"c", "a"}, keys(r.Folders))
}

func TestCompute_Empty(t *testing.T) {
	r := Compute(nil, Options{Now: now})
	assert.Equal(t, 0, r.Total)
	assert.Empty(t, r.Folders)
}

func TestGroupBySession(t *testing.T) {
	a1 := rec("a", "x.go", "")
	a1.Timestamp = "2026-10-18T10:00:00Z"
	a2 := rec("a", "y.go", "")
	a2.Timestamp = "2026-10-18T10:00:00Z"
	b1 := rec("b", "x.go", "")
	b1.Timestamp = "2026-10-19T10:00:00Z"
	b1.OriginalQuery = "needle"

	groups := GroupBySession([]types.StoredSearchResult{a1, b1, a2})
	require.Len(t, groups, 2)
	assert.Equal(t, "b", groups[0].ID)
	assert.Equal(t, "needle", groups[0].Query)
	assert.Equal(t, 1, groups[0].Count)
	assert.Equal(t, "a", groups[1].ID)
	assert.Equal(t, 2, groups[1].Count)
	assert.Equal(t, 2, groups[1].Files)
}

func keys(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}
