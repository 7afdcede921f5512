package settings

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/igusev/rgs/internal/config"
	"github.com/igusev/rgs/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePanel(t *testing.T) {
	for _, name := range []string{"search", "results", "stats"} {
		p, err := ParsePanel(name)
		require.NoError(t, err)
		assert.Equal(t, Panel(name), p)
	}
	_, err := ParsePanel("sidebar")
	assert.True(t, errors.Is(err, ErrUnknownPanel))
}

func TestStore_GetSetReset(t *testing.T) {
	s := NewStore()

	_, ok := s.Get(PanelSearch)
	assert.False(t, ok)

	s.Set(PanelSearch, FineTuning{CaseSensitive: true})
	s.Set(PanelResults, FineTuning{MaxResults: 20})
	ft, ok := s.Get(PanelSearch)
	require.True(t, ok)
	assert.True(t, ft.CaseSensitive)
	assert.Equal(t, []Panel{PanelResults, PanelSearch}, s.Panels())

	// zero value clears
	s.Set(PanelResults, FineTuning{})
	_, ok = s.Get(PanelResults)
	assert.False(t, ok)

	s.Set(PanelStats, FineTuning{WholeWord: true})
	s.Reset(PanelStats)
	assert.Equal(t, []Panel{PanelSearch}, s.Panels())

	s.Reset()
	assert.Empty(t, s.Panels())
}

func TestStore_PanelsAreIndependent(t *testing.T) {
	a, b := NewStore(), NewStore()
	a.Set(PanelSearch, FineTuning{UseRegex: true})
	_, ok := b.Get(PanelSearch)
	assert.False(t, ok, "stores share no state")
}

func TestStore_Apply(t *testing.T) {
	s := NewStore()
	s.Set(PanelSearch, FineTuning{
		CaseSensitive: true,
		ContextBefore: 3,
		ContextAfter:  1,
		MaxResults:    50,
		Include:       []string{"*.go"},
	})

	tests := []struct {
		name  string
		opts  types.SearchOptions
		check func(t *testing.T, got types.SearchOptions)
	}{
		{
			name: "fills unset fields",
			opts: types.SearchOptions{Query: "x"},
			check: func(t *testing.T, got types.SearchOptions) {
				assert.True(t, got.CaseSensitive)
				assert.Equal(t, 3, got.ContextLinesBefore)
				assert.Equal(t, 1, got.ContextLinesAfter)
				assert.Equal(t, 50, got.MaxResults)
				assert.Equal(t, []string{"*.go"}, got.IncludePatterns)
			},
		},
		{
			name: "request values win",
			opts: types.SearchOptions{Query: "x", MaxResults: 5, ContextLines: 4, IncludePatterns: []string{"*.ts"}},
			check: func(t *testing.T, got types.SearchOptions) {
				assert.Equal(t, 5, got.MaxResults)
				assert.Equal(t, 0, got.ContextLinesBefore)
				before, after := got.ContextWindow()
				assert.Equal(t, 4, before)
				assert.Equal(t, 4, after)
				assert.Equal(t, []string{"*.ts"}, got.IncludePatterns)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, s.Apply(PanelSearch, tt.opts))
		})
	}

	opts := types.SearchOptions{Query: "x"}
	assert.Equal(t, opts, s.Apply(PanelStats, opts), "panel without tuning leaves options unchanged")
}

func TestFromOptions(t *testing.T) {
	ft := FromOptions(types.SearchOptions{Query: "q", WholeWord: true, ContextLines: 2, ExcludePatterns: []string{"vendor/**"}})
	assert.True(t, ft.WholeWord)
	assert.Equal(t, 2, ft.ContextBefore)
	assert.Equal(t, 2, ft.ContextAfter)
	assert.Equal(t, []string{"vendor/**"}, ft.Exclude)
	assert.True(t, FromOptions(types.SearchOptions{Query: "q"}).IsZero())
}

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "settings.yaml")

	s := NewStore()
	s.Set(PanelSearch, FineTuning{CaseSensitive: true, Exclude: []string{"dist/**"}})
	s.Set(PanelStats, FineTuning{MaxResults: 9})
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	ft, ok := loaded.Get(PanelSearch)
	require.True(t, ok)
	assert.True(t, ft.CaseSensitive)
	assert.Equal(t, []string{"dist/**"}, ft.Exclude)
	assert.Equal(t, []Panel{PanelSearch, PanelStats}, loaded.Panels())

	missing, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing.Panels())
}

func TestLoad_SkipsUnknownPanelsAndRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sidebar:\n  case_sensitive: true\nsearch:\n  whole_word: true\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Panel{PanelSearch}, s.Panels())

	require.NoError(t, os.WriteFile(path, []byte("search: [unterminated"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Set(PanelSearch, FineTuning{MaxResults: n + 1})
				_ = s.Apply(PanelSearch, types.SearchOptions{})
				_ = s.Panels()
			}
		}(i)
	}
	wg.Wait()
	_, ok := s.Get(PanelSearch)
	assert.True(t, ok)
}

func samplePresets() *PresetList {
	return NewPresetList([]config.Preset{
		{Name: "go", Include: []string{"**/*.go"}, Exclude: []string{"vendor/**"}},
		{Name: "frontend", Include: []string{"web/**"}, CaseSensitive: true, ContextBefore: 5, ContextAfter: 5},
		{Name: ""},
		{Name: "go", Include: []string{"cmd/**/*.go"}},
	})
}

func TestPresetList_Lookup(t *testing.T) {
	l := samplePresets()

	assert.Equal(t, []string{"frontend", "go"}, l.Names())

	p, ok := l.Lookup("go")
	require.True(t, ok)
	assert.Equal(t, []string{"cmd/**/*.go"}, p.Include, "later duplicate wins")

	_, ok = l.Lookup("")
	assert.False(t, ok)
}

func TestPresetList_Suggest(t *testing.T) {
	l := samplePresets()

	tests := []struct {
		input string
		want  string
	}{
		{"frontnd", "frontend"},
		{"FRONTEND", "frontend"},
		{"og", "go"},
		{"database", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Suggest(tt.input))
		})
	}
}

func TestResolve(t *testing.T) {
	l := samplePresets()

	p, err := Resolve(l, "frontend")
	require.NoError(t, err)
	assert.Equal(t, "frontend", p.Name)

	_, err = Resolve(l, "frontnd")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPreset))
	assert.Contains(t, err.Error(), `did you mean "frontend"`)

	_, err = Resolve(l, "zzzzzzzz")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestApplyPreset(t *testing.T) {
	p, _ := samplePresets().Lookup("frontend")

	got := ApplyPreset(p, types.SearchOptions{Query: "x", IncludePatterns: []string{"*.css"}})
	assert.Equal(t, []string{"*.css", "web/**"}, got.IncludePatterns)
	assert.True(t, got.CaseSensitive)
	assert.Equal(t, 5, got.ContextLinesBefore)

	got = ApplyPreset(p, types.SearchOptions{Query: "x", ContextLinesAfter: 1})
	assert.Equal(t, 0, got.ContextLinesBefore, "explicit context wins over the preset")
	assert.Equal(t, 1, got.ContextLinesAfter)
}
