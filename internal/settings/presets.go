package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/igusev/rgs/internal/config"
	"github.com/igusev/rgs/internal/types"
)

// ErrUnknownPreset is returned when a preset name does not resolve
var ErrUnknownPreset = errors.New("unknown preset")

// maxSuggestDistance bounds how far a typo may be from a preset name to be suggested
const maxSuggestDistance = 3

// Presets resolves named filter presets
type Presets interface {
	Lookup(name string) (config.Preset, bool)
}

// PresetList is a Presets backed by configuration
type PresetList struct {
	byName map[string]config.Preset
	names  []string
}

// NewPresetList indexes presets by name; later duplicates replace earlier ones
func NewPresetList(presets []config.Preset) *PresetList {
	l := &PresetList{byName: make(map[string]config.Preset, len(presets))}
	for _, p := range presets {
		if p.Name == "" {
			continue
		}
		if _, dup := l.byName[p.Name]; !dup {
			l.names = append(l.names, p.Name)
		}
		l.byName[p.Name] = p
	}
	sort.Strings(l.names)
	return l
}

// Lookup returns the preset with the given name
func (l *PresetList) Lookup(name string) (config.Preset, bool) {
	p, ok := l.byName[name]
	return p, ok
}

// Names returns all preset names, sorted
func (l *PresetList) Names() []string {
	return append([]string(nil), l.names...)
}

// Suggest returns the closest preset name, or "" when none is close enough
func (l *PresetList) Suggest(name string) string {
	name = strings.ToLower(name)
	best, bestDist := "", maxSuggestDistance+1
	for _, candidate := range l.names {
		d := edlib.LevenshteinDistance(name, strings.ToLower(candidate))
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// Resolve looks a preset up, suggesting a close name in the error when it is missing
func Resolve(presets Presets, name string) (config.Preset, error) {
	if p, ok := presets.Lookup(name); ok {
		return p, nil
	}
	if l, ok := presets.(*PresetList); ok {
		if s := l.Suggest(name); s != "" {
			return config.Preset{}, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownPreset, name, s)
		}
	}
	return config.Preset{}, fmt.Errorf("%w %q", ErrUnknownPreset, name)
}

// ApplyPreset merges a preset into opts
// Patterns are appended; flags are OR-ed; context counts apply only when opts sets none.
func ApplyPreset(p config.Preset, opts types.SearchOptions) types.SearchOptions {
	opts.IncludePatterns = append(append([]string(nil), opts.IncludePatterns...), p.Include...)
	opts.ExcludePatterns = append(append([]string(nil), opts.ExcludePatterns...), p.Exclude...)
	opts.CaseSensitive = opts.CaseSensitive || p.CaseSensitive
	opts.WholeWord = opts.WholeWord || p.WholeWord
	opts.UseRegex = opts.UseRegex || p.Regex
	if opts.ContextLinesBefore == 0 && opts.ContextLinesAfter == 0 && opts.ContextLines == 0 {
		opts.ContextLinesBefore = p.ContextBefore
		opts.ContextLinesAfter = p.ContextAfter
	}
	return opts
}
