package stats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/igusev/rgs/internal/types"
)

// FilterKind selects the record attribute a drill-down filter matches on
type FilterKind string

const (
	KindFolder    FilterKind = "folder"
	KindExtension FilterKind = "extension"
	KindFileName  FilterKind = "filename"
	KindPrefix    FilterKind = "prefix"
	KindSuffix    FilterKind = "suffix"
	KindRecent    FilterKind = "recent"
	KindGlob      FilterKind = "glob"
)

// ErrInvalidFilter is returned by ParseFilter for malformed input
var ErrInvalidFilter = errors.New("invalid filter")

// Filter narrows a result set to one statistics entry
type Filter struct {
	Kind  FilterKind `json:"kind"`
	Value string     `json:"value"`
}

// ParseFilter parses "kind=value", e.g. "extension=go", "prefix=get-", "recent=7d", "glob=src/**/*.ts"
func ParseFilter(s string) (Filter, error) {
	kind, value, ok := strings.Cut(s, "=")
	kind = strings.ToLower(strings.TrimSpace(kind))
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return Filter{}, fmt.Errorf("%w: %q (want kind=value)", ErrInvalidFilter, s)
	}

	f := Filter{Kind: FilterKind(kind), Value: value}
	switch f.Kind {
	case KindFolder, KindExtension, KindFileName, KindPrefix, KindSuffix:
	case KindRecent:
		if _, _, err := f.recentRange(time.Now()); err != nil {
			return Filter{}, err
		}
	case KindGlob:
		if !doublestar.ValidatePattern(value) {
			return Filter{}, fmt.Errorf("%w: bad glob pattern %q", ErrInvalidFilter, value)
		}
	default:
		return Filter{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidFilter, kind)
	}
	return f, nil
}

func (f Filter) String() string {
	return string(f.Kind) + "=" + f.Value
}

// Apply returns the records matching the filter
func (f Filter) Apply(records []types.StoredSearchResult, now time.Time) []types.StoredSearchResult {
	return ApplyAll(records, []Filter{f}, now)
}

// ApplyAll returns the records matching every filter
func ApplyAll(records []types.StoredSearchResult, filters []Filter, now time.Time) []types.StoredSearchResult {
	matcher := DefaultMatcher()
	out := make([]types.StoredSearchResult, 0, len(records))
	for _, r := range records {
		keep := true
		for _, f := range filters {
			if !f.match(r, now, matcher) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

func (f Filter) match(r types.StoredSearchResult, now time.Time, m *AffixMatcher) bool {
	switch f.Kind {
	case KindFolder:
		folder := strings.TrimSuffix(f.Value, "/")
		dir := Folder(r.FilePath)
		return dir == folder || strings.HasPrefix(dir, folder+"/")
	case KindExtension:
		want := strings.ToLower(strings.TrimPrefix(f.Value, "."))
		if want == NoExtension {
			want = ""
		}
		return r.FileExtension == want
	case KindFileName:
		return r.FileName == f.Value
	case KindPrefix:
		p, ok := m.Prefix(r.FileName)
		return ok && p == strings.ToLower(strings.TrimSuffix(f.Value, "-"))
	case KindSuffix:
		s, ok := m.Suffix(r.FileName)
		return ok && s == strings.ToLower(strings.TrimPrefix(f.Value, "-"))
	case KindRecent:
		from, to, err := f.recentRange(now)
		if err != nil || r.FileModified == "" {
			return false
		}
		t, err := time.Parse(time.RFC3339, r.FileModified)
		return err == nil && !t.Before(from) && t.Before(to)
	case KindGlob:
		ok, err := doublestar.Match(f.Value, r.FilePath)
		return err == nil && ok
	default:
		return false
	}
}

// recentRange resolves a recent filter to [from, to): a day ("2026-10-19") or a span ending now ("7d")
func (f Filter) recentRange(now time.Time) (time.Time, time.Time, error) {
	if strings.HasSuffix(f.Value, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(f.Value, "d"))
		if err == nil && days > 0 {
			return now.Add(-time.Duration(days) * 24 * time.Hour), now.Add(time.Nanosecond), nil
		}
	}
	day, err := time.Parse(dayLayout, f.Value)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: recent wants YYYY-MM-DD or Nd, got %q", ErrInvalidFilter, f.Value)
	}
	return day, day.Add(24 * time.Hour), nil
}
