// Package stats aggregates stored results into sessions and frequency reports
package stats

import (
	"path"
	"sort"
	"time"

	"github.com/igusev/rgs/internal/types"
)

const (
	// DefaultTopN is the number of entries kept per category
	DefaultTopN = 10
	// DefaultRecentWindow bounds the recent-modification category
	DefaultRecentWindow = 30 * 24 * time.Hour

	// NoExtension is the key for files without an extension
	NoExtension = "(none)"

	dayLayout = "2006-01-02"
)

// Entry is one ranked key of a category
type Entry struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Report holds the top entries of every category
type Report struct {
	Total      int     `json:"total"`
	Folders    []Entry `json:"folders"`
	Extensions []Entry `json:"extensions"`
	FileNames  []Entry `json:"file_names"`
	Prefixes   []Entry `json:"prefixes"`
	Suffixes   []Entry `json:"suffixes"`
	Recent     []Entry `json:"recent"`
}

// Options controls Compute
type Options struct {
	TopN         int
	Now          time.Time
	RecentWindow time.Duration
	Matcher      *AffixMatcher
}

// SessionGroup summarizes the stored records of one session
type SessionGroup struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Workspace string `json:"workspace"`
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
	Files     int    `json:"files"`
}

// GroupBySession groups records by session id, newest session first
func GroupBySession(records []types.StoredSearchResult) []SessionGroup {
	index := make(map[string]int)
	files := make(map[string]map[string]bool)
	var groups []SessionGroup

	for _, r := range records {
		i, ok := index[r.SessionID]
		if !ok {
			i = len(groups)
			index[r.SessionID] = i
			groups = append(groups, SessionGroup{ID: r.SessionID, Query: r.OriginalQuery, Workspace: r.WorkspacePath})
			files[r.SessionID] = make(map[string]bool)
		}
		g := &groups[i]
		g.Count++
		if later(r.Timestamp, g.Timestamp) {
			g.Timestamp = r.Timestamp
		}
		files[r.SessionID][r.FilePath] = true
	}

	for i := range groups {
		groups[i].Files = len(files[groups[i].ID])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return later(groups[i].Timestamp, groups[j].Timestamp)
	})
	return groups
}

// later reports whether timestamp a is after b; unparsable values compare as strings
func later(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA != nil || errB != nil {
		return a > b
	}
	return ta.After(tb)
}

// Compute builds a frequency report over records
func Compute(records []types.StoredSearchResult, opts Options) Report {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	window := opts.RecentWindow
	if window <= 0 {
		window = DefaultRecentWindow
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = DefaultMatcher()
	}

	var folders, exts, names, prefixes, suffixes, recent counter
	for _, r := range records {
		folders.add(Folder(r.FilePath))
		exts.add(extensionKey(r.FileExtension))
		if r.FileName != "" {
			names.add(r.FileName)
		}
		if p, ok := matcher.Prefix(r.FileName); ok {
			prefixes.add(PrefixKey(p))
		}
		if s, ok := matcher.Suffix(r.FileName); ok {
			suffixes.add(SuffixKey(s))
		}
		if day, ok := recentDay(r.FileModified, now, window); ok {
			recent.add(day)
		}
	}

	total := len(records)
	return Report{
		Total:      total,
		Folders:    folders.top(topN, total),
		Extensions: exts.top(topN, total),
		FileNames:  names.top(topN, total),
		Prefixes:   prefixes.top(topN, total),
		Suffixes:   suffixes.top(topN, total),
		Recent:     recent.top(topN, total),
	}
}

// Folder returns the directory of a slash-separated path, "." for top-level files
func Folder(filePath string) string {
	return path.Dir(filePath)
}

func extensionKey(ext string) string {
	if ext == "" {
		return NoExtension
	}
	return ext
}

// recentDay returns the modification day when it falls within the window before now
func recentDay(modified string, now time.Time, window time.Duration) (string, bool) {
	if modified == "" {
		return "", false
	}
	t, err := time.Parse(time.RFC3339, modified)
	if err != nil {
		return "", false
	}
	if t.After(now) || now.Sub(t) > window {
		return "", false
	}
	return t.UTC().Format(dayLayout), true
}

// counter counts keys, remembering first-occurrence order
type counter struct {
	order  []string
	counts map[string]int
}

func (c *counter) add(key string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns the n most frequent keys; ties keep first-occurrence order
func (c *counter) top(n, total int) []Entry {
	entries := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		count := c.counts[k]
		pct := 0.0
		if total > 0 {
			pct = float64(count) * 100 / float64(total)
		}
		entries = append(entries, Entry{Key: k, Count: count, Percentage: pct})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
