// Package types defines the search options and result records shared by every layer
package types

import (
	"path/filepath"
	"strconv"
	"strings"
)

// SearchOptions describes one search request, either against the workspace or against stored results
type SearchOptions struct {
	Query              string   `json:"query"`
	MaxResults         int      `json:"max_results,omitempty"`
	MaxFiles           int      `json:"max_files,omitempty"`
	IncludePatterns    []string `json:"include_patterns,omitempty"`
	ExcludePatterns    []string `json:"exclude_patterns,omitempty"`
	CaseSensitive      bool     `json:"case_sensitive,omitempty"`
	WholeWord          bool     `json:"whole_word,omitempty"`
	UseRegex           bool     `json:"use_regex,omitempty"`
	SearchInResults    bool     `json:"search_in_results,omitempty"`
	ContextLinesBefore int      `json:"context_lines_before,omitempty"`
	ContextLinesAfter  int      `json:"context_lines_after,omitempty"`
	ContextLines       int      `json:"context_lines,omitempty"` // legacy single count
	SessionID          string   `json:"session_id,omitempty"`
	Offset             int      `json:"offset,omitempty"`
	Preset             string   `json:"preset,omitempty"`
}

// ContextWindow returns the before/after context line counts
// The legacy ContextLines value applies only when neither side is set explicitly
func (o SearchOptions) ContextWindow() (before, after int) {
	before, after = o.ContextLinesBefore, o.ContextLinesAfter
	if before == 0 && after == 0 && o.ContextLines > 0 {
		return o.ContextLines, o.ContextLines
	}
	return before, after
}

// Submatch is one matched span inside a line (byte offsets into the line)
type Submatch struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// ContextLine is a line surrounding a match, tagged with its 1-based line number
type ContextLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchResult is one raw match produced by the text-search tool
type SearchResult struct {
	File        string        `json:"file"`
	Line        int           `json:"line"`   // 1-based
	Column      int           `json:"column"` // 0-based
	Content     string        `json:"content"`
	Context     []ContextLine `json:"context,omitempty"`
	Score       float64       `json:"score"`
	AISummary   string        `json:"ai_summary,omitempty"`
	Submatches  []Submatch    `json:"submatches,omitempty"`
	Highlighted string        `json:"highlighted,omitempty"`
}

// DisplayString returns "path:line:column"
func (r SearchResult) DisplayString() string {
	return filepath.ToSlash(r.File) + ":" + strconv.Itoa(r.Line) + ":" + strconv.Itoa(r.Column)
}

// MatchType records how the query was interpreted
type MatchType string

const (
	MatchLiteral MatchType = "literal"
	MatchRegex   MatchType = "regex"
	MatchGlob    MatchType = "glob"
)

// MatchTypeFor derives the match type from search options
func MatchTypeFor(opts SearchOptions) MatchType {
	if opts.UseRegex {
		return MatchRegex
	}
	return MatchLiteral
}

// ParseMatchType maps a stored value back to a MatchType, defaulting to literal
func ParseMatchType(s string) MatchType {
	switch MatchType(strings.ToLower(strings.TrimSpace(s))) {
	case MatchRegex:
		return MatchRegex
	case MatchGlob:
		return MatchGlob
	default:
		return MatchLiteral
	}
}
