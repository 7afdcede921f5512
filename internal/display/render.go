package display

import (
	"fmt"
	"html"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/igusev/rgs/internal/highlight"
	"github.com/igusev/rgs/internal/history"
	"github.com/igusev/rgs/internal/ripgrep"
	"github.com/igusev/rgs/internal/stats"
	"github.com/igusev/rgs/internal/types"
)

const (
	barWidth       = 20
	snippetRunes   = 120
	timeLayout     = "2006-01-02 15:04"
	sessionIDWidth = 34
)

// Printer writes styled output to one writer
type Printer struct {
	w      io.Writer
	scheme *ColorScheme
	styles Styles
}

// NewPrinter creates a printer for w
func NewPrinter(w io.Writer) *Printer {
	cs := NewColorScheme()
	return &Printer{w: w, scheme: cs, styles: cs.GetStyles(w)}
}

// Styles returns the styles of the printer
func (p *Printer) Styles() Styles {
	return p.styles
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

// Logo prints the wave, the program name and its version
func (p *Printer) Logo(version string) {
	p.println(fmt.Sprintf("%s %s %s", p.scheme.Wave, p.styles.Title.Render("rgs"), p.styles.Version.Render(version)))
}

// Muted prints a line of secondary text
func (p *Printer) Muted(format string, args ...interface{}) {
	p.println(p.styles.Muted.Render(fmt.Sprintf(format, args...)))
}

// Segments renders plain and highlighted runs, unescaping markup entities
func (p *Printer) Segments(segs []highlight.Segment, base renderer) string {
	var b strings.Builder
	for _, seg := range segs {
		text := html.UnescapeString(seg.Text)
		if seg.Highlighted {
			b.WriteString(p.styles.Highlight.Render(text))
		} else {
			b.WriteString(base.Render(text))
		}
	}
	return b.String()
}

// Marked renders a string carrying highlight markers
func (p *Printer) Marked(s string, base renderer) string {
	return p.Segments(highlight.Parse(s), base)
}

// renderer is the part of lipgloss.Style used for plain runs
type renderer interface {
	Render(strs ...string) string
}

// SubmatchSegments splits a line at submatch byte offsets
// Overlapping or out-of-range spans are skipped.
func SubmatchSegments(line string, subs []types.Submatch) []highlight.Segment {
	sorted := make([]types.Submatch, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	segs := make([]highlight.Segment, 0, 2*len(sorted)+1)
	last := 0
	for _, sm := range sorted {
		if sm.Start < last || sm.End > len(line) || sm.Start >= sm.End {
			continue
		}
		if sm.Start > last {
			segs = append(segs, highlight.Segment{Text: line[last:sm.Start]})
		}
		segs = append(segs, highlight.Segment{Text: line[sm.Start:sm.End], Highlighted: true})
		last = sm.End
	}
	if last < len(line) {
		segs = append(segs, highlight.Segment{Text: line[last:]})
	}
	return segs
}

func (p *Printer) fileHeader(path string) {
	p.println(p.styles.Path.Render(filepath.ToSlash(path)))
}

func (p *Printer) line(n int, sep, text string) {
	p.println(p.styles.LineNo.Render(fmt.Sprintf("%d", n)) + sep + text)
}

// Matches prints raw workspace matches grouped by file
// Lines without submatch offsets are highlighted from the query terms.
func (p *Printer) Matches(results []types.SearchResult, q string) {
	current := ""
	for i, r := range results {
		if r.File != current {
			if i > 0 {
				p.println("")
			}
			current = r.File
			p.fileHeader(r.File)
		}

		for _, c := range r.Context {
			if c.Line < r.Line {
				p.line(c.Line, "-", p.styles.Context.Render(c.Text))
			}
		}

		if len(r.Submatches) > 0 {
			// offsets are into the raw line, so skip unescaping
			p.line(r.Line, ":", p.raw(SubmatchSegments(r.Content, r.Submatches)))
		} else {
			p.line(r.Line, ":", p.Marked(highlight.Text(r.Content, q, ""), p.styles.Normal))
		}

		for _, c := range r.Context {
			if c.Line > r.Line {
				p.line(c.Line, "-", p.styles.Context.Render(c.Text))
			}
		}
		if r.AISummary != "" {
			p.println("  " + p.styles.Snippet.Render(Truncate(r.AISummary, snippetRunes)))
		}
	}
}

func (p *Printer) raw(segs []highlight.Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		if seg.Highlighted {
			b.WriteString(p.styles.Highlight.Render(seg.Text))
		} else {
			b.WriteString(p.styles.Normal.Render(seg.Text))
		}
	}
	return b.String()
}

// Records prints stored records grouped by file, with highlighted variants when present
func (p *Printer) Records(records []types.StoredSearchResult, showSnippets bool) {
	current := ""
	for i, rec := range records {
		if rec.FilePath != current {
			if i > 0 {
				p.println("")
			}
			current = rec.FilePath
			p.fileHeader(rec.FilePath)
		}

		start := rec.LineNumber - len(rec.ContextBefore)
		for j, text := range rec.ContextBefore {
			p.line(start+j, "-", p.contextLine(text, rec.HighlightedContextBefore, j))
		}

		match := rec.HighlightedMatch
		if match == "" {
			match = html.EscapeString(firstNonEmpty(rec.FullLineRaw, rec.FullLine, rec.MatchTextRaw, rec.MatchText))
		}
		p.line(rec.LineNumber, ":", p.Marked(match, p.styles.Normal))

		for j, text := range rec.ContextAfter {
			p.line(rec.LineNumber+1+j, "-", p.contextLine(text, rec.HighlightedContextAfter, j))
		}

		if showSnippets {
			for _, s := range rec.Snippets {
				p.println("  " + p.Marked(s, p.styles.Snippet))
			}
		}
	}
}

func (p *Printer) contextLine(text string, highlighted []string, i int) string {
	if i < len(highlighted) && highlighted[i] != "" {
		return p.Marked(highlighted[i], p.styles.Context)
	}
	return p.styles.Context.Render(text)
}

// Sessions prints one line per stored session
func (p *Printer) Sessions(groups []stats.SessionGroup) {
	if len(groups) == 0 {
		p.Muted("No stored sessions")
		return
	}
	for _, g := range groups {
		p.println(fmt.Sprintf("%s  %s  %s  %s",
			p.styles.Path.Render(fmt.Sprintf("%-*s", sessionIDWidth, g.ID)),
			p.styles.Muted.Render(formatTime(g.Timestamp)),
			p.styles.Count.Render(fmt.Sprintf("%5d matches in %4d files", g.Count, g.Files)),
			p.styles.Normal.Render(fmt.Sprintf("%q", g.Query)),
		))
	}
}

// Stats prints every non-empty category of a report with proportional bars
func (p *Printer) Stats(r stats.Report) {
	p.println(p.styles.Title.Render(fmt.Sprintf("%d matches", r.Total)))

	sections := []struct {
		title   string
		entries []stats.Entry
	}{
		{"Folders", r.Folders},
		{"Extensions", r.Extensions},
		{"File names", r.FileNames},
		{"Prefixes", r.Prefixes},
		{"Suffixes", r.Suffixes},
		{"Recently modified", r.Recent},
	}
	for _, s := range sections {
		if len(s.entries) == 0 {
			continue
		}
		p.println("")
		p.println(p.styles.Header.Render(s.title))
		p.entries(s.entries)
	}
}

func (p *Printer) entries(entries []stats.Entry) {
	width := 0
	for _, e := range entries {
		if w := len([]rune(e.Key)); w > width {
			width = w
		}
	}
	for _, e := range entries {
		bar := int(e.Percentage / 100 * barWidth)
		if bar == 0 && e.Count > 0 {
			bar = 1
		}
		p.println(fmt.Sprintf("  %s %s %s %s",
			p.styles.Normal.Render(padRight(e.Key, width)),
			p.styles.Count.Render(fmt.Sprintf("%5d", e.Count)),
			p.styles.Muted.Render(fmt.Sprintf("%5.1f%%", e.Percentage)),
			p.styles.Bar.Render(strings.Repeat("█", bar)),
		))
	}
}

// Files prints per-file match counts
func (p *Printer) Files(files []ripgrep.FileCount) {
	if len(files) == 0 {
		p.Muted("No files matched")
		return
	}
	total := 0
	for _, f := range files {
		total += f.Count
		p.println(p.styles.Count.Render(fmt.Sprintf("%6d", f.Count)) + "  " + p.styles.Path.Render(filepath.ToSlash(f.File)))
	}
	p.Muted("%d matches in %d files", total, len(files))
}

// History prints ranked queries
func (p *Printer) History(entries []history.Entry) {
	if len(entries) == 0 {
		p.Muted("No query history")
		return
	}
	for _, e := range entries {
		last := ""
		if !e.LastUsed.IsZero() {
			last = e.LastUsed.Local().Format(timeLayout)
		}
		p.println(fmt.Sprintf("%s %s  %s  %s",
			p.styles.Count.Render(fmt.Sprintf("%4d", e.Score)),
			p.styles.Muted.Render(fmt.Sprintf("x%-3d", e.Count)),
			p.styles.Muted.Render(last),
			p.styles.Normal.Render(e.Query),
		))
	}
}

// Truncate shortens text at a word boundary respecting UTF-8
func Truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	truncated := runes[:maxRunes]

	lastSpace := -1
	for i := len(truncated) - 1; i >= 0; i-- {
		if unicode.IsSpace(truncated[i]) || truncated[i] == ',' || truncated[i] == '.' || truncated[i] == ';' {
			lastSpace = i
			break
		}
	}

	// Use word boundary if found in last 20% to avoid losing too much text
	if lastSpace > int(float64(maxRunes)*0.8) {
		truncated = truncated[:lastSpace]
	}

	return string(truncated) + "..."
}

func formatTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format(timeLayout)
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
