// Package record converts raw line matches into session-scoped stored records
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/igusev/rgs/internal/types"
)

const (
	matchOpen  = ">>> "
	matchClose = " <<<"
)

// StatFunc returns file metadata; os.Stat by default
type StatFunc func(path string) (os.FileInfo, error)

// Builder turns the raw matches of one search invocation into stored records
type Builder struct {
	SessionID string
	Options   types.SearchOptions
	Workspace string           // workspace root, used for relative paths and file metadata
	Now       func() time.Time // defaults to time.Now
	Stat      StatFunc         // defaults to os.Stat
}

// NewSessionID generates a new session identifier
// Format: session_<unix millis>_<8 hex chars>
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// ID returns the deterministic identifier of one match
// Format: {session}_{sanitizedBaseName}_line{N}_{matchIndexOnLine}
func ID(sessionID, file string, line, matchIndex int) string {
	return fmt.Sprintf("%s_%s_line%d_%d", sessionID, sanitizeBaseName(file), line, matchIndex)
}

func sanitizeBaseName(file string) string {
	base := filepath.Base(filepath.ToSlash(file))
	if base == "." || base == "/" {
		base = ""
	}
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return r
		}
		return '_'
	}, base)
}

// DisplayContent builds the display block the index highlights against:
// before lines, the bracketed match line, then after lines, newline separated.
// Empty context arrays contribute nothing, not even a separator.
func DisplayContent(before []string, line string, after []string) string {
	parts := make([]string, 0, len(before)+len(after)+1)
	parts = append(parts, before...)
	parts = append(parts, matchOpen+line+matchClose)
	parts = append(parts, after...)
	return strings.Join(parts, "\n")
}

// Build converts raw matches into stored records
// Each submatch on a line becomes its own record; a line without submatches yields one record.
func (b *Builder) Build(results []types.SearchResult) []types.StoredSearchResult {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	stat := b.Stat
	if stat == nil {
		stat = os.Stat
	}
	timestamp := now().UTC().Format(time.RFC3339Nano)
	before, after := b.Options.ContextWindow()
	matchType := types.MatchTypeFor(b.Options)
	summaries := make(map[string]string)

	records := make([]types.StoredSearchResult, 0, len(results))
	perFile := make(map[string]int)
	metaCache := make(map[string]fileMeta)
	issued := make(map[string]bool)

	for _, res := range results {
		line := trimEOL(res.Content)
		ctxBefore, ctxAfter := splitContext(res.Context, res.Line, before, after)
		display := DisplayContent(ctxBefore, line, ctxAfter)

		meta, ok := metaCache[res.File]
		if !ok {
			meta = b.fileMeta(stat, res.File)
			metaCache[res.File] = meta
		}

		summary := ""
		if res.AISummary != "" {
			if cleaned, seen := summaries[res.AISummary]; seen {
				summary = cleaned
			} else {
				summary = CleanMarkdown(res.AISummary)
				summaries[res.AISummary] = summary
			}
		}

		matches := res.Submatches
		if len(matches) == 0 {
			matches = []types.Submatch{{Start: res.Column, Text: line}}
		}

		for idx, sm := range matches {
			matchText := sm.Text
			if matchText == "" {
				matchText = line
			}
			id := uniqueID(issued, b.SessionID, res.File, res.Line, idx)
			records = append(records, types.StoredSearchResult{
				ID:                 id,
				SessionID:          b.SessionID,
				OriginalQuery:      b.Options.Query,
				Timestamp:          timestamp,
				WorkspacePath:      b.Workspace,
				FilePath:           b.relativePath(res.File),
				FileName:           filepath.Base(res.File),
				FileExtension:      extension(res.File),
				FileSize:           meta.size,
				FileModified:       meta.modified,
				LineNumber:         res.Line,
				ColumnNumber:       sm.Start,
				MatchText:          matchText,
				MatchTextRaw:       matchText,
				ContextBefore:      ctxBefore,
				ContextAfter:       ctxAfter,
				ContextLinesBefore: len(ctxBefore),
				ContextLinesAfter:  len(ctxAfter),
				FullLine:           line,
				FullLineRaw:        line,
				MatchType:          matchType,
				CaseSensitive:      b.Options.CaseSensitive,
				WholeWord:          b.Options.WholeWord,
				RelevanceScore:     res.Score,
				AISummary:          summary,
				DisplayContent:     display,
			})
			perFile[b.relativePath(res.File)]++
		}
	}

	for i := range records {
		records[i].MatchCountInFile = perFile[records[i].FilePath]
	}
	return records
}

// uniqueID returns the record id, moving to the next free match index when files
// in different folders share a base name and line
func uniqueID(issued map[string]bool, sessionID, file string, line, matchIndex int) string {
	id := ID(sessionID, file, line, matchIndex)
	for issued[id] {
		matchIndex++
		id = ID(sessionID, file, line, matchIndex)
	}
	issued[id] = true
	return id
}

// ToSearchResult returns the ephemeral view of a stored record
func ToSearchResult(rec types.StoredSearchResult) types.SearchResult {
	ctx := make([]types.ContextLine, 0, len(rec.ContextBefore)+len(rec.ContextAfter))
	for i, l := range rec.ContextBefore {
		ctx = append(ctx, types.ContextLine{Line: rec.LineNumber - len(rec.ContextBefore) + i, Text: l})
	}
	for i, l := range rec.ContextAfter {
		ctx = append(ctx, types.ContextLine{Line: rec.LineNumber + i + 1, Text: l})
	}
	return types.SearchResult{
		File:        rec.FilePath,
		Line:        rec.LineNumber,
		Column:      rec.ColumnNumber,
		Content:     rec.FullLineRaw,
		Context:     ctx,
		Score:       rec.RelevanceScore,
		AISummary:   rec.AISummary,
		Highlighted: rec.HighlightedMatch,
	}
}

type fileMeta struct {
	size     int64
	modified string
}

func (b *Builder) fileMeta(stat StatFunc, file string) fileMeta {
	info, err := stat(b.absolutePath(file))
	if err != nil || info.IsDir() {
		return fileMeta{}
	}
	return fileMeta{size: info.Size(), modified: info.ModTime().UTC().Format(time.RFC3339)}
}

func (b *Builder) relativePath(file string) string {
	if b.Workspace == "" || !filepath.IsAbs(file) {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(b.Workspace, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}

func (b *Builder) absolutePath(file string) string {
	if b.Workspace == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(b.Workspace, filepath.FromSlash(file))
}

// splitContext separates mixed context lines into before/after relative to the match line
// and, when a window is set, keeps only the nearest lines on each side
func splitContext(lines []types.ContextLine, matchLine, nBefore, nAfter int) ([]string, []string) {
	before := []string{}
	after := []string{}
	for _, cl := range lines {
		switch {
		case cl.Line < matchLine && (nBefore <= 0 || matchLine-cl.Line <= nBefore):
			before = append(before, trimEOL(cl.Text))
		case cl.Line > matchLine && (nAfter <= 0 || cl.Line-matchLine <= nAfter):
			after = append(after, trimEOL(cl.Text))
		}
	}
	return before, after
}

func extension(file string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}
