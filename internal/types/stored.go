package types

import (
	"encoding/json"
	"strconv"
)

// Index field names
const (
	FieldID                 = "id"
	FieldSessionID          = "search_session_id"
	FieldOriginalQuery      = "original_query"
	FieldTimestamp          = "search_timestamp"
	FieldWorkspacePath      = "workspace_path"
	FieldFilePath           = "file_path"
	FieldFileName           = "file_name"
	FieldFileExtension      = "file_extension"
	FieldFileSize           = "file_size"
	FieldFileModified       = "file_modified"
	FieldLineNumber         = "line_number"
	FieldColumnNumber       = "column_number"
	FieldMatchText          = "match_text"
	FieldMatchTextRaw       = "match_text_raw"
	FieldContextBefore      = "context_before"
	FieldContextAfter       = "context_after"
	FieldContextLinesBefore = "context_lines_before"
	FieldContextLinesAfter  = "context_lines_after"
	FieldFullLine           = "full_line"
	FieldFullLineRaw        = "full_line_raw"
	FieldMatchType          = "match_type"
	FieldCaseSensitive      = "case_sensitive"
	FieldWholeWord          = "whole_word"
	FieldRelevanceScore     = "relevance_score"
	FieldMatchCountInFile   = "match_count_in_file"
	FieldAISummary          = "ai_summary"
	FieldAITags             = "ai_tags"
	FieldDisplayContent     = "display_content"
	FieldScore              = "score"

	// Aggregate fields: several source fields are copied into each
	FieldContentAll = "content_all" // natural language
	FieldCodeAll    = "code_all"    // code-aware tokenization
)

// StoredSearchResult is the persisted form of one match within a session
type StoredSearchResult struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"search_session_id"`
	OriginalQuery      string    `json:"original_query"`
	Timestamp          string    `json:"search_timestamp"`
	WorkspacePath      string    `json:"workspace_path"`
	FilePath           string    `json:"file_path"`
	FileName           string    `json:"file_name"`
	FileExtension      string    `json:"file_extension"`
	FileSize           int64     `json:"file_size"`
	FileModified       string    `json:"file_modified,omitempty"`
	LineNumber         int       `json:"line_number"`
	ColumnNumber       int       `json:"column_number"`
	MatchText          string    `json:"match_text"`
	MatchTextRaw       string    `json:"match_text_raw"`
	ContextBefore      []string  `json:"context_before"`
	ContextAfter       []string  `json:"context_after"`
	ContextLinesBefore int       `json:"context_lines_before"`
	ContextLinesAfter  int       `json:"context_lines_after"`
	FullLine           string    `json:"full_line"`
	FullLineRaw        string    `json:"full_line_raw"`
	MatchType          MatchType `json:"match_type"`
	CaseSensitive      bool      `json:"case_sensitive"`
	WholeWord          bool      `json:"whole_word"`
	RelevanceScore     float64   `json:"relevance_score"`
	MatchCountInFile   int       `json:"match_count_in_file"`
	AISummary          string    `json:"ai_summary,omitempty"`
	AITags             []string  `json:"ai_tags,omitempty"`
	DisplayContent     string    `json:"display_content"`

	// Score is the engine's relevance for the query that returned this record
	Score float64 `json:"score,omitempty"`

	// Derived by the highlighter after retrieval, never indexed
	HighlightedDisplay       string   `json:"highlighted_display,omitempty"`
	HighlightedMatch         string   `json:"highlighted_match,omitempty"`
	HighlightedContextBefore []string `json:"highlighted_context_before,omitempty"`
	HighlightedContextAfter  []string `json:"highlighted_context_after,omitempty"`
	Snippets                 []string `json:"snippets,omitempty"`
}

// HighlightMap is the server highlighting section: doc id -> field -> fragments
type HighlightMap map[string]map[string][]string

// Fragments returns the fragments for a document field, nil when absent
func (h HighlightMap) Fragments(id, field string) []string {
	if h == nil {
		return nil
	}
	fields, ok := h[id]
	if !ok {
		return nil
	}
	return fields[field]
}

// IndexFields returns the record as a flat field map suitable for indexing
// Derived highlight fields are excluded
func (r StoredSearchResult) IndexFields() map[string]interface{} {
	fields := map[string]interface{}{
		FieldID:                 r.ID,
		FieldSessionID:          r.SessionID,
		FieldOriginalQuery:      r.OriginalQuery,
		FieldTimestamp:          r.Timestamp,
		FieldWorkspacePath:      r.WorkspacePath,
		FieldFilePath:           r.FilePath,
		FieldFileName:           r.FileName,
		FieldFileExtension:      r.FileExtension,
		FieldFileSize:           float64(r.FileSize),
		FieldLineNumber:         float64(r.LineNumber),
		FieldColumnNumber:       float64(r.ColumnNumber),
		FieldMatchText:          r.MatchText,
		FieldMatchTextRaw:       r.MatchTextRaw,
		FieldContextBefore:      nonNil(r.ContextBefore),
		FieldContextAfter:       nonNil(r.ContextAfter),
		FieldContextLinesBefore: float64(r.ContextLinesBefore),
		FieldContextLinesAfter:  float64(r.ContextLinesAfter),
		FieldFullLine:           r.FullLine,
		FieldFullLineRaw:        r.FullLineRaw,
		FieldMatchType:          string(r.MatchType),
		FieldCaseSensitive:      r.CaseSensitive,
		FieldWholeWord:          r.WholeWord,
		FieldRelevanceScore:     r.RelevanceScore,
		FieldMatchCountInFile:   float64(r.MatchCountInFile),
		FieldDisplayContent:     r.DisplayContent,
	}
	if r.FileModified != "" {
		fields[FieldFileModified] = r.FileModified
	}
	if r.AISummary != "" {
		fields[FieldAISummary] = r.AISummary
	}
	if len(r.AITags) > 0 {
		fields[FieldAITags] = r.AITags
	}
	return fields
}

// FromFields builds a record from a loosely typed field map (index hit or decoded JSON doc)
// Missing or mistyped fields become zero values; single values and arrays are both accepted
func FromFields(fields map[string]interface{}) StoredSearchResult {
	return StoredSearchResult{
		ID:                 stringField(fields, FieldID),
		SessionID:          stringField(fields, FieldSessionID),
		OriginalQuery:      stringField(fields, FieldOriginalQuery),
		Timestamp:          stringField(fields, FieldTimestamp),
		WorkspacePath:      stringField(fields, FieldWorkspacePath),
		FilePath:           stringField(fields, FieldFilePath),
		FileName:           stringField(fields, FieldFileName),
		FileExtension:      stringField(fields, FieldFileExtension),
		FileSize:           int64(numberField(fields, FieldFileSize)),
		FileModified:       stringField(fields, FieldFileModified),
		LineNumber:         int(numberField(fields, FieldLineNumber)),
		ColumnNumber:       int(numberField(fields, FieldColumnNumber)),
		MatchText:          stringField(fields, FieldMatchText),
		MatchTextRaw:       stringField(fields, FieldMatchTextRaw),
		ContextBefore:      stringsField(fields, FieldContextBefore),
		ContextAfter:       stringsField(fields, FieldContextAfter),
		ContextLinesBefore: int(numberField(fields, FieldContextLinesBefore)),
		ContextLinesAfter:  int(numberField(fields, FieldContextLinesAfter)),
		FullLine:           stringField(fields, FieldFullLine),
		FullLineRaw:        stringField(fields, FieldFullLineRaw),
		MatchType:          ParseMatchType(stringField(fields, FieldMatchType)),
		CaseSensitive:      boolField(fields, FieldCaseSensitive),
		WholeWord:          boolField(fields, FieldWholeWord),
		RelevanceScore:     numberField(fields, FieldRelevanceScore),
		MatchCountInFile:   int(numberField(fields, FieldMatchCountInFile)),
		AISummary:          stringField(fields, FieldAISummary),
		AITags:             stringsField(fields, FieldAITags),
		DisplayContent:     stringField(fields, FieldDisplayContent),
		Score:              numberField(fields, FieldScore),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// first unwraps single-element arrays, which schemaless engines return for every field
func first(v interface{}) interface{} {
	if arr, ok := v.([]interface{}); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}

func stringField(fields map[string]interface{}, name string) string {
	switch v := first(fields[name]).(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func numberField(fields map[string]interface{}, name string) float64 {
	switch v := first(fields[name]).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func boolField(fields map[string]interface{}, name string) bool {
	switch v := first(fields[name]).(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func stringsField(fields map[string]interface{}, name string) []string {
	switch v := fields[name].(type) {
	case []string:
		return append([]string{}, v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return []string{}
	}
}
