package index

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/camelcase"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/igusev/rgs/internal/types"
)

// codeAnalyzer splits identifiers on case changes so "getUserName" matches "user"
const codeAnalyzer = "code"

type fieldKind int

const (
	kindText fieldKind = iota
	kindKeyword
	kindNumeric
	kindBool
)

var fieldKinds = map[string]fieldKind{
	types.FieldID:            kindKeyword,
	types.FieldSessionID:     kindKeyword,
	types.FieldTimestamp:     kindKeyword,
	types.FieldWorkspacePath: kindKeyword,
	types.FieldFilePath:      kindKeyword,
	types.FieldFileName:      kindKeyword,
	types.FieldFileExtension: kindKeyword,
	types.FieldFileModified:  kindKeyword,
	types.FieldMatchType:     kindKeyword,
	types.FieldMatchTextRaw:  kindKeyword,
	types.FieldFullLineRaw:   kindKeyword,

	types.FieldFileSize:           kindNumeric,
	types.FieldLineNumber:         kindNumeric,
	types.FieldColumnNumber:       kindNumeric,
	types.FieldContextLinesBefore: kindNumeric,
	types.FieldContextLinesAfter:  kindNumeric,
	types.FieldRelevanceScore:     kindNumeric,
	types.FieldMatchCountInFile:   kindNumeric,

	types.FieldCaseSensitive: kindBool,
	types.FieldWholeWord:     kindBool,
}

// kindOf classifies a field; unknown fields are treated as text
func kindOf(field string) fieldKind {
	return fieldKinds[field]
}

// raw fields are stored verbatim but not searchable
var storedOnly = map[string]bool{
	types.FieldMatchTextRaw: true,
	types.FieldFullLineRaw:  true,
}

// Aggregate sources: each aggregate field receives the values of these fields
var (
	contentSources = []string{
		types.FieldMatchText, types.FieldFullLine, types.FieldContextBefore, types.FieldContextAfter,
		types.FieldFileName, types.FieldFilePath, types.FieldAISummary, types.FieldAITags,
	}
	codeSources = []string{
		types.FieldMatchText, types.FieldFullLine, types.FieldContextBefore, types.FieldContextAfter,
		types.FieldFileName,
	}
)

// textFields are analyzed with the standard analyzer and stored
var textFields = []string{
	types.FieldOriginalQuery,
	types.FieldMatchText,
	types.FieldFullLine,
	types.FieldContextBefore,
	types.FieldContextAfter,
	types.FieldAISummary,
	types.FieldAITags,
}

// buildIndexMapping creates the index mapping for stored results
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	err := indexMapping.AddCustomAnalyzer(codeAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{camelcase.Name, lowercase.Name},
	})
	if err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentStaticMapping()

	for field, kind := range fieldKinds {
		switch kind {
		case kindKeyword:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
			fm.Store = true
			fm.Index = !storedOnly[field]
			fm.IncludeInAll = false
			docMapping.AddFieldMappingsAt(field, fm)
		case kindNumeric:
			fm := bleve.NewNumericFieldMapping()
			fm.Store = true
			fm.IncludeInAll = false
			docMapping.AddFieldMappingsAt(field, fm)
		case kindBool:
			fm := bleve.NewBooleanFieldMapping()
			fm.Store = true
			fm.IncludeInAll = false
			docMapping.AddFieldMappingsAt(field, fm)
		}
	}

	for _, field := range textFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.Store = true
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, fm)
	}

	// display_content is what highlighting runs against
	display := bleve.NewTextFieldMapping()
	display.Analyzer = standard.Name
	display.Store = true
	display.IncludeTermVectors = true
	display.IncludeInAll = false
	docMapping.AddFieldMappingsAt(types.FieldDisplayContent, display)

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false
	content.IncludeInAll = false
	docMapping.AddFieldMappingsAt(types.FieldContentAll, content)

	code := bleve.NewTextFieldMapping()
	code.Analyzer = codeAnalyzer
	code.Store = false
	code.IncludeInAll = false
	docMapping.AddFieldMappingsAt(types.FieldCodeAll, code)

	version := bleve.NewNumericFieldMapping()
	version.Store = true
	version.Index = false
	docMapping.AddFieldMappingsAt(versionField, version)

	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

// document returns the indexable form of a record with aggregate fields filled in
func document(rec types.StoredSearchResult) map[string]interface{} {
	fields := rec.IndexFields()
	fields[types.FieldContentAll] = aggregate(fields, contentSources)
	fields[types.FieldCodeAll] = aggregate(fields, codeSources)
	return fields
}

func aggregate(fields map[string]interface{}, sources []string) string {
	var parts []string
	for _, name := range sources {
		switch v := fields[name].(type) {
		case string:
			if v != "" {
				parts = append(parts, v)
			}
		case []string:
			for _, s := range v {
				if s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}
