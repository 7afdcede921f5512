// Package query translates free-form user input into the index query language
// and builds the parameter set of a search request
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/igusev/rgs/internal/types"
)

const (
	// MatchAllToken is the sanitized form of empty input
	MatchAllToken = "*"
	// MatchAllDocuments matches every document in the index
	MatchAllDocuments = "*:*"

	// Boosts applied to the aggregate fields
	contentBoost  = 1.0
	codeBoost     = 1.0
	codeLikeBoost = 1.5
	fileNameBoost = 2.0
)

// reservedChars are escaped by Sanitize; backslash is handled first
const reservedChars = `+-&|!(){}[]^"~*?:/`

var (
	// a field specifier such as "file_name:" anywhere in the query
	fieldSpecPattern = regexp.MustCompile(`(^|[\s(])[A-Za-z_][A-Za-z0-9_.]*:`)

	codePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Za-z_$][\w$]*\s*\(`),      // call: getData(
		regexp.MustCompile(`[a-z0-9][A-Z]`),              // camelCase
		regexp.MustCompile(`[A-Za-z0-9]_[A-Za-z0-9]`),    // snake_case
		regexp.MustCompile(`::|->|=>|\.\w+\(`),           // member access / scope
		regexp.MustCompile(`[{}\[\];=<>]`),               // code punctuation
		regexp.MustCompile(`^[A-Z][a-z0-9]+[A-Z]\w*$`),   // PascalCase
		regexp.MustCompile(`\b(func|function|def|class|const|let|var|return|import)\b`),
	}

	fileNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[\w\-. /]*\.[A-Za-z]{1,5}$`),
		regexp.MustCompile(`(?i)\.(go|js|jsx|ts|tsx|py|rb|rs|java|kt|c|h|cpp|hpp|cs|php|swift|md|json|ya?ml|toml|xml|html|css|scss|sh|sql)$`),
	}
)

// Sanitize escapes every reserved character of the query syntax with a backslash
// Empty or whitespace-only input yields the match-all token
func Sanitize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return MatchAllToken
	}

	var b strings.Builder
	b.Grow(len(raw) * 2)
	for _, r := range raw {
		if r == '\\' || strings.ContainsRune(reservedChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}

	escaped := strings.TrimSpace(b.String())
	if escaped == "" {
		return MatchAllToken
	}
	return escaped
}

// HasFieldSpec reports whether the user already targeted a field explicitly
// A query that starts with a quote is a phrase and never counts as field-targeted
func HasFieldSpec(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, `"`) {
		return false
	}
	return fieldSpecPattern.MatchString(trimmed)
}

// LooksLikeCode reports whether the query resembles an identifier or code fragment
func LooksLikeCode(raw string) bool {
	for _, p := range codePatterns {
		if p.MatchString(raw) {
			return true
		}
	}
	return false
}

// LooksLikeFilename reports whether the query resembles a bare file name
func LooksLikeFilename(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t") {
		return false
	}
	for _, p := range fileNamePatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// Build translates raw user input into a boosted query expression
//
// Explicit field queries ("file_name:*.js") pass through untouched. Anything else,
// including ranges and AND/OR/NOT without a field, is treated as one phrase and
// expanded across the natural-language and code aggregate fields.
func Build(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return MatchAllDocuments
	}

	if HasFieldSpec(trimmed) {
		return trimmed
	}

	phrase := quote(Sanitize(trimmed))

	codeWeight := codeBoost
	if LooksLikeCode(trimmed) {
		codeWeight = codeLikeBoost
	}

	clauses := []string{
		boosted(types.FieldContentAll, phrase, contentBoost),
		boosted(types.FieldCodeAll, phrase, codeWeight),
	}
	if LooksLikeFilename(trimmed) {
		clauses = append(clauses, boosted(types.FieldFileName, phrase, fileNameBoost))
	}

	return strings.Join(clauses, " OR ")
}

// quote wraps an already-escaped value in phrase quotes
func quote(escaped string) string {
	return `"` + escaped + `"`
}

func boosted(field, value string, boost float64) string {
	return fmt.Sprintf("%s:%s^%.1f", field, value, boost)
}

// FieldEquals builds an exact-match clause with the value quoted and escaped
func FieldEquals(field, value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return field + `:"` + escaped + `"`
}
