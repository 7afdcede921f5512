package index

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/igusev/rgs/internal/types"
)

// maxFuzziness is the largest edit distance bleve accepts
const maxFuzziness = 2

type occur int

const (
	should occur = iota
	must
	mustNot
)

type clause struct {
	q     query.Query
	occur occur
}

// ParseLucene translates the Lucene query syntax used for stored results into a bleve query
//
// Supported: field:term, field:"phrase", field:(group), wildcards (* ?), ranges
// ([a TO b], {a TO b}, * for open ends), ^boost, ~fuzziness, AND/OR/NOT, && || !,
// +required and -excluded clauses, parentheses, *:* and backslash escapes.
// Clauses without a field search content_all. Juxtaposed clauses are optional (OR).
func ParseLucene(s string) (query.Query, error) {
	p := &luceneParser{in: []rune(s), defaultField: types.FieldContentAll}
	clauses, err := p.parseClauses(false)
	if err != nil {
		return nil, err
	}
	return combine(clauses), nil
}

// highlightQuery rewrites q so every text clause targets field; non-text and excluded
// clauses are dropped. Returns nil when nothing remains.
func highlightQuery(s, field string) query.Query {
	p := &luceneParser{in: []rune(s), defaultField: types.FieldContentAll, retarget: field}
	clauses, err := p.parseClauses(false)
	if err != nil {
		return nil
	}
	var qs []query.Query
	for _, c := range clauses {
		if c.occur != mustNot {
			qs = append(qs, c.q)
		}
	}
	return disjunction(qs)
}

type luceneParser struct {
	in           []rune
	pos          int
	defaultField string
	retarget     string
}

func (p *luceneParser) eof() bool { return p.pos >= len(p.in) }

func (p *luceneParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.in[p.pos]
}

func (p *luceneParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.in[p.pos]) {
		p.pos++
	}
}

func (p *luceneParser) hasPrefix(s string) bool {
	r := []rune(s)
	if p.pos+len(r) > len(p.in) {
		return false
	}
	return string(p.in[p.pos:p.pos+len(r)]) == s
}

// consumeOperator consumes a keyword operator (followed by a boundary) or its symbol form
func (p *luceneParser) consumeOperator(word, symbol string) bool {
	if symbol != "" && p.hasPrefix(symbol) {
		p.pos += len([]rune(symbol))
		return true
	}
	if !p.hasPrefix(word) {
		return false
	}
	end := p.pos + len([]rune(word))
	if end < len(p.in) && !unicode.IsSpace(p.in[end]) && p.in[end] != '(' {
		return false
	}
	p.pos = end
	return true
}

func (p *luceneParser) parseClauses(nested bool) ([]clause, error) {
	var clauses []clause
	pendingAnd := false

	for {
		p.skipSpace()
		if p.eof() {
			if nested {
				return nil, errors.New("missing closing parenthesis")
			}
			return clauses, nil
		}
		if p.peek() == ')' {
			if !nested {
				return nil, fmt.Errorf("unexpected ')' at offset %d", p.pos)
			}
			p.pos++
			return clauses, nil
		}

		if p.consumeOperator("AND", "&&") {
			pendingAnd = true
			if n := len(clauses); n > 0 && clauses[n-1].occur == should {
				clauses[n-1].occur = must
			}
			continue
		}
		if p.consumeOperator("OR", "||") {
			continue
		}

		oc := should
		if pendingAnd {
			oc = must
		}
		switch {
		case p.consumeOperator("NOT", ""):
			oc = mustNot
		case p.peek() == '!', p.peek() == '-':
			p.pos++
			oc = mustNot
		case p.peek() == '+':
			p.pos++
			oc = must
		}
		pendingAnd = false

		p.skipSpace()
		q, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if q != nil {
			clauses = append(clauses, clause{q: q, occur: oc})
		}
	}
}

func (p *luceneParser) parsePrimary() (query.Query, error) {
	if p.eof() {
		return nil, errors.New("unexpected end of query")
	}

	if p.peek() == '(' {
		p.pos++
		q, err := p.group()
		if err != nil {
			return nil, err
		}
		return p.modifiers(q)
	}

	field := p.readField()
	if field == "*" && p.peek() == '*' {
		p.pos++
		return p.modifiers(bleve.NewMatchAllQuery())
	}
	explicit := field != ""
	if !explicit {
		field = p.defaultField
	}

	var q query.Query
	switch p.peek() {
	case '"':
		phrase, err := p.readPhrase()
		if err != nil {
			return nil, err
		}
		q = p.phraseQuery(field, phrase)
	case '[', '{':
		var err error
		if q, err = p.rangeQuery(field); err != nil {
			return nil, err
		}
	case '(':
		p.pos++
		saved := p.defaultField
		p.defaultField = field
		var err error
		q, err = p.group()
		p.defaultField = saved
		if err != nil {
			return nil, err
		}
	default:
		term, wildcard := p.readTerm()
		if term == "" {
			return nil, fmt.Errorf("expected term at offset %d", p.pos)
		}
		if term == "*" && !explicit && p.retarget == "" {
			q = bleve.NewMatchAllQuery()
		} else {
			q = p.termQuery(field, term, wildcard)
		}
	}
	return p.modifiers(q)
}

// group parses a parenthesised sub-query; the opening parenthesis is already consumed
func (p *luceneParser) group() (query.Query, error) {
	clauses, err := p.parseClauses(true)
	if err != nil {
		return nil, err
	}
	if p.retarget != "" {
		var qs []query.Query
		for _, c := range clauses {
			if c.occur != mustNot {
				qs = append(qs, c.q)
			}
		}
		return disjunction(qs), nil
	}
	return combine(clauses), nil
}

// readField reads "name:" and returns name, or "" leaving the position untouched
func (p *luceneParser) readField() string {
	start := p.pos
	if p.hasPrefix("*:") {
		p.pos += 2
		return "*"
	}
	for !p.eof() {
		r := p.in[p.pos]
		if r == '_' || unicode.IsLetter(r) || (p.pos > start && (unicode.IsDigit(r) || r == '.')) {
			p.pos++
			continue
		}
		break
	}
	if p.pos > start && p.peek() == ':' {
		name := string(p.in[start:p.pos])
		p.pos++
		return name
	}
	p.pos = start
	return ""
}

// readTerm reads an unquoted term, resolving escapes; wildcard reports unescaped * or ?
func (p *luceneParser) readTerm() (term string, wildcard bool) {
	var b strings.Builder
	for !p.eof() {
		r := p.in[p.pos]
		if r == '\\' && p.pos+1 < len(p.in) {
			b.WriteRune(p.in[p.pos+1])
			p.pos += 2
			continue
		}
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '^' || r == '~' {
			break
		}
		if r == '*' || r == '?' {
			wildcard = true
		}
		b.WriteRune(r)
		p.pos++
	}
	return b.String(), wildcard
}

func (p *luceneParser) readPhrase() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	var b strings.Builder
	for !p.eof() {
		r := p.in[p.pos]
		switch {
		case r == '\\' && p.pos+1 < len(p.in):
			b.WriteRune(p.in[p.pos+1])
			p.pos += 2
		case r == '"':
			p.pos++
			return b.String(), nil
		default:
			b.WriteRune(r)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated phrase at offset %d", start)
}

// modifiers applies trailing ^boost and ~fuzziness
func (p *luceneParser) modifiers(q query.Query) (query.Query, error) {
	for !p.eof() {
		switch p.peek() {
		case '^':
			p.pos++
			n := p.readNumber()
			boost, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid boost %q", n)
			}
			if bq, ok := q.(query.BoostableQuery); ok {
				bq.SetBoost(boost)
			}
		case '~':
			p.pos++
			distance := maxFuzziness
			if n := p.readNumber(); n != "" {
				f, err := strconv.ParseFloat(n, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid fuzziness %q", n)
				}
				distance = int(f)
			}
			if distance > maxFuzziness {
				distance = maxFuzziness
			}
			if mq, ok := q.(*query.MatchQuery); ok {
				mq.SetFuzziness(distance)
			}
		default:
			return q, nil
		}
	}
	return q, nil
}

func (p *luceneParser) readNumber() string {
	start := p.pos
	for !p.eof() && (unicode.IsDigit(p.in[p.pos]) || p.in[p.pos] == '.') {
		p.pos++
	}
	return string(p.in[start:p.pos])
}

// target resolves the field a clause queries; false drops the clause
func (p *luceneParser) target(field string) (string, bool) {
	if p.retarget == "" {
		return field, true
	}
	if kindOf(field) != kindText {
		return "", false
	}
	return p.retarget, true
}

func (p *luceneParser) termQuery(field, value string, wildcard bool) query.Query {
	field, ok := p.target(field)
	if !ok {
		return nil
	}

	switch kindOf(field) {
	case kindKeyword:
		if wildcard {
			q := bleve.NewWildcardQuery(value)
			q.SetField(field)
			return q
		}
		q := bleve.NewTermQuery(value)
		q.SetField(field)
		return q
	case kindNumeric:
		return numericEquals(field, value)
	case kindBool:
		return boolEquals(field, value)
	default:
		if wildcard {
			q := bleve.NewWildcardQuery(strings.ToLower(value))
			q.SetField(field)
			return q
		}
		q := bleve.NewMatchQuery(value)
		q.SetField(field)
		return q
	}
}

func (p *luceneParser) phraseQuery(field, phrase string) query.Query {
	field, ok := p.target(field)
	if !ok {
		return nil
	}

	switch kindOf(field) {
	case kindKeyword:
		q := bleve.NewTermQuery(phrase)
		q.SetField(field)
		return q
	case kindNumeric:
		return numericEquals(field, phrase)
	case kindBool:
		return boolEquals(field, phrase)
	default:
		q := bleve.NewMatchPhraseQuery(phrase)
		q.SetField(field)
		return q
	}
}

func numericEquals(field, value string) query.Query {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return bleve.NewMatchNoneQuery()
	}
	inclusive := true
	q := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
	q.SetField(field)
	return q
}

func boolEquals(field, value string) query.Query {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return bleve.NewMatchNoneQuery()
	}
	q := bleve.NewBoolFieldQuery(b)
	q.SetField(field)
	return q
}

// rangeQuery parses [lower TO upper] / {lower TO upper}
func (p *luceneParser) rangeQuery(field string) (query.Query, error) {
	start := p.pos
	minInclusive := p.peek() == '['
	p.pos++

	rest := string(p.in[p.pos:])
	end := strings.IndexAny(rest, "]}")
	if end < 0 {
		return nil, fmt.Errorf("unterminated range at offset %d", start)
	}
	body := rest[:end]
	maxInclusive := rest[end] == ']'
	p.pos += len([]rune(rest[:end+1]))

	bounds := strings.Fields(body)
	if len(bounds) != 3 || bounds[1] != "TO" {
		return nil, fmt.Errorf("invalid range %q at offset %d", body, start)
	}
	lower, upper := bounds[0], bounds[2]

	field, ok := p.target(field)
	if !ok {
		return nil, nil
	}

	if kindOf(field) == kindNumeric {
		var lo, hi *float64
		if lower != "*" {
			v, err := strconv.ParseFloat(lower, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid range bound %q", lower)
			}
			lo = &v
		}
		if upper != "*" {
			v, err := strconv.ParseFloat(upper, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid range bound %q", upper)
			}
			hi = &v
		}
		q := bleve.NewNumericRangeInclusiveQuery(lo, hi, &minInclusive, &maxInclusive)
		q.SetField(field)
		return q, nil
	}

	if lower == "*" {
		lower = ""
	}
	if upper == "*" {
		upper = ""
	}
	q := bleve.NewTermRangeInclusiveQuery(unquote(lower), unquote(upper), &minInclusive, &maxInclusive)
	q.SetField(field)
	return q, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// combine builds a query from clauses with Lucene occur semantics
// Optional clauses must match at least once unless a required clause exists.
func combine(clauses []clause) query.Query {
	var required, optional, excluded []query.Query
	for _, c := range clauses {
		switch c.occur {
		case must:
			required = append(required, c.q)
		case mustNot:
			excluded = append(excluded, c.q)
		default:
			optional = append(optional, c.q)
		}
	}

	if len(required) == 0 {
		if len(optional) == 0 {
			required = []query.Query{bleve.NewMatchAllQuery()}
		} else {
			required = []query.Query{disjunction(optional)}
		}
		optional = nil
	}

	if len(optional) == 0 && len(excluded) == 0 {
		if len(required) == 1 {
			return required[0]
		}
		return bleve.NewConjunctionQuery(required...)
	}
	return query.NewBooleanQuery(required, optional, excluded)
}

func disjunction(qs []query.Query) query.Query {
	switch len(qs) {
	case 0:
		return nil
	case 1:
		return qs[0]
	default:
		return bleve.NewDisjunctionQuery(qs...)
	}
}
