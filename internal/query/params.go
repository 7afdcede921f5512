package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/igusev/rgs/internal/types"
)

const (
	// MaxRows is the hard upper bound on rows per request
	MaxRows = 10000

	// DefaultSort orders by relevance, newest session first on ties
	DefaultSort = "score desc, search_timestamp desc"
	// DefaultFieldList returns all stored fields plus the computed score
	DefaultFieldList = "*,score"

	filterCombinator = " AND "
)

// Parameter names
const (
	ParamQuery  = "q"
	ParamRows   = "rows"
	ParamStart  = "start"
	ParamFormat = "wt"
	ParamSort   = "sort"
	ParamFields = "fl"
	ParamFilter = "fq"
)

// Defaults carries the configured fallbacks for per-call options
type Defaults struct {
	MaxResults int
	MaxFiles   int
}

// DefaultDefaults returns the built-in defaults used when configuration is absent
func DefaultDefaults() Defaults {
	return Defaults{MaxResults: 1000, MaxFiles: 500}
}

// Params is an insertion-ordered parameter map
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams creates an empty parameter map
func NewParams() Params {
	return Params{values: make(map[string]string)}
}

// Set assigns a value, keeping the position of an existing key
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for key, or "" when absent
func (p Params) Get(key string) string {
	return p.values[key]
}

// Has reports whether key is present
func (p Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Keys returns the keys in insertion order
func (p Params) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Len returns the number of parameters
func (p Params) Len() int {
	return len(p.keys)
}

// Merge returns a copy of p with every parameter of other applied on top
func (p Params) Merge(other Params) Params {
	out := NewParams()
	for _, k := range p.keys {
		out.Set(k, p.values[k])
	}
	for _, k := range other.keys {
		out.Set(k, other.values[k])
	}
	return out
}

// Values converts the parameters to url.Values for an HTTP request
func (p Params) Values() url.Values {
	v := make(url.Values, len(p.keys))
	for _, k := range p.keys {
		v.Set(k, p.values[k])
	}
	return v
}

// String renders the parameters as an encoded query string in insertion order
func (p Params) String() string {
	parts := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(p.values[k]))
	}
	return strings.Join(parts, "&")
}

// BuildSearchParams builds the base parameter set of a stored-results query
//
// sessionID, when non-empty, takes precedence over opts.SessionID. Highlighting
// parameters are never included; see the highlight package.
func BuildSearchParams(opts types.SearchOptions, sessionID string, defaults Defaults) Params {
	p := NewParams()
	p.Set(ParamQuery, Build(opts.Query))
	p.Set(ParamRows, strconv.Itoa(clampRows(opts.MaxResults, defaults.MaxResults)))
	if opts.Offset > 0 {
		p.Set(ParamStart, strconv.Itoa(opts.Offset))
	}
	p.Set(ParamFormat, "json")
	p.Set(ParamSort, DefaultSort)
	p.Set(ParamFields, DefaultFieldList)

	if sessionID == "" {
		sessionID = opts.SessionID
	}

	var filters []string
	if sessionID != "" {
		filters = append(filters, FieldEquals(types.FieldSessionID, sessionID))
	}
	if opts.CaseSensitive {
		filters = append(filters, types.FieldCaseSensitive+":true")
	}
	if opts.WholeWord {
		filters = append(filters, types.FieldWholeWord+":true")
	}
	if len(filters) > 0 {
		p.Set(ParamFilter, strings.Join(filters, filterCombinator))
	}

	return p
}

func clampRows(requested, fallback int) int {
	rows := requested
	if rows <= 0 {
		rows = fallback
	}
	if rows <= 0 {
		rows = DefaultDefaults().MaxResults
	}
	if rows > MaxRows {
		rows = MaxRows
	}
	return rows
}
