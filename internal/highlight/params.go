// Package highlight builds highlighting requests, highlights text on the client side
// and attaches highlighted variants and snippets to stored records
package highlight

import (
	"strconv"

	"github.com/igusev/rgs/internal/query"
	"github.com/igusev/rgs/internal/types"
)

const (
	// DefaultClassName is the CSS class of the highlight marker
	DefaultClassName = "highlight"
	// DefaultPreTag opens a highlighted span
	DefaultPreTag = `<mark class="highlight">`
	// DefaultPostTag closes a highlighted span
	DefaultPostTag = `</mark>`
	// DefaultFragmentSize is the server fragment size in characters
	DefaultFragmentSize = 150
	// DefaultSnippets is the number of fragments requested per field
	DefaultSnippets = 3
	// MaxAnalyzedChars caps how much of each document the server analyzes
	MaxAnalyzedChars = 51200
)

// Highlight parameter names
const (
	ParamEnabled          = "hl"
	ParamFields           = "hl.fl"
	ParamPre              = "hl.simple.pre"
	ParamPost             = "hl.simple.post"
	ParamFragSize         = "hl.fragsize"
	ParamSnippets         = "hl.snippets"
	ParamMaxAnalyzedChars = "hl.maxAnalyzedChars"
	ParamMultiTerm        = "hl.highlightMultiTerm"
	ParamMergeContiguous  = "hl.mergeContiguous"
)

// Overrides customizes the highlight request; zero values keep the defaults
type Overrides struct {
	PreTag       string
	PostTag      string
	FragmentSize int
	Snippets     int
}

// BuildParams returns the highlighting parameter set, always against display_content
func BuildParams(o Overrides) query.Params {
	pre, post := DefaultPreTag, DefaultPostTag
	if o.PreTag != "" {
		pre = o.PreTag
	}
	if o.PostTag != "" {
		post = o.PostTag
	}
	fragSize := DefaultFragmentSize
	if o.FragmentSize > 0 {
		fragSize = o.FragmentSize
	}
	snippets := DefaultSnippets
	if o.Snippets > 0 {
		snippets = o.Snippets
	}

	p := query.NewParams()
	p.Set(ParamEnabled, "true")
	p.Set(ParamFields, types.FieldDisplayContent)
	p.Set(ParamPre, pre)
	p.Set(ParamPost, post)
	p.Set(ParamFragSize, strconv.Itoa(fragSize))
	p.Set(ParamSnippets, strconv.Itoa(snippets))
	p.Set(ParamMaxAnalyzedChars, strconv.Itoa(MaxAnalyzedChars))
	p.Set(ParamMultiTerm, "true")
	p.Set(ParamMergeContiguous, "true")
	return p
}
