package stats

import (
	"path"
	"strings"
	"unicode"
)

// Segmenter splits a name into naming segments
type Segmenter interface {
	Segment(name string) []string
}

// DotSegmenter splits on '.' ("user.service" -> user, service)
type DotSegmenter struct{}

func (DotSegmenter) Segment(name string) []string {
	return strings.Split(name, ".")
}

// DelimiterSegmenter splits on any rune of Delimiters
type DelimiterSegmenter struct {
	Delimiters string
}

func (d DelimiterSegmenter) Segment(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return strings.ContainsRune(d.Delimiters, r)
	})
}

// CamelCaseSegmenter splits on case boundaries ("getUserID" -> get, User, ID; "HTTPServer" -> HTTP, Server)
type CamelCaseSegmenter struct{}

func (CamelCaseSegmenter) Segment(name string) []string {
	runes := []rune(name)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := (unicode.IsLower(prev) || unicode.IsDigit(prev)) && unicode.IsUpper(cur)
		if !boundary && unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

// DefaultSegmenters is the order segmenters are applied in
var DefaultSegmenters = []Segmenter{
	DotSegmenter{},
	DelimiterSegmenter{Delimiters: "_-"},
	CamelCaseSegmenter{},
}

// SegmentName applies every segmenter in turn to every segment produced so far
// and returns the lowercase, non-empty result
func SegmentName(name string, segmenters ...Segmenter) []string {
	if len(segmenters) == 0 {
		segmenters = DefaultSegmenters
	}

	parts := []string{name}
	for _, s := range segmenters {
		var next []string
		for _, p := range parts {
			next = append(next, s.Segment(p)...)
		}
		parts = next
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stem drops the final extension of a file name
func stem(fileName string) string {
	return strings.TrimSuffix(fileName, path.Ext(fileName))
}
