package stats

import "strings"

// CommonPrefixes is the vocabulary of leading naming segments counted as prefixes
var CommonPrefixes = []string{
	"get", "set", "is", "has", "can", "should", "use", "with", "to", "from",
	"create", "update", "delete", "remove", "add", "new", "make", "build", "init",
	"fetch", "load", "save", "read", "write", "find", "parse", "format", "render",
	"handle", "on", "validate", "check", "process", "compute", "test", "mock",
}

// CommonSuffixes is the vocabulary of trailing naming segments counted as suffixes
var CommonSuffixes = []string{
	"service", "controller", "handler", "manager", "provider", "factory", "helper",
	"helpers", "util", "utils", "config", "model", "view", "component", "module",
	"router", "routes", "store", "repository", "repo", "client", "server", "api",
	"adapter", "middleware", "hook", "hooks", "context", "reducer", "action", "actions",
	"schema", "dto", "entity", "resolver", "validator", "mapper", "builder", "worker",
	"job", "queue", "cache", "error", "errors", "constants", "types", "test", "spec",
}

// AffixMatcher recognises vocabulary prefixes and suffixes in file names
type AffixMatcher struct {
	prefixes   map[string]bool
	suffixes   map[string]bool
	segmenters []Segmenter
}

// NewAffixMatcher builds a matcher over the given vocabularies
func NewAffixMatcher(prefixes, suffixes []string, segmenters ...Segmenter) *AffixMatcher {
	m := &AffixMatcher{
		prefixes:   make(map[string]bool, len(prefixes)),
		suffixes:   make(map[string]bool, len(suffixes)),
		segmenters: segmenters,
	}
	for _, p := range prefixes {
		m.prefixes[strings.ToLower(p)] = true
	}
	for _, s := range suffixes {
		m.suffixes[strings.ToLower(s)] = true
	}
	return m
}

// DefaultMatcher uses the built-in vocabularies
func DefaultMatcher() *AffixMatcher {
	return NewAffixMatcher(CommonPrefixes, CommonSuffixes)
}

// Prefix returns the vocabulary prefix of a file name, e.g. "getUser.ts" -> "get"
// Single-segment names have no affix.
func (m *AffixMatcher) Prefix(fileName string) (string, bool) {
	segs := SegmentName(stem(fileName), m.segmenters...)
	if len(segs) < 2 || !m.prefixes[segs[0]] {
		return "", false
	}
	return segs[0], true
}

// Suffix returns the vocabulary suffix of a file name, e.g. "user.service.ts" -> "service"
func (m *AffixMatcher) Suffix(fileName string) (string, bool) {
	segs := SegmentName(stem(fileName), m.segmenters...)
	if len(segs) < 2 || !m.suffixes[segs[len(segs)-1]] {
		return "", false
	}
	return segs[len(segs)-1], true
}

// PrefixKey formats a prefix for display ("get-")
func PrefixKey(p string) string { return p + "-" }

// SuffixKey formats a suffix for display ("-service")
func SuffixKey(s string) string { return "-" + s }
