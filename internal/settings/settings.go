// Package settings holds per-panel search fine-tuning and named filter presets
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/igusev/rgs/internal/types"
	"gopkg.in/yaml.v3"
)

// Panel identifies the surface a fine-tuning belongs to
type Panel string

// Panels
const (
	PanelSearch  Panel = "search"
	PanelResults Panel = "results"
	PanelStats   Panel = "stats"
)

// ErrUnknownPanel is returned for panel names outside the known set
var ErrUnknownPanel = errors.New("unknown panel")

// ParsePanel validates a panel name
func ParsePanel(s string) (Panel, error) {
	switch p := Panel(s); p {
	case PanelSearch, PanelResults, PanelStats:
		return p, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownPanel, s)
	}
}

// FineTuning is the last-used option set of one panel
// Zero values mean "not set" and never override request options.
type FineTuning struct {
	CaseSensitive bool     `yaml:"case_sensitive,omitempty"`
	WholeWord     bool     `yaml:"whole_word,omitempty"`
	UseRegex      bool     `yaml:"use_regex,omitempty"`
	ContextBefore int      `yaml:"context_before,omitempty"`
	ContextAfter  int      `yaml:"context_after,omitempty"`
	MaxResults    int      `yaml:"max_results,omitempty"`
	Include       []string `yaml:"include,omitempty"`
	Exclude       []string `yaml:"exclude,omitempty"`
}

// IsZero reports whether nothing is set
func (f FineTuning) IsZero() bool {
	return !f.CaseSensitive && !f.WholeWord && !f.UseRegex &&
		f.ContextBefore == 0 && f.ContextAfter == 0 && f.MaxResults == 0 &&
		len(f.Include) == 0 && len(f.Exclude) == 0
}

// FromOptions captures the tunable part of a request
func FromOptions(opts types.SearchOptions) FineTuning {
	before, after := opts.ContextWindow()
	return FineTuning{
		CaseSensitive: opts.CaseSensitive,
		WholeWord:     opts.WholeWord,
		UseRegex:      opts.UseRegex,
		ContextBefore: before,
		ContextAfter:  after,
		MaxResults:    opts.MaxResults,
		Include:       append([]string(nil), opts.IncludePatterns...),
		Exclude:       append([]string(nil), opts.ExcludePatterns...),
	}
}

// Store holds fine-tuning per panel
// It lives for one process; Load and Save are optional persistence.
type Store struct {
	mu     sync.RWMutex
	panels map[Panel]FineTuning
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{panels: make(map[Panel]FineTuning)}
}

// Get returns the fine-tuning of a panel and whether one is set
func (s *Store) Get(p Panel) (FineTuning, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ft, ok := s.panels[p]
	return ft, ok
}

// Set replaces the fine-tuning of a panel; a zero value removes it
func (s *Store) Set(p Panel, ft FineTuning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ft.IsZero() {
		delete(s.panels, p)
		return
	}
	s.panels[p] = ft
}

// Reset removes the fine-tuning of the given panels, or of every panel when none is given
func (s *Store) Reset(panels ...Panel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(panels) == 0 {
		s.panels = make(map[Panel]FineTuning)
		return
	}
	for _, p := range panels {
		delete(s.panels, p)
	}
}

// Panels returns the panels that have fine-tuning, sorted
func (s *Store) Panels() []Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Panel, 0, len(s.panels))
	for p := range s.panels {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Apply fills unset fields of opts from the panel's fine-tuning
// Flags already true and counts already non-zero in opts win.
func (s *Store) Apply(p Panel, opts types.SearchOptions) types.SearchOptions {
	ft, ok := s.Get(p)
	if !ok {
		return opts
	}

	opts.CaseSensitive = opts.CaseSensitive || ft.CaseSensitive
	opts.WholeWord = opts.WholeWord || ft.WholeWord
	opts.UseRegex = opts.UseRegex || ft.UseRegex
	if opts.ContextLinesBefore == 0 && opts.ContextLinesAfter == 0 && opts.ContextLines == 0 {
		opts.ContextLinesBefore = ft.ContextBefore
		opts.ContextLinesAfter = ft.ContextAfter
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = ft.MaxResults
	}
	if len(opts.IncludePatterns) == 0 {
		opts.IncludePatterns = append([]string(nil), ft.Include...)
	}
	if len(opts.ExcludePatterns) == 0 {
		opts.ExcludePatterns = append([]string(nil), ft.Exclude...)
	}
	return opts
}

// Load reads a store saved with Save; a missing file yields an empty store
func Load(path string) (*Store, error) {
	s := NewStore()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var raw map[Panel]FineTuning
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	for p, ft := range raw {
		if _, err := ParsePanel(string(p)); err != nil {
			continue
		}
		s.Set(p, ft)
	}
	return s, nil
}

// Save writes the store as YAML
func (s *Store) Save(path string) error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.panels)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
