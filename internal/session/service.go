// Package session runs searches, persists them as sessions and reads them back
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/igusev/rgs/internal/highlight"
	"github.com/igusev/rgs/internal/index"
	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/query"
	"github.com/igusev/rgs/internal/record"
	"github.com/igusev/rgs/internal/ripgrep"
	"github.com/igusev/rgs/internal/settings"
	"github.com/igusev/rgs/internal/stats"
	"github.com/igusev/rgs/internal/types"
)

var (
	// ErrSearchFailed wraps every collaborator failure surfaced to the user
	ErrSearchFailed = errors.New("search failed")
	// ErrNoSession is returned when an operation needs a session and none is known
	ErrNoSession = errors.New("no session")
	// ErrEmptyQuery is returned for a workspace search without a query
	ErrEmptyQuery = errors.New("empty query")
)

// Config carries the defaults the service applies to every request
type Config struct {
	Workspace      string
	Defaults       query.Defaults
	ContextBefore  int
	ContextAfter   int
	Highlight      highlight.Overrides
	PreviewTimeout time.Duration
	StoreTimeout   time.Duration
}

// Service wires the text searcher, the result index, settings and presets
type Service struct {
	searcher ripgrep.Searcher
	index    index.Client
	settings *settings.Store
	presets  settings.Presets
	cfg      Config
	now      func() time.Time
}

// NewService creates a service; store and presets may be nil
func NewService(searcher ripgrep.Searcher, idx index.Client, store *settings.Store, presets settings.Presets, cfg Config) *Service {
	if store == nil {
		store = settings.NewStore()
	}
	if presets == nil {
		presets = settings.NewPresetList(nil)
	}
	if cfg.Defaults.MaxResults <= 0 || cfg.Defaults.MaxFiles <= 0 {
		d := query.DefaultDefaults()
		if cfg.Defaults.MaxResults <= 0 {
			cfg.Defaults.MaxResults = d.MaxResults
		}
		if cfg.Defaults.MaxFiles <= 0 {
			cfg.Defaults.MaxFiles = d.MaxFiles
		}
	}
	return &Service{
		searcher: searcher,
		index:    idx,
		settings: store,
		presets:  presets,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Settings returns the settings store the service reads fine-tuning from
func (s *Service) Settings() *settings.Store {
	return s.settings
}

// Outcome is the result of a workspace search
type Outcome struct {
	SessionID string
	Options   types.SearchOptions // after presets, settings and defaults
	Results   []types.SearchResult
	Records   []types.StoredSearchResult
	Files     int
	// Store is nil when the search was not persisted
	Store *StoreTask
}

// Resolve applies the preset, the panel fine-tuning and the configured defaults to opts
func (s *Service) Resolve(panel settings.Panel, opts types.SearchOptions) (types.SearchOptions, error) {
	if opts.Preset != "" {
		p, err := settings.Resolve(s.presets, opts.Preset)
		if err != nil {
			return opts, err
		}
		opts = settings.ApplyPreset(p, opts)
	}
	opts = s.settings.Apply(panel, opts)

	if opts.ContextLinesBefore == 0 && opts.ContextLinesAfter == 0 && opts.ContextLines == 0 {
		opts.ContextLinesBefore = s.cfg.ContextBefore
		opts.ContextLinesAfter = s.cfg.ContextAfter
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = s.cfg.Defaults.MaxResults
	}
	if opts.MaxResults > query.MaxRows {
		opts.MaxResults = query.MaxRows
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = s.cfg.Defaults.MaxFiles
	}
	return opts, nil
}

// Run searches the workspace without storing anything
func (s *Service) Run(ctx context.Context, opts types.SearchOptions) (*Outcome, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, ErrEmptyQuery
	}
	opts, err := s.Resolve(settings.PanelSearch, opts)
	if err != nil {
		return nil, err
	}

	start := s.now()
	var results []types.SearchResult
	err = s.searcher.Search(ctx, opts, s.cfg.Workspace, func(r types.SearchResult) bool {
		results = append(results, r)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	sessionID := record.NewSessionID(start)
	b := &record.Builder{
		SessionID: sessionID,
		Options:   opts,
		Workspace: s.cfg.Workspace,
		Now:       s.now,
	}
	records := b.Build(results)

	files := make(map[string]bool)
	for _, r := range results {
		files[r.File] = true
	}
	logger.Debug("Found %d matches in %d files for %q", len(results), len(files), opts.Query)

	return &Outcome{
		SessionID: sessionID,
		Options:   opts,
		Results:   results,
		Records:   records,
		Files:     len(files),
	}, nil
}

// Search runs a workspace search and stores it as a new session
// With SearchInResults set the stored results are queried instead and nothing new is stored.
// Storing is fire-and-forget: fresh results are returned before the write completes.
func (s *Service) Search(ctx context.Context, opts types.SearchOptions) (*Outcome, error) {
	if opts.SearchInResults {
		return s.searchInResults(ctx, opts)
	}

	out, err := s.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	out.Store = startStore(ctx, s.index, out.SessionID, out.Records, s.cfg.StoreTimeout)
	return out, nil
}

func (s *Service) searchInResults(ctx context.Context, opts types.SearchOptions) (*Outcome, error) {
	if opts.SessionID == "" {
		return nil, ErrNoSession
	}
	res, err := s.Query(ctx, opts, opts.SessionID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{SessionID: opts.SessionID, Options: res.Options, Records: res.Records}
	files := make(map[string]bool)
	for _, rec := range res.Records {
		out.Results = append(out.Results, record.ToSearchResult(rec))
		files[rec.FilePath] = true
	}
	out.Files = len(files)
	return out, nil
}

// QueryResult is a page of stored, highlighted records
type QueryResult struct {
	Options  types.SearchOptions
	NumFound int
	Start    int
	Records  []types.StoredSearchResult
}

// Query searches stored records, scoped to sessionID when non-empty, and highlights them
func (s *Service) Query(ctx context.Context, opts types.SearchOptions, sessionID string) (*QueryResult, error) {
	opts, err := s.Resolve(settings.PanelResults, opts)
	if err != nil {
		return nil, err
	}

	params := query.BuildSearchParams(opts, sessionID, s.cfg.Defaults).
		Merge(highlight.BuildParams(s.cfg.Highlight))
	logger.Debug("Index query: %s", params.String())

	resp, err := s.index.Query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	return &QueryResult{
		Options:  opts,
		NumFound: resp.NumFound,
		Start:    resp.Start,
		Records:  highlight.Apply(resp.Docs, resp.Highlighting, opts.Query),
	}, nil
}

// Sessions lists stored sessions, newest first
func (s *Service) Sessions(ctx context.Context) ([]stats.SessionGroup, error) {
	records, err := index.FetchAll(ctx, s.index, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	return stats.GroupBySession(records), nil
}

// DeleteSession removes every record of a session
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if err := index.DeleteSession(ctx, s.index, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// Clear removes every stored record
func (s *Service) Clear(ctx context.Context) error {
	if err := index.DeleteAll(ctx, s.index); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	return nil
}

// StatsResult is a statistics report over the records left after drill-down filters
type StatsResult struct {
	Report  stats.Report
	Records []types.StoredSearchResult
}

// Stats computes statistics over a session (all sessions when sessionID is empty)
func (s *Service) Stats(ctx context.Context, sessionID string, filters []stats.Filter, opts stats.Options) (*StatsResult, error) {
	filter := ""
	if sessionID != "" {
		filter = index.SessionQuery(sessionID)
	}
	records, err := index.FetchAll(ctx, s.index, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	if opts.Now.IsZero() {
		opts.Now = s.now()
	}
	if len(filters) > 0 {
		records = stats.ApplyAll(records, filters, opts.Now)
	}
	return &StatsResult{Report: stats.Compute(records, opts), Records: records}, nil
}

// Preview counts matches per file, bounded by the preview timeout
func (s *Service) Preview(ctx context.Context, opts types.SearchOptions) ([]ripgrep.FileCount, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, ErrEmptyQuery
	}
	opts, err := s.Resolve(settings.PanelSearch, opts)
	if err != nil {
		return nil, err
	}

	if s.cfg.PreviewTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PreviewTimeout)
		defer cancel()
	}

	files, err := s.searcher.FilesWithMatches(ctx, opts, s.cfg.Workspace)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ripgrep.ErrTimeout) {
			err = fmt.Errorf("%w after %s", ripgrep.ErrTimeout, s.cfg.PreviewTimeout)
		}
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	return files, nil
}

// Symbols finds definition sites of name in the workspace
func (s *Service) Symbols(ctx context.Context, name string, limit int) ([]types.SearchResult, error) {
	var results []types.SearchResult
	err := s.searcher.Symbols(ctx, name, s.cfg.Workspace, func(r types.SearchResult) bool {
		results = append(results, r)
		return limit <= 0 || len(results) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	return results, nil
}
