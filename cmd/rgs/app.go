package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/igusev/rgs/internal/cache"
	"github.com/igusev/rgs/internal/config"
	"github.com/igusev/rgs/internal/display"
	"github.com/igusev/rgs/internal/highlight"
	"github.com/igusev/rgs/internal/history"
	"github.com/igusev/rgs/internal/index"
	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/query"
	"github.com/igusev/rgs/internal/ripgrep"
	"github.com/igusev/rgs/internal/session"
	"github.com/igusev/rgs/internal/settings"
	"github.com/igusev/rgs/internal/types"
	"github.com/spf13/cobra"
)

const (
	settingsFileName = "settings.yaml"
	historyFileName  = "history.gob"
)

// deps are the collaborators tests replace
type deps struct {
	newSearcher func(cfg *config.Config) ripgrep.Searcher
	now         func() time.Time
}

func defaultDeps() deps {
	return deps{
		newSearcher: func(cfg *config.Config) ripgrep.Searcher {
			return ripgrep.NewClient(cfg.Search.Ripgrep, cfg.Search.GetPreviewTimeout())
		},
		now: time.Now,
	}
}

// app is everything one command invocation needs
type app struct {
	cfg          *config.Config
	index        index.Client
	service      *session.Service
	cache        *cache.Cache
	history      *history.History
	printer      *display.Printer
	workspace    string
	settingsPath string
	historyPath  string
}

// open loads the configuration and wires the index, the searcher and the session service
func (c *cli) open() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	workspace := c.workspace
	if workspace == "" {
		if workspace, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to resolve workspace: %w", err)
		}
	}
	if workspace, err = filepath.Abs(workspace); err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	stateCache := cache.New(cfg.Cache.Dir)
	if err := stateCache.EnsureDir(); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	idx, err := index.Open(index.Options{
		Backend: cfg.Index.Backend,
		Path:    cfg.Index.Path,
		SolrURL: cfg.Index.SolrURL,
		Core:    cfg.Index.Core,
		Timeout: cfg.Index.GetTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	logger.Debug("Using %s index", cfg.Index.Backend)

	settingsPath := filepath.Join(cfg.Cache.Dir, settingsFileName)
	store, err := settings.Load(settingsPath)
	if err != nil {
		logger.Warn("Ignoring saved settings: %v", err)
		store = settings.NewStore()
	}

	svc := session.NewService(c.deps.newSearcher(cfg), idx, store, settings.NewPresetList(cfg.Presets), session.Config{
		Workspace: workspace,
		Defaults: query.Defaults{
			MaxResults: cfg.Search.MaxResults,
			MaxFiles:   cfg.Search.MaxFiles,
		},
		ContextBefore: cfg.Search.ContextBefore,
		ContextAfter:  cfg.Search.ContextAfter,
		Highlight: highlight.Overrides{
			PreTag:       cfg.Highlight.PreTag,
			PostTag:      cfg.Highlight.PostTag,
			FragmentSize: cfg.Highlight.FragmentSize,
			Snippets:     cfg.Highlight.Snippets,
		},
		PreviewTimeout: cfg.Search.GetPreviewTimeout(),
		StoreTimeout:   cfg.Index.GetTimeout(),
	})

	return &app{
		cfg:          cfg,
		index:        idx,
		service:      svc,
		cache:        stateCache,
		printer:      display.NewPrinter(c.out),
		workspace:    workspace,
		settingsPath: settingsPath,
		historyPath:  filepath.Join(cfg.Cache.Dir, historyFileName),
	}, nil
}

// Close releases the index
func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		logger.Debug("Failed to close index: %v", err)
	}
}

// sessionOrLast returns id, or the last stored session when id is empty
func (a *app) sessionOrLast(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	last, err := a.cache.LoadLastSession()
	if err != nil {
		return "", err
	}
	if last == "" {
		return "", fmt.Errorf("%w: run a search first or pass --session", session.ErrNoSession)
	}
	return last, nil
}

// searchFlags are the ripgrep options shared by every searching command
type searchFlags struct {
	caseSensitive bool
	wholeWord     bool
	regex         bool
	include       []string
	exclude       []string
	after         int
	before        int
	context       int
	maxResults    int
	maxFiles      int
	preset        string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVarP(&f.caseSensitive, "case-sensitive", "s", false, "match case")
	fs.BoolVarP(&f.wholeWord, "word", "w", false, "match whole words only")
	fs.BoolVarP(&f.regex, "regex", "e", false, "treat the query as a regular expression")
	fs.StringArrayVar(&f.include, "include", nil, "only search paths matching this glob (repeatable)")
	fs.StringArrayVar(&f.exclude, "exclude", nil, "skip paths matching this glob (repeatable)")
	fs.IntVarP(&f.after, "after-context", "A", 0, "lines of context after each match")
	fs.IntVarP(&f.before, "before-context", "B", 0, "lines of context before each match")
	fs.IntVarP(&f.context, "context", "C", 0, "lines of context around each match")
	fs.IntVar(&f.maxResults, "max-results", 0, "maximum number of matches (default from config)")
	fs.IntVar(&f.maxFiles, "max-files", 0, "maximum number of files (default from config)")
	fs.StringVar(&f.preset, "preset", "", "apply a filter preset from the configuration")
}

func (f *searchFlags) options(q string) types.SearchOptions {
	return types.SearchOptions{
		Query:              q,
		MaxResults:         f.maxResults,
		MaxFiles:           f.maxFiles,
		IncludePatterns:    f.include,
		ExcludePatterns:    f.exclude,
		CaseSensitive:      f.caseSensitive,
		WholeWord:          f.wholeWord,
		UseRegex:           f.regex,
		ContextLinesBefore: f.before,
		ContextLinesAfter:  f.after,
		ContextLines:       f.context,
		Preset:             f.preset,
	}
}

// outputJSON writes v as indented JSON
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
