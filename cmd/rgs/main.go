package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/igusev/rgs/internal/cache"
	"github.com/igusev/rgs/internal/history"
	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/session"
	"github.com/igusev/rgs/internal/settings"
	"github.com/igusev/rgs/internal/types"
	"github.com/spf13/cobra"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"     // Version from git tag or "dev"
	commit    = "unknown" // Git commit hash (used in version output)
	buildTime = "unknown" // Build timestamp (used in version output)
)

// cli holds the flag values of one command tree
type cli struct {
	out       io.Writer
	verbose   bool
	jsonOut   bool
	workspace string
	search    searchFlags
	sessionID string
	inResults bool
	noStore   bool
	remember  bool

	deps deps
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rgs [flags] [query...]",
		Short: "Ripgrep search sessions with a searchable result store",
		Long: `rgs runs ripgrep over a workspace and stores every search as a session.
Stored sessions can be searched again, highlighted, filtered and summarized.

Examples:
  rgs findUser                     # Search the current directory and store a session
  rgs -w -s UserService            # Whole word, case sensitive
  rgs --include '**/*.go' -C 3 err # Only Go files, 3 lines of context
  rgs --in-results Service         # Search inside the last session
  rgs query "user AND service"     # Query stored results of the last session
  rgs stats --filter extension=go  # Statistics of the last session, Go files only
  rgs sessions                     # List stored sessions

Configuration:
  ~/.config/rgs/config.yaml, every key can be overridden from the environment:
    RGS_INDEX_BACKEND=solr
    RGS_INDEX_SOLR_URL=http://localhost:8983/solr`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd, args)
		},
		Args:                       cobra.ArbitraryArgs,
		SuggestionsMinimumDistance: 2,
		SilenceUsage:               true,
		SilenceErrors:              true,
	}
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
	rootCmd.SetOut(c.out)

	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().StringVarP(&c.workspace, "workspace", "d", "", "workspace directory (default: current directory)")

	c.search.register(rootCmd)
	rootCmd.Flags().BoolVar(&c.inResults, "in-results", false, "search inside a stored session instead of the workspace")
	rootCmd.Flags().StringVar(&c.sessionID, "session", "", "session to search with --in-results (default: last session)")
	rootCmd.Flags().BoolVar(&c.noStore, "no-store", false, "do not store the search as a session")
	rootCmd.Flags().BoolVar(&c.remember, "remember", false, "remember these search options as defaults")
	rootCmd.Flags().SetInterspersed(true)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(c.verbose)
		logger.Debug("Verbose mode enabled")
	}

	rootCmd.AddCommand(
		newQueryCmd(c),
		newSessionsCmd(c),
		newDeleteCmd(c),
		newClearCmd(c),
		newStatsCmd(c),
		newFilesCmd(c),
		newSymbolsCmd(c),
		newHistoryCmd(c),
		newConfigCmd(c),
	)
	return rootCmd
}

// searchOutput is the JSON shape of a workspace or in-results search
type searchOutput struct {
	SessionID string                     `json:"session_id"`
	Query     string                     `json:"query"`
	Options   types.SearchOptions        `json:"options"`
	Matches   []types.SearchResult       `json:"matches"`
	Records   []types.StoredSearchResult `json:"records,omitempty"`
	Files     int                        `json:"files"`
	Stored    bool                       `json:"stored"`
}

// runSearch handles the default search behavior
func (c *cli) runSearch(cmd *cobra.Command, args []string) error {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return cmd.Help()
	}

	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := c.search.options(q)
	if c.inResults {
		opts.SearchInResults = true
		opts.SessionID, err = a.sessionOrLast(c.sessionID)
		if err != nil {
			return err
		}
	}

	if c.remember {
		a.service.Settings().Set(settings.PanelSearch, settings.FromOptions(opts))
		if err := a.service.Settings().Save(a.settingsPath); err != nil {
			logger.Warn("Failed to save settings: %v", err)
		}
	}

	ctx := cmd.Context()
	var out *session.Outcome
	if c.noStore && !c.inResults {
		out, err = a.service.Run(ctx, opts)
	} else {
		out, err = a.service.Search(ctx, opts)
	}
	if err != nil {
		return err
	}

	if c.jsonOut {
		err = outputJSON(c.out, searchOutput{
			SessionID: out.SessionID,
			Query:     q,
			Options:   out.Options,
			Matches:   nonNilResults(out.Results),
			Records:   out.Records,
			Files:     out.Files,
			Stored:    out.Store != nil && out.Store.Count > 0,
		})
	} else {
		a.printOutcome(out, q)
	}

	// the process exits after this command, so the background write is awaited here
	stored := a.finishStore(out, q, c.deps.now())
	if !c.inResults {
		a.recordHistory(q, stored)
	}
	return err
}

func (a *app) printOutcome(out *session.Outcome, q string) {
	if out.Options.SearchInResults {
		a.printer.Records(out.Records, true)
	} else {
		a.printer.Matches(out.Results, q)
	}
	if len(out.Results) > 0 {
		a.printer.Muted("")
	}
	a.printer.Muted("%d matches in %d files", len(out.Results), out.Files)
}

// finishStore waits for the session write and updates the local session log
// It returns the stored session id, or "" when nothing was stored.
func (a *app) finishStore(out *session.Outcome, q string, now time.Time) string {
	if out.Store == nil || out.Store.Count == 0 {
		return ""
	}
	if err := out.Store.Wait(); err != nil {
		return ""
	}

	if err := a.cache.SaveLastSession(out.SessionID); err != nil {
		logger.Warn("Failed to remember session: %v", err)
	}
	if err := a.cache.SaveLastSearchTime(now); err != nil {
		logger.Debug("Failed to save search time: %v", err)
	}
	entry := cache.SessionEntry{ID: out.SessionID, Time: now, Matches: out.Store.Count, Query: q}
	if err := a.cache.AppendSession(entry); err != nil {
		logger.Debug("Failed to append session log: %v", err)
	}
	return out.SessionID
}

func (a *app) recordHistory(q, sessionID string) {
	h := a.loadHistory()
	h.Record(q, a.workspace, sessionID)
	if err := h.Save(); err != nil {
		logger.Debug("Failed to save history: %v", err)
	}
}

func (a *app) loadHistory() *history.History {
	if a.history == nil {
		a.history = history.New(a.historyPath)
		if err := <-a.history.LoadAsync(); err != nil {
			logger.Debug("Failed to load history: %v", err)
		}
	}
	return a.history
}

func nonNilResults(r []types.SearchResult) []types.SearchResult {
	if r == nil {
		return []types.SearchResult{}
	}
	return r
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &cli{out: os.Stdout, deps: defaultDeps()}
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
