package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/igusev/rgs/internal/cache"
	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/settings"
	"github.com/igusev/rgs/internal/stats"
	"github.com/igusev/rgs/internal/types"
	"github.com/spf13/cobra"
)

// queryOutput is the JSON shape of a stored-results query
type queryOutput struct {
	SessionID string                     `json:"session_id,omitempty"`
	Options   types.SearchOptions        `json:"options"`
	NumFound  int                        `json:"num_found"`
	Start     int                        `json:"start"`
	Records   []types.StoredSearchResult `json:"records"`
}

func newQueryCmd(c *cli) *cobra.Command {
	var (
		sessionID     string
		all           bool
		offset        int
		rows          int
		caseSensitive bool
		wholeWord     bool
		noSnippets    bool
		remember      bool
	)

	cmd := &cobra.Command{
		Use:   "query [query...]",
		Short: "Query stored results with highlighting",
		Long: `Query the stored results of a session (the last one by default).
The query uses the index query syntax: plain words and phrases are searched in
both natural-language and code-aware fields, "field:value" is passed through.

Examples:
  rgs query                          # Every record of the last session
  rgs query userService              # camelCase aware
  rgs query 'file_extension:go AND user'
  rgs query --all "connection refused"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			sid := ""
			if !all {
				if sid, err = a.sessionOrLast(sessionID); err != nil {
					return err
				}
			}

			opts := types.SearchOptions{
				Query:         strings.TrimSpace(strings.Join(args, " ")),
				MaxResults:    rows,
				Offset:        offset,
				CaseSensitive: caseSensitive,
				WholeWord:     wholeWord,
			}
			if remember {
				a.service.Settings().Set(settings.PanelResults, settings.FromOptions(opts))
				if err := a.service.Settings().Save(a.settingsPath); err != nil {
					logger.Warn("Failed to save settings: %v", err)
				}
			}

			res, err := a.service.Query(cmd.Context(), opts, sid)
			if err != nil {
				return err
			}

			if c.jsonOut {
				return outputJSON(c.out, queryOutput{
					SessionID: sid,
					Options:   res.Options,
					NumFound:  res.NumFound,
					Start:     res.Start,
					Records:   nonNilRecords(res.Records),
				})
			}

			a.printer.Records(res.Records, !noSnippets)
			if len(res.Records) == 0 {
				a.printer.Muted("No stored matches")
				return nil
			}
			a.printer.Muted("")
			a.printer.Muted("Showing %d-%d of %d matches", res.Start+1, res.Start+len(res.Records), res.NumFound)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session to query (default: last session)")
	cmd.Flags().BoolVar(&all, "all", false, "query every stored session")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many matches")
	cmd.Flags().IntVarP(&rows, "max-results", "n", 0, "maximum number of matches (default from config)")
	cmd.Flags().BoolVarP(&caseSensitive, "case-sensitive", "s", false, "only sessions searched case sensitively")
	cmd.Flags().BoolVarP(&wholeWord, "word", "w", false, "only sessions searched for whole words")
	cmd.Flags().BoolVar(&noSnippets, "no-snippets", false, "do not print highlight snippets")
	cmd.Flags().BoolVar(&remember, "remember", false, "remember these options as defaults for queries")
	return cmd
}

func newSessionsCmd(c *cli) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if local {
				entries, err := a.cache.ReadSessions()
				if err != nil && !os.IsNotExist(err) {
					return err
				}
				return c.printLocalSessions(a, entries)
			}

			groups, err := a.service.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				if groups == nil {
					groups = []stats.SessionGroup{}
				}
				return outputJSON(c.out, groups)
			}
			a.printer.Sessions(groups)
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "list the local session log without reading the index")
	return cmd
}

func (c *cli) printLocalSessions(a *app, entries []cache.SessionEntry) error {
	groups := make([]stats.SessionGroup, 0, len(entries))
	// the log is oldest first
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		groups = append(groups, stats.SessionGroup{
			ID:        e.ID,
			Query:     e.Query,
			Timestamp: e.Time.UTC().Format(time.RFC3339),
			Count:     e.Matches,
		})
	}
	if c.jsonOut {
		return outputJSON(c.out, groups)
	}
	a.printer.Sessions(groups)
	return nil
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a stored session (the last one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			if id, err = a.sessionOrLast(id); err != nil {
				return err
			}

			if err := a.service.DeleteSession(cmd.Context(), id); err != nil {
				return err
			}
			if err := a.cache.ForgetSession(id); err != nil {
				logger.Warn("Failed to update session log: %v", err)
			}
			logger.Success("Deleted session %s", id)
			return nil
		},
	}
}

func newClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Clear(cmd.Context()); err != nil {
				return err
			}
			if err := a.cache.Clear(); err != nil {
				logger.Warn("Failed to clear session log: %v", err)
			}
			logger.Success("Cleared all stored sessions")
			return nil
		},
	}
}

// statsOutput is the JSON shape of a statistics report
type statsOutput struct {
	SessionID string         `json:"session_id,omitempty"`
	Filters   []stats.Filter `json:"filters,omitempty"`
	Report    stats.Report   `json:"report"`
}

func newStatsCmd(c *cli) *cobra.Command {
	var (
		sessionID string
		all       bool
		filters   []string
		preset    string
		top       int
		list      bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize stored results by folder, extension, name pattern and age",
		Long: `Summarize the stored results of a session (the last one by default).
Filters drill down into one entry of a category before summarizing.

Filter kinds: folder, extension, filename, prefix, suffix, recent, glob

Examples:
  rgs stats
  rgs stats --filter extension=go --filter prefix=get
  rgs stats --filter recent=7d --list
  rgs stats --all --top 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			sid := ""
			if !all {
				if sid, err = a.sessionOrLast(sessionID); err != nil {
					return err
				}
			}

			var specs []string
			if preset != "" {
				p, err := settings.Resolve(settings.NewPresetList(a.cfg.Presets), preset)
				if err != nil {
					return err
				}
				specs = append(specs, p.Filters...)
			}
			parsed, err := parseFilters(append(specs, filters...))
			if err != nil {
				return err
			}

			res, err := a.service.Stats(cmd.Context(), sid, parsed, stats.Options{TopN: top, Now: c.deps.now()})
			if err != nil {
				return err
			}

			if c.jsonOut {
				return outputJSON(c.out, statsOutput{SessionID: sid, Filters: parsed, Report: res.Report})
			}
			a.printer.Muted("Statistics for %s", sessionLabel(sid))
			if len(parsed) > 0 {
				names := make([]string, len(parsed))
				for i, f := range parsed {
					names[i] = f.String()
				}
				a.printer.Muted("Filtered by %s", strings.Join(names, ", "))
			}
			a.printer.Stats(res.Report)
			if list {
				a.printer.Muted("")
				a.printer.Records(res.Records, false)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session to summarize (default: last session)")
	cmd.Flags().BoolVar(&all, "all", false, "summarize every stored session")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "drill-down filter kind=value (repeatable)")
	cmd.Flags().StringVar(&preset, "preset", "", "apply the filters of a preset")
	cmd.Flags().IntVar(&top, "top", stats.DefaultTopN, "entries per category")
	cmd.Flags().BoolVar(&list, "list", false, "also print the filtered matches")
	return cmd
}

func parseFilters(specs []string) ([]stats.Filter, error) {
	parsed := make([]stats.Filter, 0, len(specs))
	for _, s := range specs {
		f, err := stats.ParseFilter(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, f)
	}
	return parsed, nil
}

func nonNilRecords(r []types.StoredSearchResult) []types.StoredSearchResult {
	if r == nil {
		return []types.StoredSearchResult{}
	}
	return r
}

func sessionLabel(id string) string {
	if id == "" {
		return "all sessions"
	}
	return fmt.Sprintf("session %s", id)
}
