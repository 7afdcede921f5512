package main

import (
	"strings"

	"github.com/igusev/rgs/internal/history"
	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/ripgrep"
	"github.com/spf13/cobra"
)

func newFilesCmd(c *cli) *cobra.Command {
	var sf searchFlags

	cmd := &cobra.Command{
		Use:   "files [query...]",
		Short: "Count matches per file without storing a session",
		Long: `Preview which files match a query. Nothing is stored and the search is
bounded by search.preview_timeout (seconds).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := a.service.Preview(cmd.Context(), sf.options(strings.Join(args, " ")))
			if err != nil {
				return err
			}
			if c.jsonOut {
				if files == nil {
					files = []ripgrep.FileCount{}
				}
				return outputJSON(c.out, files)
			}
			a.printer.Files(files)
			return nil
		},
	}

	sf.register(cmd)
	return cmd
}

func newSymbolsCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "symbols <name>",
		Short: "Find definitions of a symbol in the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.service.Symbols(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return outputJSON(c.out, nonNilResults(results))
			}
			if len(results) == 0 {
				a.printer.Muted("No definitions of %s", args[0])
				return nil
			}
			a.printer.Matches(results, args[0])
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of definitions")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit int
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show frequently used queries",
		Long: `Show queries ranked by how often and how recently they were searched.
Queries searched in the current workspace rank higher.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			h := a.loadHistory()
			if reset {
				h.Clear()
				if err := h.Save(); err != nil {
					return err
				}
				logger.Success("Cleared query history")
				return nil
			}

			entries := h.Top(limit, a.workspace)
			if c.jsonOut {
				if entries == nil {
					entries = []history.Entry{}
				}
				return outputJSON(c.out, entries)
			}
			a.printer.History(entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of queries to show (0 for all)")
	cmd.Flags().BoolVar(&reset, "clear", false, "forget every query")
	return cmd
}
