package main

import (
	"fmt"
	"path/filepath"

	"github.com/igusev/rgs/internal/config"
	"github.com/igusev/rgs/internal/index"
	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/settings"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(c *cli) *cobra.Command {
	var (
		initExample bool
		schema      bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration",
		Long: `Print the effective configuration (file, environment and defaults merged).

  rgs config --init     # Write ~/.config/rgs/config.yaml.example
  rgs config --schema   # Add the rgs fields to the configured Solr core`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if initExample {
				if err := config.CreateExampleConfig(); err != nil {
					return fmt.Errorf("failed to create example config: %w", err)
				}
				logger.Success("Example configuration written to %s", config.ExampleConfigPath())
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			if schema {
				if cfg.Index.Backend != index.BackendSolr {
					return fmt.Errorf("schema setup needs index.backend=%s (current: %s)", index.BackendSolr, cfg.Index.Backend)
				}
				solr := index.NewSolrClient(cfg.Index.SolrURL, cfg.Index.Core, cfg.Index.GetTimeout())
				if err := solr.EnsureSchema(cmd.Context()); err != nil {
					return fmt.Errorf("schema setup failed: %w", err)
				}
				logger.Success("Solr core %s is ready", cfg.Index.Core)
				return nil
			}

			if c.jsonOut {
				return outputJSON(c.out, cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintf(c.out, "# %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
			_, err = c.out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&initExample, "init", false, "write an example configuration file")
	cmd.Flags().BoolVar(&schema, "schema", false, "create the Solr fields used by rgs")

	cmd.AddCommand(newPresetCmd(c), newSettingsCmd(c))
	return cmd
}

func newPresetCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage filter presets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List filter presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if c.jsonOut {
				presets := cfg.Presets
				if presets == nil {
					presets = []config.Preset{}
				}
				return outputJSON(c.out, presets)
			}
			if len(cfg.Presets) == 0 {
				fmt.Fprintln(c.out, "No presets configured")
				return nil
			}
			data, err := yaml.Marshal(cfg.Presets)
			if err != nil {
				return fmt.Errorf("failed to marshal presets: %w", err)
			}
			_, err = c.out.Write(data)
			return err
		},
	}

	var p config.Preset
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace a filter preset",
		Example: `  rgs config preset add web --include 'web/**' --exclude '**/*.min.js' -B 2 -A 2
  rgs config preset add handlers --filter suffix=Handler`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			p.Name = args[0]
			if _, err := parseFilters(p.Filters); err != nil {
				return err
			}
			if err := cfg.AddPreset(p); err != nil {
				return err
			}
			logger.Success("Saved preset %s", p.Name)
			return nil
		},
	}
	add.Flags().StringVar(&p.Description, "description", "", "what the preset is for")
	add.Flags().StringArrayVar(&p.Include, "include", nil, "include glob (repeatable)")
	add.Flags().StringArrayVar(&p.Exclude, "exclude", nil, "exclude glob (repeatable)")
	add.Flags().BoolVarP(&p.CaseSensitive, "case-sensitive", "s", false, "match case")
	add.Flags().BoolVarP(&p.WholeWord, "word", "w", false, "match whole words only")
	add.Flags().BoolVarP(&p.Regex, "regex", "e", false, "treat queries as regular expressions")
	add.Flags().IntVarP(&p.ContextBefore, "before-context", "B", 0, "lines of context before each match")
	add.Flags().IntVarP(&p.ContextAfter, "after-context", "A", 0, "lines of context after each match")
	add.Flags().StringArrayVarP(&p.Filters, "filter", "f", nil, "statistics drill-down filter kind=value (repeatable)")

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a filter preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if _, ok := cfg.Preset(args[0]); !ok {
				_, err := settings.Resolve(settings.NewPresetList(cfg.Presets), args[0])
				return err
			}
			if err := cfg.RemovePreset(args[0]); err != nil {
				return err
			}
			logger.Success("Removed preset %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func newSettingsCmd(c *cli) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "settings [panel]",
		Short: "Show or reset remembered search options",
		Long: `Options saved with --remember apply to later searches that leave them unset.
Panels: search (workspace searches), results (rgs query), stats.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			path := filepath.Join(cfg.Cache.Dir, settingsFileName)
			store, err := settings.Load(path)
			if err != nil {
				return err
			}

			var panels []settings.Panel
			for _, name := range args {
				p, err := settings.ParsePanel(name)
				if err != nil {
					return err
				}
				panels = append(panels, p)
			}

			if reset {
				store.Reset(panels...)
				if err := store.Save(path); err != nil {
					return err
				}
				logger.Success("Reset remembered options")
				return nil
			}

			if len(panels) == 0 {
				panels = store.Panels()
			}
			shown := make(map[settings.Panel]settings.FineTuning, len(panels))
			for _, p := range panels {
				if ft, ok := store.Get(p); ok {
					shown[p] = ft
				}
			}
			if c.jsonOut {
				return outputJSON(c.out, shown)
			}
			if len(shown) == 0 {
				fmt.Fprintln(c.out, "No remembered options")
				return nil
			}
			data, err := yaml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("failed to marshal settings: %w", err)
			}
			_, err = c.out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "forget remembered options (all panels when none is given)")
	return cmd
}
