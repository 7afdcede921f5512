package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidBackend is returned when index.backend names an unknown backend
var ErrInvalidBackend = errors.New("invalid index backend")

// Backends accepted by index.backend
const (
	BackendBleve = "bleve"
	BackendSolr  = "solr"
)

const (
	defaultTimeout        = 30
	defaultPreviewTimeout = 8
	indexDirName          = "results.bleve"
)

// Config holds the application configuration
type Config struct {
	Index     IndexConfig     `mapstructure:"index" yaml:"index"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Highlight HighlightConfig `mapstructure:"highlight" yaml:"highlight"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Presets   []Preset        `mapstructure:"presets" yaml:"presets"`
}

// IndexConfig selects and configures the result store
type IndexConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"` // bleve only
	SolrURL string `mapstructure:"solr_url" yaml:"solr_url"`
	Core    string `mapstructure:"core" yaml:"core"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"` // timeout in seconds
}

// SearchConfig holds ripgrep defaults
type SearchConfig struct {
	MaxResults     int    `mapstructure:"max_results" yaml:"max_results"`
	MaxFiles       int    `mapstructure:"max_files" yaml:"max_files"`
	ContextBefore  int    `mapstructure:"context_before" yaml:"context_before"`
	ContextAfter   int    `mapstructure:"context_after" yaml:"context_after"`
	Ripgrep        string `mapstructure:"ripgrep" yaml:"ripgrep"`
	PreviewTimeout int    `mapstructure:"preview_timeout" yaml:"preview_timeout"` // seconds
}

// HighlightConfig overrides server-side highlighting
type HighlightConfig struct {
	FragmentSize int    `mapstructure:"fragment_size" yaml:"fragment_size"`
	Snippets     int    `mapstructure:"snippets" yaml:"snippets"`
	PreTag       string `mapstructure:"pre_tag" yaml:"pre_tag,omitempty"`
	PostTag      string `mapstructure:"post_tag" yaml:"post_tag,omitempty"`
}

// CacheConfig holds cache-specific settings
type CacheConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Preset is a named bundle of search options and drill-down filters
type Preset struct {
	Name          string   `mapstructure:"name" yaml:"name"`
	Description   string   `mapstructure:"description" yaml:"description,omitempty"`
	Include       []string `mapstructure:"include" yaml:"include,omitempty"`
	Exclude       []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	CaseSensitive bool     `mapstructure:"case_sensitive" yaml:"case_sensitive,omitempty"`
	WholeWord     bool     `mapstructure:"whole_word" yaml:"whole_word,omitempty"`
	Regex         bool     `mapstructure:"regex" yaml:"regex,omitempty"`
	ContextBefore int      `mapstructure:"context_before" yaml:"context_before,omitempty"`
	ContextAfter  int      `mapstructure:"context_after" yaml:"context_after,omitempty"`
	Filters       []string `mapstructure:"filters" yaml:"filters,omitempty"` // kind=value
}

// ConfigDir returns the directory holding config.yaml
func ConfigDir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "rgs")
}

func defaultCacheDir() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "rgs")
}

// setDefaults registers every default with viper
func setDefaults() {
	viper.SetDefault("index.backend", BackendBleve)
	viper.SetDefault("index.solr_url", "http://localhost:8983/solr")
	viper.SetDefault("index.core", "search_results")
	viper.SetDefault("index.timeout", defaultTimeout)
	viper.SetDefault("search.max_results", 1000)
	viper.SetDefault("search.max_files", 500)
	viper.SetDefault("search.context_before", 2)
	viper.SetDefault("search.context_after", 2)
	viper.SetDefault("search.ripgrep", "rg")
	viper.SetDefault("search.preview_timeout", defaultPreviewTimeout)
	viper.SetDefault("highlight.fragment_size", 150)
	viper.SetDefault("highlight.snippets", 3)
	viper.SetDefault("cache.dir", defaultCacheDir())
}

// Load loads configuration from file and environment variables
// A missing config file is not an error; every setting has a default.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(ConfigDir())
	viper.AddConfigPath(".")

	// RGS_INDEX_BACKEND overrides index.backend
	viper.SetEnvPrefix("RGS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize expands paths, fills derived defaults and validates
func (c *Config) normalize() error {
	c.Cache.Dir = expandPath(c.Cache.Dir)
	if c.Cache.Dir == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	c.Index.Path = expandPath(c.Index.Path)
	if c.Index.Path == "" {
		c.Index.Path = filepath.Join(c.Cache.Dir, indexDirName)
	}

	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
	switch c.Index.Backend {
	case "":
		c.Index.Backend = BackendBleve
	case BackendBleve, BackendSolr:
	default:
		return fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidBackend, c.Index.Backend, BackendBleve, BackendSolr)
	}

	if c.Index.Timeout <= 0 {
		c.Index.Timeout = defaultTimeout
	}
	if c.Search.PreviewTimeout <= 0 {
		c.Search.PreviewTimeout = defaultPreviewTimeout
	}
	if c.Search.Ripgrep == "" {
		c.Search.Ripgrep = "rg"
	}
	if c.Search.ContextBefore < 0 {
		c.Search.ContextBefore = 0
	}
	if c.Search.ContextAfter < 0 {
		c.Search.ContextAfter = 0
	}
	return nil
}

// GetTimeout returns the index request timeout as time.Duration
func (c *IndexConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetPreviewTimeout returns the files-only preview timeout as time.Duration
func (c *SearchConfig) GetPreviewTimeout() time.Duration {
	return time.Duration(c.PreviewTimeout) * time.Second
}

// expandPath expands ~ to home directory in paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home := os.Getenv("HOME")
		if len(path) == 1 {
			return home
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// EnsureConfigDir ensures the config directory exists
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}

// ExampleConfigPath returns the path where the example config should be created
func ExampleConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml.example")
}

// Preset returns the preset with the given name
func (c *Config) Preset(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// AddPreset adds or replaces a preset and saves the configuration
func (c *Config) AddPreset(p Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("preset name is required")
	}
	for i, existing := range c.Presets {
		if existing.Name == p.Name {
			c.Presets[i] = p
			return c.Save()
		}
	}
	c.Presets = append(c.Presets, p)
	return c.Save()
}

// RemovePreset removes a preset; unknown names are ignored
func (c *Config) RemovePreset(name string) error {
	kept := make([]Preset, 0, len(c.Presets))
	changed := false
	for _, p := range c.Presets {
		if p.Name == name {
			changed = true
			continue
		}
		kept = append(kept, p)
	}
	if !changed {
		return nil
	}
	c.Presets = kept
	return c.Save()
}

// Save saves the current configuration to file
func (c *Config) Save() error {
	configPath := filepath.Join(ConfigDir(), "config.yaml")

	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("index.backend", c.Index.Backend)
	viper.Set("index.path", c.Index.Path)
	viper.Set("index.solr_url", c.Index.SolrURL)
	viper.Set("index.core", c.Index.Core)
	viper.Set("index.timeout", c.Index.Timeout)
	viper.Set("search.max_results", c.Search.MaxResults)
	viper.Set("search.max_files", c.Search.MaxFiles)
	viper.Set("search.context_before", c.Search.ContextBefore)
	viper.Set("search.context_after", c.Search.ContextAfter)
	viper.Set("search.ripgrep", c.Search.Ripgrep)
	viper.Set("search.preview_timeout", c.Search.PreviewTimeout)
	viper.Set("highlight.fragment_size", c.Highlight.FragmentSize)
	viper.Set("highlight.snippets", c.Highlight.Snippets)
	viper.Set("cache.dir", c.Cache.Dir)

	// round-trip through yaml so viper writes plain maps with the yaml key names
	presets := make([]map[string]interface{}, 0, len(c.Presets))
	for _, p := range c.Presets {
		m, err := toMap(p)
		if err != nil {
			return fmt.Errorf("failed to encode preset %q: %w", p.Name, err)
		}
		presets = append(presets, m)
	}
	viper.Set("presets", presets)

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Default returns the configuration used when no file or environment overrides exist
func Default() Config {
	cfg := Config{
		Index: IndexConfig{
			Backend: BackendBleve,
			SolrURL: "http://localhost:8983/solr",
			Core:    "search_results",
			Timeout: defaultTimeout,
		},
		Search: SearchConfig{
			MaxResults:     1000,
			MaxFiles:       500,
			ContextBefore:  2,
			ContextAfter:   2,
			Ripgrep:        "rg",
			PreviewTimeout: defaultPreviewTimeout,
		},
		Highlight: HighlightConfig{FragmentSize: 150, Snippets: 3},
		Cache:     CacheConfig{Dir: "~/.cache/rgs"},
		Presets: []Preset{
			{
				Name:    "go",
				Include: []string{"**/*.go"},
				Exclude: []string{"**/*_test.go", "vendor/**"},
			},
			{
				Name:    "tests",
				Include: []string{"**/*_test.go", "**/*.test.ts", "**/*.spec.ts"},
			},
		},
	}
	return cfg
}

const exampleHeader = `# rgs configuration file
# Place this file at ~/.config/rgs/config.yaml
#
# index.backend: "bleve" keeps results in a local index under cache.dir,
# "solr" sends them to the core at index.solr_url (run "rgs config --schema" once).
#
# Environment variables override any key, e.g.:
# RGS_INDEX_BACKEND=solr
# RGS_SEARCH_MAX_RESULTS=200

`

// ExampleConfig renders the default configuration as commented YAML
func ExampleConfig() ([]byte, error) {
	body, err := yaml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	return append([]byte(exampleHeader), body...), nil
}

// CreateExampleConfig creates an example configuration file
func CreateExampleConfig() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	content, err := ExampleConfig()
	if err != nil {
		return err
	}
	return os.WriteFile(ExampleConfigPath(), content, 0644)
}
