package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// withHome points HOME at a fresh temp dir and resets viper
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".config", "rgs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestGetTimeout(t *testing.T) {
	tests := []struct {
		name     string
		timeout  int
		expected time.Duration
	}{
		{name: "30 seconds", timeout: 30, expected: 30 * time.Second},
		{name: "5 seconds", timeout: 5, expected: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := IndexConfig{Timeout: tt.timeout}
			if got := cfg.GetTimeout(); got != tt.expected {
				t.Errorf("GetTimeout() = %v, want %v", got, tt.expected)
			}
		})
	}

	s := SearchConfig{PreviewTimeout: 8}
	if got := s.GetPreviewTimeout(); got != 8*time.Second {
		t.Errorf("GetPreviewTimeout() = %v, want 8s", got)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/test/home")

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "tilde alone", path: "~", expected: "/test/home"},
		{name: "tilde with path", path: "~/.cache/rgs", expected: "/test/home/.cache/rgs"},
		{name: "absolute path", path: "/absolute/path", expected: "/absolute/path"},
		{name: "relative path", path: "relative/path", expected: "relative/path"},
		{name: "empty path", path: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if runtime.GOOS == "windows" && tt.name == "tilde with path" {
				t.Skip("path separator differs on Windows")
			}
			if got := expandPath(tt.path); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Index.Backend != BackendBleve {
		t.Errorf("Backend = %q, want %q", cfg.Index.Backend, BackendBleve)
	}
	if cfg.Index.Timeout != 30 {
		t.Errorf("Timeout = %d, want 30", cfg.Index.Timeout)
	}
	if cfg.Index.Core != "search_results" {
		t.Errorf("Core = %q, want search_results", cfg.Index.Core)
	}
	if cfg.Search.MaxResults != 1000 || cfg.Search.MaxFiles != 500 {
		t.Errorf("limits = %d/%d, want 1000/500", cfg.Search.MaxResults, cfg.Search.MaxFiles)
	}
	if cfg.Search.ContextBefore != 2 || cfg.Search.ContextAfter != 2 {
		t.Errorf("context = %d/%d, want 2/2", cfg.Search.ContextBefore, cfg.Search.ContextAfter)
	}
	if cfg.Search.PreviewTimeout != 8 {
		t.Errorf("PreviewTimeout = %d, want 8", cfg.Search.PreviewTimeout)
	}
	if cfg.Highlight.FragmentSize != 150 || cfg.Highlight.Snippets != 3 {
		t.Errorf("highlight = %d/%d, want 150/3", cfg.Highlight.FragmentSize, cfg.Highlight.Snippets)
	}

	expectedCacheDir := filepath.Join(home, ".cache", "rgs")
	if cfg.Cache.Dir != expectedCacheDir {
		t.Errorf("Cache dir = %q, want %q", cfg.Cache.Dir, expectedCacheDir)
	}
	if cfg.Index.Path != filepath.Join(expectedCacheDir, "results.bleve") {
		t.Errorf("Index path = %q, want it under the cache dir", cfg.Index.Path)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, `index:
  backend: solr
  solr_url: "http://solr.test:8983/solr"
  timeout: 0
search:
  max_results: 50
cache:
  dir: "~/custom-cache"
presets:
  - name: web
    include: ["**/*.ts", "**/*.tsx"]
    case_sensitive: true
    filters: ["folder=src"]
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Index.Backend != BackendSolr {
		t.Errorf("Backend = %q, want solr", cfg.Index.Backend)
	}
	if cfg.Index.SolrURL != "http://solr.test:8983/solr" {
		t.Errorf("SolrURL = %q", cfg.Index.SolrURL)
	}
	if cfg.Index.Timeout != 30 {
		t.Errorf("invalid timeout should fall back to 30, got %d", cfg.Index.Timeout)
	}
	if cfg.Search.MaxResults != 50 {
		t.Errorf("MaxResults = %d, want 50", cfg.Search.MaxResults)
	}
	if cfg.Search.MaxFiles != 500 {
		t.Errorf("MaxFiles = %d, want default 500", cfg.Search.MaxFiles)
	}
	if cfg.Cache.Dir != filepath.Join(home, "custom-cache") {
		t.Errorf("Cache dir = %q, want tilde expanded", cfg.Cache.Dir)
	}

	p, ok := cfg.Preset("web")
	if !ok {
		t.Fatal("preset web not loaded")
	}
	if len(p.Include) != 2 || !p.CaseSensitive || len(p.Filters) != 1 {
		t.Errorf("preset = %+v", p)
	}
	if _, ok := cfg.Preset("missing"); ok {
		t.Error("unknown preset should not be found")
	}
}

func TestLoadInvalidBackend(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, "index:\n  backend: elastic\n")

	_, err := Load()
	if !errors.Is(err, ErrInvalidBackend) {
		t.Fatalf("Load() error = %v, want ErrInvalidBackend", err)
	}
	if !strings.Contains(err.Error(), "elastic") {
		t.Errorf("error should name the backend, got %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	withHome(t)
	t.Setenv("RGS_INDEX_BACKEND", "solr")
	t.Setenv("RGS_SEARCH_MAX_RESULTS", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Index.Backend != BackendSolr {
		t.Errorf("Backend = %q, want solr from env", cfg.Index.Backend)
	}
	if cfg.Search.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25 from env", cfg.Search.MaxResults)
	}
}

func TestLoadCorruptedConfigFile(t *testing.T) {
	home := withHome(t)
	writeConfig(t, home, "index:\n  backend: [unterminated\n")

	if _, err := Load(); err == nil {
		t.Error("expected error for corrupted config file")
	}
}

func TestSaveAndLoadPresets(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err = cfg.AddPreset(Preset{Name: "api", Include: []string{"api/**"}, WholeWord: true, ContextAfter: 4})
	if err != nil {
		t.Fatalf("AddPreset failed: %v", err)
	}
	if err := cfg.AddPreset(Preset{Name: "docs", Include: []string{"**/*.md"}}); err != nil {
		t.Fatalf("AddPreset failed: %v", err)
	}
	// replace keeps a single entry
	if err := cfg.AddPreset(Preset{Name: "docs", Include: []string{"docs/**"}}); err != nil {
		t.Fatalf("AddPreset failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, ".config", "rgs", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	viper.Reset()
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Presets) != 2 {
		t.Fatalf("Presets = %d, want 2", len(loaded.Presets))
	}
	api, _ := loaded.Preset("api")
	if !api.WholeWord || api.ContextAfter != 4 || len(api.Include) != 1 {
		t.Errorf("api preset = %+v", api)
	}
	docs, _ := loaded.Preset("docs")
	if len(docs.Include) != 1 || docs.Include[0] != "docs/**" {
		t.Errorf("docs preset = %+v", docs)
	}

	if err := loaded.RemovePreset("api"); err != nil {
		t.Fatalf("RemovePreset failed: %v", err)
	}
	if err := loaded.RemovePreset("never-existed"); err != nil {
		t.Fatalf("RemovePreset of unknown name failed: %v", err)
	}
	viper.Reset()
	reloaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := reloaded.Preset("api"); ok {
		t.Error("removed preset still present")
	}
}

func TestAddPresetRequiresName(t *testing.T) {
	withHome(t)
	cfg := Default()
	if err := cfg.AddPreset(Preset{Name: "  "}); err == nil {
		t.Error("expected error for empty preset name")
	}
}

func TestCreateExampleConfig(t *testing.T) {
	home := withHome(t)

	if err := CreateExampleConfig(); err != nil {
		t.Fatalf("CreateExampleConfig failed: %v", err)
	}

	path := ExampleConfigPath()
	if path != filepath.Join(home, ".config", "rgs", "config.yaml.example") {
		t.Errorf("ExampleConfigPath() = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read example config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# rgs configuration file") {
		t.Error("example config should start with the header comment")
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("example config is not valid YAML: %v", err)
	}
	if parsed.Index.Backend != BackendBleve || parsed.Search.MaxResults != 1000 {
		t.Errorf("example config = %+v", parsed.Index)
	}
	if len(parsed.Presets) == 0 {
		t.Error("example config should carry sample presets")
	}
}
