// Package history tracks how often and how recently queries are run, with exponential decay
package history

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// halfLifeDays is the number of days for score to decay to 50%
	halfLifeDays = 30.0
	// maxAgeDays is the maximum age for history entries (older entries are ignored/cleaned)
	maxAgeDays = 100.0
	// decayLambda is the decay constant: ln(2) / half_life
	decayLambda = 0.693147 / halfLifeDays

	globalWeight    = 10
	workspaceWeight = 30
)

// QueryInfo tracks one query
type QueryInfo struct {
	Query       string // last spelling used, for display
	Count       int
	LastUsed    time.Time
	LastSession string
}

// Entry is a ranked query
type Entry struct {
	QueryInfo
	Score int
}

// historyData is the serializable representation of history
type historyData struct {
	Queries   map[string]QueryInfo
	Workspace map[string]map[string]QueryInfo
}

// History manages query frequency tracking
type History struct {
	queries   map[string]QueryInfo            // normalized query -> info
	workspace map[string]map[string]QueryInfo // workspace -> normalized query -> info
	mu        sync.RWMutex
	filePath  string
	dirty     bool
	now       func() time.Time
}

// New creates a new History instance with the given file path
func New(filePath string) *History {
	return &History{
		queries:   make(map[string]QueryInfo),
		workspace: make(map[string]map[string]QueryInfo),
		filePath:  filePath,
		now:       time.Now,
	}
}

// LoadAsync loads history from disk asynchronously
// Returns a channel that will receive an error (or nil on success)
func (h *History) LoadAsync() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		errCh <- h.load()
	}()

	return errCh
}

func (h *History) load() error {
	file, err := os.Open(filepath.Clean(h.filePath))
	if err != nil {
		if os.IsNotExist(err) {
			// first run
			return nil
		}
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	var data historyData
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode history: %w", err)
	}

	h.mu.Lock()
	h.queries = data.Queries
	if h.queries == nil {
		h.queries = make(map[string]QueryInfo)
	}
	h.workspace = data.Workspace
	if h.workspace == nil {
		h.workspace = make(map[string]map[string]QueryInfo)
	}
	h.dirty = false
	h.mu.Unlock()

	if h.CleanupOldEntries() > 0 {
		return h.Save()
	}
	return nil
}

// normalizeQuery lowercases, trims and collapses whitespace
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Record notes that query ran in workspace and produced sessionID
func (h *History) Record(query, workspace, sessionID string) {
	key := normalizeQuery(query)
	if key == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	bump := func(info QueryInfo) QueryInfo {
		info.Query = strings.TrimSpace(query)
		info.Count++
		info.LastUsed = now
		if sessionID != "" {
			info.LastSession = sessionID
		}
		return info
	}

	h.queries[key] = bump(h.queries[key])
	if workspace != "" {
		if h.workspace[workspace] == nil {
			h.workspace[workspace] = make(map[string]QueryInfo)
		}
		h.workspace[workspace][key] = bump(h.workspace[workspace][key])
	}
	h.dirty = true
}

// calculateDecayMultiplier returns the exponential decay multiplier for the given age
// Uses formula: e^(-λt) where λ = ln(2) / half_life
// Returns 0 for entries older than maxAgeDays
func calculateDecayMultiplier(daysSinceLastUse float64) float64 {
	if daysSinceLastUse > maxAgeDays {
		return 0.0
	}
	return math.Exp(-decayLambda * daysSinceLastUse)
}

func (h *History) decayed(info QueryInfo, weight int) float64 {
	days := h.now().Sub(info.LastUsed).Hours() / 24
	return float64(info.Count*weight) * calculateDecayMultiplier(days)
}

// Score returns the frecency score of a query; runs in workspace weigh three times as much
func (h *History) Score(query, workspace string) int {
	key := normalizeQuery(query)

	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0.0
	if info, ok := h.queries[key]; ok {
		total += h.decayed(info, globalWeight)
	}
	if info, ok := h.workspace[workspace][key]; ok {
		total += h.decayed(info, workspaceWeight)
	}
	return int(total)
}

// Top returns up to n queries ordered by score (n <= 0 means all)
// Ties are broken by recency, then alphabetically.
func (h *History) Top(n int, workspace string) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	scores := make(map[string]float64, len(h.queries))
	for key, info := range h.queries {
		if s := h.decayed(info, globalWeight); s > 0 {
			scores[key] = s
		}
	}
	for key, info := range h.workspace[workspace] {
		if s := h.decayed(info, workspaceWeight); s > 0 {
			scores[key] += s
		}
	}

	entries := make([]Entry, 0, len(scores))
	for key, score := range scores {
		info := h.queries[key]
		if ws, ok := h.workspace[workspace][key]; ok && info.Query == "" {
			info = ws
		}
		entries = append(entries, Entry{QueryInfo: info, Score: int(score)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].LastUsed.Equal(entries[j].LastUsed) {
			return entries[i].LastUsed.After(entries[j].LastUsed)
		}
		return entries[i].Query < entries[j].Query
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Save saves the history to disk
func (h *History) Save() error {
	h.mu.RLock()
	if !h.dirty {
		h.mu.RUnlock()
		return nil
	}
	h.mu.RUnlock()

	cleanPath := filepath.Clean(h.filePath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0750); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	// temp file + rename for an atomic write
	tempPath := cleanPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	h.mu.RLock()
	err = gob.NewEncoder(file).Encode(historyData{Queries: h.queries, Workspace: h.workspace})
	h.mu.RUnlock()

	if err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempPath, cleanPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	h.mu.Lock()
	h.dirty = false
	h.mu.Unlock()
	return nil
}

// Stats returns statistics about the history
func (h *History) Stats() (totalRuns int, uniqueQueries int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	uniqueQueries = len(h.queries)
	for _, info := range h.queries {
		totalRuns += info.Count
	}
	return totalRuns, uniqueQueries
}

// Clear removes all history
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.queries = make(map[string]QueryInfo)
	h.workspace = make(map[string]map[string]QueryInfo)
	h.dirty = true
}

// CleanupOldEntries removes entries older than maxAgeDays
func (h *History) CleanupOldEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	removed := 0

	for key, info := range h.queries {
		if now.Sub(info.LastUsed).Hours()/24 > maxAgeDays {
			delete(h.queries, key)
			removed++
		}
	}

	for ws, queries := range h.workspace {
		for key, info := range queries {
			if now.Sub(info.LastUsed).Hours()/24 > maxAgeDays {
				delete(queries, key)
				removed++
			}
		}
		if len(queries) == 0 {
			delete(h.workspace, ws)
		}
	}

	if removed > 0 {
		h.dirty = true
	}
	return removed
}
