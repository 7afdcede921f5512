package cache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	sessionsFileName       = "sessions.txt"
	lastSessionFileName    = ".last_session"
	lastSearchTimeFileName = ".last_search_time"

	// MaxSessionLog bounds the number of entries kept in the session log
	MaxSessionLog = 200
)

// SessionEntry is one line of the local session log
type SessionEntry struct {
	ID      string
	Time    time.Time
	Matches int
	Query   string
}

// Cache manages small state files in the cache directory
type Cache struct {
	dir string
}

// New creates a new Cache instance
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// EnsureDir ensures the cache directory exists
func (c *Cache) EnsureDir() error {
	return os.MkdirAll(c.dir, 0755)
}

// SessionsPath returns the full path to the session log
func (c *Cache) SessionsPath() string {
	return filepath.Join(c.dir, sessionsFileName)
}

// AppendSession records a stored session, newest last, trimming the log to MaxSessionLog entries
// Format: id|RFC3339 time|matches|query (pipes and newlines in the query are escaped)
func (c *Cache) AppendSession(entry SessionEntry) error {
	entries, err := c.ReadSessions()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	entries = append(entries, entry)
	if len(entries) > MaxSessionLog {
		entries = entries[len(entries)-MaxSessionLog:]
	}
	return c.WriteSessions(entries)
}

// WriteSessions replaces the session log
func (c *Cache) WriteSessions(entries []SessionEntry) error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	f, err := os.Create(c.SessionsPath())
	if err != nil {
		return fmt.Errorf("failed to create session log: %w", err)
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	for _, e := range entries {
		q := strings.ReplaceAll(e.Query, "\n", " ")
		q = strings.ReplaceAll(q, "|", "\\|")
		line := fmt.Sprintf("%s|%s|%d|%s\n", e.ID, e.Time.UTC().Format(time.RFC3339), e.Matches, q)
		if _, err := writer.WriteString(line); err != nil {
			return fmt.Errorf("failed to write session: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush session log: %w", err)
	}
	return nil
}

// ReadSessions reads the session log, oldest first
// The returned error satisfies os.IsNotExist when nothing has been logged yet.
func (c *Cache) ReadSessions() ([]SessionEntry, error) {
	f, err := os.Open(c.SessionsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	var entries []SessionEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 4 || parts[0] == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			continue
		}
		matches, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}

		entries = append(entries, SessionEntry{
			ID:      parts[0],
			Time:    ts,
			Matches: matches,
			Query:   strings.ReplaceAll(parts[3], "\\|", "|"),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	return entries, nil
}

// ForgetSession drops an entry from the log; forgetting the last session clears it too
func (c *Cache) ForgetSession(id string) error {
	entries, err := c.ReadSessions()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if err := c.WriteSessions(kept); err != nil {
		return err
	}

	last, err := c.LoadLastSession()
	if err != nil {
		return err
	}
	if last == id {
		return c.SaveLastSession("")
	}
	return nil
}

// Clear removes the session log and the last-session marker
func (c *Cache) Clear() error {
	for _, name := range []string{sessionsFileName, lastSessionFileName, lastSearchTimeFileName} {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// SaveLastSession saves the id of the most recent session
func (c *Cache) SaveLastSession(id string) error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, lastSessionFileName), []byte(id), 0644); err != nil {
		return fmt.Errorf("failed to save last session: %w", err)
	}
	return nil
}

// LoadLastSession loads the id of the most recent session
// Returns empty string if nothing was searched yet
func (c *Cache) LoadLastSession() (string, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, lastSessionFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read last session: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveLastSearchTime saves the time of the last stored search
func (c *Cache) SaveLastSearchTime(t time.Time) error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data := []byte(t.Format(time.RFC3339))
	if err := os.WriteFile(filepath.Join(c.dir, lastSearchTimeFileName), data, 0644); err != nil {
		return fmt.Errorf("failed to save search timestamp: %w", err)
	}
	return nil
}

// LoadLastSearchTime loads the time of the last stored search
// Returns zero time if file doesn't exist
func (c *Cache) LoadLastSearchTime() (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, lastSearchTimeFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read search timestamp: %w", err)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse search timestamp: %w", err)
	}
	return t, nil
}
