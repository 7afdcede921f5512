package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestSaveLoadLastSearchTime(t *testing.T) {
	cache := New(t.TempDir())

	testTime := time.Now().UTC().Truncate(time.Second)
	if err := cache.SaveLastSearchTime(testTime); err != nil {
		t.Fatalf("SaveLastSearchTime failed: %v", err)
	}

	loaded, err := cache.LoadLastSearchTime()
	if err != nil {
		t.Fatalf("LoadLastSearchTime failed: %v", err)
	}
	if !loaded.Equal(testTime) {
		t.Errorf("Loaded time mismatch: got %v, want %v", loaded, testTime)
	}
}

func TestLoadLastSearchTime_NeverSearched(t *testing.T) {
	cache := New(t.TempDir())

	loaded, err := cache.LoadLastSearchTime()
	if err != nil {
		t.Fatalf("LoadLastSearchTime should not error before the first search: %v", err)
	}
	if !loaded.IsZero() {
		t.Errorf("expected zero time, got: %v", loaded)
	}
}

func TestLoadLastSearchTime_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	cache := New(dir)
	if err := os.WriteFile(filepath.Join(dir, lastSearchTimeFileName), []byte("yesterday"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := cache.LoadLastSearchTime(); err == nil {
		t.Error("expected parse error for corrupted timestamp")
	}
}

func TestSaveLoadLastSession(t *testing.T) {
	cache := New(filepath.Join(t.TempDir(), "nested"))

	id, err := cache.LoadLastSession()
	if err != nil || id != "" {
		t.Fatalf("LoadLastSession() = %q, %v; want empty, nil", id, err)
	}

	if err := cache.SaveLastSession("session_1_abcdef01"); err != nil {
		t.Fatalf("SaveLastSession failed: %v", err)
	}
	id, err = cache.LoadLastSession()
	if err != nil {
		t.Fatalf("LoadLastSession failed: %v", err)
	}
	if id != "session_1_abcdef01" {
		t.Errorf("LoadLastSession() = %q", id)
	}
}

func TestAppendReadSessions(t *testing.T) {
	cache := New(t.TempDir())
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	if _, err := cache.ReadSessions(); !os.IsNotExist(err) {
		t.Fatalf("ReadSessions() on empty cache error = %v, want not-exist", err)
	}

	entries := []SessionEntry{
		{ID: "s1", Time: base, Matches: 3, Query: "plain"},
		{ID: "s2", Time: base.Add(time.Minute), Matches: 0, Query: "a|b"},
		{ID: "s3", Time: base.Add(2 * time.Minute), Matches: 12, Query: "multi\nline"},
	}
	for _, e := range entries {
		if err := cache.AppendSession(e); err != nil {
			t.Fatalf("AppendSession failed: %v", err)
		}
	}

	got, err := cache.ReadSessions()
	if err != nil {
		t.Fatalf("ReadSessions failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadSessions() = %d entries, want 3", len(got))
	}
	if got[1].Query != "a|b" {
		t.Errorf("pipe in query not preserved: %q", got[1].Query)
	}
	if got[2].Query != "multi line" {
		t.Errorf("newline in query not flattened: %q", got[2].Query)
	}
	if got[2].Matches != 12 || !got[2].Time.Equal(base.Add(2*time.Minute)) {
		t.Errorf("entry = %+v", got[2])
	}
}

func TestAppendSession_Trims(t *testing.T) {
	cache := New(t.TempDir())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := make([]SessionEntry, MaxSessionLog)
	for i := range entries {
		entries[i] = SessionEntry{ID: fmt.Sprintf("s%d", i), Time: base, Query: "q"}
	}
	if err := cache.WriteSessions(entries); err != nil {
		t.Fatalf("WriteSessions failed: %v", err)
	}
	if err := cache.AppendSession(SessionEntry{ID: "newest", Time: base, Query: "q"}); err != nil {
		t.Fatalf("AppendSession failed: %v", err)
	}

	got, err := cache.ReadSessions()
	if err != nil {
		t.Fatalf("ReadSessions failed: %v", err)
	}
	if len(got) != MaxSessionLog {
		t.Errorf("log has %d entries, want %d", len(got), MaxSessionLog)
	}
	if got[0].ID != "s1" || got[len(got)-1].ID != "newest" {
		t.Errorf("oldest entry should be dropped, got first=%s last=%s", got[0].ID, got[len(got)-1].ID)
	}
}

func TestReadSessions_MalformedLines(t *testing.T) {
	cache := New(t.TempDir())
	if err := cache.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	content := `s1|2026-10-19T12:00:00Z|2|ok
no-pipes-here

s2|not-a-time|1|bad time
s3|2026-10-19T12:00:00Z|many|bad count
|2026-10-19T12:00:00Z|1|missing id
s4|2026-10-19T12:01:00Z|0|
`
	if err := os.WriteFile(cache.SessionsPath(), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	got, err := cache.ReadSessions()
	if err != nil {
		t.Fatalf("ReadSessions failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "s1" || got[1].ID != "s4" {
		t.Errorf("ReadSessions() = %+v, want s1 and s4", got)
	}
}

func TestForgetSession(t *testing.T) {
	cache := New(t.TempDir())
	now := time.Now().UTC().Truncate(time.Second)

	for _, id := range []string{"s1", "s2"} {
		if err := cache.AppendSession(SessionEntry{ID: id, Time: now}); err != nil {
			t.Fatalf("AppendSession failed: %v", err)
		}
	}
	if err := cache.SaveLastSession("s2"); err != nil {
		t.Fatalf("SaveLastSession failed: %v", err)
	}

	if err := cache.ForgetSession("s2"); err != nil {
		t.Fatalf("ForgetSession failed: %v", err)
	}

	got, _ := cache.ReadSessions()
	if len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("ReadSessions() = %+v, want only s1", got)
	}
	last, _ := cache.LoadLastSession()
	if last != "" {
		t.Errorf("last session should be cleared, got %q", last)
	}

	if err := New(t.TempDir()).ForgetSession("x"); err != nil {
		t.Errorf("ForgetSession on empty cache: %v", err)
	}
}

func TestClear(t *testing.T) {
	cache := New(t.TempDir())
	if err := cache.AppendSession(SessionEntry{ID: "s1", Time: time.Now()}); err != nil {
		t.Fatalf("AppendSession failed: %v", err)
	}
	if err := cache.SaveLastSession("s1"); err != nil {
		t.Fatalf("SaveLastSession failed: %v", err)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(cache.SessionsPath()); !os.IsNotExist(err) {
		t.Error("session log should be removed")
	}
	if err := cache.Clear(); err != nil {
		t.Errorf("Clear on an empty cache: %v", err)
	}
}

func TestSaveLastSession_ReadOnlyDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows: chmod doesn't work the same way")
	}
	if os.Getuid() == 0 {
		t.Skip("Skipping test when running as root")
	}

	tmpDir := t.TempDir()
	if err := os.Chmod(tmpDir, 0444); err != nil {
		t.Fatalf("Failed to chmod: %v", err)
	}
	defer os.Chmod(tmpDir, 0755)

	cache := New(filepath.Join(tmpDir, "subdir"))
	if err := cache.SaveLastSession("s1"); err == nil {
		t.Error("SaveLastSession should fail with read-only parent directory")
	}
	if err := cache.AppendSession(SessionEntry{ID: "s1"}); err == nil {
		t.Error("AppendSession should fail with read-only parent directory")
	}
}
