package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		color.NoColor = noColor
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	// Default should be false
	if IsVerbose() {
		t.Error("Default verbose should be false")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("Verbose should be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("Verbose should be false after SetVerbose(false)")
	}
}

func TestDebug(t *testing.T) {
	buf := capture(t)

	SetVerbose(false)
	Debug("test message %s", "arg")
	if buf.String() != "" {
		t.Errorf("Debug should not output when verbose is false, got: %q", buf.String())
	}

	SetVerbose(true)
	defer SetVerbose(false)
	Debug("test message %s", "arg")
	if !strings.Contains(buf.String(), "[DEBUG] test message arg") {
		t.Errorf("Debug output incorrect: got %q", buf.String())
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name string
		log  func(string, ...interface{})
		want string
	}{
		{"info", Info, "test info 42"},
		{"success", Success, "✓ test info 42"},
		{"error", Error, "✗ test info 42"},
		{"warn", Warn, "⚠ test info 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t)
			tt.log("test info %d", 42)
			if got := buf.String(); got != tt.want+"\n" {
				t.Errorf("output = %q, want %q", got, tt.want+"\n")
			}
		})
	}
}

func TestMultipleArgs(t *testing.T) {
	buf := capture(t)

	Info("test %s %d %v", "string", 123, true)

	expected := "test string 123 true"
	if !strings.Contains(buf.String(), expected) {
		t.Errorf("Multiple args not formatted correctly: got %q, want substring %q", buf.String(), expected)
	}
}

func TestConcurrentWrites(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	SetOutput(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	}))
	defer SetOutput(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Info("line %d", i)
		}(i)
	}
	wg.Wait()

	if n := strings.Count(buf.String(), "\n"); n != 20 {
		t.Errorf("expected 20 lines, got %d", n)
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
