package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr

	successMark = color.New(color.FgGreen).SprintFunc()
	errorMark   = color.New(color.FgRed).SprintFunc()
	warnMark    = color.New(color.FgYellow).SprintFunc()
	debugMark   = color.New(color.Faint).SprintFunc()
)

// SetVerbose enables or disables verbose logging
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose logging is enabled
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log output; nil restores stderr
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
}

func write(prefix, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints debug messages only when verbose mode is enabled
func Debug(format string, args ...interface{}) {
	if IsVerbose() {
		write(debugMark("[DEBUG]")+" ", format, args...)
	}
}

// Info prints informational messages
func Info(format string, args ...interface{}) {
	write("", format, args...)
}

// Success prints success messages with checkmark
func Success(format string, args ...interface{}) {
	write(successMark("✓")+" ", format, args...)
}

// Error prints error messages
func Error(format string, args ...interface{}) {
	write(errorMark("✗")+" ", format, args...)
}

// Warn prints warning messages
func Warn(format string, args ...interface{}) {
	write(warnMark("⚠")+" ", format, args...)
}
