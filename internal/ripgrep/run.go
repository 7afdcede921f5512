package ripgrep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the ripgrep binary cannot be located
	ErrNotFound = errors.New("ripgrep not found")
	// ErrTimeout is returned when a bounded invocation is killed
	ErrTimeout = errors.New("ripgrep timed out")
)

// waitDelay bounds how long Wait blocks on pipes after the child is killed
const waitDelay = 2 * time.Second

// RunWithTimeout runs a command and collects its stdout
// When timeout elapses the child is killed and ErrTimeout is returned; a zero timeout disables the limit.
func RunWithTimeout(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stdout.Bytes(), fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, name)
	}
	if ctx.Err() != nil {
		return stdout.Bytes(), ctx.Err()
	}
	if err != nil {
		return stdout.Bytes(), commandError(name, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func commandError(name string, err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}
	return fmt.Errorf("%s failed: %w", name, err)
}

// noMatches reports ripgrep's "nothing found" exit status
func noMatches(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}
