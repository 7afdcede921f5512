// Package ripgrep runs ripgrep and turns its JSON output into search results
package ripgrep

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/igusev/rgs/internal/logger"
	"github.com/igusev/rgs/internal/types"
)

// DefaultBinary is the executable looked up on PATH
const DefaultBinary = "rg"

// FileCount is one entry of a files-only search
type FileCount struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// Searcher is the text-search collaborator
type Searcher interface {
	Search(ctx context.Context, opts types.SearchOptions, root string, fn func(types.SearchResult) bool) error
	FilesWithMatches(ctx context.Context, opts types.SearchOptions, root string) ([]FileCount, error)
	Symbols(ctx context.Context, name, root string, fn func(types.SearchResult) bool) error
}

// Client runs the ripgrep binary
type Client struct {
	Binary string
	// Timeout bounds files-only invocations, zero means none
	Timeout time.Duration
}

// NewClient creates a client for the given binary (DefaultBinary when empty)
func NewClient(binary string, timeout time.Duration) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{Binary: binary, Timeout: timeout}
}

func (c *Client) binary() (string, error) {
	name := c.Binary
	if name == "" {
		name = DefaultBinary
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

// BuildArgs returns the ripgrep arguments for a search, without the output mode flag
func BuildArgs(opts types.SearchOptions, root string) []string {
	var args []string
	if opts.CaseSensitive {
		args = append(args, "-s")
	} else {
		args = append(args, "-i")
	}
	if opts.WholeWord {
		args = append(args, "-w")
	}
	if !opts.UseRegex {
		args = append(args, "-F")
	}
	for _, p := range opts.IncludePatterns {
		args = append(args, "-g", p)
	}
	for _, p := range opts.ExcludePatterns {
		args = append(args, "-g", "!"+p)
	}
	before, after := opts.ContextWindow()
	if before > 0 {
		args = append(args, "-B", strconv.Itoa(before))
	}
	if after > 0 {
		args = append(args, "-A", strconv.Itoa(after))
	}
	if root == "" {
		root = "."
	}
	return append(args, "--", opts.Query, root)
}

// Search streams matches to fn, stopping at MaxResults matches or MaxFiles files
// Each submatch counts as one match, the last line is clipped to fit.
func (c *Client) Search(ctx context.Context, opts types.SearchOptions, root string, fn func(types.SearchResult) bool) error {
	bin, err := c.binary()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := append([]string{"--json"}, BuildArgs(opts, root)...)
	logger.Debug("Running %s %s", bin, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open ripgrep output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return commandError(bin, err, "")
	}

	before, after := opts.ContextWindow()
	files := make(map[string]bool)
	count := 0
	stopped := false

	parseErr := ParseStream(stdout, Window{Before: before, After: after}, func(res types.SearchResult) bool {
		if opts.MaxFiles > 0 && !files[res.File] && len(files) >= opts.MaxFiles {
			stopped = true
			return false
		}
		files[res.File] = true
		if opts.MaxResults > 0 {
			var kept int
			res, kept = Clip(res, opts.MaxResults-count)
			count += kept
		} else {
			count += MatchCount(res)
		}
		if !fn(res) || (opts.MaxResults > 0 && count >= opts.MaxResults) {
			stopped = true
			return false
		}
		return true
	})
	if stopped || parseErr != nil {
		cancel()
	}

	waitErr := cmd.Wait()
	switch {
	case parseErr != nil:
		return parseErr
	case stopped:
		logger.Debug("Stopped ripgrep after %d matches in %d files", count, len(files))
		return nil
	case waitErr != nil && !noMatches(waitErr):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return commandError(bin, waitErr, stderr.String())
	}
	return nil
}

// MatchCount is the number of stored matches a line produces
func MatchCount(res types.SearchResult) int {
	if len(res.Submatches) == 0 {
		return 1
	}
	return len(res.Submatches)
}

// Clip keeps at most n submatches of res and returns the number of matches kept
func Clip(res types.SearchResult, n int) (types.SearchResult, int) {
	if n <= 0 {
		return res, 0
	}
	if len(res.Submatches) > n {
		res.Submatches = res.Submatches[:n:n]
	}
	return res, MatchCount(res)
}

// FilesWithMatches returns the matching files with per-file match counts, bounded by Timeout
func (c *Client) FilesWithMatches(ctx context.Context, opts types.SearchOptions, root string) ([]FileCount, error) {
	bin, err := c.binary()
	if err != nil {
		return nil, err
	}

	search := opts
	search.ContextLines, search.ContextLinesBefore, search.ContextLinesAfter = 0, 0, 0
	args := append([]string{"--count-matches", "--with-filename", "--no-heading"}, BuildArgs(search, root)...)

	out, err := RunWithTimeout(ctx, c.Timeout, bin, args...)
	if err != nil && !noMatches(err) {
		return nil, err
	}

	files := parseCounts(out)
	if opts.MaxFiles > 0 && len(files) > opts.MaxFiles {
		files = files[:opts.MaxFiles]
	}
	return files, nil
}

// parseCounts reads "path:count" lines; paths may contain colons
func parseCounts(out []byte) []FileCount {
	var files []FileCount
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		i := strings.LastIndex(line, ":")
		if i <= 0 {
			continue
		}
		n, err := strconv.Atoi(line[i+1:])
		if err != nil {
			continue
		}
		files = append(files, FileCount{File: line[:i], Count: n})
	}
	return files
}

// symbolKeywords introduce a definition in the languages ripgrep is usually pointed at
const symbolKeywords = `func|function|def|class|type|interface|struct|enum|trait|const|let|var|fn`

// SymbolPattern returns the regex matching a definition of name
func SymbolPattern(name string) string {
	return `\b(?:` + symbolKeywords + `)\s+(?:\([^)]*\)\s*)?` + regexp.QuoteMeta(name) + `\b`
}

// Symbols streams definition sites of name
func (c *Client) Symbols(ctx context.Context, name, root string, fn func(types.SearchResult) bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("symbol name is empty")
	}
	return c.Search(ctx, types.SearchOptions{
		Query:         SymbolPattern(name),
		UseRegex:      true,
		CaseSensitive: true,
	}, root, fn)
}
