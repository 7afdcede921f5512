package ripgrep

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/igusev/rgs/internal/types"
)

// maxLineSize bounds a single JSON event; minified files produce very long lines
const maxLineSize = 16 * 1024 * 1024

// Window is the number of context lines kept on each side of a match
type Window struct {
	Before int
	After  int
}

type event struct {
	Type string    `json:"type"`
	Data eventData `json:"data"`
}

type eventData struct {
	Path       text       `json:"path"`
	Lines      text       `json:"lines"`
	LineNumber int        `json:"line_number"`
	Submatches []submatch `json:"submatches"`
}

// text is ripgrep's arbitrary data: UTF-8 in "text", anything else base64 in "bytes"
type text struct {
	Text  string `json:"text"`
	Bytes string `json:"bytes"`
}

func (t text) String() string {
	if t.Bytes != "" {
		if b, err := base64.StdEncoding.DecodeString(t.Bytes); err == nil {
			return string(b)
		}
	}
	return t.Text
}

type submatch struct {
	Match text `json:"match"`
	Start int  `json:"start"`
	End   int  `json:"end"`
}

// ParseStream reads ripgrep --json output and calls fn for every match
//
// Context lines are attached to the nearest matches within the window; a context
// line between two close matches may belong to both. fn returning false stops
// parsing without error.
func ParseStream(r io.Reader, window Window, fn func(types.SearchResult) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	p := &parser{window: window, fn: fn}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("failed to decode ripgrep event: %w", err)
		}
		if !p.handle(ev) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read ripgrep output: %w", err)
	}
	p.flush()
	return nil
}

type parser struct {
	window  Window
	fn      func(types.SearchResult) bool
	pending *types.SearchResult
	context []types.ContextLine
	stopped bool
}

func (p *parser) handle(ev event) bool {
	switch ev.Type {
	case "begin":
		p.context = p.context[:0]
	case "context":
		cl := types.ContextLine{Line: ev.Data.LineNumber, Text: trimEOL(ev.Data.Lines.String())}
		if p.pending != nil && p.window.After > 0 && cl.Line-p.pending.Line <= p.window.After {
			p.pending.Context = append(p.pending.Context, cl)
		}
		if p.window.Before > 0 {
			p.context = append(p.context, cl)
		}
	case "match":
		if !p.flush() {
			return false
		}
		p.pending = newResult(ev.Data, p.beforeContext(ev.Data.LineNumber))
		p.context = p.context[:0]
	case "end":
		if !p.flush() {
			return false
		}
		p.context = p.context[:0]
	}
	return true
}

// flush emits the held match; false once fn asked to stop
func (p *parser) flush() bool {
	if p.stopped {
		return false
	}
	if p.pending == nil {
		return true
	}
	res := *p.pending
	p.pending = nil
	if !p.fn(res) {
		p.stopped = true
		return false
	}
	return true
}

func (p *parser) beforeContext(matchLine int) []types.ContextLine {
	var out []types.ContextLine
	for _, cl := range p.context {
		if cl.Line < matchLine && matchLine-cl.Line <= p.window.Before {
			out = append(out, cl)
		}
	}
	return out
}

func newResult(d eventData, before []types.ContextLine) *types.SearchResult {
	content := trimEOL(d.Lines.String())
	res := &types.SearchResult{
		File:    d.Path.String(),
		Line:    d.LineNumber,
		Content: content,
		Context: before,
	}
	for _, sm := range d.Submatches {
		res.Submatches = append(res.Submatches, types.Submatch{
			Start: sm.Start,
			End:   sm.End,
			Text:  sm.Match.String(),
		})
	}
	if len(res.Submatches) > 0 {
		res.Column = res.Submatches[0].Start
	}
	res.Score = score(len(res.Submatches))
	return res
}

// score ranks lines with more occurrences slightly higher
func score(submatches int) float64 {
	if submatches <= 1 {
		return 1
	}
	return 1 + float64(submatches-1)*0.1
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}
