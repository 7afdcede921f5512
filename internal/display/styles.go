// Package display renders search results, sessions and statistics for the terminal
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ColorScheme holds the adaptive colors of the terminal output
type ColorScheme struct {
	Title   lipgloss.AdaptiveColor
	Wave    string // pre-rendered gradient blocks
	Version lipgloss.AdaptiveColor

	// Result listing
	Path      lipgloss.AdaptiveColor
	LineNo    lipgloss.AdaptiveColor
	Normal    lipgloss.AdaptiveColor
	Context   lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Snippet   lipgloss.AdaptiveColor

	Count  lipgloss.AdaptiveColor
	Header lipgloss.AdaptiveColor
	Bar    lipgloss.AdaptiveColor
	Muted  lipgloss.AdaptiveColor
}

// NewColorScheme creates the color scheme for light and dark terminals
func NewColorScheme() *ColorScheme {
	return &ColorScheme{
		Title: lipgloss.AdaptiveColor{
			Light: "#0066CC",
			Dark:  "#5AD4E6",
		},
		Wave: renderWave(),
		Version: lipgloss.AdaptiveColor{
			Light: "#666666",
			Dark:  "#6967A3",
		},

		// File paths: magenta, like ripgrep's own output
		Path: lipgloss.AdaptiveColor{
			Light: "#A21CAF",
			Dark:  "#E879F9",
		},
		LineNo: lipgloss.AdaptiveColor{
			Light: "#16A34A",
			Dark:  "#7BD88F",
		},
		Normal: lipgloss.AdaptiveColor{
			Light: "#1A1A1A",
			Dark:  "#F7F1FF",
		},
		Context: lipgloss.AdaptiveColor{
			Light: "#737373",
			Dark:  "#999999",
		},
		Highlight: lipgloss.AdaptiveColor{
			Light: "#D97706",
			Dark:  "#FCE566",
		},
		Snippet: lipgloss.AdaptiveColor{
			Light: "#737373",
			Dark:  "#999999",
		},

		Count: lipgloss.AdaptiveColor{
			Light: "#D97706",
			Dark:  "#FCE566",
		},
		Header: lipgloss.AdaptiveColor{
			Light: "#0066CC",
			Dark:  "#5AD4E6",
		},
		Bar: lipgloss.AdaptiveColor{
			Light: "#16A34A",
			Dark:  "#7BD88F",
		},
		Muted: lipgloss.AdaptiveColor{
			Light: "#A3A3A3",
			Dark:  "#5A5A5A",
		},
	}
}

// renderWave creates the gradient blocks █▓▒░
// Colors: #0EA5E9 (0%) → #22C55E (50%) → #FACC15 (100%)
func renderWave() string {
	stops := []struct {
		position float64
		color    [3]int
	}{
		{0.0, [3]int{0x0E, 0xA5, 0xE9}},
		{0.5, [3]int{0x22, 0xC5, 0x5E}},
		{1.0, [3]int{0xFA, 0xCC, 0x15}},
	}

	chars := []string{"█", "▓", "▒", "░"}

	var result strings.Builder
	for i, char := range chars {
		position := float64(i) / float64(len(chars)-1)

		var start, end int
		for j := 0; j < len(stops)-1; j++ {
			if position >= stops[j].position && position <= stops[j+1].position {
				start = j
				end = j + 1
				break
			}
		}

		localPos := (position - stops[start].position) / (stops[end].position - stops[start].position)

		r := int(float64(stops[start].color[0]) + float64(stops[end].color[0]-stops[start].color[0])*localPos)
		g := int(float64(stops[start].color[1]) + float64(stops[end].color[1]-stops[start].color[1])*localPos)
		b := int(float64(stops[start].color[2]) + float64(stops[end].color[2]-stops[start].color[2])*localPos)

		color := lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, b))
		result.WriteString(lipgloss.NewStyle().Foreground(color).Render(char))
	}

	return result.String()
}

// Styles are the lipgloss styles of one output
type Styles struct {
	Title     lipgloss.Style
	Version   lipgloss.Style
	Path      lipgloss.Style
	LineNo    lipgloss.Style
	Normal    lipgloss.Style
	Context   lipgloss.Style
	Highlight lipgloss.Style
	Snippet   lipgloss.Style
	Count     lipgloss.Style
	Header    lipgloss.Style
	Bar       lipgloss.Style
	Muted     lipgloss.Style
}

// GetStyles returns styles bound to the renderer of w
// Writers that are not terminals get plain text.
func (cs *ColorScheme) GetStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Title: r.NewStyle().
			Bold(true).
			Foreground(cs.Title),

		Version: r.NewStyle().
			Foreground(cs.Version),

		Path: r.NewStyle().
			Foreground(cs.Path).
			Bold(true),

		LineNo: r.NewStyle().
			Foreground(cs.LineNo),

		Normal: r.NewStyle().
			Foreground(cs.Normal),

		Context: r.NewStyle().
			Foreground(cs.Context),

		Highlight: r.NewStyle().
			Foreground(cs.Highlight).
			Bold(true),

		Snippet: r.NewStyle().
			Foreground(cs.Snippet).
			Italic(true),

		Count: r.NewStyle().
			Bold(true).
			Foreground(cs.Count),

		Header: r.NewStyle().
			Bold(true).
			Foreground(cs.Header),

		Bar: r.NewStyle().
			Foreground(cs.Bar),

		Muted: r.NewStyle().
			Foreground(cs.Muted),
	}
}
