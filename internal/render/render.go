// Package render draws a session snapshot for a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/newthinker/folio/internal/session"
)

const (
	// Title is the application heading.
	Title = "Portfolio Health Checker"
	// BusyMessage is shown while a check is in flight.
	BusyMessage = "Analyzing Portfolio..."
)

// Renderer formats session snapshots. Colour is enabled only when the
// destination writer is a colour-capable terminal.
type Renderer struct {
	titleStyle   lipgloss.Style
	busyStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	averageStyle lipgloss.Style
	labelStyle   lipgloss.Style
	symbolStyle  lipgloss.Style
	scoreStyle   lipgloss.Style
	boxStyle     lipgloss.Style
}

// New creates a Renderer whose colour profile follows out.
func New(out io.Writer) *Renderer {
	r := lipgloss.NewRenderer(out)

	return &Renderer{
		titleStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}).
			Bold(true),
		busyStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),
		errorStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}),
		averageStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#003399", Dark: "#88AAFF"}).
			Bold(true),
		labelStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		symbolStyle: r.NewStyle().Bold(true),
		scoreStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}).
			Bold(true),
		boxStyle: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}).
			Padding(0, 2),
	}
}

// Title renders the page heading.
func (r *Renderer) Title() string {
	return r.titleStyle.Render(Title)
}

// State renders the result area for s: a busy line, an error line, or the
// average followed by the per-symbol scores in server order. An idle session
// renders as the empty string.
func (r *Renderer) State(s session.State) string {
	var parts []string

	if s.Busy {
		parts = append(parts, r.busyStyle.Render(BusyMessage))
	}
	if s.Err != "" {
		parts = append(parts, r.errorStyle.Render(s.Err))
	}
	if s.HasResults() {
		parts = append(parts, r.results(s))
	}

	return strings.Join(parts, "\n")
}

func (r *Renderer) results(s session.State) string {
	width := 0
	for _, sc := range s.Results {
		width = max(width, lipgloss.Width(sc.Symbol))
	}

	lines := []string{
		r.labelStyle.Render("Average Score: ") + r.averageStyle.Render(s.Average.String()),
		r.labelStyle.Render("Individual Scores:"),
	}
	for _, sc := range s.Results {
		lines = append(lines, fmt.Sprintf("  %s  %s",
			r.symbolStyle.Width(width).Render(sc.Symbol),
			r.scoreStyle.Render(sc.Value.String()),
		))
	}

	return r.boxStyle.Render(strings.Join(lines, "\n"))
}
