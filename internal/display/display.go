// Package display renders per-turn output for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"zorkagent/internal/pipeline"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	commandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	reasonStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("245"))

	responseStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1).
			Width(76)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))
)

// Renderer writes styled turn output.
type Renderer struct {
	out io.Writer
}

// NewRenderer builds a renderer over the given writer.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Turn renders one completed turn.
func (r *Renderer) Turn(result *pipeline.TurnResult) {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Turn %d", result.Number)))
	b.WriteString("  ")
	b.WriteString(locationStyle.Render(result.Outcome.LocationName))
	b.WriteString("  ")
	b.WriteString(scoreStyle.Render(fmt.Sprintf("Score %d / Moves %d", result.Outcome.Score, result.Outcome.Moves)))
	b.WriteString("\n")

	b.WriteString(commandStyle.Render("> " + result.Command))
	b.WriteString("\n")
	if result.Reason != "" {
		b.WriteString(reasonStyle.Render(result.Reason))
		b.WriteString("\n")
	}
	b.WriteString(responseStyle.Render(result.Outcome.Response))
	b.WriteString("\n")

	for _, closure := range result.Closures {
		b.WriteString(noteStyle.Render(fmt.Sprintf("✓ resolved: %s", closure.Content)))
		b.WriteString("\n")
	}
	if result.Observation != nil {
		b.WriteString(noteStyle.Render(fmt.Sprintf("+ noted: %s", result.Observation.Remember)))
		b.WriteString("\n")
	}

	fmt.Fprintln(r.out, b.String())
}

// Banner renders the session header at startup.
func (r *Renderer) Banner(sessionID string, resumedFromTurn int) {
	msg := fmt.Sprintf("session %s", sessionID)
	if resumedFromTurn > 0 {
		msg = fmt.Sprintf("%s (resuming after turn %d)", msg, resumedFromTurn)
	}
	fmt.Fprintln(r.out, headerStyle.Render("zorkagent"), locationStyle.Render(msg))
}

// Farewell renders the end-of-run line.
func (r *Renderer) Farewell(turnsPlayed, score int) {
	fmt.Fprintln(r.out, headerStyle.Render(
		fmt.Sprintf("done: %d turn(s) played, final score %d", turnsPlayed, score)))
}
