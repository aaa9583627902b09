// Package ui renders terminal output for the sheettrack commands.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/sheettrack/sheettrack/internal/schema"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	boldStyle   = lipgloss.NewStyle().Bold(true)

	statusStyles = map[schema.Status]lipgloss.Style{
		schema.StatusCompleted: passStyle,
		schema.StatusRevision:  accentStyle,
		schema.StatusRedo:      warnStyle,
		schema.StatusTodo:      mutedStyle,
	}

	difficultyStyles = map[schema.Difficulty]lipgloss.Style{
		schema.DifficultyEasy:   passStyle,
		schema.DifficultyMedium: warnStyle,
		schema.DifficultyHard:   failStyle,
	}
)

// Init picks the color profile for w: none when noColor is set or w is
// not a terminal, otherwise whatever the environment supports.
func Init(w io.Writer, noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
}

// RenderAccent renders s in the accent color.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass renders s as a success.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn renders s as a warning.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail renders s as an error.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderMuted renders s faint.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// RenderBold renders s bold.
func RenderBold(s string) string { return boldStyle.Render(s) }

// RenderStatus renders a status in its color.
func RenderStatus(s schema.Status) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

// RenderDifficulty renders a difficulty in its color.
func RenderDifficulty(d schema.Difficulty) string {
	if style, ok := difficultyStyles[d]; ok {
		return style.Render(string(d))
	}
	return string(d)
}

// ProgressBar draws done/total as a fixed-width bar.
func ProgressBar(done, total, width int) string {
	if width <= 0 {
		width = 28
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}
