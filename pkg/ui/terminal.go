// Package ui renders human-facing CLI output. Logs go to stderr through
// pkg/logger; everything here writes to Out, stdout by default.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Out receives all CLI output
var Out io.Writer = os.Stdout

const banner = `
  ╔═╗╔═╗  ┌─┐┌─┐┬  ┬  ┌─┐┬ ┬
  ║║ ╦    ├┤ │ ││  │  │ ││││
  ╩╚═╝    └  └─┘┴─┘┴─┘└─┘└┴┘
  follow-graph reconciliation
`

var (
	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	yellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	magentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// Color helpers
var (
	Cyan    = cyanStyle.Render
	Yellow  = yellowStyle.Render
	Red     = redStyle.Render
	Green   = greenStyle.Render
	Magenta = magentaStyle.Render
	Dim     = dimStyle.Render
	Bold    = boldStyle.Render
)

// PrintBanner prints the application banner
func PrintBanner() {
	fmt.Fprint(Out, Cyan(banner))
}

// PrintError prints msg and the optional error in red
func PrintError(msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(Out, Red("✗ "+msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green("✓ "+msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning in yellow
func PrintWarning(msg string) {
	fmt.Fprintln(Out, Yellow("! "+msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Out, Magenta(msg))
}
