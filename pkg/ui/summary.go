package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"igfollow/pkg/reconcile"
)

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("5")).
	Padding(0, 1)

// CycleSummary renders a finished cycle as a bordered panel
func CycleSummary(r reconcile.CycleResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", Bold("Run"), Dim(r.RunID))
	fmt.Fprintf(&b, "%-10s %s\n", "Status", statusLabel(r.Status))
	if r.Account.CountsKnown {
		fmt.Fprintf(&b, "%-10s %d followers, %d following\n", "Account", r.Account.Followers, r.Account.Following)
	} else {
		fmt.Fprintf(&b, "%-10s %s\n", "Account", Dim("counts unavailable"))
	}

	for _, p := range r.Passes {
		line := fmt.Sprintf("%-10s %d/%d done, %d skipped, %d failed",
			string(p.Kind), p.Actions, p.Budget, p.Skipped, p.Failed)
		if p.Error != "" {
			line += " " + Red("("+p.Error+")")
		}
		b.WriteString(line + "\n")
	}

	if !r.Finished.IsZero() {
		fmt.Fprintf(&b, "%-10s %s", "Duration", r.Finished.Sub(r.Started).Round(time.Second))
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "\n%-10s %s", "Error", Red(r.Error))
	}

	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func statusLabel(s reconcile.Status) string {
	switch s {
	case reconcile.StatusCompleted:
		return Green(string(s))
	case reconcile.StatusSessionInvalid:
		return Red(string(s))
	default:
		return Yellow(string(s))
	}
}

// PrintCycleSummary writes CycleSummary to Out
func PrintCycleSummary(r reconcile.CycleResult) {
	fmt.Fprintln(Out, CycleSummary(r))
}

// FormatUntil describes how far away t is from now
func FormatUntil(t, now time.Time) string {
	if t.IsZero() {
		return "now (no schedule recorded)"
	}
	d := t.Sub(now)
	if d <= 0 {
		return "now"
	}
	return fmt.Sprintf("in %s (%s)", d.Round(time.Minute), t.Local().Format("2006-01-02 15:04"))
}
