package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"igfollow/pkg/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schedule and the last run",
	Long: `Show when the account is next eligible to run and the summary of the
last cycle. Processed sets are not listed; the store keeps them opaque.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.printStatus(ctx)
	return nil
}

func (a *app) printStatus(ctx context.Context) {
	account := a.cfg.Account.Username
	ui.PrintInfo("Account", account)
	ui.PrintInfo("Store", a.cfg.Store.Backend)

	next, ok, err := a.gate.NextRun(ctx, account)
	switch {
	case err != nil:
		ui.PrintWarning(fmt.Sprintf("Schedule unavailable: %v", err))
	case !ok:
		ui.PrintInfo("Next run", ui.FormatUntil(time.Time{}, a.gate.Now()))
	default:
		ui.PrintInfo("Next run", ui.FormatUntil(next, a.gate.Now()))
	}

	last, err := a.reports.Load()
	switch {
	case err != nil:
		ui.PrintWarning(fmt.Sprintf("Last run report unreadable: %v", err))
	case last == nil:
		ui.PrintInfo("Last run", "none")
	default:
		ui.PrintInfo("Last run", last.Cycle.Finished.Local().Format(time.RFC1123))
		ui.PrintCycleSummary(last.Cycle)
	}
}
