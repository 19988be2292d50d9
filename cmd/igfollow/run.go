package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"igfollow/pkg/reconcile"
	"igfollow/pkg/ui"
)

var (
	forceRun bool
	headful  bool
	dryRun   bool
	notify   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation cycle",
	Long: `Run one reconciliation cycle for the configured account.

The cycle checks the session, samples follower counts, unfollows accounts
that do not follow back and follows back accounts that follow you, each
within the computed action budget.

Exit codes:
  0  cycle completed
  3  skipped, the account is not scheduled yet
  4  aborted, the session is no longer valid
  1  any other failure`,
	Example: `  # Run when the schedule allows it
  igfollow run -u myaccount

  # Ignore the schedule and watch the browser
  igfollow run --force --headful

  # Evaluate candidates without clicking anything
  igfollow run --dry-run`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&forceRun, "force", "f", false, "bypass the schedule check")
	runCmd.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate candidates without acting")
	runCmd.Flags().BoolVar(&notify, "notify", true, "send a desktop notification when the session expires")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"force":   forceRun,
		"headful": headful,
		"dry-run": dryRun,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ui.PrintInfo("Account", cfg.Account.Username)
	if cfg.Account.DryRun {
		ui.PrintWarning("Dry run: no follow or unfollow will be clicked")
	}

	result, err := a.runCycle(ctx, cfg.Account.ForceRun)
	return a.report(result, err, notify)
}

// report prints the outcome of a cycle and converts it to an exit code
func (a *app) report(result reconcile.CycleResult, err error, alert bool) error {
	if errors.Is(err, errSkipped) {
		next, ok, _ := a.gate.NextRun(context.Background(), a.cfg.Account.Username)
		if ok {
			ui.PrintWarning("Not scheduled yet, next run " + ui.FormatUntil(next, a.gate.Now()))
		} else {
			ui.PrintWarning("Not scheduled yet")
		}
		return err
	}

	if result.RunID != "" {
		ui.PrintCycleSummary(result)
	}

	switch result.Status {
	case reconcile.StatusCompleted:
		ui.PrintSuccess("Cycle completed")
	case reconcile.StatusSessionInvalid:
		if alert {
			if nerr := a.notifier.Alert("igfollow session expired", "Run `igfollow session import` to continue"); nerr != nil {
				a.log.WithError(nerr).Debug("Desktop notification failed")
			}
		}
	}
	return cycleExit(result, err)
}
