package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"igfollow/pkg/logger"
	"igfollow/pkg/reconcile"
	"igfollow/pkg/ui"
)

var (
	cronSpec    string
	metricsAddr string
	runOnStart  bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Trigger cycles on a cron schedule",
	Long: `Run in the foreground and trigger a cycle on every cron tick.

The schedule gate still decides whether a tick actually runs a cycle, so the
cron spec only needs to be finer than the shortest schedule interval. A tick
that fires while a cycle is still running is skipped. Prometheus metrics are
served on /metrics when an address is given.`,
	Example: `  igfollow daemon --cron "@every 30m" --metrics-addr :9090`,
	RunE:    runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&cronSpec, "cron", "", "cron spec for cycle triggers (default \"@every 30m\")")
	daemonCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	daemonCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "trigger a cycle immediately")
	daemonCmd.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	daemonCmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate candidates without acting")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"cron":         cronSpec,
		"metrics-addr": metricsAddr,
		"headful":      headful,
		"dry-run":      dryRun,
	})
	if err != nil {
		return err
	}
	if runOnStart {
		cfg.Daemon.RunOnStart = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.daemon(ctx)
}

// daemon runs the cron trigger and the metrics server until ctx is done
func (a *app) daemon(ctx context.Context) error {
	log := a.log.WithField("component", "daemon")
	c := cron.New()
	job := cron.NewChain(
		cron.Recover(cronLogger{log}),
		cron.SkipIfStillRunning(cronLogger{log}),
	).Then(cron.FuncJob(func() { a.tick(ctx) }))

	if _, err := c.AddJob(a.cfg.Daemon.Cron, job); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", a.cfg.Daemon.Cron, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.Metrics.Enabled {
		g.Go(func() error {
			return a.metrics.Serve(gctx, a.cfg.Metrics.Address, log)
		})
		ui.PrintInfo("Metrics", "http://"+a.cfg.Metrics.Address+"/metrics")
	}

	c.Start()
	logger.LogComponentStart(log, "cron", map[string]interface{}{"spec": a.cfg.Daemon.Cron})
	ui.PrintInfo("Schedule", a.cfg.Daemon.Cron)

	if a.cfg.Daemon.RunOnStart {
		g.Go(func() error {
			job.Run()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		stopped := c.Stop()
		<-stopped.Done()
		logger.LogComponentStop(log, "cron", "shutdown")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// tick runs one gated cycle. Failures are logged and never stop the daemon.
func (a *app) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := a.runCycle(ctx, a.cfg.Account.ForceRun)
	switch {
	case errors.Is(err, errSkipped):
		a.log.Debug("Tick skipped by schedule")
	case result.Status == reconcile.StatusSessionInvalid:
		if nerr := a.notifier.Alert("igfollow session expired", "Run `igfollow session import` to continue"); nerr != nil {
			a.log.WithError(nerr).Debug("Desktop notification failed")
		}
	case err != nil:
		a.log.WithError(err).Error("Cycle failed")
	}
}

// cronLogger adapts the structured logger to cron.Logger
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.DebugWithFields(msg, kv(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).ErrorWithFields(msg, kv(keysAndValues))
}

func kv(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
