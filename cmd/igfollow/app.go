package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igfollow/pkg/auth"
	"igfollow/pkg/browser"
	"igfollow/pkg/collect"
	"igfollow/pkg/config"
	"igfollow/pkg/instagram"
	"igfollow/pkg/ledger"
	"igfollow/pkg/logger"
	"igfollow/pkg/metrics"
	"igfollow/pkg/ratelimit"
	"igfollow/pkg/reconcile"
	"igfollow/pkg/report"
	"igfollow/pkg/schedule"
	"igfollow/pkg/session"
	"igfollow/pkg/store"
	"igfollow/pkg/ui"
)

// launcher starts a browser; tests swap in a fake driver
type launcher func(opts browser.Options) (browser.Driver, error)

// newVault opens the credential vault under the data directory
var newVault = auth.NewVault

func launchPlaywright(opts browser.Options) (browser.Driver, error) {
	return browser.Launch(opts)
}

// app holds the long-lived dependencies shared by run, daemon and status
type app struct {
	cfg      *config.Config
	log      logger.Logger
	store    store.Store
	vault    *auth.Vault
	metrics  *metrics.Metrics
	gate     *schedule.Gate
	ledger   *ledger.Ledger
	sessions *session.Manager
	reports  *report.Manager
	notifier *ui.Notifier
	launch   launcher
}

// loadConfig merges the global flags with extra command flags
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"username":  username,
		"store":     storeBackend,
		"log-level": logLevel,
	}
	for k, v := range extra {
		flags[k] = v
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, &exitError{code: exitFailure, err: err}
	}
	return cfg, nil
}

// newApp wires the store, schedule gate, ledger, session manager and run
// reports for cfg. An unreachable store is logged and the app runs
// degraded.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithField("account", cfg.Account.Username)
	return newAppWithLogger(ctx, cfg, log, config.DataDir())
}

func newAppWithLogger(ctx context.Context, cfg *config.Config, log logger.Logger, dataDir string) (*app, error) {
	st, err := store.Connect(ctx, cfg.Store, log)
	switch {
	case err != nil && st == nil:
		log.WithError(err).WithField("backend", cfg.Store.Backend).Warn("Failed to open store, running degraded")
	case err != nil:
		log.WithError(err).Warn("Store unreachable, running degraded")
	case st == nil:
		log.Warn("No store configured, progress and schedule will not persist")
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		metrics:  metrics.New(),
		notifier: ui.NewNotifier(),
		launch:   launchPlaywright,
	}

	if vault, err := newVault(dataDir); err != nil {
		log.WithError(err).Debug("Credential vault unavailable")
	} else {
		a.vault = vault
	}

	a.gate = schedule.New(st, cfg.Policy.ScheduleIntervalMin, cfg.Policy.ScheduleIntervalMax, log)
	a.gate.SetObserver(a.metrics)
	a.ledger = ledger.New(st, log,
		ledger.WithRetention(cfg.Policy.LedgerRetention),
		ledger.WithObserver(a.metrics),
	)

	var vault session.Vault
	if a.vault != nil {
		vault = a.vault
	}
	a.sessions = session.New(st, vault, log)

	a.reports, err = report.NewManager(dataDir, cfg.Account.Username, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the store
func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
}

// errSkipped is returned when the schedule gate refuses the run
var errSkipped = &exitError{code: exitSkipped}

// runCycle executes one gated cycle end to end: browser launch, cookie
// restore, the reconciliation cycle and the post-cycle bookkeeping
func (a *app) runCycle(ctx context.Context, force bool) (reconcile.CycleResult, error) {
	account := a.cfg.Account.Username

	if !force && !a.gate.Check(ctx, account) {
		return reconcile.CycleResult{}, errSkipped
	}
	if force {
		a.log.Info("Schedule check bypassed")
	}

	driver, err := a.launch(browser.Options{
		Headless:  a.cfg.Browser.Headless,
		UserAgent: a.cfg.Browser.UserAgent,
		Timeout:   a.cfg.Browser.ActionTimeout,
	})
	if err != nil {
		return reconcile.CycleResult{}, fmt.Errorf("failed to launch browser (try `igfollow install`): %w", err)
	}
	defer driver.Close()

	bctx, err := driver.NewContext(ctx)
	if err != nil {
		return reconcile.CycleResult{}, err
	}
	defer bctx.Close()

	if cookies := a.sessions.Load(ctx, account); len(cookies) > 0 {
		if err := bctx.AddCookies(ctx, cookies); err != nil {
			a.log.WithError(err).Warn("Failed to restore cookies")
		}
	}

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return reconcile.CycleResult{}, fmt.Errorf("failed to open page: %w", err)
	}

	cycle := a.newCycle(page)
	result, err := cycle.Run(ctx)
	a.finish(ctx, bctx, result)
	return result, err
}

func (a *app) newCycle(page browser.Page) *reconcile.Cycle {
	pacers := ratelimit.NewPacers(a.cfg.Pacing)
	site := siteAdapter{instagram.NewSite(page, a.cfg.Browser, pacers, a.log)}

	collector := collect.New(a.ledger,
		collect.WithMaxIdleScrolls(a.cfg.Policy.MaxIdleScrolls),
		collect.WithSettle(a.cfg.Pacing.ScrollSettle, nil),
		collect.WithLogger(a.log),
	)
	runner := reconcile.NewRunner(site, a.ledger, ratelimit.PolicyFromConfig(a.cfg.Policy),
		reconcile.WithPacer(pacers.BetweenCandidates),
		reconcile.WithCollector(collector),
		reconcile.WithDryRun(a.cfg.Account.DryRun),
		reconcile.WithObserver(a.metrics),
		reconcile.WithLogger(a.log),
	)

	cycle := reconcile.NewCycle(site, runner, a.cfg.Account.Username, pacers.PassCooldown, a.log)
	cycle.SetObserver(a.metrics)
	return cycle
}

// finish persists cookies, the next run time and the run report according
// to how the cycle ended. A failed cycle only writes the report, and a dry
// run does not consume the next scheduled slot.
func (a *app) finish(ctx context.Context, bctx browser.Context, result reconcile.CycleResult) {
	account := a.cfg.Account.Username
	var next time.Time
	var err error

	switch result.Status {
	case reconcile.StatusCompleted:
		a.saveCookies(ctx, bctx)
		if a.cfg.Account.DryRun {
			a.log.Info("Dry run, schedule left unchanged")
			break
		}
		next, err = a.gate.Update(ctx, account)
	case reconcile.StatusSessionInvalid:
		next, err = a.gate.Backoff(ctx, account, a.cfg.Policy.SessionBackoff)
	}
	if err != nil {
		a.log.WithError(err).Warn("Failed to update schedule")
	}
	if !next.IsZero() {
		a.log.WithField("next_run", next.Format(time.RFC3339)).Info("Next run scheduled")
	}

	if err := a.reports.Save(result, next); err != nil {
		a.log.WithError(err).Warn("Failed to save run report")
	}
}

func (a *app) saveCookies(ctx context.Context, bctx browser.Context) {
	cookies, err := bctx.Cookies(ctx)
	if err != nil {
		a.log.WithError(err).Warn("Failed to read cookies")
		return
	}
	if err := a.sessions.Save(ctx, a.cfg.Account.Username, cookies); err != nil {
		a.log.WithError(err).Warn("Failed to save session")
	}
}

// cycleExit maps a cycle result to the process exit code
func cycleExit(result reconcile.CycleResult, err error) error {
	if errors.Is(err, errSkipped) {
		return err
	}
	switch result.Status {
	case reconcile.StatusCompleted:
		return nil
	case reconcile.StatusSessionInvalid:
		return &exitError{code: exitSessionInvalid, err: err}
	default:
		if err == nil {
			err = fmt.Errorf("cycle %s", result.Status)
		}
		return &exitError{code: exitFailure, err: err}
	}
}

var _ reconcile.Site = siteAdapter{}

// siteAdapter narrows instagram.Site's concrete profile type to the
// reconcile.Profile interface
type siteAdapter struct {
	*instagram.Site
}

func (s siteAdapter) OpenProfile(ctx context.Context, handle string) (reconcile.Profile, error) {
	p, err := s.Site.OpenProfile(ctx, handle)
	if err != nil {
		return nil, err
	}
	return p, nil
}
