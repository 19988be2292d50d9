package reconcile

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	errs "igfollow/pkg/errors"
	"igfollow/pkg/ledger"
	"igfollow/pkg/logger"
	"igfollow/pkg/ratelimit"
)

// Status is how a cycle ended
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusSessionInvalid Status = "session_invalid"
	StatusFailed         Status = "failed"
)

// CycleResult summarizes one cycle
type CycleResult struct {
	RunID    string       `json:"run_id"`
	Account  Account      `json:"account"`
	Status   Status       `json:"status"`
	Passes   []PassResult `json:"passes"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Error    string       `json:"error,omitempty"`
}

// Actions totals confirmed actions across passes
func (r CycleResult) Actions() int {
	n := 0
	for _, p := range r.Passes {
		n += p.Actions
	}
	return n
}

// CycleObserver is notified when a cycle ends
type CycleObserver interface {
	CycleFinished(status Status)
}

// Cycle is one full reconciliation run for an account
type Cycle struct {
	site     Site
	runner   *Runner
	handle   string
	cooldown *ratelimit.Pacer
	observer CycleObserver
	logger   logger.Logger

	// Now and NewRunID are hooks for tests
	Now      func() time.Time
	NewRunID func() string
}

// NewCycle creates a Cycle for handle
func NewCycle(site Site, runner *Runner, handle string, cooldown *ratelimit.Pacer, log logger.Logger) *Cycle {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cooldown == nil {
		cooldown = &ratelimit.Pacer{}
	}
	return &Cycle{
		site:     site,
		runner:   runner,
		handle:   handle,
		cooldown: cooldown,
		logger:   log,
		Now:      time.Now,
		NewRunID: func() string { return ulid.Make().String() },
	}
}

// SetObserver registers a cycle completion hook
func (c *Cycle) SetObserver(o CycleObserver) { c.observer = o }

// Run executes session check, count sampling, the unfollow pass, a
// cool-down and the follow-back pass. It returns an error only when the
// cycle could not complete; pass-level structural failures are recorded in
// the result.
func (c *Cycle) Run(ctx context.Context) (result CycleResult, err error) {
	result = CycleResult{
		RunID:   c.NewRunID(),
		Account: Account{Handle: c.handle},
		Started: c.Now(),
	}
	log := c.logger.WithFields(map[string]interface{}{
		"run_id":  result.RunID,
		"account": c.handle,
	})
	ctx = logger.NewContext(ctx, log)

	defer func() {
		result.Finished = c.Now()
		switch {
		case err == nil:
			result.Status = StatusCompleted
		case errs.IsFatal(err):
			result.Status = StatusSessionInvalid
		default:
			result.Status = StatusFailed
		}
		if err != nil {
			result.Error = err.Error()
		}
		if c.observer != nil {
			c.observer.CycleFinished(result.Status)
		}
		log.InfoWithFields("Cycle finished", map[string]interface{}{
			"status":   string(result.Status),
			"actions":  result.Actions(),
			"duration": result.Finished.Sub(result.Started),
		})
	}()

	log.Info("Cycle started")

	if err := c.site.CheckSession(ctx); err != nil {
		if errs.IsFatal(err) {
			c.screenshot(ctx, log, "error_session_invalid")
			log.Error("Session invalid, re-import the session cookie")
		}
		return result, err
	}

	followers, following, cerr := c.site.ReadCounts(ctx, c.handle)
	switch {
	case errs.IsFatal(cerr):
		c.screenshot(ctx, log, "error_session_invalid")
		return result, cerr
	case cerr != nil:
		log.WithError(cerr).Warn("Reading counts failed, using default budget")
	default:
		result.Account.Followers = followers
		result.Account.Following = following
		result.Account.CountsKnown = followers > 0 || following > 0
	}
	log.InfoWithFields("Account counts", map[string]interface{}{
		"followers": result.Account.Followers,
		"following": result.Account.Following,
		"known":     result.Account.CountsKnown,
	})

	for i, kind := range []ledger.Kind{ledger.KindUnfollow, ledger.KindFollow} {
		if i > 0 {
			if _, err := c.cooldown.Wait(ctx); err != nil {
				return result, err
			}
		}

		pass, perr := c.runner.RunPass(ctx, kind, result.Account)
		result.Passes = append(result.Passes, pass)
		switch {
		case perr == nil:
		case errs.IsFatal(perr):
			c.screenshot(ctx, log, "error_session_invalid")
			return result, perr
		case ctx.Err() != nil:
			return result, ctx.Err()
		default:
			log.WithError(perr).WithField("kind", string(kind)).Error("Pass aborted")
			c.screenshot(ctx, log, "error_"+string(kind)+"_pass")
		}
	}

	return result, nil
}

func (c *Cycle) screenshot(ctx context.Context, log logger.Logger, name string) {
	if _, err := c.site.Screenshot(ctx, name); err != nil {
		log.WithError(err).Warn("Screenshot failed")
	}
}
