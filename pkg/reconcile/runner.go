package reconcile

import (
	"context"
	"fmt"
	"time"

	"igfollow/pkg/collect"
	"igfollow/pkg/detect"
	errs "igfollow/pkg/errors"
	"igfollow/pkg/ledger"
	"igfollow/pkg/logger"
	"igfollow/pkg/ratelimit"
)

// Account is the reconciled account, sampled once per cycle
type Account struct {
	Handle      string
	Followers   int
	Following   int
	CountsKnown bool
}

// audience is the list size that drives the budget of a pass
func (a Account) audience(kind ledger.Kind) int {
	if !a.CountsKnown {
		return 0
	}
	if kind == ledger.KindUnfollow {
		return a.Following
	}
	return a.Followers
}

// Profile is a candidate profile the runner can inspect and act on
type Profile interface {
	detect.ProfileView
	IsFollowing(ctx context.Context) (bool, error)
	Unfollow(ctx context.Context) error
	FollowBack(ctx context.Context, sig detect.Signal) error
}

// Site is the browser-backed surface a cycle drives
type Site interface {
	CheckSession(ctx context.Context) error
	ReadCounts(ctx context.Context, handle string) (followers, following int, err error)
	OpenOwnList(ctx context.Context, self string, kind ledger.Kind) (collect.ListScope, error)
	OpenProfile(ctx context.Context, handle string) (Profile, error)
	Screenshot(ctx context.Context, name string) (string, error)
}

// Ledger is the processed ledger as the runner uses it
type Ledger interface {
	collect.Ledger
	MarkProcessed(ctx context.Context, account, candidate string, kind ledger.Kind)
}

// State is the position of a pass in its lifecycle
type State string

const (
	StateIdle                State = "idle"
	StateListOpened          State = "list_opened"
	StateCollecting          State = "collecting"
	StateProcessingCandidate State = "processing_candidate"
	StateDone                State = "done"
)

// Outcome classifies what happened to one candidate
type Outcome string

const (
	OutcomeActed   Outcome = "acted"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// PassResult summarizes one pass. State is the last state reached, so an
// aborted pass reports where it stopped.
type PassResult struct {
	Kind       ledger.Kind   `json:"kind"`
	State      State         `json:"state"`
	Budget     int           `json:"budget"`
	Candidates int           `json:"candidates"`
	Current    int           `json:"-"`
	Actions    int           `json:"actions"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Observer receives pass and candidate events, typically for metrics
type Observer interface {
	Budget(kind ledger.Kind, budget int)
	Candidate(kind ledger.Kind, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) Budget(ledger.Kind, int)        {}
func (nopObserver) Candidate(ledger.Kind, Outcome) {}

// Runner executes reconciliation passes
type Runner struct {
	site      Site
	ledger    Ledger
	collector *collect.Collector
	policy    ratelimit.Policy
	pacer     *ratelimit.Pacer

	unfollowDetector *detect.Detector
	followDetector   *detect.Detector

	dryRun   bool
	observer Observer
	logger   logger.Logger
	now      func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithPacer sets the delay drawn between candidates
func WithPacer(p *ratelimit.Pacer) RunnerOption {
	return func(r *Runner) { r.pacer = p }
}

// WithCollector replaces the default candidate collector
func WithCollector(c *collect.Collector) RunnerOption {
	return func(r *Runner) { r.collector = c }
}

// WithDetectors replaces the detectors of the unfollow and follow passes
func WithDetectors(unfollow, follow *detect.Detector) RunnerOption {
	return func(r *Runner) {
		r.unfollowDetector = unfollow
		r.followDetector = follow
	}
}

// WithDryRun evaluates candidates without acting or marking them
func WithDryRun(dry bool) RunnerOption {
	return func(r *Runner) { r.dryRun = dry }
}

// WithObserver registers pass and candidate event hooks
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithLogger sets the runner logger
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner. The unfollow pass runs every detection tier;
// the follow pass only the cheap explicit and badge tiers.
func NewRunner(site Site, l Ledger, policy ratelimit.Policy, opts ...RunnerOption) *Runner {
	r := &Runner{
		site:     site,
		ledger:   l,
		policy:   policy,
		pacer:    &ratelimit.Pacer{},
		observer: nopObserver{},
		logger:   logger.NewNopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.collector == nil {
		r.collector = collect.New(l, collect.WithLogger(r.logger))
	}
	if r.unfollowDetector == nil {
		r.unfollowDetector = detect.New(detect.WithLogger(r.logger))
	}
	if r.followDetector == nil {
		r.followDetector = detect.New(
			detect.WithTiers(detect.ExplicitTier, detect.BadgeTier),
			detect.WithLogger(r.logger),
		)
	}
	return r
}

// RunPass runs one pass of kind for account. A structural error aborts only
// this pass; a session error must abort the whole cycle. Candidate failures
// are counted, never returned.
func (r *Runner) RunPass(ctx context.Context, kind ledger.Kind, account Account) (PassResult, error) {
	start := r.now()
	res := PassResult{Kind: kind, State: StateIdle}
	log := logger.FromContext(ctx, r.logger).WithField("kind", string(kind))
	finish := func(err error) (PassResult, error) {
		res.Duration = r.now().Sub(start)
		if err != nil {
			res.Error = err.Error()
		}
		logger.LogPass(log, string(kind), string(res.State), res.Budget, res.Actions, res.Failed, res.Skipped, res.Duration)
		return res, err
	}

	res.Budget = ratelimit.ComputeBudget(account.audience(kind), r.policy)
	r.observer.Budget(kind, res.Budget)
	log.InfoWithFields("Budget computed", map[string]interface{}{
		"budget":   res.Budget,
		"audience": account.audience(kind),
	})

	scope, err := r.site.OpenOwnList(ctx, account.Handle, kind)
	if err != nil {
		if !errs.IsFatal(err) && !errs.IsStructural(err) {
			err = errs.Wrap(errs.ErrorTypeStructural, "open own list", err)
		}
		return finish(err)
	}
	res.State = StateListOpened

	res.State = StateCollecting
	candidates := r.collector.Collect(ctx, scope, account.Handle, kind, res.Budget)
	res.Candidates = len(candidates)
	log.InfoWithFields("Candidates collected", map[string]interface{}{
		"candidates": len(candidates),
		"budget":     res.Budget,
	})

	for i, handle := range candidates {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if i > 0 {
			if _, err := r.pacer.Wait(ctx); err != nil {
				return finish(err)
			}
		}
		res.State = StateProcessingCandidate
		res.Current = i

		cctx := logger.NewContext(ctx, log.WithField("candidate", handle))
		outcome, sig, err := r.processCandidate(cctx, kind, account.Handle, handle)
		if errs.IsFatal(err) {
			logger.LogAction(log, string(kind), handle, sig.String(), false, err)
			return finish(err)
		}

		switch outcome {
		case OutcomeActed:
			res.Actions++
		case OutcomeFailed:
			res.Failed++
		default:
			res.Skipped++
		}
		r.observer.Candidate(kind, outcome)
		logger.LogAction(log, string(kind), handle, sig.String(), outcome == OutcomeActed, err)

		if !r.dryRun {
			r.ledger.MarkProcessed(ctx, account.Handle, handle, kind)
		}
	}

	res.State = StateDone
	return finish(nil)
}

// processCandidate evaluates one candidate. Any error is a candidate
// failure unless it is a session error. ctx carries a logger scoped to the
// candidate.
func (r *Runner) processCandidate(ctx context.Context, kind ledger.Kind, self, handle string) (Outcome, detect.Signal, error) {
	profile, err := r.site.OpenProfile(ctx, handle)
	if err != nil {
		return OutcomeFailed, detect.NoSignal, err
	}

	switch kind {
	case ledger.KindUnfollow:
		sig := r.unfollowDetector.Resolve(ctx, profile, self)
		if sig.Reciprocates() {
			return OutcomeSkipped, sig, nil
		}
		if r.dryRun {
			logger.FromContext(ctx, r.logger).Info("Dry run: would unfollow")
			return OutcomeSkipped, sig, nil
		}
		if err := profile.Unfollow(ctx); err != nil {
			return OutcomeFailed, sig, err
		}
		return OutcomeActed, sig, nil

	case ledger.KindFollow:
		following, err := profile.IsFollowing(ctx)
		if err != nil {
			return OutcomeFailed, detect.NoSignal, err
		}
		if following {
			return OutcomeSkipped, detect.NoSignal, nil
		}
		sig := r.followDetector.Resolve(ctx, profile, self)
		if !sig.Reciprocates() {
			return OutcomeSkipped, sig, nil
		}
		if r.dryRun {
			logger.FromContext(ctx, r.logger).Info("Dry run: would follow back")
			return OutcomeSkipped, sig, nil
		}
		if err := profile.FollowBack(ctx, sig); err != nil {
			return OutcomeFailed, sig, err
		}
		return OutcomeActed, sig, nil

	default:
		return OutcomeFailed, detect.NoSignal, fmt.Errorf("unknown pass kind %q", kind)
	}
}
