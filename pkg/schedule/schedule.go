// Package schedule gates how often a reconciliation cycle may run for an
// account. The gate fails closed: when the store cannot be read the run is
// refused.
package schedule

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strconv"
	"time"

	"igfollow/pkg/logger"
	"igfollow/pkg/store"
)

// Observer is notified when the backing store fails
type Observer interface {
	StoreError(op string)
}

// Gate reads and writes schedule:{account}:next_run
type Gate struct {
	store       store.Store
	intervalMin time.Duration
	intervalMax time.Duration
	logger      logger.Logger
	observer    Observer

	// Now and Int63n are replaced in tests
	Now    func() time.Time
	Int63n func(n int64) int64
}

// New creates a Gate that schedules the next run U(min, max) after a
// completed cycle
func New(st store.Store, intervalMin, intervalMax time.Duration, log logger.Logger) *Gate {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Gate{
		store:       st,
		intervalMin: intervalMin,
		intervalMax: intervalMax,
		logger:      log.WithField("component", "schedule"),
		Now:         time.Now,
		Int63n:      rand.Int63n,
	}
}

// SetObserver reports store failures to o
func (g *Gate) SetObserver(o Observer) { g.observer = o }

// NextRun returns the stored next eligible time. ok is false when no
// schedule has been written yet or the value cannot be parsed.
func (g *Gate) NextRun(ctx context.Context, account string) (next time.Time, ok bool, err error) {
	if g.store == nil {
		return time.Time{}, false, errors.New("schedule store not configured")
	}
	raw, err := g.store.Get(ctx, store.ScheduleKey(account))
	if errors.Is(err, store.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	secs, perr := strconv.ParseFloat(raw, 64)
	if perr != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		g.logger.WarnWithFields("Unparsable schedule value, treating as eligible", map[string]interface{}{
			"account": account,
			"value":   raw,
		})
		return time.Time{}, false, nil
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), true, nil
}

// Check reports whether a cycle may run now
func (g *Gate) Check(ctx context.Context, account string) bool {
	next, ok, err := g.NextRun(ctx, account)
	if err != nil {
		g.logger.WithError(err).Warn("Schedule store unavailable, refusing to run")
		g.report("schedule_check")
		return false
	}
	if !ok {
		return true
	}

	now := g.Now()
	if now.Before(next) {
		g.logger.InfoWithFields("Not scheduled yet", map[string]interface{}{
			"account":         account,
			"next_run":        next.Format(time.RFC3339),
			"hours_remaining": math.Round(next.Sub(now).Hours()*100) / 100,
		})
		return false
	}
	return true
}

// Update schedules the next run a random interval from now
func (g *Gate) Update(ctx context.Context, account string) (time.Time, error) {
	return g.set(ctx, account, g.interval())
}

// Backoff schedules the next run exactly d from now
func (g *Gate) Backoff(ctx context.Context, account string, d time.Duration) (time.Time, error) {
	return g.set(ctx, account, d)
}

func (g *Gate) interval() time.Duration {
	if g.intervalMax <= g.intervalMin {
		return g.intervalMin
	}
	return g.intervalMin + time.Duration(g.Int63n(int64(g.intervalMax-g.intervalMin)+1))
}

func (g *Gate) set(ctx context.Context, account string, d time.Duration) (time.Time, error) {
	next := g.Now().Add(d)
	if g.store == nil {
		return next, errors.New("schedule store not configured")
	}
	value := strconv.FormatInt(next.Unix(), 10)
	if err := g.store.Set(ctx, store.ScheduleKey(account), value, 0); err != nil {
		g.logger.WithError(err).Warn("Failed to persist schedule")
		g.report("schedule_update")
		return next, err
	}
	g.logger.InfoWithFields("Next run scheduled", map[string]interface{}{
		"account":  account,
		"next_run": next.Format(time.RFC3339),
		"in":       d.Round(time.Minute),
	})
	return next, nil
}

func (g *Gate) report(op string) {
	if g.observer != nil {
		g.observer.StoreError(op)
	}
}
