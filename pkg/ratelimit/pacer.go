package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"igfollow/pkg/config"
)

// Pacer draws randomized human-like delays from a closed interval. A fresh
// delay is drawn for every action.
type Pacer struct {
	Min time.Duration
	Max time.Duration

	// Int63n defaults to math/rand; tests pin it
	Int63n func(n int64) int64
	// Sleep defaults to a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer for the given range
func NewPacer(r config.Range) *Pacer {
	return &Pacer{Min: r.Min, Max: r.Max}
}

// Next returns a uniform delay in [Min, Max]
func (p *Pacer) Next() time.Duration {
	if p == nil {
		return 0
	}
	if p.Max <= p.Min {
		return p.Min
	}
	draw := rand.Int63n
	if p.Int63n != nil {
		draw = p.Int63n
	}
	return p.Min + time.Duration(draw(int64(p.Max-p.Min)+1))
}

// Wait sleeps for a freshly drawn delay and returns the delay used.
// It returns early with ctx.Err() when ctx is done.
func (p *Pacer) Wait(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	sleep := sleepContext
	if p != nil && p.Sleep != nil {
		sleep = p.Sleep
	}
	return d, sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacers groups the delay ranges a cycle uses
type Pacers struct {
	BetweenCandidates *Pacer
	AfterAction       *Pacer
	PageSettle        *Pacer
	ShortSettle       *Pacer
	PassCooldown      *Pacer
}

// NewPacers builds every pacer from the pacing config section
func NewPacers(c config.PacingConfig) Pacers {
	return Pacers{
		BetweenCandidates: NewPacer(c.BetweenCandidates),
		AfterAction:       NewPacer(c.AfterAction),
		PageSettle:        NewPacer(c.PageSettle),
		ShortSettle:       NewPacer(c.ShortSettle),
		PassCooldown:      NewPacer(c.PassCooldown),
	}
}

// Instant returns pacers that never sleep, for dry runs and tests
func Instant() Pacers {
	zero := func() *Pacer { return &Pacer{} }
	return Pacers{
		BetweenCandidates: zero(),
		AfterAction:       zero(),
		PageSettle:        zero(),
		ShortSettle:       zero(),
		PassCooldown:      zero(),
	}
}
