package ratelimit

import (
	"errors"
	"math"
	"time"

	"igfollow/pkg/config"
)

// Policy holds the anti-abuse constants a per-run action budget is derived from
type Policy struct {
	CoverageWindowDays  int
	MaxDailyActions     int
	ScheduleIntervalMin time.Duration
	ScheduleIntervalMax time.Duration
	HardCeiling         int
	// DefaultBudget is used when the audience size could not be read
	DefaultBudget int
}

// PolicyFromConfig builds a Policy from the policy config section
func PolicyFromConfig(c config.PolicyConfig) Policy {
	return Policy{
		CoverageWindowDays:  c.CoverageWindowDays,
		MaxDailyActions:     c.MaxDailyActions,
		ScheduleIntervalMin: c.ScheduleIntervalMin,
		ScheduleIntervalMax: c.ScheduleIntervalMax,
		HardCeiling:         c.HardCeiling,
		DefaultBudget:       c.DefaultBudget,
	}
}

// DefaultPolicy mirrors config.DefaultConfig().Policy
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultConfig().Policy)
}

// Validate checks the policy can produce a budget
func (p Policy) Validate() error {
	var errs []error
	if p.CoverageWindowDays <= 0 {
		errs = append(errs, errors.New("coverage window must be positive"))
	}
	if p.MaxDailyActions < 2 {
		errs = append(errs, errors.New("max daily actions must be at least 2"))
	}
	if p.HardCeiling < 1 {
		errs = append(errs, errors.New("hard ceiling must be at least 1"))
	}
	if p.ScheduleIntervalMin <= 0 || p.ScheduleIntervalMax < p.ScheduleIntervalMin {
		errs = append(errs, errors.New("schedule interval must satisfy 0 < min <= max"))
	}
	return errors.Join(errs...)
}

// Cap is the largest budget any single run may be approved for:
// min(HardCeiling, MaxDailyActions/2), never below 1.
func (p Policy) Cap() int {
	c := p.MaxDailyActions / 2
	if p.HardCeiling < c {
		c = p.HardCeiling
	}
	if c < 1 {
		c = 1
	}
	return c
}

func (p Policy) clamp(n int) int {
	if n < 1 {
		return 1
	}
	if c := p.Cap(); n > c {
		return c
	}
	return n
}

// RunsPerDay is how many runs the schedule interval midpoint allows in 24h
func (p Policy) RunsPerDay() float64 {
	midpoint := (p.ScheduleIntervalMin + p.ScheduleIntervalMax) / 2
	if midpoint <= 0 {
		return 1
	}
	return float64(24*time.Hour) / float64(midpoint)
}

// ComputeBudget converts an audience size into the number of state-changing
// actions one run may perform. totalAudience <= 0 means the count could not
// be read and the clamped DefaultBudget applies.
//
// The audience is spread over CoverageWindowDays, capped at MaxDailyActions
// per day, then divided by the expected runs per day.
func ComputeBudget(totalAudience int, p Policy) int {
	if totalAudience <= 0 || p.CoverageWindowDays <= 0 {
		return p.clamp(p.DefaultBudget)
	}

	neededPerDay := float64(totalAudience) / float64(p.CoverageWindowDays)
	targetDaily := math.Min(neededPerDay, float64(p.MaxDailyActions))

	budget := int(math.Floor(targetDaily / p.RunsPerDay()))
	return p.clamp(budget)
}
