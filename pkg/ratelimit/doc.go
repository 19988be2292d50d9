// Package ratelimit turns an audience size into a safe per-run action budget
// and paces individual actions with randomized delays.
//
// ComputeBudget spreads a full traversal of the audience over the coverage
// window and never approves more than min(HardCeiling, MaxDailyActions/2)
// actions for one run:
//
//	budget := ratelimit.ComputeBudget(account.Following, ratelimit.DefaultPolicy())
//
// A Pacer draws a fresh uniform delay for every action:
//
//	pacer := ratelimit.NewPacer(cfg.Pacing.BetweenCandidates)
//	if _, err := pacer.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
