// Package collect pulls unprocessed candidate handles out of a
// progressively revealed list, such as a followers overlay that loads more
// rows as it is scrolled.
package collect

import (
	"context"
	"strings"
	"time"

	"igfollow/pkg/ledger"
	"igfollow/pkg/logger"
)

// DefaultMaxIdleScrolls bounds consecutive reveals that yield nothing new
const DefaultMaxIdleScrolls = 100

// DefaultSettle is the pause after each reveal
const DefaultSettle = 2 * time.Second

// ListScope is a list whose rows appear as it is scrolled
type ListScope interface {
	// Links returns the raw href of every currently rendered profile link
	Links(ctx context.Context) ([]string, error)
	// RevealMore scrolls so the list renders further rows
	RevealMore(ctx context.Context) error
}

// Ledger is the read side of the processed ledger
type Ledger interface {
	IsProcessed(ctx context.Context, account, candidate string, kind ledger.Kind) bool
}

// Sleeper pauses between reveals
type Sleeper func(ctx context.Context, d time.Duration) error

// Collector gathers candidates up to a budget
type Collector struct {
	ledger  Ledger
	maxIdle int
	settle  time.Duration
	sleep   Sleeper
	logger  logger.Logger
}

// Option configures a Collector
type Option func(*Collector)

// WithMaxIdleScrolls overrides DefaultMaxIdleScrolls
func WithMaxIdleScrolls(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxIdle = n
		}
	}
}

// WithSettle sets the delay after each reveal and how it is slept
func WithSettle(d time.Duration, sleep Sleeper) Option {
	return func(c *Collector) {
		c.settle = d
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithLogger sets the logger used when the context carries none
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// New creates a Collector reading processed state from l
func New(l Ledger, opts ...Option) *Collector {
	c := &Collector{
		ledger:  l,
		maxIdle: DefaultMaxIdleScrolls,
		settle:  DefaultSettle,
		sleep:   sleepContext,
		logger:  logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect returns at most budget handles in the order they were rendered,
// skipping self, duplicates and handles already processed for kind. When
// the list stops producing new candidates it returns what it has.
func (c *Collector) Collect(ctx context.Context, scope ListScope, self string, kind ledger.Kind, budget int) []string {
	if budget <= 0 {
		return nil
	}

	log := logger.FromContext(ctx, c.logger)
	seen := make(map[string]struct{})
	out := make([]string, 0, budget)
	idle := 0
	rounds := 0

	for len(out) < budget && ctx.Err() == nil {
		rounds++
		added := 0

		links, err := scope.Links(ctx)
		if err != nil {
			log.WithError(err).Debug("Reading list links failed")
		}
		for _, href := range links {
			handle, ok := ParseHandle(href)
			if !ok {
				continue
			}
			if _, dup := seen[handle]; dup {
				continue
			}
			seen[handle] = struct{}{}

			if strings.EqualFold(handle, self) {
				continue
			}
			if c.ledger != nil && c.ledger.IsProcessed(ctx, self, handle, kind) {
				continue
			}
			out = append(out, handle)
			added++
			if len(out) >= budget {
				break
			}
		}
		if len(out) >= budget {
			break
		}

		revealErr := scope.RevealMore(ctx)
		if revealErr != nil {
			log.WithError(revealErr).Debug("Reveal failed")
		}

		if added > 0 && revealErr == nil {
			idle = 0
		} else {
			idle++
		}
		if idle > c.maxIdle {
			log.InfoWithFields("List exhausted before budget", map[string]interface{}{
				"kind":      string(kind),
				"collected": len(out),
				"budget":    budget,
				"rounds":    rounds,
			})
			break
		}

		if err := c.sleep(ctx, c.settle); err != nil {
			break
		}
	}

	return out
}

// ParseHandle extracts the handle from a profile link of the form /name/
// or /name. Anything else (nested paths, absolute URLs, query strings,
// characters outside letters, digits, '.' and '_') is rejected.
func ParseHandle(href string) (string, bool) {
	if !strings.HasPrefix(href, "/") {
		return "", false
	}
	name := strings.TrimPrefix(href, "/")
	name = strings.TrimSuffix(name, "/")
	if name == "" || len(name) > 30 {
		return "", false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
		default:
			return "", false
		}
	}
	return name, true
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
