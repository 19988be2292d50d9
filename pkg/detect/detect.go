// Package detect answers "does this profile follow the account back?" with
// an ordered chain of increasingly expensive checks. The first tier that
// reports a positive signal wins.
package detect

import (
	"context"
	"fmt"

	"igfollow/pkg/logger"
)

// Signal is the strongest reciprocation evidence found for a profile
type Signal int

const (
	NoSignal Signal = iota
	// ReciprocatesExplicit means the profile offers a "Follow Back" button
	ReciprocatesExplicit
	// ReciprocatesBadge means the profile shows a "Follows you" badge
	ReciprocatesBadge
	// ReciprocatesDeep means the account was found in the profile's own
	// following list
	ReciprocatesDeep
)

func (s Signal) String() string {
	switch s {
	case ReciprocatesExplicit:
		return "explicit"
	case ReciprocatesBadge:
		return "badge"
	case ReciprocatesDeep:
		return "deep"
	default:
		return "no_signal"
	}
}

// Reciprocates reports whether s is any positive signal
func (s Signal) Reciprocates() bool { return s != NoSignal }

// FollowingList is a profile's following list overlay
type FollowingList interface {
	// Search types query into the overlay's search box
	Search(ctx context.Context, query string) error
	// HasMatch reports whether a result links to handle
	HasMatch(ctx context.Context, handle string) (bool, error)
	// Close dismisses the overlay and waits for it to disappear
	Close(ctx context.Context) error
}

// ProfileView is the part of a rendered profile page the detector reads
type ProfileView interface {
	HasButton(ctx context.Context, text string) (bool, error)
	HasText(ctx context.Context, text string) (bool, error)
	OpenFollowing(ctx context.Context) (FollowingList, error)
}

// Tier is one detection step. Check must not mutate anything except the
// transient overlay state it cleans up itself.
type Tier struct {
	Name   string
	Signal Signal
	Check  func(ctx context.Context, view ProfileView, self string) (bool, error)
}

// ExplicitTier looks for the "Follow Back" button
var ExplicitTier = Tier{
	Name:   "explicit",
	Signal: ReciprocatesExplicit,
	Check: func(ctx context.Context, view ProfileView, self string) (bool, error) {
		return view.HasButton(ctx, "Follow Back")
	},
}

// BadgeTier looks for the "Follows you" badge
var BadgeTier = Tier{
	Name:   "badge",
	Signal: ReciprocatesBadge,
	Check: func(ctx context.Context, view ProfileView, self string) (bool, error) {
		return view.HasText(ctx, "Follows you")
	},
}

// DeepTier searches the profile's following list for self
var DeepTier = Tier{
	Name:   "deep",
	Signal: ReciprocatesDeep,
	Check:  deepCheck,
}

func deepCheck(ctx context.Context, view ProfileView, self string) (found bool, err error) {
	list, err := view.OpenFollowing(ctx)
	if err != nil {
		return false, fmt.Errorf("open following list: %w", err)
	}
	// A failed close only matters when it is the sole failure and nothing
	// was found; a confirmed match stands.
	defer func() {
		if cerr := list.Close(ctx); cerr != nil && err == nil && !found {
			err = fmt.Errorf("close following list: %w", cerr)
		}
	}()

	if err := list.Search(ctx, self); err != nil {
		return false, fmt.Errorf("search following list: %w", err)
	}
	return list.HasMatch(ctx, self)
}

// DefaultTiers is the full chain in priority order
func DefaultTiers() []Tier {
	return []Tier{ExplicitTier, BadgeTier, DeepTier}
}

// Detector resolves a Signal by running tiers in order
type Detector struct {
	tiers  []Tier
	logger logger.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithTiers replaces the tier chain
func WithTiers(tiers ...Tier) Option {
	return func(d *Detector) { d.tiers = tiers }
}

// WithLogger sets the logger tier failures are reported to when the
// context carries none
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// New creates a Detector running DefaultTiers unless overridden
func New(opts ...Option) *Detector {
	d := &Detector{tiers: DefaultTiers(), logger: logger.NewNopLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve returns the signal of the first tier that matches, or NoSignal.
// A tier that errors counts as a miss.
func (d *Detector) Resolve(ctx context.Context, view ProfileView, self string) Signal {
	log := logger.FromContext(ctx, d.logger)
	for _, tier := range d.tiers {
		if ctx.Err() != nil {
			return NoSignal
		}
		ok, err := tier.Check(ctx, view, self)
		if err != nil {
			log.WithError(err).DebugWithFields("Detection tier failed", map[string]interface{}{
				"tier": tier.Name,
			})
			continue
		}
		if ok {
			return tier.Signal
		}
	}
	return NoSignal
}
