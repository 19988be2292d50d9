// Package ledger remembers which candidates were already evaluated for an
// account, per action kind, so later runs do not revisit them.
//
// The ledger never reports an error. An unreachable store reads as "not
// processed" and swallows writes, which at worst lets a candidate be
// evaluated twice.
package ledger

import (
	"context"
	"time"

	"igfollow/pkg/logger"
	"igfollow/pkg/store"
)

// Kind namespaces the ledger by action
type Kind string

const (
	KindFollow   Kind = "follow"
	KindUnfollow Kind = "unfollow"
)

// DefaultRetention is how long a processed set lives after its last write
const DefaultRetention = 28 * 24 * time.Hour

// Observer is notified when the backing store fails. metrics.Metrics
// implements it.
type Observer interface {
	StoreError(op string)
}

// Ledger is the processed-candidate set backed by a store.Store
type Ledger struct {
	store     store.Store
	retention time.Duration
	logger    logger.Logger
	observer  Observer
}

// Option configures a Ledger
type Option func(*Ledger)

// WithRetention overrides the whole-set retention window
func WithRetention(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.retention = d
		}
	}
}

// WithObserver reports store failures
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observer = o }
}

// New creates a Ledger. A nil store behaves like an unreachable one.
func New(st store.Store, log logger.Logger, opts ...Option) *Ledger {
	if log == nil {
		log = logger.NewNopLogger()
	}
	l := &Ledger{
		store:     st,
		retention: DefaultRetention,
		logger:    log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MarkProcessed records candidate for (account, kind) and refreshes the
// retention of the whole set
func (l *Ledger) MarkProcessed(ctx context.Context, account, candidate string, kind Kind) {
	if l.store == nil {
		return
	}
	err := l.store.SetAdd(ctx, store.LedgerKey(account, string(kind)), candidate, l.retention)
	if err != nil {
		l.failed(ctx, "mark", candidate, kind, err)
	}
}

// IsProcessed reports whether candidate was marked for (account, kind)
// within the retention window
func (l *Ledger) IsProcessed(ctx context.Context, account, candidate string, kind Kind) bool {
	if l.store == nil {
		return false
	}
	ok, err := l.store.SetContains(ctx, store.LedgerKey(account, string(kind)), candidate)
	if err != nil {
		l.failed(ctx, "check", candidate, kind, err)
		return false
	}
	return ok
}

func (l *Ledger) failed(ctx context.Context, op, candidate string, kind Kind, err error) {
	log := logger.FromContext(ctx, l.logger).WithField("component", "ledger")
	log.WithError(err).WarnWithFields("Ledger store unavailable", map[string]interface{}{
		"op":        op,
		"candidate": candidate,
		"kind":      string(kind),
	})
	if l.observer != nil {
		l.observer.StoreError("ledger_" + op)
	}
}
