// Package store is the raw key-value layer behind the ledger, the schedule
// gate and the session store. Every backend lays keys out identically:
//
//	processed:{account}:{kind}  set of handles, whole-set expiry
//	schedule:{account}:next_run unix seconds
//	session:{account}           JSON cookie list
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"igfollow/pkg/config"
	"igfollow/pkg/logger"
	"igfollow/pkg/retry"
)

// ErrNotFound is returned by Get when the key is absent or expired
var ErrNotFound = errors.New("store: key not found")

// ErrUnavailable reports that no backend is configured
var ErrUnavailable = errors.New("store: no backend configured")

// Store is a small Redis-shaped key-value capability
type Store interface {
	// Get returns the value stored at key or ErrNotFound
	Get(ctx context.Context, key string) (string, error)
	// Set stores value at key; ttl <= 0 means no expiry
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// SetAdd adds member to the set at key and resets the expiry of the
	// whole set to ttl
	SetAdd(ctx context.Context, key, member string, ttl time.Duration) error
	SetContains(ctx context.Context, key, member string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// LedgerKey is the set of processed handles for one account and action kind
func LedgerKey(account, kind string) string {
	return fmt.Sprintf("processed:%s:%s", account, kind)
}

// ScheduleKey holds the next eligible run time for an account
func ScheduleKey(account string) string {
	return fmt.Sprintf("schedule:%s:next_run", account)
}

// SessionKey holds the serialized cookie list for an account
func SessionKey(account string) string {
	return fmt.Sprintf("session:%s", account)
}

// Open creates the backend selected by cfg.Backend. The "none" backend
// returns a nil Store, which every consumer treats as unreachable.
func Open(cfg config.StoreConfig, log logger.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendRedis:
		r, err := NewRedisStore(cfg.RedisURL, cfg.DialTimeout)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.BackendBadger:
		b, err := NewBadgerStore(cfg.BadgerPath, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Connect opens the configured backend and pings it with exponential
// backoff. A store that never answers is still returned together with the
// ping error so the caller can run in degraded mode.
func Connect(ctx context.Context, cfg config.StoreConfig, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	st, err := Open(cfg, log)
	if err != nil || st == nil {
		return st, err
	}

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	err = retry.Do(ctx, st.Ping, &retry.Config{
		MaxAttempts: attempts,
		Backoff:     retry.DefaultExponentialBackoff(),
		Logger:      log.WithField("backend", cfg.Backend),
	})
	if err != nil {
		return st, fmt.Errorf("ping %s store: %w", cfg.Backend, err)
	}
	return st, nil
}
