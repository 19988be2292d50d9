package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igfollow/pkg/config"
	"igfollow/pkg/logger"
)

// backend is a Store under test plus a way to move its clock forward.
// advance is nil when the backend only honours wall-clock expiry.
type backend struct {
	store   Store
	advance func(d time.Duration)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func backends(t *testing.T) map[string]func(t *testing.T) backend {
	return map[string]func(t *testing.T) backend{
		"memory": func(t *testing.T) backend {
			clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
			m := NewMemoryStore()
			m.Now = clock.Now
			return backend{store: m, advance: clock.Advance}
		},
		"sqlite": func(t *testing.T) backend {
			clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv", "igfollow.db"))
			require.NoError(t, err)
			s.Now = clock.Now
			t.Cleanup(func() { s.Close() })
			return backend{store: s, advance: clock.Advance}
		},
		"badger": func(t *testing.T) backend {
			b, err := NewBadgerStore("", nil)
			require.NoError(t, err)
			t.Cleanup(func() { b.Close() })
			return backend{store: b}
		},
		"redis": func(t *testing.T) backend {
			mr := miniredis.RunT(t)
			r, err := NewRedisStore("redis://"+mr.Addr()+"/0", time.Second)
			require.NoError(t, err)
			t.Cleanup(func() { r.Close() })
			return backend{store: r, advance: mr.FastForward}
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("get missing", func(t *testing.T) {
				b := open(t)
				_, err := b.store.Get(ctx, ScheduleKey("alice"))
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("set get delete", func(t *testing.T) {
				b := open(t)
				key := SessionKey("alice")
				require.NoError(t, b.store.Set(ctx, key, `[{"name":"sessionid"}]`, 0))
				v, err := b.store.Get(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, `[{"name":"sessionid"}]`, v)

				require.NoError(t, b.store.Set(ctx, key, "[]", 0))
				v, err = b.store.Get(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, "[]", v)

				require.NoError(t, b.store.Delete(ctx, key))
				_, err = b.store.Get(ctx, key)
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("set membership", func(t *testing.T) {
				b := open(t)
				unfollow := LedgerKey("alice", "unfollow")
				follow := LedgerKey("alice", "follow")

				ok, err := b.store.SetContains(ctx, unfollow, "bob")
				require.NoError(t, err)
				assert.False(t, ok)

				require.NoError(t, b.store.SetAdd(ctx, unfollow, "bob", time.Hour))
				require.NoError(t, b.store.SetAdd(ctx, unfollow, "bob", time.Hour))

				ok, err = b.store.SetContains(ctx, unfollow, "bob")
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = b.store.SetContains(ctx, follow, "bob")
				require.NoError(t, err)
				assert.False(t, ok, "kinds are independent sets")

				ok, err = b.store.SetContains(ctx, unfollow, "bo")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("delete set", func(t *testing.T) {
				b := open(t)
				key := LedgerKey("alice", "follow")
				require.NoError(t, b.store.SetAdd(ctx, key, "carol", time.Hour))
				require.NoError(t, b.store.Delete(ctx, key))
				ok, err := b.store.SetContains(ctx, key, "carol")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("value expiry", func(t *testing.T) {
				b := open(t)
				if b.advance == nil {
					t.Skip("backend expires on wall clock only")
				}
				key := ScheduleKey("alice")
				require.NoError(t, b.store.Set(ctx, key, "1700000000", time.Minute))
				b.advance(2 * time.Minute)
				_, err := b.store.Get(ctx, key)
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("whole set expiry is refreshed on write", func(t *testing.T) {
				b := open(t)
				if b.advance == nil {
					t.Skip("backend expires on wall clock only")
				}
				key := LedgerKey("alice", "unfollow")
				require.NoError(t, b.store.SetAdd(ctx, key, "early", 10*time.Minute))
				b.advance(8 * time.Minute)
				require.NoError(t, b.store.SetAdd(ctx, key, "late", 10*time.Minute))
				b.advance(8 * time.Minute)

				ok, err := b.store.SetContains(ctx, key, "early")
				require.NoError(t, err)
				assert.True(t, ok, "a late write re-arms older members")

				b.advance(3 * time.Minute)
				for _, m := range []string{"early", "late"} {
					ok, err := b.store.SetContains(ctx, key, m)
					require.NoError(t, err)
					assert.False(t, ok, "%s should have aged out with the set", m)
				}
			})

			t.Run("ping", func(t *testing.T) {
				b := open(t)
				assert.NoError(t, b.store.Ping(ctx))
			})
		})
	}
}

func TestBadgerSetAddRefreshesAllMembers(t *testing.T) {
	b, err := NewBadgerStore(filepath.Join(t.TempDir(), "badger"), logger.NewNopLogger())
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	key := LedgerKey("alice", "unfollow")
	require.NoError(t, b.SetAdd(ctx, key, "bob", time.Hour))
	require.NoError(t, b.SetAdd(ctx, key, "carol", time.Hour))

	for _, m := range []string{"bob", "carol"} {
		ok, err := b.SetContains(ctx, key, m)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestRedisPingFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := NewRedisStore("redis://"+mr.Addr()+"/0", 200*time.Millisecond)
	require.NoError(t, err)
	defer r.Close()

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "processed:alice:unfollow", LedgerKey("alice", "unfollow"))
	assert.Equal(t, "schedule:alice:next_run", ScheduleKey("alice"))
	assert.Equal(t, "session:alice", SessionKey("alice"))
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantNil bool
		wantErr bool
	}{
		{"memory", config.StoreConfig{Backend: config.BackendMemory}, false, false},
		{"none", config.StoreConfig{Backend: config.BackendNone}, true, false},
		{"sqlite", config.StoreConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")}, false, false},
		{"badger", config.StoreConfig{Backend: config.BackendBadger, BadgerPath: filepath.Join(t.TempDir(), "b")}, false, false},
		{"bad redis url", config.StoreConfig{Backend: config.BackendRedis, RedisURL: "mysql://x"}, true, true},
		{"unknown", config.StoreConfig{Backend: "etcd"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Open(tt.cfg, logger.NewNopLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, st)
				return
			}
			require.NotNil(t, st)
			assert.NoError(t, st.Close())
		})
	}
}

func TestConnectReturnsDegradedStore(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	st, err := Connect(context.Background(), config.StoreConfig{
		Backend:         config.BackendRedis,
		RedisURL:        "redis://" + addr + "/0",
		DialTimeout:     100 * time.Millisecond,
		ConnectAttempts: 1,
	}, logger.NewNopLogger())

	require.Error(t, err)
	require.NotNil(t, st, "the store is still handed back for degraded use")
	st.Close()
}
