package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igfollow/pkg/auth"
	"igfollow/pkg/browser"
	"igfollow/pkg/logger"
	"igfollow/pkg/store"
)

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Get(ctx context.Context, key string) (string, error) { return "", f.err }

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := New(st, nil, nil)

	jar := []browser.Cookie{
		{Name: "sessionid", Value: "42%3Aabc%3A1", Domain: ".instagram.com", Path: "/", Secure: true, HTTPOnly: true, SameSite: "Lax"},
		{Name: "csrftoken", Value: "tok", Domain: ".instagram.com", Path: "/", Expires: 1.7e9},
	}
	require.NoError(t, m.Save(ctx, "me", jar))

	raw, err := st.Get(ctx, store.SessionKey("me"))
	require.NoError(t, err)
	assert.Contains(t, raw, `"httpOnly":true`)
	assert.Contains(t, raw, `"sameSite":"Lax"`)

	assert.Equal(t, jar, m.Load(ctx, "me"))
	assert.Empty(t, m.Load(ctx, "other"))
}

func TestLoadAcceptsExternalCookieLists(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	external := `[{"name":"sessionid","value":"v","domain":".instagram.com","path":"/","expires":-1,"httpOnly":true,"secure":true,"sameSite":"None"}]`
	require.NoError(t, st.Set(ctx, store.SessionKey("me"), external, 0))

	cookies := New(st, nil, nil).Load(ctx, "me")
	require.Len(t, cookies, 1)
	assert.Equal(t, "None", cookies[0].SameSite)
	assert.Equal(t, -1.0, cookies[0].Expires)
}

func TestLoadFallsBackToVault(t *testing.T) {
	ctx := context.Background()
	vault, ms := auth.NewMockVault()
	require.NoError(t, ms.Store(&auth.Account{Username: "me", SessionID: "42:abc:1", UserID: "42"}))

	tests := []struct {
		name string
		st   store.Store
	}{
		{"no store", nil},
		{"store error", failingStore{err: errors.New("connection refused")}},
		{"corrupt value", corrupt(t)},
		{"empty store", store.NewMemoryStore()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := logger.NewTestLogger()
			cookies := New(tt.st, vault, tl).Load(ctx, "me")
			require.Len(t, cookies, 2)
			assert.Equal(t, "42%3Aabc%3A1", cookies[0].Value)
			assert.Equal(t, "ds_user_id", cookies[1].Name)
			assert.True(t, tl.HasMessage("credential vault"))
		})
	}
}

func corrupt(t *testing.T) store.Store {
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(context.Background(), store.SessionKey("me"), "{not json", 0))
	return st
}

func TestLoadFreshSession(t *testing.T) {
	vault, _ := auth.NewMockVault()
	tl := logger.NewTestLogger()
	assert.Empty(t, New(nil, vault, tl).Load(context.Background(), "me"))
	assert.True(t, tl.HasMessage("starting fresh"))
}

func TestSaveWithoutStore(t *testing.T) {
	err := New(nil, nil, nil).Save(context.Background(), "me", nil)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := New(st, nil, nil)
	require.NoError(t, m.Save(ctx, "me", CookiesFor("42:abc:1", "42")))
	require.NoError(t, m.Clear(ctx, "me"))
	_, err := st.Get(ctx, store.SessionKey("me"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImport(t *testing.T) {
	acc, cookies, err := Import("me", "1234567890%3AAbC-d_e%3A27")
	require.NoError(t, err)
	assert.Equal(t, "1234567890:AbC-d_e:27", acc.SessionID)
	assert.Equal(t, "1234567890", acc.UserID)

	require.Len(t, cookies, 2)
	assert.Equal(t, browser.Cookie{
		Name: "sessionid", Value: "1234567890%3AAbC-d_e%3A27", Domain: ".instagram.com",
		Path: "/", Secure: true, HTTPOnly: true, SameSite: "Lax",
	}, cookies[0])
	assert.Equal(t, "1234567890", cookies[1].Value)

	_, _, err = Import("me", "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidSessionID)
}
