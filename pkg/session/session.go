// Package session persists the browser cookie jar of the account between
// cycles. Cookies live in the backing store under session:{account}; when
// the store has none, a session is rebuilt from the credential vault.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"igfollow/pkg/auth"
	"igfollow/pkg/browser"
	"igfollow/pkg/logger"
	"igfollow/pkg/store"
)

const cookieDomain = ".instagram.com"

// Vault is the credential lookup used as fallback
type Vault interface {
	Retrieve(username string) (*auth.Account, error)
}

// Manager loads and saves cookie jars
type Manager struct {
	store  store.Store
	vault  Vault
	logger logger.Logger
}

// New creates a Manager. Either dependency may be nil.
func New(st store.Store, vault Vault, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{store: st, vault: vault, logger: log.WithField("component", "session")}
}

// Load returns the saved cookies of account. Missing or unreadable state
// yields the vault session, or an empty jar for a fresh login.
func (m *Manager) Load(ctx context.Context, account string) []browser.Cookie {
	if cookies := m.fromStore(ctx, account); len(cookies) > 0 {
		return cookies
	}

	if m.vault != nil {
		acc, err := m.vault.Retrieve(account)
		if err == nil && acc != nil && acc.SessionID != "" {
			m.logger.WithField("account", account).Info("Session restored from credential vault")
			return CookiesFor(acc.SessionID, acc.UserID)
		}
	}

	m.logger.WithField("account", account).Warn("No saved session, starting fresh")
	return nil
}

func (m *Manager) fromStore(ctx context.Context, account string) []browser.Cookie {
	if m.store == nil {
		return nil
	}
	raw, err := m.store.Get(ctx, store.SessionKey(account))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		m.logger.WithError(err).Warn("Loading session cookies failed")
		return nil
	}

	var cookies []browser.Cookie
	if err := json.Unmarshal([]byte(raw), &cookies); err != nil {
		m.logger.WithError(err).Warn("Saved session is not a cookie list")
		return nil
	}
	return cookies
}

// Save stores the cookie jar of account without expiry
func (m *Manager) Save(ctx context.Context, account string, cookies []browser.Cookie) error {
	if m.store == nil {
		return fmt.Errorf("save session: %w", store.ErrUnavailable)
	}
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	if err := m.store.Set(ctx, store.SessionKey(account), string(data), 0); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.logger.WithFields(map[string]interface{}{
		"account": account,
		"cookies": len(cookies),
	}).Debug("Session saved")
	return nil
}

// Clear removes the saved jar of account
func (m *Manager) Clear(ctx context.Context, account string) error {
	if m.store == nil {
		return nil
	}
	return m.store.Delete(ctx, store.SessionKey(account))
}

// CookiesFor builds the cookie jar of an imported session. The session id
// is sent with its separators escaped, as the browser stores it.
func CookiesFor(sessionID, userID string) []browser.Cookie {
	cookies := []browser.Cookie{{
		Name:     "sessionid",
		Value:    strings.ReplaceAll(sessionID, ":", "%3A"),
		Domain:   cookieDomain,
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}}
	if userID != "" {
		cookies = append(cookies, browser.Cookie{
			Name:   "ds_user_id",
			Value:  userID,
			Domain: cookieDomain,
			Path:   "/",
			Secure: true,
		})
	}
	return cookies
}

// Import validates a pasted sessionid value and returns the credential and
// cookie jar it describes
func Import(username, raw string) (*auth.Account, []browser.Cookie, error) {
	sessionID, userID, err := auth.ParseSessionID(raw)
	if err != nil {
		return nil, nil, err
	}
	acc := &auth.Account{Username: username, SessionID: sessionID, UserID: userID}
	return acc, CookiesFor(sessionID, userID), nil
}
