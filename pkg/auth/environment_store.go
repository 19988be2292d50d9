package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore. IG_SESSIONID matches the
// variable name used by existing deployments.
var sessionEnvKeys = []string{"IGFOLLOW_SESSION_ID", "IG_SESSIONID"}

// EnvironmentStore is a read-only store backed by environment variables
type EnvironmentStore struct {
	getenv func(string) string
}

// NewEnvironmentStore creates a store reading the process environment
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{getenv: os.Getenv}
}

func (e *EnvironmentStore) raw() string {
	for _, k := range sessionEnvKeys {
		if v := e.getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment session for any username. An invalid
// value is reported as missing.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	sessionID, userID, err := ParseSessionID(e.raw())
	if err != nil {
		return nil, ErrCredentialsNotFound
	}
	return &Account{
		Username:     username,
		SessionID:    sessionID,
		UserID:       userID,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	return e.raw() != ""
}
