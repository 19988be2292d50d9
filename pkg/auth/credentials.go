// Package auth keeps the imported Instagram session credential in a vault:
// the OS keychain when one is available, an encrypted file otherwise, and
// environment variables as a read-only last resort.
package auth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Account is the credential imported for one Instagram account
type Account struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is one storage backend of the vault
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// Vault tries its stores in order
type Vault struct {
	stores []CredentialStore
	now    func() time.Time
}

// NewVault creates the default vault: keyring, then the encrypted file
// under dir, then the environment
func NewVault(dir string) (*Vault, error) {
	var stores []CredentialStore

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	fs, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs, NewEnvironmentStore())

	return NewVaultWithStores(stores...), nil
}

// NewVaultWithStores creates a vault over explicit stores
func NewVaultWithStores(stores ...CredentialStore) *Vault {
	return &Vault{stores: stores, now: time.Now}
}

// Store saves account in the first store that accepts it
func (v *Vault) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return errors.New("username is required")
	}
	if account.SessionID == "" {
		return errors.New("session ID is required")
	}
	account.LastModified = v.now()

	var lastErr error
	for _, s := range v.stores {
		err := s.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve returns the first stored credential for username
func (v *Vault) Retrieve(username string) (*Account, error) {
	for _, s := range v.stores {
		if account, err := s.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
}

// Delete removes username from every store that has it
func (v *Vault) Delete(username string) error {
	deleted := false
	var lastErr error
	for _, s := range v.stores {
		err := s.Delete(username)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}
	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
}

var sessionIDPattern = regexp.MustCompile(`^\d+(%3A|:)[\w-]+(%3A|:)[\w-]+$`)

// ParseSessionID validates a pasted sessionid cookie value and returns it
// URL-unescaped together with the numeric user id it starts with
func ParseSessionID(raw string) (sessionID, userID string, err error) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if raw == "" {
		return "", "", fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
	}
	if !sessionIDPattern.MatchString(decoded) {
		return "", "", fmt.Errorf("%w: expected <user id>:<token>:<token>", ErrInvalidSessionID)
	}
	userID, _, _ = strings.Cut(decoded, ":")
	return decoded, userID, nil
}

// credentialDir returns dir, creating it with owner-only permissions
func credentialDir(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("credential directory is empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create credential directory: %w", err)
	}
	return dir, nil
}

// SanitizeAccount returns a copy safe to print
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	cp := *account
	cp.SessionID = maskString(account.SessionID)
	return &cp
}

// maskString keeps the first and last four characters
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
	ErrInvalidSessionID    = errors.New("invalid sessionid cookie")
)
