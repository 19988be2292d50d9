package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"igfollow/pkg/auth"
	"igfollow/pkg/session"
	"igfollow/pkg/store"
	"igfollow/pkg/ui"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the browser session",
	Long: `Manage the Instagram session igfollow logs in with.

igfollow never types a password. It reuses the sessionid cookie of a browser
where you are already logged in, and keeps the cookie jar the platform hands
back after every completed cycle.`,
}

var sessionImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a sessionid cookie",
	Long: `Import the sessionid cookie of a logged-in browser.

The value is read without echo. When stdin is not a terminal it is read from
the first line, so it can be piped in:

  pbpaste | igfollow session import -u myaccount`,
	RunE: runSessionImport,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the imported session (masked)",
	RunE:  runSessionShow,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the saved session and credential",
	RunE:  runSessionClear,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionImportCmd, sessionShowCmd, sessionClearCmd)
}

func newSessionApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func runSessionImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newSessionApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if term.IsTerminal(int(syscall.Stdin)) {
		auth.WriteSessionGuide(os.Stdout)
		fmt.Print("\nsessionid: ")
	}
	raw, err := readSecret(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read sessionid: %w", err)
	}

	acc, err := a.importSession(ctx, raw)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Session imported for @%s (user id %s)", acc.Username, acc.UserID))
	return nil
}

// importSession validates raw and saves it to the store and the vault.
// Succeeding in either is enough.
func (a *app) importSession(ctx context.Context, raw string) (*auth.Account, error) {
	account := a.cfg.Account.Username
	acc, cookies, err := session.Import(account, raw)
	if err != nil {
		return nil, err
	}

	saved := false
	if err := a.sessions.Save(ctx, account, cookies); err != nil {
		a.log.WithError(err).Warn("Session not saved to store")
	} else {
		saved = true
	}

	if a.vault != nil {
		if err := a.vault.Store(acc); err != nil {
			a.log.WithError(err).Warn("Credential not saved to vault")
		} else {
			saved = true
		}
	}

	if !saved {
		return nil, errors.New("session could not be saved to the store or the credential vault")
	}
	return acc, nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newSessionApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	account := a.cfg.Account.Username
	ui.PrintInfo("Account", account)

	if a.vault == nil {
		ui.PrintWarning("Credential vault unavailable")
	} else if acc, err := a.vault.Retrieve(account); err != nil {
		ui.PrintWarning("No credential in the vault")
	} else {
		masked := auth.SanitizeAccount(acc)
		ui.PrintInfo("Session ID", masked.SessionID)
		ui.PrintInfo("User ID", masked.UserID)
		if !masked.LastModified.IsZero() {
			ui.PrintInfo("Imported", masked.LastModified.Local().Format(time.RFC1123))
		}
	}

	cookies := a.sessions.Load(ctx, account)
	ui.PrintInfo("Cookies", fmt.Sprintf("%d", len(cookies)))
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newSessionApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	account := a.cfg.Account.Username
	if err := a.sessions.Clear(ctx, account); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to clear saved cookies: %w", err)
	}
	if a.vault != nil {
		if err := a.vault.Delete(account); err != nil && !errors.Is(err, auth.ErrCredentialsNotFound) {
			a.log.WithError(err).Warn("Failed to delete credential")
		}
	}
	ui.PrintSuccess("Session cleared for @" + account)
	return nil
}

// readSecret reads a line without echo from a terminal, or the first line
// of r otherwise
func readSecret(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	reader := bufio.NewReader(r)
	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
