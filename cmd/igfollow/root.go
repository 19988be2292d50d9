package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"igfollow/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile   string
	logLevel     string
	username     string
	storeBackend string
	quiet        bool
)

// Exit codes reported by run and daemon
const (
	exitOK             = 0
	exitFailure        = 1
	exitSkipped        = 3
	exitSessionInvalid = 4
)

// exitError carries a process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igfollow",
	Short: "Keep an Instagram following list reciprocal",
	Long: `igfollow drives a real browser session to reconcile who you follow
with who follows you back.

Each cycle runs two passes under a strict action budget:
  - unfollow accounts that do not follow you back
  - follow back accounts that already follow you

Progress is kept in a backing store so every account is considered once per
coverage window, and cycles are spaced out by a randomized schedule.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			return
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintBanner()
		}
	},
}

// Execute adds all child commands to the root command and exits with the
// code the command reported
func Execute() {
	os.Exit(exitCode(rootCmd.Execute()))
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			ui.PrintError("Command failed", ee.err)
		}
		return ee.code
	}
	ui.PrintError("Command failed", err)
	return exitFailure
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igfollow.yaml or ~/.config/igfollow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "account to reconcile (overrides IG_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "backing store (redis, badger, sqlite, memory, none)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress the banner")

	rootCmd.SetVersionTemplate(`igfollow {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
