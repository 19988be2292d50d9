package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"igfollow/pkg/config"
	"igfollow/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Create, inspect and validate the igfollow configuration.

Settings are resolved from, in order of priority:
  1. Command line flags
  2. Environment variables (IGFOLLOW_*, plus IG_USERNAME, REDIS_URL, FORCE_RUN)
  3. .env files
  4. The configuration file
  5. Defaults`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

var overwriteConfig bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)

	configInitCmd.Flags().BoolVar(&overwriteConfig, "force", false, "overwrite an existing file")
}

func defaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "igfollow", "config.yaml")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := defaultConfigPath()
	if len(args) == 1 {
		path = args[0]
	} else if configFile != "" {
		path = configFile
	}

	if _, err := os.Stat(path); err == nil && !overwriteConfig {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	cfg := config.DefaultConfig()
	cfg.Account.Username = username
	if storeBackend != "" {
		cfg.Store.Backend = storeBackend
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set account.username in the file or export IG_USERNAME")
	fmt.Println("2. Run 'igfollow session import' to import your browser session")
	fmt.Println("3. Run 'igfollow config validate' to check the configuration")
	fmt.Println("4. Start with 'igfollow run --dry-run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	display := *cfg
	display.Store.RedisURL = maskURL(cfg.Store.RedisURL)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

// maskURL hides the password of a connection URL
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var warnings []string
	if cfg.Store.Backend == config.BackendNone {
		warnings = append(warnings, "store backend is none: the schedule gate refuses every run without --force")
	}
	if cfg.Store.Backend == config.BackendMemory {
		warnings = append(warnings, "memory store forgets progress when the process exits")
	}
	if cfg.Store.Backend == config.BackendBadger {
		warnings = append(warnings, "badger store allows one process at a time: other commands run without it while daemon holds it")
	}
	if cfg.Account.DryRun {
		warnings = append(warnings, "dry run is enabled, no action will be taken")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Account: %s\n", cfg.Account.Username)
	fmt.Printf("  Store: %s\n", cfg.Store.Backend)
	fmt.Printf("  Coverage window: %d days\n", cfg.Policy.CoverageWindowDays)
	fmt.Printf("  Max daily actions: %d (hard ceiling %d per pass)\n", cfg.Policy.MaxDailyActions, cfg.Policy.HardCeiling)
	fmt.Printf("  Schedule interval: %s to %s\n", cfg.Policy.ScheduleIntervalMin, cfg.Policy.ScheduleIntervalMax)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
