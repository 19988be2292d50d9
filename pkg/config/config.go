package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for igfollow
type Config struct {
	// Account being reconciled
	Account AccountConfig `yaml:"account" json:"account"`

	// Budget policy for the rate controller
	Policy PolicyConfig `yaml:"policy" json:"policy"`

	// Randomized human-like delays
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Browser driver settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Backing key-value store
	Store StoreConfig `yaml:"store" json:"store"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Prometheus metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Built-in cron trigger
	Daemon DaemonConfig `yaml:"daemon" json:"daemon"`
}

// AccountConfig identifies the account whose follow graph is reconciled
type AccountConfig struct {
	Username string `yaml:"username" json:"username"`
	// ForceRun bypasses the schedule gate
	ForceRun bool `yaml:"force_run" json:"force_run"`
	// DryRun evaluates candidates without clicking follow/unfollow
	DryRun bool `yaml:"dry_run" json:"dry_run"`
}

// PolicyConfig holds the constants the per-run action budget is derived from
type PolicyConfig struct {
	CoverageWindowDays  int           `yaml:"coverage_window_days" json:"coverage_window_days"`
	MaxDailyActions     int           `yaml:"max_daily_actions" json:"max_daily_actions"`
	HardCeiling         int           `yaml:"hard_ceiling" json:"hard_ceiling"`
	DefaultBudget       int           `yaml:"default_budget" json:"default_budget"`
	ScheduleIntervalMin time.Duration `yaml:"schedule_interval_min" json:"schedule_interval_min"`
	ScheduleIntervalMax time.Duration `yaml:"schedule_interval_max" json:"schedule_interval_max"`
	LedgerRetention     time.Duration `yaml:"ledger_retention" json:"ledger_retention"`
	SessionBackoff      time.Duration `yaml:"session_backoff" json:"session_backoff"`
	MaxIdleScrolls      int           `yaml:"max_idle_scrolls" json:"max_idle_scrolls"`
}

// Range is a closed duration interval that delays are drawn from
type Range struct {
	Min time.Duration `yaml:"min" json:"min"`
	Max time.Duration `yaml:"max" json:"max"`
}

// PacingConfig holds the randomized delay ranges
type PacingConfig struct {
	BetweenCandidates Range         `yaml:"between_candidates" json:"between_candidates"`
	AfterAction       Range         `yaml:"after_action" json:"after_action"`
	PageSettle        Range         `yaml:"page_settle" json:"page_settle"`
	ShortSettle       Range         `yaml:"short_settle" json:"short_settle"`
	PassCooldown      Range         `yaml:"pass_cooldown" json:"pass_cooldown"`
	ScrollSettle      time.Duration `yaml:"scroll_settle" json:"scroll_settle"`
}

// BrowserConfig holds browser driver settings
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	ModalTimeout      time.Duration `yaml:"modal_timeout" json:"modal_timeout"`
	ActionTimeout     time.Duration `yaml:"action_timeout" json:"action_timeout"`
	ScreenshotDir     string        `yaml:"screenshot_dir" json:"screenshot_dir"`
}

// StoreConfig selects and configures the backing key-value store
type StoreConfig struct {
	// Backend is one of redis, badger, sqlite, memory, none
	Backend     string        `yaml:"backend" json:"backend"`
	RedisURL    string        `yaml:"redis_url" json:"redis_url"`
	BadgerPath  string        `yaml:"badger_path" json:"badger_path"`
	SQLitePath  string        `yaml:"sqlite_path" json:"sqlite_path"`
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	// ConnectAttempts bounds the startup ping retries
	ConnectAttempts int `yaml:"connect_attempts" json:"connect_attempts"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// DaemonConfig holds the built-in cron trigger settings
type DaemonConfig struct {
	Cron       string `yaml:"cron" json:"cron"`
	RunOnStart bool   `yaml:"run_on_start" json:"run_on_start"`
}

// Store backends
const (
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// DefaultUserAgent is the desktop Chrome user agent presented to the platform
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns a Config instance with conservative anti-abuse defaults
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Policy: PolicyConfig{
			CoverageWindowDays:  28,
			MaxDailyActions:     28,
			HardCeiling:         15,
			DefaultBudget:       10,
			ScheduleIntervalMin: 3 * time.Hour,
			ScheduleIntervalMax: 6 * time.Hour,
			LedgerRetention:     28 * 24 * time.Hour,
			SessionBackoff:      time.Hour,
			MaxIdleScrolls:      100,
		},
		Pacing: PacingConfig{
			BetweenCandidates: Range{Min: 30 * time.Second, Max: 60 * time.Second},
			AfterAction:       Range{Min: 10 * time.Second, Max: 30 * time.Second},
			PageSettle:        Range{Min: 3 * time.Second, Max: 6 * time.Second},
			ShortSettle:       Range{Min: 2 * time.Second, Max: 4 * time.Second},
			PassCooldown:      Range{Min: 5 * time.Second, Max: 10 * time.Second},
			ScrollSettle:      2 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         DefaultUserAgent,
			BaseURL:           "https://www.instagram.com",
			NavigationTimeout: 60 * time.Second,
			ModalTimeout:      10 * time.Second,
			ActionTimeout:     5 * time.Second,
			ScreenshotDir:     "screenshots",
		},
		Store: StoreConfig{
			Backend:         BackendSQLite,
			BadgerPath:      filepath.Join(dataDir, "badger"),
			SQLitePath:      filepath.Join(dataDir, "igfollow.db"),
			DialTimeout:     5 * time.Second,
			ConnectAttempts: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Daemon: DaemonConfig{
			Cron: "@every 30m",
		},
	}
}

// DataDir is the XDG data directory holding the store, run reports and the
// encrypted credential file
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "igfollow")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "igfollow")
	}
	return ".igfollow"
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// Unprefixed names are accepted as fallbacks
	if v := firstEnv("IGFOLLOW_USERNAME", "IG_USERNAME"); v != "" {
		c.Account.Username = v
	}
	if v := firstEnv("IGFOLLOW_REDIS_URL", "REDIS_URL"); v != "" {
		c.Store.RedisURL = v
		if os.Getenv("IGFOLLOW_STORE_BACKEND") == "" {
			c.Store.Backend = BackendRedis
		}
	}
	if v := os.Getenv("IGFOLLOW_STORE_BACKEND"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("IGFOLLOW_BADGER_PATH"); v != "" {
		c.Store.BadgerPath = v
	}
	if v := os.Getenv("IGFOLLOW_SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := firstEnv("IGFOLLOW_FORCE_RUN", "FORCE_RUN"); v != "" {
		c.Account.ForceRun = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("IGFOLLOW_DRY_RUN"); v != "" {
		c.Account.DryRun = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("IGFOLLOW_HEADLESS"); v != "" {
		c.Browser.Headless = !strings.EqualFold(v, "false")
	}
	if v := os.Getenv("IGFOLLOW_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}
	if v := os.Getenv("IGFOLLOW_SCREENSHOT_DIR"); v != "" {
		c.Browser.ScreenshotDir = v
	}
	if v := os.Getenv("IGFOLLOW_MAX_DAILY_ACTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGFOLLOW_MAX_DAILY_ACTIONS: %w", err))
		} else if n > 0 {
			c.Policy.MaxDailyActions = n
		}
	}
	if v := os.Getenv("IGFOLLOW_COVERAGE_WINDOW_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGFOLLOW_COVERAGE_WINDOW_DAYS: %w", err))
		} else if n > 0 {
			c.Policy.CoverageWindowDays = n
		}
	}
	if v := os.Getenv("IGFOLLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("IGFOLLOW_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("IGFOLLOW_DAEMON_CRON"); v != "" {
		c.Daemon.Cron = v
	}
	if v := os.Getenv("IGFOLLOW_METRICS_ADDRESS"); v != "" {
		c.Metrics.Address = v
		c.Metrics.Enabled = true
	}

	return errors.Join(errs...)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igfollow.yaml",
		".igfollow.yml",
		filepath.Join(home, ".config", "igfollow", "config.yaml"),
		filepath.Join(home, ".config", "igfollow", "config.yml"),
		filepath.Join(home, ".igfollow.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Account.Username) == "" {
		errs = append(errs, errors.New("account username is required (IG_USERNAME)"))
	}

	p := c.Policy
	if p.CoverageWindowDays <= 0 {
		errs = append(errs, errors.New("coverage window must be positive"))
	}
	if p.MaxDailyActions < 2 {
		errs = append(errs, errors.New("max daily actions must be at least 2"))
	}
	if p.HardCeiling < 1 {
		errs = append(errs, errors.New("hard ceiling must be at least 1"))
	}
	if p.DefaultBudget < 1 {
		errs = append(errs, errors.New("default budget must be at least 1"))
	}
	if p.ScheduleIntervalMin <= 0 || p.ScheduleIntervalMax < p.ScheduleIntervalMin {
		errs = append(errs, errors.New("schedule interval must satisfy 0 < min <= max"))
	}
	if p.LedgerRetention <= 0 {
		errs = append(errs, errors.New("ledger retention must be positive"))
	}
	if p.SessionBackoff < 0 {
		errs = append(errs, errors.New("session backoff cannot be negative"))
	}
	if p.MaxIdleScrolls < 1 {
		errs = append(errs, errors.New("max idle scrolls must be at least 1"))
	}

	ranges := map[string]Range{
		"between_candidates": c.Pacing.BetweenCandidates,
		"after_action":       c.Pacing.AfterAction,
		"page_settle":        c.Pacing.PageSettle,
		"short_settle":       c.Pacing.ShortSettle,
		"pass_cooldown":      c.Pacing.PassCooldown,
	}
	for name, r := range ranges {
		if r.Min < 0 || r.Max < r.Min {
			errs = append(errs, fmt.Errorf("pacing %s must satisfy 0 <= min <= max", name))
		}
	}

	if c.Browser.NavigationTimeout <= 0 || c.Browser.ModalTimeout <= 0 || c.Browser.ActionTimeout <= 0 {
		errs = append(errs, errors.New("browser timeouts must be positive"))
	}
	if c.Browser.BaseURL == "" {
		errs = append(errs, errors.New("browser base url is required"))
	}

	switch strings.ToLower(c.Store.Backend) {
	case BackendRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("redis backend requires redis_url (REDIS_URL)"))
		}
	case BackendBadger:
		if c.Store.BadgerPath == "" {
			errs = append(errs, errors.New("badger backend requires badger_path"))
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite backend requires sqlite_path"))
		}
	case BackendMemory, BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Account.Username = username
	}
	if force, ok := flags["force"].(bool); ok && force {
		c.Account.ForceRun = true
	}
	if dryRun, ok := flags["dry-run"].(bool); ok && dryRun {
		c.Account.DryRun = true
	}
	if headful, ok := flags["headful"].(bool); ok && headful {
		c.Browser.Headless = false
	}
	if backend, ok := flags["store"].(string); ok && backend != "" {
		c.Store.Backend = strings.ToLower(backend)
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if cronSpec, ok := flags["cron"].(string); ok && cronSpec != "" {
		c.Daemon.Cron = cronSpec
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Address = addr
		c.Metrics.Enabled = true
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igfollow.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
