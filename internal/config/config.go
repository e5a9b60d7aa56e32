// Package config loads finburn settings from TOML, .env files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/theirongolddev/finburn/internal/currency"
)

// Environment variables that override the config file.
const (
	EnvPage     = "FINBURN_PAGE"
	EnvCookie   = "FINBURN_COOKIE"
	EnvLogLevel = "FINBURN_LOG_LEVEL"
	EnvAddr     = "FINBURN_ADDR"
)

// Config holds all finburn configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Extract    ExtractConfig    `toml:"extract"`
	Rates      RatesConfig      `toml:"rates"`
	Live       LiveConfig       `toml:"live"`
	Appearance AppearanceConfig `toml:"appearance"`
	Log        LogConfig        `toml:"log"`
}

// GeneralConfig holds the page location and state database.
type GeneralConfig struct {
	// Page is a file, a directory of saved pages, or an http(s) URL.
	Page   string `toml:"page,omitempty"`
	Cookie string `toml:"cookie,omitempty"`
	DBPath string `toml:"db_path,omitempty"`
}

// ExtractConfig tunes card discovery.
type ExtractConfig struct {
	CardSelector string `toml:"card_selector"`
	NameSelector string `toml:"name_selector"`
	MaxCards     int    `toml:"max_cards"`
	Workers      int    `toml:"workers,omitempty"`
}

// RatesConfig controls exchange rate providers.
type RatesConfig struct {
	Providers  []currency.Provider `toml:"providers,omitempty"`
	Fallback   map[string]float64  `toml:"fallback,omitempty"`
	Schedule   string              `toml:"schedule"`
	TimeoutSec int                 `toml:"timeout_sec"`
	// Offline disables provider fetches entirely.
	Offline bool `toml:"offline,omitempty"`
}

// LiveConfig controls resync behavior in the daemon and TUI.
type LiveConfig struct {
	DebounceMs      int     `toml:"debounce_ms"`
	PollIntervalSec int     `toml:"poll_interval_sec"`
	PollsPerMinute  float64 `toml:"polls_per_minute,omitempty"`
	Addr            string  `toml:"addr"`
	EventsBuffer    int     `toml:"events_buffer"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Extract: ExtractConfig{
			CardSelector: `[class*="bg-card"]`,
			NameSelector: `p.break-all, h3, .font-bold`,
			MaxCards:     500,
		},
		Rates: RatesConfig{
			Schedule:   "@every 1h",
			TimeoutSec: 10,
		},
		Live: LiveConfig{
			DebounceMs:      500,
			PollIntervalSec: 5,
			Addr:            "127.0.0.1:8788",
			EventsBuffer:    200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "finburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "finburn")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are applied on top.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom is Load for an explicit path.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes cfg to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env", filepath.Join(ConfigDir(), ".env")}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv copies FINBURN_* overrides into cfg.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvPage)); v != "" {
		cfg.General.Page = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Live.Addr = v
	}
}

// GetCookie returns the dashboard cookie from env var or config, in that order.
func GetCookie(cfg Config) string {
	if c := os.Getenv(EnvCookie); c != "" {
		return c
	}
	return cfg.General.Cookie
}

// Debounce returns the debounce window.
func (c LiveConfig) Debounce() time.Duration {
	if c.DebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// PollInterval returns the page poll interval.
func (c LiveConfig) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}

// Timeout returns the per-provider request timeout.
func (c RatesConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}
