// Package config manages the quotamon configuration file.
// Settings live in ~/.config/quotamon/config.toml and can be overridden
// per-process with QUOTAMON_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all user-tunable settings.
type Config struct {
	// PlanType is the subscription badge shown in the header: "pro" or "max".
	// Overwritten by the plan reported by the usage API once a fetch succeeds.
	PlanType string `toml:"plan_type"`

	// RefreshInterval is the background poll period in seconds.
	RefreshInterval int `toml:"refresh_interval"`

	// AdminAPIKey enables the Admin API usage/cost panels when set.
	AdminAPIKey string `toml:"admin_api_key"`

	// DebugMode enables the category file logger under the config dir.
	DebugMode bool `toml:"debug_mode"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		PlanType:        "pro",
		RefreshInterval: 5,
		AdminAPIKey:     "",
		DebugMode:       false,
	}
}

// Dir returns the quotamon config directory, honoring QUOTAMON_CONFIG_DIR
// so tests and scripts can redirect it.
func Dir() string {
	if dir := os.Getenv("QUOTAMON_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".quotamon")
	}
	return filepath.Join(home, ".config", "quotamon")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// EnsureDir creates the config directory if missing.
func EnsureDir() error {
	return os.MkdirAll(Dir(), 0o755)
}

// Load reads the config file, merging defaults <- file <- environment.
// A missing file is not an error; defaults apply.
func Load() (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path())
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", Path(), err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUOTAMON_PLAN_TYPE"); v != "" {
		cfg.PlanType = v
	}
	if v := os.Getenv("QUOTAMON_REFRESH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RefreshInterval = n
		}
	}
	if v := os.Getenv("QUOTAMON_ADMIN_KEY"); v != "" {
		cfg.AdminAPIKey = v
	}
	if v := os.Getenv("QUOTAMON_DEBUG"); v != "" {
		cfg.DebugMode = v == "1" || strings.EqualFold(v, "true")
	}
}

// Save writes the config file, creating the directory as needed.
func Save(cfg Config) error {
	if err := EnsureDir(); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(), data, 0o644)
}

// Get returns a config value by its TOML key, for `quotamon config get`.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "plan_type":
		return c.PlanType, nil
	case "refresh_interval":
		return strconv.Itoa(c.RefreshInterval), nil
	case "admin_api_key":
		return c.AdminAPIKey, nil
	case "debug_mode":
		return strconv.FormatBool(c.DebugMode), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Set updates a config value by its TOML key, for `quotamon config set`.
func (c *Config) Set(key, value string) error {
	switch key {
	case "plan_type":
		if value != "pro" && value != "max" {
			return fmt.Errorf("plan_type must be \"pro\" or \"max\", got %q", value)
		}
		c.PlanType = value
	case "refresh_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("refresh_interval must be a positive integer, got %q", value)
		}
		c.RefreshInterval = n
	case "admin_api_key":
		c.AdminAPIKey = value
	case "debug_mode":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("debug_mode must be true or false, got %q", value)
		}
		c.DebugMode = b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
