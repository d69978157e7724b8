// Package config loads the wakanet client configuration.
//
// Values are layered: built-in defaults, then ~/.wakanet/config.yaml, then
// WAKANET_* environment variables (optionally seeded from a .env file).
// Command-line flags are applied last by the cmd package.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

// Config is the full client configuration
type Config struct {
	API           APIConfig          `yaml:"api"`
	Session       SessionConfig      `yaml:"session"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
	Phone         PhoneConfig        `yaml:"phone"`
	Export        ExportConfig       `yaml:"export"`
	Defaults      OutputDefaults     `yaml:"defaults"`
}

// APIConfig points the client at the backend REST API
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SessionConfig controls where the session is persisted and when it idles out
type SessionConfig struct {
	StateDir         string        `yaml:"state_dir"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RehydrateTimeout time.Duration `yaml:"rehydrate_timeout"`
}

// NotificationConfig holds the defaults for transient notifications
type NotificationConfig struct {
	// SuccessEnabled gates every success notification regardless of
	// per-request options. Disabled by default.
	SuccessEnabled bool          `yaml:"success_enabled"`
	AutoClose      time.Duration `yaml:"auto_close"`
	SuccessColor   string        `yaml:"success_color"`
	ErrorColor     string        `yaml:"error_color"`
	WarningColor   string        `yaml:"warning_color"`
}

// LoggingConfig selects log level and encoding
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
}

// PhoneConfig drives MSISDN normalization
type PhoneConfig struct {
	CountryCode string `yaml:"country_code"`
}

// ExportConfig controls CSV downloads
type ExportConfig struct {
	Dir         string        `yaml:"dir"`
	RevokeAfter time.Duration `yaml:"revoke_after"`
}

// OutputDefaults are the default output options for list commands
type OutputDefaults struct {
	Format  string `yaml:"format"` // "table", "json", "yaml"
	NoColor bool   `yaml:"no_color"`
}

// Default returns the built-in configuration
func Default() *Config {
	home := homeDir()
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
		},
		Session: SessionConfig{
			StateDir:         filepath.Join(home, ".wakanet", "state"),
			IdleTimeout:      15 * time.Minute,
			RehydrateTimeout: 5 * time.Second,
		},
		Notifications: NotificationConfig{
			SuccessEnabled: false,
			AutoClose:      3 * time.Second,
			SuccessColor:   "green",
			ErrorColor:     "red",
			WarningColor:   "yellow",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Phone: PhoneConfig{
			CountryCode: "256",
		},
		Export: ExportConfig{
			Dir:         ".",
			RevokeAfter: 100 * time.Millisecond,
		},
		Defaults: OutputDefaults{
			Format: "table",
		},
	}
}

// DefaultPath returns ~/.wakanet/config.yaml
func DefaultPath() string {
	return filepath.Join(homeDir(), ".wakanet", "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// LoadEnvFile seeds the process environment from .env files.
// Missing files are ignored; variables already set are not overridden.
func LoadEnvFile(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return perrors.Wrap(perrors.ErrCodeConfigInvalid, "failed to load .env file", err)
	}
	return nil
}

// Load reads the configuration file at path (if it exists) over the defaults
// and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile reads the configuration file at path over the defaults without
// environment overrides or validation. 'config set' edits this view so that
// environment values are never written back.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, perrors.NewFileUnmarshalError(path, "YAML", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, perrors.Wrap(perrors.ErrCodeFileReadFailed, fmt.Sprintf("failed to read config: %s", path), err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeFileMarshal, "failed to marshal config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return perrors.Wrap(perrors.ErrCodeDirectoryFailed, "failed to create config directory", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return perrors.Wrap(perrors.ErrCodeFileWriteFailed, fmt.Sprintf("failed to write config: %s", path), err)
	}

	return nil
}

var countryCodePattern = regexp.MustCompile(`^[1-9][0-9]{0,3}$`)

// Validate checks values that would otherwise fail later at request time
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return perrors.New(perrors.ErrCodeConfigInvalid, fmt.Sprintf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)).
			WithSuggestion("Set WAKANET_API_URL or run 'wakanet config set api.base_url https://...'")
	}
	if c.Session.IdleTimeout <= 0 {
		return perrors.New(perrors.ErrCodeConfigInvalid, "session.idle_timeout must be positive")
	}
	if c.Session.StateDir == "" {
		return perrors.New(perrors.ErrCodeConfigInvalid, "session.state_dir must not be empty")
	}
	if !countryCodePattern.MatchString(c.Phone.CountryCode) {
		return perrors.New(perrors.ErrCodeConfigInvalid, fmt.Sprintf("phone.country_code must be 1-4 digits, got %q", c.Phone.CountryCode))
	}
	if c.Export.RevokeAfter < 0 {
		return perrors.New(perrors.ErrCodeConfigInvalid, "export.revoke_after must not be negative")
	}
	return nil
}

func (c *Config) applyEnv() error {
	for _, key := range envKeys {
		value, ok := os.LookupEnv(key.env)
		if !ok || value == "" {
			continue
		}
		if err := c.Set(key.key, value); err != nil {
			return perrors.Wrap(perrors.ErrCodeConfigInvalid, fmt.Sprintf("invalid value for %s", key.env), err)
		}
	}
	return nil
}

var envKeys = []struct {
	env string
	key string
}{
	{"WAKANET_API_URL", "api.base_url"},
	{"WAKANET_API_TIMEOUT", "api.timeout"},
	{"WAKANET_STATE_DIR", "session.state_dir"},
	{"WAKANET_IDLE_TIMEOUT", "session.idle_timeout"},
	{"WAKANET_SUCCESS_NOTIFICATIONS", "notifications.success_enabled"},
	{"WAKANET_LOG_LEVEL", "logging.level"},
	{"WAKANET_LOG_FORMAT", "logging.format"},
	{"WAKANET_PHONE_COUNTRY_CODE", "phone.country_code"},
	{"WAKANET_EXPORT_DIR", "export.dir"},
}

// Keys lists every key accepted by Get and Set
func Keys() []string {
	return []string{
		"api.base_url", "api.timeout",
		"session.state_dir", "session.idle_timeout", "session.rehydrate_timeout",
		"notifications.success_enabled", "notifications.auto_close",
		"notifications.success_color", "notifications.error_color", "notifications.warning_color",
		"logging.level", "logging.format",
		"phone.country_code",
		"export.dir", "export.revoke_after",
		"defaults.format", "defaults.no_color",
	}
}

// Get returns a configuration value using dot notation
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api.base_url":
		return c.API.BaseURL, nil
	case "api.timeout":
		return c.API.Timeout.String(), nil
	case "session.state_dir":
		return c.Session.StateDir, nil
	case "session.idle_timeout":
		return c.Session.IdleTimeout.String(), nil
	case "session.rehydrate_timeout":
		return c.Session.RehydrateTimeout.String(), nil
	case "notifications.success_enabled":
		return strconv.FormatBool(c.Notifications.SuccessEnabled), nil
	case "notifications.auto_close":
		return c.Notifications.AutoClose.String(), nil
	case "notifications.success_color":
		return c.Notifications.SuccessColor, nil
	case "notifications.error_color":
		return c.Notifications.ErrorColor, nil
	case "notifications.warning_color":
		return c.Notifications.WarningColor, nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "phone.country_code":
		return c.Phone.CountryCode, nil
	case "export.dir":
		return c.Export.Dir, nil
	case "export.revoke_after":
		return c.Export.RevokeAfter.String(), nil
	case "defaults.format":
		return c.Defaults.Format, nil
	case "defaults.no_color":
		return strconv.FormatBool(c.Defaults.NoColor), nil
	default:
		return "", unknownKey(key)
	}
}

// Set assigns a configuration value using dot notation
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "api.base_url":
		c.API.BaseURL = strings.TrimRight(value, "/")
	case "api.timeout":
		c.API.Timeout, err = time.ParseDuration(value)
	case "session.state_dir":
		c.Session.StateDir = value
	case "session.idle_timeout":
		c.Session.IdleTimeout, err = time.ParseDuration(value)
	case "session.rehydrate_timeout":
		c.Session.RehydrateTimeout, err = time.ParseDuration(value)
	case "notifications.success_enabled":
		c.Notifications.SuccessEnabled, err = parseBool(value)
	case "notifications.auto_close":
		c.Notifications.AutoClose, err = time.ParseDuration(value)
	case "notifications.success_color":
		c.Notifications.SuccessColor = value
	case "notifications.error_color":
		c.Notifications.ErrorColor = value
	case "notifications.warning_color":
		c.Notifications.WarningColor = value
	case "logging.level":
		c.Logging.Level = value
	case "logging.format":
		c.Logging.Format = value
	case "phone.country_code":
		c.Phone.CountryCode = strings.TrimPrefix(value, "+")
	case "export.dir":
		c.Export.Dir = value
	case "export.revoke_after":
		c.Export.RevokeAfter, err = time.ParseDuration(value)
	case "defaults.format":
		c.Defaults.Format = value
	case "defaults.no_color":
		c.Defaults.NoColor, err = parseBool(value)
	default:
		return unknownKey(key)
	}
	return err
}

func unknownKey(key string) error {
	return perrors.New(perrors.ErrCodeConfigKey, fmt.Sprintf("unknown configuration key: %s", key)).
		WithSuggestion("Run 'wakanet config keys' to list the available keys")
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}
