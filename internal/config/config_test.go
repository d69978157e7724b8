package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 15*time.Minute, cfg.Session.IdleTimeout)
	assert.False(t, cfg.Notifications.SuccessEnabled, "success notifications are disabled by default")
	assert.Equal(t, "256", cfg.Phone.CountryCode)
	assert.Equal(t, "table", cfg.Defaults.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api:
  base_url: https://portal.example.com/api
session:
  idle_timeout: 5m
notifications:
  success_enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	assert.True(t, cfg.Notifications.SuccessEnabled)
	// untouched keys keep their defaults
	assert.Equal(t, "256", cfg.Phone.CountryCode)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	code, ok := perrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, perrors.ErrCodeFileUnmarshal, code)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WAKANET_API_URL", "https://env.example.com/api/")
	t.Setenv("WAKANET_IDLE_TIMEOUT", "90s")
	t.Setenv("WAKANET_SUCCESS_NOTIFICATIONS", "yes")
	t.Setenv("WAKANET_PHONE_COUNTRY_CODE", "+254")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Session.IdleTimeout)
	assert.True(t, cfg.Notifications.SuccessEnabled)
	assert.Equal(t, "254", cfg.Phone.CountryCode)
}

func TestLoadEnvInvalidValue(t *testing.T) {
	t.Setenv("WAKANET_IDLE_TIMEOUT", "forever")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WAKANET_IDLE_TIMEOUT")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("WAKANET_LOG_LEVEL=debug\n"), 0o600))

	t.Setenv("WAKANET_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("WAKANET_LOG_LEVEL"))

	require.NoError(t, LoadEnvFile(envPath, filepath.Join(dir, "absent.env")))
	assert.Equal(t, "debug", os.Getenv("WAKANET_LOG_LEVEL"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, true},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://example.com" }, true},
		{"zero idle timeout", func(c *Config) { c.Session.IdleTimeout = 0 }, true},
		{"empty state dir", func(c *Config) { c.Session.StateDir = "" }, true},
		{"letters in country code", func(c *Config) { c.Phone.CountryCode = "UG" }, true},
		{"negative revoke delay", func(c *Config) { c.Export.RevokeAfter = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	cfg := Default()

	for _, key := range Keys() {
		value, err := cfg.Get(key)
		require.NoError(t, err, key)
		require.NoError(t, cfg.Set(key, value), key)
	}

	require.NoError(t, cfg.Set("export.revoke_after", "250ms"))
	got, err := cfg.Get("export.revoke_after")
	require.NoError(t, err)
	assert.Equal(t, "250ms", got)

	assert.Error(t, cfg.Set("defaults.no_color", "maybe"))
}

func TestUnknownKey(t *testing.T) {
	cfg := Default()

	_, err := cfg.Get("api.token")
	require.Error(t, err)
	code, _ := perrors.CodeOf(err)
	assert.Equal(t, perrors.ErrCodeConfigKey, code)

	assert.Error(t, cfg.Set("nope", "1"))
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.API.BaseURL = "https://saved.example.com"
	cfg.Session.IdleTimeout = 20 * time.Minute
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.API.BaseURL, loaded.API.BaseURL)
	assert.Equal(t, cfg.Session.IdleTimeout, loaded.Session.IdleTimeout)
}
