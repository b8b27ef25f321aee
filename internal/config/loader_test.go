package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "libsql", cfg.Store.Driver)
	assert.Equal(t, "echowall.db", cfg.Store.Path)
	assert.Equal(t, 5, cfg.Notes.RateLimitPerMinute)
	assert.Equal(t, []string{"*"}, cfg.Notes.CORSOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	resetViper(t)

	path := writeConfigFile(t, `
server:
  port: 9321
  read_timeout: 5s
notes:
  rate_limit_per_minute: 7
  ip_salt: file-salt
  cors_origins:
    - https://guestbook.example
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9321, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 7, cfg.Notes.RateLimitPerMinute)
	assert.Equal(t, "file-salt", cfg.Notes.IPSalt)
	assert.Equal(t, []string{"https://guestbook.example"}, cfg.Notes.CORSOrigins)

	// Defaults still fill keys the file leaves unset.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	resetViper(t)

	path := writeConfigFile(t, `
notes:
  ip_salt: file-salt
`)

	t.Setenv("ECHOWALL_NOTES_IP_SALT", "env-salt")
	t.Setenv("ECHOWALL_SERVER_PORT", "9999")
	t.Setenv("ECHOWALL_NOTES_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-salt", cfg.Notes.IPSalt)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Notes.CORSOrigins)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicitly named config file must exist")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Notes:  NotesConfig{RateLimitPerMinute: 5, IPSalt: "salt"},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, Validate(valid()))
	})

	t.Run("nil config rejected", func(t *testing.T) {
		assert.Error(t, Validate(nil))
	})

	t.Run("missing salt rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Notes.IPSalt = "   "
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ip_salt")
	})

	t.Run("zero rate limit rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Notes.RateLimitPerMinute = 0
		assert.Error(t, Validate(cfg))
	})

	t.Run("port out of range rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 70000
		assert.Error(t, Validate(cfg))
	})
}

func TestRedacted(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{AuthToken: "turso-token"},
		Notes: NotesConfig{IPSalt: "secret-salt"},
	}

	out := Redacted(cfg)

	assert.Equal(t, "[redacted]", out.Notes.IPSalt)
	assert.Equal(t, "[redacted]", out.Store.AuthToken)

	// The original is untouched.
	assert.Equal(t, "secret-salt", cfg.Notes.IPSalt)
	assert.Equal(t, "turso-token", cfg.Store.AuthToken)
}
