// Package config provides centralized configuration management for
// Echowall: defaults, an optional YAML config file, and ECHOWALL_*
// environment overrides, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load reads configuration into a Config. cfgFile overrides the default
// search paths ($XDG-style user config dir, then the working directory).
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "echowall"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("ECHOWALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; defaults and environment apply.
	}

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Validate checks the invariants the service cannot run without.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Notes.IPSalt) == "" {
		return errors.New("notes.ip_salt is required (set ECHOWALL_NOTES_IP_SALT)")
	}
	if cfg.Notes.RateLimitPerMinute < 1 {
		return fmt.Errorf("notes.rate_limit_per_minute must be >= 1, got %d", cfg.Notes.RateLimitPerMinute)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	return nil
}

// Redacted returns a copy safe for display: secrets are masked.
func Redacted(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	out := *cfg
	if out.Notes.IPSalt != "" {
		out.Notes.IPSalt = "[redacted]"
	}
	if out.Store.AuthToken != "" {
		out.Store.AuthToken = "[redacted]"
	}
	return &out
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("store.driver", "libsql")
	viper.SetDefault("store.path", "echowall.db")
	viper.SetDefault("store.url", "")
	viper.SetDefault("store.auth_token", "")

	viper.SetDefault("notes.rate_limit_per_minute", 5)
	viper.SetDefault("notes.ip_salt", "")
	viper.SetDefault("notes.cors_origins", []string{"*"})

	viper.SetDefault("logging.level", "info")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
}
