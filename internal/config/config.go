package config

import "time"

// Config is the complete application configuration, loaded once at
// process start and treated as immutable for the process lifetime.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Notes   NotesConfig   `mapstructure:"notes" yaml:"notes"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Path      string `mapstructure:"path" yaml:"path"`
	URL       string `mapstructure:"url" yaml:"url"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
}

// NotesConfig contains the note service configuration.
type NotesConfig struct {
	// RateLimitPerMinute is the token bucket capacity per client per minute.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	// IPSalt is the secret salt for client address hashing. Required.
	IPSalt string `mapstructure:"ip_salt" yaml:"ip_salt"`

	// CORSOrigins lists the origins allowed on /api routes.
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig contains logging configuration.
// Valid levels: trace, debug, info, warn, error.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}
