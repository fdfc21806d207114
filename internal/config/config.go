package config

import (
	"time"

	applog "github.com/vovakirdan/r6voip-server/internal/log"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`

	Room      RoomConfig      `mapstructure:"room" yaml:"room"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RoomConfig controls room capacity and lifetime.
type RoomConfig struct {
	MaxMembers    int           `mapstructure:"max_members" yaml:"max_members"`
	MaxAge        time.Duration `mapstructure:"max_age" yaml:"max_age"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	CodeAttempts  int           `mapstructure:"code_attempts" yaml:"code_attempts"`
}

// RateLimitConfig controls the per-address throttle on create/join attempts.
type RateLimitConfig struct {
	Window        time.Duration `mapstructure:"window" yaml:"window"`
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3001",
		LogLevel:          "info",
		LogFormat:         applog.FormatConsole,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		AllowedOrigins:    []string{"http://localhost:5173"},
		TrustedProxies:    []string{},
		Room: RoomConfig{
			MaxMembers:    5,
			MaxAge:        24 * time.Hour,
			SweepInterval: time.Hour,
			CodeAttempts:  100,
		},
		RateLimit: RateLimitConfig{
			Window:        time.Minute,
			MaxAttempts:   10,
			SweepInterval: 5 * time.Minute,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if len(other.TrustedProxies) > 0 {
		c.TrustedProxies = other.TrustedProxies
	}
	if other.Room.MaxMembers != 0 {
		c.Room.MaxMembers = other.Room.MaxMembers
	}
	if other.Room.MaxAge != 0 {
		c.Room.MaxAge = other.Room.MaxAge
	}
	if other.Room.SweepInterval != 0 {
		c.Room.SweepInterval = other.Room.SweepInterval
	}
	if other.Room.CodeAttempts != 0 {
		c.Room.CodeAttempts = other.Room.CodeAttempts
	}
	if other.RateLimit.Window != 0 {
		c.RateLimit.Window = other.RateLimit.Window
	}
	if other.RateLimit.MaxAttempts != 0 {
		c.RateLimit.MaxAttempts = other.RateLimit.MaxAttempts
	}
	if other.RateLimit.SweepInterval != 0 {
		c.RateLimit.SweepInterval = other.RateLimit.SweepInterval
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errInvalid("addr", "must not be empty")
	case !applog.ValidFormat(c.LogFormat):
		return errInvalid("log_format", "must be console or json")
	case c.Room.MaxMembers < 1:
		return errInvalid("room.max_members", "must be at least 1")
	case c.Room.MaxAge <= 0:
		return errInvalid("room.max_age", "must be positive")
	case c.Room.SweepInterval <= 0:
		return errInvalid("room.sweep_interval", "must be positive")
	case c.Room.CodeAttempts < 1:
		return errInvalid("room.code_attempts", "must be at least 1")
	case c.RateLimit.Window <= 0:
		return errInvalid("rate_limit.window", "must be positive")
	case c.RateLimit.MaxAttempts < 1:
		return errInvalid("rate_limit.max_attempts", "must be at least 1")
	case c.RateLimit.SweepInterval <= 0:
		return errInvalid("rate_limit.sweep_interval", "must be positive")
	}
	return nil
}

// InvalidError reports a configuration key with an unusable value.
type InvalidError struct {
	Key    string
	Reason string
}

func (e *InvalidError) Error() string {
	return "config " + e.Key + ": " + e.Reason
}

func errInvalid(key, reason string) error {
	return &InvalidError{Key: key, Reason: reason}
}
