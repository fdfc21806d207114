package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "R6VOIP"
	envConfigDefaultPath = "R6VOIP_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load resolves configuration and the path of the file it came from.
// Precedence: defaults < config file < R6VOIP_* env vars; flag overrides are applied by the caller.
// A missing file is created with the defaults. A file that exists but does not parse is an error.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg := Default()
	path := resolveConfigPath(explicitPath)
	v := newViper(cfg)

	created, err := ensureConfigFile(path, cfg)
	switch {
	case err != nil:
		// Unwritable location: run on defaults and env only.
		logger.Warn().Err(err).Str("path", path).Msg("config file unavailable, using defaults")
	case created:
		logger.Info().Str("path", path).Msg("created default config")
		fallthrough
	default:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, path, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, path, nil
}

// newViper registers every key so AutomaticEnv can resolve nested values on Unmarshal.
func newViper(cfg Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := map[string]any{
		"addr":                      cfg.Addr,
		"log_level":                 cfg.LogLevel,
		"log_format":                cfg.LogFormat,
		"read_header_timeout":       cfg.ReadHeaderTimeout,
		"shutdown_timeout":          cfg.ShutdownTimeout,
		"allowed_origins":           cfg.AllowedOrigins,
		"trusted_proxies":           cfg.TrustedProxies,
		"room.max_members":          cfg.Room.MaxMembers,
		"room.max_age":              cfg.Room.MaxAge,
		"room.sweep_interval":       cfg.Room.SweepInterval,
		"room.code_attempts":        cfg.Room.CodeAttempts,
		"rate_limit.window":         cfg.RateLimit.Window,
		"rate_limit.max_attempts":   cfg.RateLimit.MaxAttempts,
		"rate_limit.sweep_interval": cfg.RateLimit.SweepInterval,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// resolveConfigPath picks the explicit path, then $R6VOIP_CONFIG_DEFAULT_PATH/config.yaml,
// then ./config.yaml.
func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if base := os.Getenv(envConfigDefaultPath); base != "" {
		return filepath.Join(base, defaultConfigName)
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, defaultConfigName)
	}
	return defaultConfigName
}

// ensureConfigFile writes cfg as YAML to path unless a file is already there.
// It reports whether it created the file.
func ensureConfigFile(path string, cfg Config) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	case err == nil:
		return false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, err
	}
	return true, nil
}
