// Package config loads the server configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/keyring"
)

const DefaultFileName = "config.yaml"

type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	JSONLogs        bool          `yaml:"json_logs"`
}

type AuthConfig struct {
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	Leeway   time.Duration `yaml:"leeway"`
	// JWTSecret is the lowest-priority secret source; prefer the environment or keyring.
	JWTSecret string `yaml:"jwt_secret"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type HabitsConfig struct {
	UnlockAfterAbandon bool `yaml:"unlock_after_abandon"`
}

type CleanupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RetentionDays int           `yaml:"retention_days"`
	Interval      time.Duration `yaml:"interval"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Cache   CacheConfig   `yaml:"cache"`
	Habits  HabitsConfig  `yaml:"habits"`
	Cleanup CleanupConfig `yaml:"cleanup"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:          constants.DefaultListenAddr,
			CORSOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			ShutdownTimeout: constants.DefaultShutdownTimeout,
		},
		Cache: CacheConfig{TTL: constants.DefaultSettingsTTL},
		Cleanup: CleanupConfig{
			Enabled:       true,
			RetentionDays: constants.DefaultRetentionDays,
			Interval:      constants.DefaultCleanupInterval,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.fillDefaults()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from KEEPRUN_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(constants.EnvListen)); v != "" {
		c.Server.Listen = v
	}
	if v := strings.TrimSpace(getenv(constants.EnvRedisAddr)); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := strings.TrimSpace(getenv(constants.EnvJWTSecret)); v != "" {
		c.Auth.JWTSecret = v
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Server.Listen == "" {
		c.Server.Listen = d.Server.Listen
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Cleanup.RetentionDays <= 0 {
		c.Cleanup.RetentionDays = d.Cleanup.RetentionDays
	}
	if c.Cleanup.Interval <= 0 {
		c.Cleanup.Interval = d.Cleanup.Interval
	}
}

func (c Config) Validate() error {
	if c.Cleanup.Interval < time.Minute {
		return fmt.Errorf("cleanup.interval must be at least 1m, got %s", c.Cleanup.Interval)
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("invalid cors origin %q", origin)
		}
	}
	return nil
}

// JWTSecret resolves the signing secret from the environment, then the OS
// keyring, then the config file.
func (c Config) JWTSecret(getenv func(string) string) (string, error) {
	if v := strings.TrimSpace(getenv(constants.EnvJWTSecret)); v != "" {
		return v, nil
	}
	secret, err := keyring.GetJWTSecret()
	if err == nil && secret != "" {
		return secret, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) && !errors.Is(err, keyring.ErrKeyringUnavailable) {
		return "", err
	}
	if c.Auth.JWTSecret != "" {
		return c.Auth.JWTSecret, nil
	}
	return "", fmt.Errorf("no jwt secret configured: set %s or run '%s secret set jwt'", constants.EnvJWTSecret, constants.AppName)
}

// Sample renders the defaults as YAML.
func Sample() ([]byte, error) {
	return yaml.Marshal(Default())
}
