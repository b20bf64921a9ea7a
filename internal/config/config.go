// Package config loads branchdesk settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/bmbranch/branchdesk/pkg/client"
)

type Config struct {
	// APIOrigin is the server origin; "/api" is appended if missing.
	APIOrigin      string        `env:"BRANCHDESK_API_URL"`
	Home           string        `env:"BRANCHDESK_HOME"`
	LogLevel       string        `env:"BRANCHDESK_LOG_LEVEL,       default=info"`
	LogPretty      bool          `env:"BRANCHDESK_LOG_PRETTY,      default=false"`
	RemoteLog      bool          `env:"BRANCHDESK_REMOTE_LOG,      default=false"`
	RequestTimeout time.Duration `env:"BRANCHDESK_REQUEST_TIMEOUT, default=30s"`
	MetricsAddr    string        `env:"BRANCHDESK_METRICS_ADDR"`

	SOS SOSConfig
}

type SOSConfig struct {
	Interval time.Duration `env:"BRANCHDESK_SOS_INTERVAL,  default=10s"`
	AutoOpen bool          `env:"BRANCHDESK_SOS_AUTO_OPEN, default=false"`
	Cooldown time.Duration `env:"BRANCHDESK_SOS_COOLDOWN,  default=2m"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an arbitrary lookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("BRANCHDESK_REQUEST_TIMEOUT must be positive"))
	}
	if c.SOS.Interval <= 0 {
		errs = append(errs, errors.New("BRANCHDESK_SOS_INTERVAL must be positive"))
	}
	if c.SOS.Cooldown < 0 {
		errs = append(errs, errors.New("BRANCHDESK_SOS_COOLDOWN must not be negative"))
	}
	return errors.Join(errs...)
}

// BaseURL returns the normalised API root.
func (c *Config) BaseURL() string {
	return client.NormalizeBaseURL(c.APIOrigin)
}

// StateDir returns the directory holding the session pair and log file.
func (c *Config) StateDir() (string, error) {
	if c.Home != "" {
		return c.Home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".branchdesk"), nil
}
