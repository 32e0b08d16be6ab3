// Package config loads application configuration from an optional YAML file,
// an optional .env file, and REVIEWRELAY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults applied before the config file and environment.
const (
	DefaultListenAddr    = "127.0.0.1:7420"
	DefaultSignalMaxAge  = 7 * 24 * time.Hour
	DefaultSweepSchedule = "@every 1h"
	DefaultLogLevel      = "info"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr    string
	DBPath        string
	SignalDir     string
	SignalMaxAge  time.Duration
	SweepSchedule string
	LogLevel      string
	GitHubToken   string
	ClientName    string
}

// fileConfig mirrors the YAML config file. Empty fields keep the default.
type fileConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	DBPath        string `yaml:"db_path"`
	SignalDir     string `yaml:"signal_dir"`
	SignalMaxAge  string `yaml:"signal_max_age"`
	SweepSchedule string `yaml:"sweep_schedule"`
	LogLevel      string `yaml:"log_level"`
	GitHubToken   string `yaml:"github_token"`
	ClientName    string `yaml:"client_name"`
}

// HasGitHubToken reports whether repository metadata can be looked up on GitHub.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load builds the configuration. Sources, lowest precedence first: defaults
// rooted at ~/.reviewrelay, the YAML file named by REVIEWRELAY_CONFIG (or
// ~/.reviewrelay/config.yaml when present), then environment variables.
// A .env file in the working directory is loaded into the environment first
// without overriding variables that are already set.
//
// Environment variables: REVIEWRELAY_LISTEN_ADDR, REVIEWRELAY_DB_PATH,
// REVIEWRELAY_SIGNAL_DIR, REVIEWRELAY_SIGNAL_MAX_AGE, REVIEWRELAY_SWEEP_SCHEDULE,
// REVIEWRELAY_LOG_LEVEL, REVIEWRELAY_GITHUB_TOKEN, REVIEWRELAY_CLIENT_NAME.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	root := filepath.Join(home, ".reviewrelay")

	cfg := &Config{
		ListenAddr:    DefaultListenAddr,
		DBPath:        filepath.Join(root, "reviewrelay.db"),
		SignalDir:     filepath.Join(root, "signals"),
		SignalMaxAge:  DefaultSignalMaxAge,
		SweepSchedule: DefaultSweepSchedule,
		LogLevel:      DefaultLogLevel,
	}

	path, explicit := os.LookupEnv("REVIEWRELAY_CONFIG")
	if !explicit {
		path = filepath.Join(root, "config.yaml")
	}
	if err := cfg.applyFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.SignalDir = expandHome(cfg.SignalDir, home)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays the YAML file at path. A missing file is an error only
// when it was named explicitly.
func (c *Config) applyFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.DBPath, fc.DBPath)
	setString(&c.SignalDir, fc.SignalDir)
	setString(&c.SweepSchedule, fc.SweepSchedule)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.GitHubToken, fc.GitHubToken)
	setString(&c.ClientName, fc.ClientName)

	if fc.SignalMaxAge != "" {
		d, err := time.ParseDuration(fc.SignalMaxAge)
		if err != nil {
			return fmt.Errorf("config: %s: signal_max_age has invalid duration %q: %w", path, fc.SignalMaxAge, err)
		}
		c.SignalMaxAge = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	envString(&c.ListenAddr, "REVIEWRELAY_LISTEN_ADDR")
	envString(&c.DBPath, "REVIEWRELAY_DB_PATH")
	envString(&c.SignalDir, "REVIEWRELAY_SIGNAL_DIR")
	envString(&c.SweepSchedule, "REVIEWRELAY_SWEEP_SCHEDULE")
	envString(&c.LogLevel, "REVIEWRELAY_LOG_LEVEL")
	envString(&c.GitHubToken, "REVIEWRELAY_GITHUB_TOKEN")
	envString(&c.ClientName, "REVIEWRELAY_CLIENT_NAME")

	if v, ok := os.LookupEnv("REVIEWRELAY_SIGNAL_MAX_AGE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REVIEWRELAY_SIGNAL_MAX_AGE has invalid duration %q: %w", v, err)
		}
		c.SignalMaxAge = d
	}
	return nil
}

func (c *Config) validate() error {
	var errs []string
	if c.ListenAddr == "" {
		errs = append(errs, "listen address is required")
	}
	if c.DBPath == "" {
		errs = append(errs, "database path is required")
	}
	if c.SignalDir == "" {
		errs = append(errs, "signal directory is required")
	}
	if c.SignalMaxAge <= 0 {
		errs = append(errs, "signal max age must be positive")
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("invalid sweep schedule %q: %v", c.SweepSchedule, err))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
