// Package config loads ydl settings from a TOML file with environment
// overrides.
//
// Lookup order for the file:
//   - $YDL_CONFIG
//   - <user config dir>/ydl/config.toml
//
// A missing file is not an error; defaults apply. The environment variables
// SSH_HOST, SSH_USERNAME, SSH_PRIVATE_KEY and REMOTE_ROOT_PATH override the
// [remote] section when set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/yankadevlab/ydl/internal/util"
)

// DefaultArtifactName is the job-scoped dump file name.
const DefaultArtifactName = "temp_dump.sql"

// ProbeKind selects how a local stack's database readiness is checked.
type ProbeKind string

const (
	// ProbeExec runs mysqladmin ping through the application container.
	ProbeExec ProbeKind = "exec"
	// ProbeSQL pings the database container address with the MySQL driver.
	ProbeSQL ProbeKind = "sql"
)

// IsValidProbe reports whether s names a known probe kind.
func IsValidProbe(s string) bool {
	switch ProbeKind(s) {
	case ProbeExec, ProbeSQL:
		return true
	default:
		return false
	}
}

// Config is the root of config.toml.
type Config struct {
	Remote    RemoteConfig    `toml:"remote"`
	Migration MigrationConfig `toml:"migration"`
	Readiness ReadinessConfig `toml:"readiness"`
	Identity  IdentityConfig  `toml:"identity"`
	Log       LogConfig       `toml:"log"`
}

// RemoteConfig describes the SSH host holding remote projects.
type RemoteConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	PrivateKey string `toml:"private_key"`
	// KnownHosts is the file host keys are verified against. Unset falls back
	// to ~/.ssh/known_hosts when that exists.
	KnownHosts string `toml:"known_hosts"`
	// RootPath is the directory containing one entry per remote project.
	RootPath string `toml:"root_path"`
}

// MigrationConfig holds pipeline settings.
type MigrationConfig struct {
	Artifact string `toml:"artifact"`
}

// ReadinessConfig bounds the poll that follows a local bring-up.
// Durations are Go duration strings ("60s", "500ms").
type ReadinessConfig struct {
	Probe       string `toml:"probe"`
	Timeout     string `toml:"timeout"`
	BaseBackoff string `toml:"base_backoff"`
	MaxBackoff  string `toml:"max_backoff"`
}

// IdentityConfig names the table holding the site identity options.
type IdentityConfig struct {
	OptionsTable string `toml:"options_table"`
}

// LogConfig configures the diagnostic logger.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Port:       22,
			PrivateKey: "~/.ssh/id_rsa",
		},
		Migration: MigrationConfig{Artifact: DefaultArtifactName},
		Readiness: ReadinessConfig{
			Probe:       string(ProbeExec),
			Timeout:     "60s",
			BaseBackoff: "500ms",
			MaxBackoff:  "8s",
		},
		Identity: IdentityConfig{OptionsTable: "wp_options"},
		Log:      LogConfig{Level: "warn"},
	}
}

// Path returns the config file location without checking that it exists.
func Path() (string, error) {
	if p := os.Getenv("YDL_CONFIG"); p != "" {
		return util.ExpandHome(p), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "ydl", "config.toml"), nil
}

// Load reads the config file (if any), applies environment overrides and
// validates the result.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.Remote.PrivateKey = util.ExpandHome(cfg.Remote.PrivateKey)
	cfg.Remote.KnownHosts = util.ExpandHome(cfg.Remote.KnownHosts)
	cfg.Log.File = util.ExpandHome(cfg.Log.File)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SSH_HOST"); v != "" {
		c.Remote.Host = v
	}
	if v := os.Getenv("SSH_USERNAME"); v != "" {
		c.Remote.User = v
	}
	if v := os.Getenv("SSH_PRIVATE_KEY"); v != "" {
		c.Remote.PrivateKey = v
	}
	if v := os.Getenv("REMOTE_ROOT_PATH"); v != "" {
		c.Remote.RootPath = v
	}
}

// Validate checks values that have a closed set of options.
func (c *Config) Validate() error {
	if !IsValidProbe(c.Readiness.Probe) {
		return fmt.Errorf("readiness.probe %q: must be %q or %q", c.Readiness.Probe, ProbeExec, ProbeSQL)
	}
	if strings.ContainsAny(c.Migration.Artifact, `/\`) || c.Migration.Artifact == "" {
		return fmt.Errorf("migration.artifact %q: must be a bare file name", c.Migration.Artifact)
	}
	if c.Identity.OptionsTable == "" {
		return errors.New("identity.options_table must not be empty")
	}
	return nil
}

// RequireRemote reports the missing [remote] settings needed to open a session.
func (c *Config) RequireRemote() error {
	var missing []string
	if c.Remote.Host == "" {
		missing = append(missing, "host (SSH_HOST)")
	}
	if c.Remote.User == "" {
		missing = append(missing, "user (SSH_USERNAME)")
	}
	if c.Remote.RootPath == "" {
		missing = append(missing, "root_path (REMOTE_ROOT_PATH)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("remote settings missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadinessTimeout returns the overall readiness deadline.
func (c *Config) ReadinessTimeout() time.Duration {
	return ParseDurationOrDefault(c.Readiness.Timeout, 60*time.Second)
}

// ReadinessBaseBackoff returns the first poll interval.
func (c *Config) ReadinessBaseBackoff() time.Duration {
	return ParseDurationOrDefault(c.Readiness.BaseBackoff, 500*time.Millisecond)
}

// ReadinessMaxBackoff returns the poll interval ceiling.
func (c *Config) ReadinessMaxBackoff() time.Duration {
	return ParseDurationOrDefault(c.Readiness.MaxBackoff, 8*time.Second)
}

// ParseDurationOrDefault parses s as a Go duration, returning fallback when
// s is empty or malformed.
func ParseDurationOrDefault(s string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
