package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Backend contains live backend connection settings.
type Backend struct {
	DefaultMode    string  `toml:"default_mode"`
	LiveURL        string  `toml:"live_url"`
	APIToken       string  `toml:"api_token"`
	RequestTimeout int     `toml:"request_timeout"`
	ReplayRate     float64 `toml:"replay_rate"`
	ReplayBurst    int     `toml:"replay_burst"`
}

// Demo contains settings for the synthetic demonstration backend.
type Demo struct {
	LatencyMS int `toml:"latency_ms"`
}

// Queue contains offline queue bounds and retry policy.
type Queue struct {
	MaxPending     int `toml:"max_pending"`
	MaxAttempts    int `toml:"max_attempts"`
	InitialBackoff int `toml:"initial_backoff"` // seconds
	MaxBackoff     int `toml:"max_backoff"`     // seconds
}

// Connectivity contains settings for the connectivity probe.
type Connectivity struct {
	// ProbeInterval is the number of seconds between live health probes.
	// Zero disables probing; the monitor then only changes on explicit events.
	ProbeInterval int `toml:"probe_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains ntfy settings for queue alerts.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"` // seconds
}

// Metrics contains configuration for the Prometheus endpoint.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for portalsync.
//
// Configuration sections by subsystem:
//   - Paths: durable store and log directories
//   - Backend: live backend URL, credentials and replay rate
//   - Demo: demonstration backend latency
//   - Queue: offline queue bound and retry policy
//   - Connectivity: health probe cadence
//   - Logging: log format and level
//   - Notifications: optional ntfy alerts from the run agent
//   - Metrics: optional Prometheus listener
type Config struct {
	Paths         Paths         `toml:"paths"`
	Backend       Backend       `toml:"backend"`
	Demo          Demo          `toml:"demo"`
	Queue         Queue         `toml:"queue"`
	Connectivity  Connectivity  `toml:"connectivity"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("portalsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogPath returns the agent log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "portalsync.log")
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// StorePath returns the SQLite file backing the durable key-value store.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.DataDir, "portalsync.db")
}

// LockPath returns the lock file guarding exclusive store ownership.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "portalsync.lock")
}

// RequestTimeout returns the live backend request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

// DemoLatency returns the artificial delay applied by the demo backend.
func (c *Config) DemoLatency() time.Duration {
	return time.Duration(c.Demo.LatencyMS) * time.Millisecond
}

// InitialBackoff returns the first retry delay for a failed replay.
func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.Queue.InitialBackoff) * time.Second
}

// MaxBackoff returns the upper bound on the replay retry delay.
func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.Queue.MaxBackoff) * time.Second
}

// ProbeInterval returns the connectivity probe cadence (zero when disabled).
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Connectivity.ProbeInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
