package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"portalsync/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PORTALSYNC_API_TOKEN", "env-token")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "portalsync")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.StorePath() != filepath.Join(wantData, "portalsync.db") {
		t.Fatalf("unexpected store path: %q", cfg.StorePath())
	}
	if cfg.Backend.DefaultMode != "live" {
		t.Fatalf("expected live default mode, got %q", cfg.Backend.DefaultMode)
	}
	if cfg.Backend.APIToken != "env-token" {
		t.Fatalf("expected API token from env, got %q", cfg.Backend.APIToken)
	}
	if cfg.Queue.MaxAttempts != config.Default().Queue.MaxAttempts {
		t.Fatalf("unexpected max attempts: %d", cfg.Queue.MaxAttempts)
	}
	if cfg.InitialBackoff() <= 0 || cfg.MaxBackoff() < cfg.InitialBackoff() {
		t.Fatalf("unexpected backoff bounds: %s..%s", cfg.InitialBackoff(), cfg.MaxBackoff())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "portalsync.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Backend struct {
			DefaultMode string `toml:"default_mode"`
			LiveURL     string `toml:"live_url"`
		} `toml:"backend"`
		Queue struct {
			MaxAttempts int `toml:"max_attempts"`
		} `toml:"queue"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Backend.DefaultMode = " DEMO "
	custom.Backend.LiveURL = "https://portal.example.com/"
	custom.Queue.MaxAttempts = 3
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Backend.DefaultMode != "demo" {
		t.Fatalf("expected normalized demo mode, got %q", cfg.Backend.DefaultMode)
	}
	if cfg.Backend.LiveURL != "https://portal.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.LiveURL)
	}
	if cfg.Queue.MaxAttempts != 3 {
		t.Fatalf("expected max attempts override, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.MaxPending != config.Default().Queue.MaxPending {
		t.Fatalf("expected default max pending retained, got %d", cfg.Queue.MaxPending)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"mode", func(c *config.Config) { c.Backend.DefaultMode = "staging" }, "backend.default_mode"},
		{"url", func(c *config.Config) { c.Backend.LiveURL = "not a url" }, "backend.live_url"},
		{"timeout", func(c *config.Config) { c.Backend.RequestTimeout = 0 }, "backend.request_timeout"},
		{"attempts", func(c *config.Config) { c.Queue.MaxAttempts = 0 }, "queue.max_attempts"},
		{"backoff order", func(c *config.Config) { c.Queue.MaxBackoff = 1; c.Queue.InitialBackoff = 5 }, "queue.max_backoff"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"probe", func(c *config.Config) { c.Connectivity.ProbeInterval = -1 }, "connectivity.probe_interval"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy/topic" }, "notifications.ntfy_topic"},
		{"ntfy timeout", func(c *config.Config) {
			c.Notifications.NtfyTopic = "https://ntfy.example/portal"
			c.Notifications.RequestTimeout = 0
		}, "notifications.request_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}
