package testsupport

import (
	"path/filepath"
	"testing"

	"portalsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Backend.LiveURL = "http://127.0.0.1:1"
	cfgVal.Backend.APIToken = "test-token"
	cfgVal.Backend.RequestTimeout = 2
	cfgVal.Backend.ReplayRate = 1000
	cfgVal.Demo.LatencyMS = 0
	cfgVal.Connectivity.ProbeInterval = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLiveURL points the live backend at url, typically an httptest server.
func WithLiveURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.LiveURL = url
	}
}

// WithDefaultMode sets the backend mode used when none is persisted.
func WithDefaultMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.DefaultMode = mode
	}
}

// WithQueueLimits overrides the queue bound and attempt limit.
func WithQueueLimits(maxPending, maxAttempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.MaxPending = maxPending
		b.cfg.Queue.MaxAttempts = maxAttempts
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
