package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Demo.LatencyMS < 0 {
		return errors.New("demo.latency_ms must not be negative")
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if c.Connectivity.ProbeInterval < 0 {
		return errors.New("connectivity.probe_interval must not be negative (0 disables probing)")
	}
	return nil
}

func (c *Config) validateBackend() error {
	switch c.Backend.DefaultMode {
	case "live", "demo":
	default:
		return fmt.Errorf("backend.default_mode: unsupported value %q (use live or demo)", c.Backend.DefaultMode)
	}
	if c.Backend.LiveURL == "" {
		return errors.New("backend.live_url must be set")
	}
	parsed, err := url.Parse(c.Backend.LiveURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.live_url: %q is not an absolute URL", c.Backend.LiveURL)
	}
	if c.Backend.RequestTimeout <= 0 {
		return errors.New("backend.request_timeout must be positive (seconds)")
	}
	if c.Backend.ReplayRate <= 0 {
		return errors.New("backend.replay_rate must be positive")
	}
	if c.Backend.ReplayBurst <= 0 {
		return errors.New("backend.replay_burst must be positive")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if err := ensurePositiveMap(map[string]int{
		"queue.max_pending":     c.Queue.MaxPending,
		"queue.max_attempts":    c.Queue.MaxAttempts,
		"queue.initial_backoff": c.Queue.InitialBackoff,
		"queue.max_backoff":     c.Queue.MaxBackoff,
	}); err != nil {
		return err
	}
	if c.Queue.MaxBackoff < c.Queue.InitialBackoff {
		return errors.New("queue.max_backoff must be greater than or equal to queue.initial_backoff")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic: %q is not an absolute URL", c.Notifications.NtfyTopic)
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
