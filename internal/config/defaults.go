package config

const (
	defaultConfigPath          = "~/.config/portalsync/config.toml"
	defaultDataDir             = "~/.local/share/portalsync"
	defaultLogDir              = "~/.local/share/portalsync/logs"
	defaultBackendMode         = "live"
	defaultLiveURL             = "http://127.0.0.1:8080"
	defaultRequestTimeout      = 10
	defaultReplayRate          = 5.0
	defaultReplayBurst         = 1
	defaultDemoLatencyMS       = 150
	defaultQueueMaxPending     = 500
	defaultQueueMaxAttempts    = 8
	defaultQueueInitialBackoff = 2
	defaultQueueMaxBackoff     = 300
	defaultProbeInterval       = 15
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultNotifyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Backend: Backend{
			DefaultMode:    defaultBackendMode,
			LiveURL:        defaultLiveURL,
			RequestTimeout: defaultRequestTimeout,
			ReplayRate:     defaultReplayRate,
			ReplayBurst:    defaultReplayBurst,
		},
		Demo: Demo{
			LatencyMS: defaultDemoLatencyMS,
		},
		Queue: Queue{
			MaxPending:     defaultQueueMaxPending,
			MaxAttempts:    defaultQueueMaxAttempts,
			InitialBackoff: defaultQueueInitialBackoff,
			MaxBackoff:     defaultQueueMaxBackoff,
		},
		Connectivity: Connectivity{
			ProbeInterval: defaultProbeInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}
