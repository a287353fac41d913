package config

const (
	defaultStateDir         = "~/.local/share/nestling/state"
	defaultStagingDir       = "~/.local/share/nestling/staging"
	defaultLogDir           = "~/.local/share/nestling/logs"
	defaultBackendBaseURL   = "https://api.nestling.app/v1"
	defaultRequestTimeout   = 30
	defaultQuality          = 85
	defaultMaxDimension     = 2048
	defaultProgressInterval = 120
	defaultRefreshAttempts  = 3
	defaultRefreshBackoff   = 500
	defaultPlatform         = "native"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Backend: Backend{
			BaseURL:        defaultBackendBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Upload: Upload{
			Quality:          defaultQuality,
			MaxDimension:     defaultMaxDimension,
			ProgressInterval: defaultProgressInterval,
			RefreshAttempts:  defaultRefreshAttempts,
			RefreshBackoff:   defaultRefreshBackoff,
			Platform:         defaultPlatform,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
