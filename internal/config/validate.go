package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url must be set")
	}
	if c.Backend.APIToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/nestling/config.toml"
		}
		return fmt.Errorf("backend.api_token is required. Set NESTLING_API_TOKEN env var or edit %s (create with 'nestling config init')", defaultPath)
	}
	if c.Backend.BabyID == "" {
		return errors.New("backend.baby_id must be set")
	}
	if c.Backend.RequestTimeout <= 0 {
		return errors.New("backend.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.Quality < 1 || c.Upload.Quality > 100 {
		return errors.New("upload.quality must be between 1 and 100")
	}
	if c.Upload.MaxDimension <= 0 {
		return errors.New("upload.max_dimension must be positive")
	}
	if c.Upload.ProgressInterval <= 0 {
		return errors.New("upload.progress_interval_ms must be positive")
	}
	if c.Upload.RefreshAttempts < 0 {
		return errors.New("upload.refresh_attempts must not be negative")
	}
	if c.Upload.RefreshBackoff < 0 {
		return errors.New("upload.refresh_backoff_ms must not be negative")
	}
	switch c.Upload.Platform {
	case "native", "web":
	default:
		return fmt.Errorf("upload.platform must be \"native\" or \"web\", got %q", c.Upload.Platform)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}
