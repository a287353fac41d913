package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"nestling/internal/config"
	"nestling/internal/convert"
	"nestling/internal/logging"
	"nestling/internal/pipeline"
	"nestling/internal/queue"
	"nestling/internal/services/blobstore"
	"nestling/internal/services/nest"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) openStore() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}

// acquireLock prevents two nestling processes from processing batches over
// the same state directory at once.
func (c *commandContext) acquireLock() (*flock.Flock, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(cfg.Paths.StateDir, "nestling.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire state lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another nestling upload is already running (lock %s)", lock.Path())
	}
	return lock, nil
}

// buildRunner wires the converter, backend client, and blob uploader into a
// batch runner using the loaded configuration.
func (c *commandContext) buildRunner(sink pipeline.ProgressSink, logger *slog.Logger) (*pipeline.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	client, err := nest.New(nest.Config{
		BaseURL:  cfg.Backend.BaseURL,
		APIToken: cfg.Backend.APIToken,
		Timeout:  time.Duration(cfg.Backend.RequestTimeout) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	svcs := pipeline.Services{
		Converter: convert.New(convert.Config{
			StagingDir: cfg.Paths.StagingDir,
			Platform:   cfg.Upload.Platform,
		}, logger),
		Minter:    client,
		Finalizer: client,
		Refresher: client,
		Blob: blobstore.New(blobstore.Config{
			HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		}),
	}

	runnerCfg := pipeline.RunnerConfig{
		Executor: pipeline.ExecutorConfig{
			BabyID:          cfg.Backend.BabyID,
			AlbumID:         cfg.Backend.AlbumID,
			Quality:         cfg.Upload.Quality,
			MaxDimension:    cfg.Upload.MaxDimension,
			RefreshAttempts: cfg.Upload.RefreshAttempts,
			RefreshBackoff:  time.Duration(cfg.Upload.RefreshBackoff) * time.Millisecond,
		},
		ProgressInterval: time.Duration(cfg.Upload.ProgressInterval) * time.Millisecond,
	}
	return pipeline.NewRunner(runnerCfg, svcs, sink, logger), nil
}
