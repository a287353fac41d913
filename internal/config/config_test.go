package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nestling/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("NESTLING_API_TOKEN", "")
	path := writeConfig(t, `
[backend]
api_token = "token-1"
baby_id = "baby-1"
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Upload.Quality != 85 || cfg.Upload.MaxDimension != 2048 {
		t.Fatalf("defaults not applied: %+v", cfg.Upload)
	}
	if cfg.Backend.BaseURL == "" {
		t.Fatal("expected default backend base_url")
	}
	if cfg.Upload.Platform != "native" {
		t.Fatalf("expected native platform default, got %q", cfg.Upload.Platform)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("NESTLING_API_TOKEN", "")
	path := writeConfig(t, `
[backend]
baby_id = "baby-1"
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "api_token") {
		t.Fatalf("expected api_token error, got %v", err)
	}
}

func TestEnvTokenOverridesFile(t *testing.T) {
	t.Setenv("NESTLING_API_TOKEN", "env-token")
	path := writeConfig(t, `
[backend]
api_token = "file-token"
baby_id = "baby-1"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.APIToken != "env-token" {
		t.Fatalf("expected env token to win, got %q", cfg.Backend.APIToken)
	}
}

func TestValidateRejectsBadQuality(t *testing.T) {
	t.Setenv("NESTLING_API_TOKEN", "")
	path := writeConfig(t, `
[backend]
api_token = "token-1"
baby_id = "baby-1"

[upload]
quality = 150
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "quality") {
		t.Fatalf("expected quality error, got %v", err)
	}
}

func TestValidateRejectsUnknownPlatform(t *testing.T) {
	t.Setenv("NESTLING_API_TOKEN", "")
	path := writeConfig(t, `
[backend]
api_token = "token-1"
baby_id = "baby-1"

[upload]
platform = "ios"
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "platform") {
		t.Fatalf("expected platform error, got %v", err)
	}
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	t.Setenv("NESTLING_API_TOKEN", "")
	path := writeConfig(t, `
[backend]
base_url = "https://api.example.test/v1/"
api_token = "token-1"
baby_id = "baby-1"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://api.example.test/v1" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.Backend.BaseURL)
	}
}
