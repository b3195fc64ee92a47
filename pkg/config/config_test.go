package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/errors"
)

const testFile = "/etc/buckaroo/config.toml"

func load(t *testing.T, content string) (Config, error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if content != "" {
		if err := afero.WriteFile(fs, testFile, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return Load(New(fs, testFile), fs)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GITHUB_TOKEN", "GITLAB_TOKEN", "BUCKAROO_GITHUB_TOKEN", "BUCKAROO_WORKERS", "BUCKAROO_TIMEOUT"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	cfg, err := load(t, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != DefaultWorkers || cfg.Timeout != DefaultTimeout || cfg.RecipeTTL != DefaultRecipeTTL {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.CacheDir != "/tmp/xdg-cache/buckaroo" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.Listen != DefaultListen || cfg.NoCache || cfg.GitHubToken != "" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	file := `
workers = 16
timeout = "5m"
recipe_ttl = "1h"
redis_url = "redis://localhost:6379/0"
github_token = "from-file"
`
	cfg, err := load(t, file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 16 || cfg.Timeout != 5*time.Minute || cfg.RecipeTTL != time.Hour {
		t.Errorf("file values = %+v", cfg)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" || cfg.GitHubToken != "from-file" {
		t.Errorf("file values = %+v", cfg)
	}

	t.Setenv("BUCKAROO_WORKERS", "4")
	t.Setenv("GITHUB_TOKEN", "from-env")
	cfg, err = load(t, file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 4 || cfg.GitHubToken != "from-env" {
		t.Errorf("env should override the file: %+v", cfg)
	}

	t.Setenv("BUCKAROO_GITHUB_TOKEN", "prefixed")
	cfg, _ = load(t, file)
	if cfg.GitHubToken != "prefixed" {
		t.Errorf("GitHubToken = %q, want the prefixed variable to win", cfg.GitHubToken)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "workers = [", "read config"},
		{"workers", "workers = 1", "workers must be at least 2"},
		{"timeout", `timeout = "0s"`, "timeout must be positive"},
		{"redis", `redis_url = "http://localhost"`, "redis_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.content)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("error %v should carry INVALID_INPUT", err)
			}
		})
	}
}

func TestFilePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	if got := FilePath(); got != "/tmp/xdg-config/buckaroo/config.toml" {
		t.Errorf("FilePath() = %q", got)
	}
}
