// Package config loads buckaroo settings from an optional TOML file, the
// environment and command-line flags.
//
// Precedence, highest first: flags bound with [viper.Viper.BindPFlag],
// BUCKAROO_* environment variables, the config file, defaults. The GitHub
// and GitLab tokens also fall back to GITHUB_TOKEN and GITLAB_TOKEN.
//
//	# ~/.config/buckaroo/config.toml
//	workers = 16
//	timeout = "5m"
//	redis_url = "redis://localhost:6379/0"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/matzehuels/buckaroo/pkg/errors"
)

const (
	appName   = "buckaroo"
	envPrefix = "BUCKAROO"
	fileType  = "toml"
)

// Keys understood by [Load].
const (
	KeyCacheDir    = "cache_dir"
	KeyCookbookDir = "cookbook_dir"
	KeyGitHubToken = "github_token"
	KeyGitHubURL   = "github_api_url"
	KeyGitLabToken = "gitlab_token"
	KeyGitLabURL   = "gitlab_url"
	KeyWorkers     = "workers"
	KeyTimeout     = "timeout"
	KeyRecipeTTL   = "recipe_ttl"
	KeyRedisURL    = "redis_url"
	KeyNoCache     = "no_cache"
	KeyListen      = "listen"
)

const (
	DefaultWorkers   = 10
	MinWorkers       = 2
	DefaultTimeout   = 120 * time.Second
	DefaultRecipeTTL = 24 * time.Hour
	DefaultListen    = ":8080"
)

// Config is the resolved configuration.
type Config struct {
	CacheDir    string        // Root of the artifact and response caches
	CookbookDir string        // Root of the official recipe registry
	GitHubToken string        // Optional API token
	GitHubURL   string        // API base URL; empty means api.github.com
	GitLabToken string        // Optional API token
	GitLabURL   string        // Instance URL; empty means gitlab.com
	Workers     int           // Concurrent network operations (min 2)
	Timeout     time.Duration // Deadline of one resolution
	RecipeTTL   time.Duration // Lifetime of cached recipe metadata
	RedisURL    string        // Shared recipe cache; empty uses the file cache
	NoCache     bool          // Disable the metadata caches
	Listen      string        // Address of the HTTP API
}

// New returns a viper instance with defaults and environment bindings that
// reads file from fs. An empty file selects [FilePath].
func New(fs afero.Fs, file string) *viper.Viper {
	if file == "" {
		file = FilePath()
	}
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(file)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv(KeyGitHubToken, envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv(KeyGitLabToken, envPrefix+"_GITLAB_TOKEN", "GITLAB_TOKEN")

	v.SetDefault(KeyCacheDir, CacheDir())
	v.SetDefault(KeyCookbookDir, filepath.Join(dataDir(), "cookbook"))
	v.SetDefault(KeyWorkers, DefaultWorkers)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyRecipeTTL, DefaultRecipeTTL)
	v.SetDefault(KeyListen, DefaultListen)
	v.SetDefault(KeyNoCache, false)
	return v
}

// Load reads the config file, if present, and returns the validated
// configuration.
func Load(v *viper.Viper, fs afero.Fs) (Config, error) {
	if file := v.ConfigFileUsed(); file != "" {
		exists, err := afero.Exists(fs, file)
		if err != nil {
			return Config{}, fmt.Errorf("stat config %s: %w", file, err)
		}
		if exists {
			if err := v.ReadInConfig(); err != nil {
				return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", file)
			}
		}
	}

	cfg := Config{
		CacheDir:    v.GetString(KeyCacheDir),
		CookbookDir: v.GetString(KeyCookbookDir),
		GitHubToken: v.GetString(KeyGitHubToken),
		GitHubURL:   v.GetString(KeyGitHubURL),
		GitLabToken: v.GetString(KeyGitLabToken),
		GitLabURL:   v.GetString(KeyGitLabURL),
		Workers:     v.GetInt(KeyWorkers),
		Timeout:     v.GetDuration(KeyTimeout),
		RecipeTTL:   v.GetDuration(KeyRecipeTTL),
		RedisURL:    v.GetString(KeyRedisURL),
		NoCache:     v.GetBool(KeyNoCache),
		Listen:      v.GetString(KeyListen),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.CacheDir == "":
		return errors.New(errors.ErrCodeInvalidInput, "%s must not be empty", KeyCacheDir)
	case c.Workers < MinWorkers:
		return errors.New(errors.ErrCodeInvalidInput, "%s must be at least %d, got %d", KeyWorkers, MinWorkers, c.Workers)
	case c.Timeout <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "%s must be positive", KeyTimeout)
	case c.RecipeTTL < 0:
		return errors.New(errors.ErrCodeInvalidInput, "%s must not be negative", KeyRecipeTTL)
	case c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://"):
		return errors.New(errors.ErrCodeInvalidInput, "%s must be a redis:// or rediss:// URL", KeyRedisURL)
	}
	return nil
}

// FilePath returns the default config file location
// ($XDG_CONFIG_HOME/buckaroo/config.toml).
func FilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName, "config."+fileType)
}

// CacheDir returns the default cache directory ($XDG_CACHE_HOME/buckaroo).
func CacheDir() string {
	return filepath.Join(xdgDir("XDG_CACHE_HOME", ".cache"), appName)
}

func dataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), appName)
}

// xdgDir returns $env, or ~/fallback when it is unset.
func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}
