package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/config"
	"github.com/matzehuels/buckaroo/pkg/integrations"
	"github.com/matzehuels/buckaroo/pkg/integrations/github"
	"github.com/matzehuels/buckaroo/pkg/integrations/gitlab"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/resolver"
	"github.com/matzehuels/buckaroo/pkg/source"
)

// Cache layout under the configured cache directory.
const (
	artifactsDir = "artifacts"
	metadataDir  = "metadata"
)

// env is the set of collaborators a command needs, built from the
// configuration.
type env struct {
	cfg        config.Config
	kv         cache.Cache
	store      *cache.Artifacts
	pool       *process.Pool
	downloader *integrations.Client
	cookbook   *source.Cookbook
	source     source.Source
	finder     source.Finder
}

// newEnv wires caches, hosting clients and sources. Close releases the
// metadata cache.
func (c *CLI) newEnv(ctx context.Context, refresh bool) (*env, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	kv, keyer, err := openMetadataCache(ctx, c.fs, cfg)
	if err != nil {
		return nil, err
	}
	store, err := cache.NewArtifacts(c.fs, filepath.Join(cfg.CacheDir, artifactsDir))
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	gh := github.NewClient(github.Options{
		Token:   cfg.GitHubToken,
		Cache:   kv,
		TTL:     cfg.RecipeTTL,
		BaseURL: cfg.GitHubURL,
	})
	gl := gitlab.NewClient(gitlab.Options{
		Token:   cfg.GitLabToken,
		Cache:   kv,
		TTL:     cfg.RecipeTTL,
		BaseURL: cfg.GitLabURL,
	})

	pool := process.NewPool(cfg.Workers)
	opts := source.VCSOptions{Pool: pool, Refresh: refresh}
	cookbook := source.NewCookbook(c.fs, cfg.CookbookDir)
	router := source.NewRouter().
		Register(source.GitHubTag, source.NewGitHub(gh, store, opts)).
		Register(source.GitLabTag, source.NewGitLab(gl, store, opts)).
		Register(source.CookbookTag, cookbook)

	e := &env{
		cfg:        cfg,
		kv:         kv,
		store:      store,
		pool:       pool,
		downloader: integrations.NewClient(nil, "download", 0, nil),
		cookbook:   cookbook,
		source:     router,
		finder:     source.ListFinder{Lister: cookbook},
	}
	if !cfg.NoCache {
		e.source = source.NewCached(router, kv, source.CachedOptions{
			Keyer:   keyer,
			TTL:     cfg.RecipeTTL,
			Refresh: refresh,
		})
	}
	return e, nil
}

func (e *env) resolveOptions() resolver.Options {
	return resolver.Options{Timeout: e.cfg.Timeout}
}

func (e *env) Close() error {
	return e.kv.Close()
}

// openMetadataCache returns the key-value cache for recipes and tag
// listings: Redis when configured, else files under the cache directory.
// Keys in a shared Redis are scoped to buckaroo.
func openMetadataCache(ctx context.Context, fs afero.Fs, cfg config.Config) (cache.Cache, cache.Keyer, error) {
	keyer := cache.NewDefaultKeyer()
	switch {
	case cfg.NoCache:
		return cache.NewNullCache(), keyer, nil
	case cfg.RedisURL != "":
		kv, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return kv, cache.NewScopedKeyer(keyer, appName), nil
	}
	kv, err := cache.NewFileCacheFs(fs, filepath.Join(cfg.CacheDir, metadataDir))
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata cache: %w", err)
	}
	return kv, keyer, nil
}
