package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage downloaded archives and cached recipe metadata",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove downloaded archives and cached recipe metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if ok, _ := afero.DirExists(c.fs, cfg.CacheDir); !ok {
				printInfo(c.Out, "Cache is empty")
				return nil
			}

			count, err := clearCaches(c.fs, cfg)
			if err != nil {
				return err
			}
			printSuccess(c.Out, "Cleared %d cached entries", count)
			printDetail(c.Out, "Directory: %s", cfg.CacheDir)
			if cfg.RedisURL != "" {
				printWarning(c.Out, "Recipes cached in Redis expire after %s and are not cleared", cfg.RecipeTTL)
			}
			return nil
		},
	}
}

// clearCaches empties the artifact store and the file metadata cache under
// cfg.CacheDir and returns the number of files removed.
func clearCaches(fs afero.Fs, cfg config.Config) (int, error) {
	store, err := cache.NewArtifacts(fs, filepath.Join(cfg.CacheDir, artifactsDir))
	if err != nil {
		return 0, err
	}
	meta, err := cache.NewFileCacheFs(fs, filepath.Join(cfg.CacheDir, metadataDir))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, dir := range []string{store.Dir(), meta.Dir()} {
		n, err := countFiles(fs, dir)
		if err != nil {
			return 0, err
		}
		count += n
	}
	if err := store.Clear(); err != nil {
		return 0, fmt.Errorf("clear %s: %w", store.Dir(), err)
	}
	if err := meta.Clear(); err != nil {
		return 0, fmt.Errorf("clear %s: %w", meta.Dir(), err)
	}
	return count, nil
}

func countFiles(fs afero.Fs, dir string) (int, error) {
	count := 0
	err := afero.Walk(fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Out, cfg.CacheDir)
			return nil
		},
	}
}
