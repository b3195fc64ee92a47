// Package cli implements the buckaroo command-line interface.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matzehuels/buckaroo/pkg/buildinfo"
	"github.com/matzehuels/buckaroo/pkg/config"
)

// appName is the application name used for directories and display.
const appName = "buckaroo"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer

	fs         afero.Fs
	v          *viper.Viper
	configFile string
}

// New creates a new CLI instance logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	fs := afero.NewOsFs()
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		fs:     fs,
		v:      config.New(fs, ""),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Buckaroo resolves C++ package dependencies for Buck",
		Long: `Buckaroo finds a consistent set of versions for a project's dependencies.

Recipes come from GitHub and GitLab release tags or from the official
cookbook. Dependencies are written source+org/name@range, for example
github+fmtlib/fmt@^10.0; org/name refers to the cookbook.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.configFile != "" {
				c.v.SetConfigFile(c.configFile)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	c.bindGlobalFlags(root)

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.recipeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// bindGlobalFlags registers flags that override configuration keys.
func (c *CLI) bindGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default "+config.FilePath()+")")
	flags.String("cache-dir", "", "cache directory")
	flags.String("cookbook", "", "official cookbook directory")
	flags.Int("workers", 0, "concurrent network operations (min 2)")
	flags.Duration("timeout", 0, "deadline of one resolution")
	flags.Bool("no-cache", false, "disable the recipe metadata cache")

	for key, flag := range map[string]string{
		config.KeyCacheDir:    "cache-dir",
		config.KeyCookbookDir: "cookbook",
		config.KeyWorkers:     "workers",
		config.KeyTimeout:     "timeout",
		config.KeyNoCache:     "no-cache",
	} {
		_ = c.v.BindPFlag(key, flags.Lookup(flag))
	}
}

// config loads the effective configuration. It must run after flags are
// parsed.
func (c *CLI) config() (config.Config, error) {
	return config.Load(c.v, c.fs)
}
