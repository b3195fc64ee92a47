package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/buckaroo/pkg/config"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration after files, environment and flags are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			for _, kv := range configRows(cfg) {
				printKeyValue(c.Out, kv[0], kv[1])
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := c.configFile
			if file == "" {
				file = config.FilePath()
			}
			fmt.Fprintln(c.Out, file)
			return nil
		},
	})
	return cmd
}

// configRows lists the configuration by key with tokens masked.
func configRows(cfg config.Config) [][2]string {
	return [][2]string{
		{config.KeyCacheDir, cfg.CacheDir},
		{config.KeyCookbookDir, cfg.CookbookDir},
		{config.KeyGitHubToken, mask(cfg.GitHubToken)},
		{config.KeyGitHubURL, orDefault(cfg.GitHubURL, "https://api.github.com")},
		{config.KeyGitLabToken, mask(cfg.GitLabToken)},
		{config.KeyGitLabURL, orDefault(cfg.GitLabURL, "https://gitlab.com")},
		{config.KeyWorkers, strconv.Itoa(cfg.Workers)},
		{config.KeyTimeout, cfg.Timeout.String()},
		{config.KeyRecipeTTL, cfg.RecipeTTL.String()},
		{config.KeyRedisURL, orDefault(redact(cfg.RedisURL), "(file cache)")},
		{config.KeyNoCache, strconv.FormatBool(cfg.NoCache)},
		{config.KeyListen, cfg.Listen},
	}
}

// mask hides all but the last four characters of a secret.
func mask(secret string) string {
	switch {
	case secret == "":
		return "(unset)"
	case len(secret) <= 4:
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// redact hides the password of a URL.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
