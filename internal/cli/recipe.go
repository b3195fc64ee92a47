package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/integrations/github"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/source"
)

// recipeCommand creates the recipe command, which shows the versions a
// source offers for one package.
func (c *CLI) recipeCommand() *cobra.Command {
	var (
		asJSON  bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "recipe <identifier>",
		Short: "Show the versions available for a package",
		Example: `  buckaroo recipe github+fmtlib/fmt
  buckaroo recipe org/json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := recipe.ParseRecipeIdentifier(args[0])
			if err != nil {
				return err
			}
			id = id.WithSource(source.CookbookTag)
			if err := checkHosted(id); err != nil {
				return err
			}

			e, err := c.newEnv(ctx, refresh)
			if err != nil {
				return err
			}
			defer e.Close()

			events := newEventLogger(loggerFromContext(ctx))
			rec, err := e.source.Fetch(id).Run(ctx, events.log)
			if err != nil {
				explain(cmd.ErrOrStderr(), err, e.finder)
				return err
			}

			if asJSON {
				enc := json.NewEncoder(c.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printRecipe(c, id, rec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the recipe as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached recipe")

	return cmd
}

// checkHosted rejects github identifiers that cannot name a repository, so
// a typo fails before any request is made.
func checkHosted(id recipe.RecipeIdentifier) error {
	if id.Source != source.GitHubTag {
		return nil
	}
	if _, _, err := github.ParseRepoRef(id.Organization.String() + "/" + id.Recipe.String()); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidIdentifier, err, "%s is not a github repository", id)
	}
	return nil
}

func printRecipe(c *CLI, id recipe.RecipeIdentifier, rec recipe.Recipe) {
	printKeyValue(c.Out, "Recipe", StyleHighlight.Render(id.String()))
	if rec.URL != "" {
		printKeyValue(c.Out, "URL", rec.URL)
	}
	versions := rec.SortedVersions()
	if len(versions) == 0 {
		printWarning(c.Out, "No versions")
		return
	}
	printKeyValue(c.Out, "Versions", pluralize(len(versions), "version"))
	for i := len(versions) - 1; i >= 0; i-- {
		v := rec.Versions[versions[i]]
		deps := ""
		if n := len(v.Dependencies); n > 0 {
			deps = "  " + StyleDim.Render(pluralize(n, "dependency"))
		}
		printDetail(c.Out, "%s  %s%s", versions[i], location(v.Source), deps)
	}
}
