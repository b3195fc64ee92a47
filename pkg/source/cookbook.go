package source

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/observability"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
)

// recipeExts are the recipe file extensions, in lookup order.
var recipeExts = []string{".json", ".toml"}

// Cookbook is a [Source] reading recipe files from a directory laid out as
// recipes/<organization>/<name>.json (or .toml). Dependencies written
// without a source tag refer to the cookbook itself.
type Cookbook struct {
	fs  afero.Fs
	dir string
	tag recipe.Identifier
}

// NewCookbook returns a cookbook rooted at dir on fs, tagged [CookbookTag].
func NewCookbook(fs afero.Fs, dir string) *Cookbook {
	return &Cookbook{fs: fs, dir: dir, tag: CookbookTag}
}

// Name returns the source tag.
func (c *Cookbook) Name() recipe.Identifier { return c.tag }

func (c *Cookbook) recipesDir() string { return path.Join(c.dir, "recipes") }

// Fetch implements [Source].
func (c *Cookbook) Fetch(id recipe.RecipeIdentifier) process.Process[recipe.Recipe] {
	return func(ctx context.Context, emit process.Emitter) (recipe.Recipe, error) {
		emit(event.RecipeFetchStarted{Identifier: id})
		start := time.Now()
		r, err := c.read(id)
		observability.Resolve().OnFetch(ctx, c.tag.String(), id.String(), time.Since(start), err)
		if err != nil {
			return recipe.Recipe{}, err
		}
		emit(event.RecipeFetched{Identifier: id, Versions: len(r.Versions)})
		return r, nil
	}
}

func (c *Cookbook) read(id recipe.RecipeIdentifier) (recipe.Recipe, error) {
	base := path.Join(c.recipesDir(), id.Organization.String(), id.Recipe.String())
	for _, ext := range recipeExts {
		file := base + ext
		data, err := afero.ReadFile(c.fs, file)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return recipe.Recipe{}, &FetchRecipeError{Identifier: id, URL: file, Cause: err}
		}

		var r recipe.Recipe
		if ext == ".toml" {
			r, err = recipe.ParseTOML(data, c.tag)
		} else {
			r, err = recipe.ParseJSON(data, c.tag)
		}
		if err != nil {
			return recipe.Recipe{}, &FetchRecipeError{Identifier: id, URL: file, Cause: err}
		}
		if len(r.Versions) == 0 {
			return recipe.Recipe{}, &FetchRecipeError{
				Identifier: id,
				URL:        file,
				Cause:      errors.New(errors.ErrCodeFetchRecipe, "recipe has no versions"),
			}
		}
		return r, nil
	}
	return recipe.Recipe{}, &RecipeNotFoundError{Source: c.tag.String(), Identifier: id}
}

// List returns the identifiers of every recipe in the cookbook, sorted.
// Files whose names are not valid identifiers are skipped.
func (c *Cookbook) List() ([]recipe.RecipeIdentifier, error) {
	var ids []recipe.RecipeIdentifier
	root := c.recipesDir()
	if ok, _ := afero.DirExists(c.fs, root); !ok {
		return nil, nil
	}
	err := afero.Walk(c.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if !slices.Contains(recipeExts, ext) {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimSuffix(p, ext), root+"/")
		org, name, ok := strings.Cut(rel, "/")
		if !ok || strings.Contains(name, "/") {
			return nil
		}
		if id, err := recipe.NewRecipeIdentifier(c.tag.String(), org, name); err == nil {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "list %s", root)
	}
	slices.SortFunc(ids, recipe.RecipeIdentifier.Compare)
	return slices.Compact(ids), nil
}
