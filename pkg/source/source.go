// Package source turns recipe identifiers into recipes.
//
// A [Source] is one backend: a hosting service such as GitHub, whose tags
// are the package releases ([VCS]), or a directory of recipe files
// ([Cookbook]). [Router] picks a backend by the identifier's source tag and
// [Cached] keeps complete recipes in a key-value cache between runs.
//
// Sources report progress through events and never retry on their own;
// transient network failures are retried by the HTTP client underneath.
package source

import (
	"context"

	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
)

// Source fetches the complete recipe of a package.
type Source interface {
	// Fetch returns a process yielding every version of the package
	// identified by id.
	//
	// The process fails with:
	//   - *RecipeNotFoundError if the package does not exist
	//   - *FetchRecipeError if it exists but no usable versions were found,
	//     or if any version could not be read
	//
	// A recipe is only produced once every discovered version has been
	// read; there are no partial recipes.
	//
	// Fetch must be safe for concurrent use.
	Fetch(id recipe.RecipeIdentifier) process.Process[recipe.Recipe]
}

// Func adapts a function to [Source].
type Func func(ctx context.Context, id recipe.RecipeIdentifier, emit process.Emitter) (recipe.Recipe, error)

// Fetch implements [Source].
func (f Func) Fetch(id recipe.RecipeIdentifier) process.Process[recipe.Recipe] {
	return func(ctx context.Context, emit process.Emitter) (recipe.Recipe, error) {
		return f(ctx, id, emit)
	}
}
