package source

import (
	"maps"
	"slices"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
)

// Router dispatches fetches to a source by the identifier's source tag.
type Router struct {
	sources map[recipe.Identifier]Source
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{sources: make(map[recipe.Identifier]Source)}
}

// Register routes identifiers tagged tag to s, replacing any previous
// source for that tag. It returns r for chaining.
func (r *Router) Register(tag recipe.Identifier, s Source) *Router {
	r.sources[tag] = s
	return r
}

// Lookup returns the source for tag.
func (r *Router) Lookup(tag recipe.Identifier) (Source, bool) {
	s, ok := r.sources[tag]
	return s, ok
}

// Tags returns the registered source tags, sorted.
func (r *Router) Tags() []recipe.Identifier {
	return slices.Sorted(maps.Keys(r.sources))
}

// Fetch implements [Source]. Partial identifiers and unknown tags fail
// without contacting any backend.
func (r *Router) Fetch(id recipe.RecipeIdentifier) process.Process[recipe.Recipe] {
	if id.IsPartial() {
		return process.Error[recipe.Recipe](errors.New(errors.ErrCodeInvalidIdentifier, "identifier %s has no source", id))
	}
	s, ok := r.sources[id.Source]
	if !ok {
		return process.Error[recipe.Recipe](errors.New(errors.ErrCodeUnsupported, "no recipe source %q for %s", id.Source, id))
	}
	return s.Fetch(id)
}
