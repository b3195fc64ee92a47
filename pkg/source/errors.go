package source

import (
	"fmt"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/recipe"
)

// RecipeNotFoundError reports that no recipe exists for Identifier in the
// source named Source. Callers use it to suggest similar identifiers.
type RecipeNotFoundError struct {
	Source     string
	Identifier recipe.RecipeIdentifier
}

func (e *RecipeNotFoundError) Error() string {
	return fmt.Sprintf("recipe %s not found in %s", e.Identifier, e.Source)
}

// Unwrap exposes the error code.
func (e *RecipeNotFoundError) Unwrap() error {
	return &errors.Error{Code: errors.ErrCodeRecipeNotFound, Message: e.Error()}
}

// FetchRecipeError reports that a source was reached but did not yield a
// usable recipe for Identifier. URL is the repository or file involved.
type FetchRecipeError struct {
	Identifier recipe.RecipeIdentifier
	URL        string
	Cause      error
}

func (e *FetchRecipeError) Error() string {
	msg := "fetch recipe " + e.Identifier.String()
	if e.URL != "" {
		msg += " from " + e.URL
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the error code and the cause.
func (e *FetchRecipeError) Unwrap() error {
	msg := "fetch recipe " + e.Identifier.String()
	return &errors.Error{Code: errors.ErrCodeFetchRecipe, Message: msg, Cause: e.Cause}
}
