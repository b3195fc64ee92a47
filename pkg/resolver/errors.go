package resolver

import (
	"fmt"
	"strings"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/semver"
)

// Requirement is a constraint on one package together with where it came
// from. Chain lists the packages that led to it, outermost first; it is
// empty for a constraint given directly to [Resolve].
type Requirement struct {
	Range semver.Range
	Chain []recipe.RecipeIdentifier
}

// Origin describes Chain for humans.
func (r Requirement) Origin() string {
	if len(r.Chain) == 0 {
		return "root"
	}
	parts := make([]string, len(r.Chain))
	for i, id := range r.Chain {
		parts[i] = id.String()
	}
	return strings.Join(parts, " -> ")
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s (from %s)", r.Range, r.Origin())
}

func (r Requirement) key() string {
	return r.Range.String() + "\x00" + r.Origin()
}

// ConflictError reports that no published version of Identifier satisfies
// every requirement on it. Existing is nil when Incoming alone matches none
// of the Available versions.
type ConflictError struct {
	Identifier recipe.RecipeIdentifier
	Existing   *Requirement
	Incoming   Requirement
	Available  []semver.Version
}

func (e *ConflictError) Error() string {
	if e.Existing == nil {
		return fmt.Sprintf("no version of %s satisfies %s; available: %s",
			e.Identifier, e.Incoming, versionList(e.Available))
	}
	return fmt.Sprintf("conflicting requirements on %s: %s and %s",
		e.Identifier, *e.Existing, e.Incoming)
}

// Unwrap exposes the error code.
func (e *ConflictError) Unwrap() error {
	return &errors.Error{Code: errors.ErrCodeConflict, Message: e.Error()}
}

func versionList(vs []semver.Version) string {
	if len(vs) == 0 {
		return "none"
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
