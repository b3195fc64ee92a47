// Package recipe defines the data model shared by recipe sources and the
// resolver: identifiers, per-version metadata, recipes, dependencies and the
// final resolved dependency set.
//
// All types are immutable values. Identifiers are normalized on parse, so
// two identifiers are equal exactly when their strings are equal, and every
// type that appears as a map key implements encoding.TextMarshaler.
package recipe

import (
	"cmp"
	"strings"

	"github.com/matzehuels/buckaroo/pkg/errors"
)

const maxIdentifierLength = 64

// Identifier is a validated name token: a source tag, an organization or a
// package name. Identifiers are lower case, start with a letter or digit and
// otherwise contain letters, digits, '-', '_' and '.'.
type Identifier string

// ParseIdentifier validates and normalizes s.
func ParseIdentifier(s string) (Identifier, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	if n == "" {
		return "", errors.New(errors.ErrCodeInvalidIdentifier, "identifier cannot be empty")
	}
	if len(n) > maxIdentifierLength {
		return "", errors.New(errors.ErrCodeInvalidIdentifier, "identifier %q too long (max %d characters)", s, maxIdentifierLength)
	}
	for i, r := range n {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case i > 0 && (r == '-' || r == '_' || r == '.'):
		default:
			return "", errors.New(errors.ErrCodeInvalidIdentifier, "invalid identifier %q", s)
		}
	}
	return Identifier(n), nil
}

// MustIdentifier is like [ParseIdentifier] but panics on error.
func MustIdentifier(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (i Identifier) String() string { return string(i) }

// RecipeIdentifier names a package within a source ecosystem, for example
// github+loopperfect/valuable. A RecipeIdentifier with an empty Source is
// partial; see [RecipeIdentifier.WithSource].
type RecipeIdentifier struct {
	Source       Identifier
	Organization Identifier
	Recipe       Identifier
}

// NewRecipeIdentifier validates the three parts of an identifier.
func NewRecipeIdentifier(source, organization, recipe string) (RecipeIdentifier, error) {
	var (
		id  RecipeIdentifier
		err error
	)
	if source != "" {
		if id.Source, err = ParseIdentifier(source); err != nil {
			return RecipeIdentifier{}, err
		}
	}
	if id.Organization, err = ParseIdentifier(organization); err != nil {
		return RecipeIdentifier{}, err
	}
	if id.Recipe, err = ParseIdentifier(recipe); err != nil {
		return RecipeIdentifier{}, err
	}
	return id, nil
}

// MustRecipeIdentifier is like [NewRecipeIdentifier] but panics on error.
func MustRecipeIdentifier(source, organization, recipe string) RecipeIdentifier {
	id, err := NewRecipeIdentifier(source, organization, recipe)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseRecipeIdentifier parses "source+org/name", "source/org/name" or the
// partial form "org/name".
func ParseRecipeIdentifier(s string) (RecipeIdentifier, error) {
	s = strings.TrimSpace(s)
	if source, rest, ok := strings.Cut(s, "+"); ok {
		org, name, ok := strings.Cut(rest, "/")
		if !ok || strings.Contains(name, "/") {
			return RecipeIdentifier{}, invalidRecipeIdentifier(s)
		}
		if source == "" {
			return RecipeIdentifier{}, invalidRecipeIdentifier(s)
		}
		return NewRecipeIdentifier(source, org, name)
	}

	parts := strings.Split(s, "/")
	switch len(parts) {
	case 2:
		return NewRecipeIdentifier("", parts[0], parts[1])
	case 3:
		if parts[0] == "" {
			return RecipeIdentifier{}, invalidRecipeIdentifier(s)
		}
		return NewRecipeIdentifier(parts[0], parts[1], parts[2])
	}
	return RecipeIdentifier{}, invalidRecipeIdentifier(s)
}

func invalidRecipeIdentifier(s string) error {
	return errors.New(errors.ErrCodeInvalidIdentifier,
		"invalid recipe identifier %q (want source+org/name or org/name)", s)
}

// IsPartial reports whether the source tag is missing.
func (id RecipeIdentifier) IsPartial() bool { return id.Source == "" }

// WithSource returns id with its source tag set to source if it is partial.
func (id RecipeIdentifier) WithSource(source Identifier) RecipeIdentifier {
	if id.Source == "" {
		id.Source = source
	}
	return id
}

// String encodes the identifier as "source+org/name", or "org/name" when
// partial.
func (id RecipeIdentifier) String() string {
	if id.Source == "" {
		return string(id.Organization) + "/" + string(id.Recipe)
	}
	return string(id.Source) + "+" + string(id.Organization) + "/" + string(id.Recipe)
}

// Compare orders identifiers by source, organization, then name.
func (id RecipeIdentifier) Compare(o RecipeIdentifier) int {
	if c := cmp.Compare(id.Source, o.Source); c != 0 {
		return c
	}
	if c := cmp.Compare(id.Organization, o.Organization); c != 0 {
		return c
	}
	return cmp.Compare(id.Recipe, o.Recipe)
}

// MarshalText implements encoding.TextMarshaler.
func (id RecipeIdentifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *RecipeIdentifier) UnmarshalText(text []byte) error {
	parsed, err := ParseRecipeIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
