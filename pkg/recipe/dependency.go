package recipe

import (
	"slices"
	"strings"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/semver"
)

// Dependency is a requirement on a package: a complete identifier plus the
// range of acceptable versions.
type Dependency struct {
	Identifier RecipeIdentifier
	Range      semver.Range
}

// String encodes the dependency as "id@range".
func (d Dependency) String() string {
	return d.Identifier.String() + "@" + d.Range.String()
}

// PartialDependency is a dependency whose identifier may lack a source tag.
// It must be completed with [PartialDependency.Complete] before it reaches
// the resolver.
type PartialDependency struct {
	Identifier RecipeIdentifier
	Range      semver.Range
}

// Complete fills in the source tag with source when it is missing.
func (d PartialDependency) Complete(source Identifier) Dependency {
	return Dependency{Identifier: d.Identifier.WithSource(source), Range: d.Range}
}

// ParseDependency parses "id", "id@range" where id is any form accepted by
// [ParseRecipeIdentifier]. A missing range is unconstrained.
func ParseDependency(s string) (PartialDependency, error) {
	idPart, rangePart, _ := strings.Cut(strings.TrimSpace(s), "@")
	id, err := ParseRecipeIdentifier(idPart)
	if err != nil {
		return PartialDependency{}, err
	}
	r, err := semver.ParseRange(rangePart)
	if err != nil {
		return PartialDependency{}, err
	}
	return PartialDependency{Identifier: id, Range: r}, nil
}

// DependencyGroup builds a sorted dependency list from an "id" → "range"
// map as found in manifests and recipe files. Partial identifiers are
// completed with source.
func DependencyGroup(m map[string]string, source Identifier) ([]Dependency, error) {
	if len(m) == 0 {
		return nil, nil
	}
	deps := make([]Dependency, 0, len(m))
	for k, v := range m {
		id, err := ParseRecipeIdentifier(k)
		if err != nil {
			return nil, err
		}
		r, err := semver.ParseRange(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRange, err, "dependency %s", k)
		}
		deps = append(deps, PartialDependency{Identifier: id, Range: r}.Complete(source))
	}
	SortDependencies(deps)
	for i := 1; i < len(deps); i++ {
		if deps[i].Identifier == deps[i-1].Identifier {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "duplicate dependency %s", deps[i].Identifier)
		}
	}
	return deps, nil
}

// SortDependencies sorts deps by identifier.
func SortDependencies(deps []Dependency) {
	slices.SortStableFunc(deps, func(a, b Dependency) int {
		return a.Identifier.Compare(b.Identifier)
	})
}

func dependencyMap(deps []Dependency) map[string]string {
	if len(deps) == 0 {
		return nil
	}
	m := make(map[string]string, len(deps))
	for _, d := range deps {
		m[d.Identifier.String()] = d.Range.String()
	}
	return m
}
