package recipe

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/buckaroo/pkg/semver"
)

// ResolvedDependency is the version chosen for one package together with
// the metadata backing it.
type ResolvedDependency struct {
	Version       semver.Version
	RecipeVersion RecipeVersion
}

type resolvedDocument struct {
	Version semver.Version `json:"version"`
	VersionDocument
}

// MarshalJSON implements json.Marshaler.
func (d ResolvedDependency) MarshalJSON() ([]byte, error) {
	return json.Marshal(resolvedDocument{Version: d.Version, VersionDocument: d.RecipeVersion.Document()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *ResolvedDependency) UnmarshalJSON(data []byte) error {
	var doc resolvedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	rv, err := doc.VersionDocument.RecipeVersion("")
	if err != nil {
		return err
	}
	*d = ResolvedDependency{Version: doc.Version, RecipeVersion: rv}
	return nil
}

// ResolvedDependencies maps each package in the dependency closure to its
// chosen version. Diamond dependencies collapse to one entry.
type ResolvedDependencies map[RecipeIdentifier]ResolvedDependency

// Identifiers returns the keys in sorted order.
func (r ResolvedDependencies) Identifiers() []RecipeIdentifier {
	ids := slices.Collect(maps.Keys(r))
	slices.SortFunc(ids, RecipeIdentifier.Compare)
	return ids
}

// Check verifies that every dependency declared by a resolved version is
// present and satisfied by the version chosen for it.
func (r ResolvedDependencies) Check() error {
	for _, id := range r.Identifiers() {
		for _, dep := range r[id].RecipeVersion.Dependencies {
			target, ok := r[dep.Identifier]
			if !ok {
				return fmt.Errorf("%s requires %s which is not resolved", id, dep.Identifier)
			}
			if !dep.Range.Satisfies(target.Version) {
				return fmt.Errorf("%s requires %s but %s was chosen", id, dep, target.Version)
			}
		}
	}
	return nil
}

// Order returns every identifier so that each package appears after the
// packages it depends on. The order is deterministic. Cycles in the
// requirement graph are broken at the edge that would revisit a package
// already on the stack.
func (r ResolvedDependencies) Order() []RecipeIdentifier {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[RecipeIdentifier]int, len(r))
	order := make([]RecipeIdentifier, 0, len(r))

	var visit func(id RecipeIdentifier)
	visit = func(id RecipeIdentifier) {
		if state[id] != unvisited {
			return
		}
		state[id] = visiting
		for _, dep := range r[id].RecipeVersion.Dependencies {
			if _, ok := r[dep.Identifier]; ok {
				visit(dep.Identifier)
			}
		}
		state[id] = done
		order = append(order, id)
	}

	for _, id := range r.Identifiers() {
		visit(id)
	}
	return order
}
