package source

import (
	"cmp"
	"slices"

	"github.com/matzehuels/buckaroo/pkg/recipe"
)

// Finder suggests identifiers similar to one that was not found.
type Finder interface {
	FindCandidates(id recipe.RecipeIdentifier) []recipe.RecipeIdentifier
}

// Lister lists the identifiers a source knows about. [Cookbook] implements it.
type Lister interface {
	List() ([]recipe.RecipeIdentifier, error)
}

// maxDistance is the largest edit distance still worth suggesting for a
// query of length n: one edit per three characters, at least one.
func maxDistance(n int) int {
	return max(1, n/3)
}

// ListFinder suggests identifiers from a listing, closest first.
type ListFinder struct {
	Lister Lister
	Limit  int // maximum suggestions; 0 means 3
}

// FindCandidates returns up to Limit listed identifiers within a small edit
// distance of id, ignoring the source tag when id is partial. Ties are
// broken by identifier order.
func (f ListFinder) FindCandidates(id recipe.RecipeIdentifier) []recipe.RecipeIdentifier {
	all, err := f.Lister.List()
	if err != nil {
		return nil
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 3
	}

	type scored struct {
		id       recipe.RecipeIdentifier
		distance int
	}
	want := id.Organization.String() + "/" + id.Recipe.String()
	cutoff := maxDistance(len(want))
	var matches []scored
	for _, c := range all {
		if c == id || (!id.IsPartial() && c.Source != id.Source) {
			continue
		}
		d := levenshtein(want, c.Organization.String()+"/"+c.Recipe.String())
		if d <= cutoff {
			matches = append(matches, scored{c, d})
		}
	}
	slices.SortFunc(matches, func(a, b scored) int {
		return cmp.Or(cmp.Compare(a.distance, b.distance), a.id.Compare(b.id))
	})

	out := make([]recipe.RecipeIdentifier, 0, min(limit, len(matches)))
	for _, m := range matches[:min(limit, len(matches))] {
		out = append(out, m.id)
	}
	return out
}

// levenshtein computes the edit distance between a and b using a single
// row of the distance matrix.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}
	for j := 1; j <= len(b); j++ {
		current := make([]int, len(a)+1)
		current[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous = current
	}
	return previous[len(a)]
}
