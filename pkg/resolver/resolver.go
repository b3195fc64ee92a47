package resolver

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/observability"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/semver"
	"github.com/matzehuels/buckaroo/pkg/source"
)

const (
	DefaultTimeout     = 120 * time.Second // Default deadline for one resolution
	DefaultMaxPackages = 5000              // Default maximum packages to fetch
)

// Options configures a resolution.
type Options struct {
	Timeout     time.Duration // Overall deadline (default: 120s, negative: none)
	MaxPackages int           // Maximum distinct packages to fetch (default: 5000)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxPackages <= 0 {
		opts.MaxPackages = DefaultMaxPackages
	}
	return opts
}

// Resolve returns a process that selects a version for every package in the
// dependency closure of deps, fetching recipes from src. Identifiers in deps
// must carry a source tag.
//
// The process emits [event.ResolveStep] whenever a selection changes and
// [event.ResolveCompleted] on success, interleaved with the events of the
// recipe fetches.
func Resolve(src source.Source, deps []recipe.Dependency, opts Options) process.Process[recipe.ResolvedDependencies] {
	opts = opts.WithDefaults()
	return func(ctx context.Context, emit process.Emitter) (recipe.ResolvedDependencies, error) {
		for _, d := range deps {
			if d.Identifier.IsPartial() {
				return nil, errors.New(errors.ErrCodeInvalidIdentifier,
					"dependency %s has no source", d.Identifier)
			}
		}

		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		hooks := observability.Resolve()
		hooks.OnResolveStart(ctx, len(deps))
		start := time.Now()

		s := newSearch(src, opts, emit)
		result, err := s.run(ctx, deps)
		hooks.OnResolveComplete(ctx, len(result), s.rounds, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		emit(event.ResolveCompleted{Packages: len(result), Rounds: s.rounds})
		return result, nil
	}
}

// parent identifies the package version a requirement came from. The zero
// value stands for the roots.
type parent struct {
	id      recipe.RecipeIdentifier
	version semver.Version
}

// pending is a constraint waiting in the frontier.
type pending struct {
	id   recipe.RecipeIdentifier
	from parent
	req  Requirement
}

// constraint is a requirement together with the selection that imposed it.
type constraint struct {
	from parent
	req  Requirement
}

// search is the state of one resolution. It is owned by a single
// goroutine; only recipe fetches run concurrently.
type search struct {
	src  source.Source
	opts Options
	emit process.Emitter

	recipes  map[recipe.RecipeIdentifier]recipe.Recipe
	reqs     map[recipe.RecipeIdentifier][]constraint
	selected map[recipe.RecipeIdentifier]semver.Version
	dirty    map[recipe.RecipeIdentifier]bool
	rounds   int
}

func newSearch(src source.Source, opts Options, emit process.Emitter) *search {
	return &search{
		src:      src,
		opts:     opts,
		emit:     emit,
		recipes:  make(map[recipe.RecipeIdentifier]recipe.Recipe),
		reqs:     make(map[recipe.RecipeIdentifier][]constraint),
		selected: make(map[recipe.RecipeIdentifier]semver.Version),
		dirty:    make(map[recipe.RecipeIdentifier]bool),
	}
}

func (s *search) run(ctx context.Context, deps []recipe.Dependency) (recipe.ResolvedDependencies, error) {
	frontier := make([]pending, 0, len(deps))
	for _, d := range deps {
		frontier = append(frontier, pending{id: d.Identifier, req: Requirement{Range: d.Range}})
	}

	// Conflicts are only final once a round changes nothing else: a
	// requirement may still be withdrawn by a reselection elsewhere.
	var conflicts []*ConflictError
	limit := 4 * s.opts.MaxPackages
	for len(frontier) > 0 || len(s.dirty) > 0 || len(conflicts) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolve: %w", err)
		}
		if len(frontier) == 0 && len(s.dirty) == 0 {
			return nil, conflicts[0]
		}
		if s.rounds >= limit {
			return nil, errors.New(errors.ErrCodeConflict,
				"resolution did not settle after %d rounds", s.rounds)
		}
		s.rounds++

		if err := s.fetchMissing(ctx, frontier); err != nil {
			return nil, err
		}

		touched := s.dirty
		s.dirty = make(map[recipe.RecipeIdentifier]bool)
		for _, p := range frontier {
			s.add(p)
			touched[p.id] = true
		}
		for _, c := range conflicts {
			touched[c.Identifier] = true
		}

		frontier, conflicts = nil, nil
		ids := slices.SortedFunc(maps.Keys(touched), recipe.RecipeIdentifier.Compare)
		for _, id := range ids {
			next, c := s.narrow(id)
			if c != nil {
				conflicts = append(conflicts, c)
				continue
			}
			frontier = append(frontier, next...)
		}
	}
	return s.result(deps), nil
}

// fetchMissing fetches, concurrently, every recipe named in frontier that
// has not been fetched yet.
func (s *search) fetchMissing(ctx context.Context, frontier []pending) error {
	var missing []recipe.RecipeIdentifier
	for _, p := range frontier {
		if _, ok := s.recipes[p.id]; !ok && !slices.Contains(missing, p.id) {
			missing = append(missing, p.id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if len(s.recipes)+len(missing) > s.opts.MaxPackages {
		return errors.New(errors.ErrCodeInvalidInput,
			"dependency closure exceeds %d packages", s.opts.MaxPackages)
	}
	slices.SortFunc(missing, recipe.RecipeIdentifier.Compare)

	fetches := make([]process.Process[recipe.Recipe], len(missing))
	for i, id := range missing {
		fetches[i] = s.src.Fetch(id)
	}
	recipes, err := process.All(fetches).Run(ctx, s.emit)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("resolve: %w", ctx.Err())
		}
		return err
	}
	for i, id := range missing {
		s.recipes[id] = recipes[i]
	}
	return nil
}

// add records a requirement unless the same parent already imposed it.
func (s *search) add(p pending) {
	k := p.req.key()
	for _, c := range s.reqs[p.id] {
		if c.from == p.from && c.req.key() == k {
			return
		}
	}
	s.reqs[p.id] = append(s.reqs[p.id], constraint{from: p.from, req: p.req})
}

// withdraw drops the requirements the selection v of id imposed and marks
// the affected packages for reselection.
func (s *search) withdraw(id recipe.RecipeIdentifier, v semver.Version) {
	from := parent{id: id, version: v}
	for _, d := range s.recipes[id].Versions[v].Dependencies {
		s.reqs[d.Identifier] = slices.DeleteFunc(s.reqs[d.Identifier], func(c constraint) bool {
			return c.from == from
		})
		s.dirty[d.Identifier] = true
	}
}

// narrow reselects id under all of its current requirements and returns the
// dependencies of the new selection if it changed. A package nobody
// requires any more loses its selection.
func (s *search) narrow(id recipe.RecipeIdentifier) ([]pending, *ConflictError) {
	previous, had := s.selected[id]
	if len(s.reqs[id]) == 0 {
		if had {
			delete(s.selected, id)
			s.withdraw(id, previous)
		}
		return nil, nil
	}

	reqs := make([]Requirement, len(s.reqs[id]))
	for i, c := range s.reqs[id] {
		reqs[i] = c.req
	}
	slices.SortFunc(reqs, func(a, b Requirement) int {
		return strings.Compare(a.key(), b.key())
	})
	available := s.recipes[id].SortedVersions()

	ranges := make([]semver.Range, len(reqs))
	for i, r := range reqs {
		ranges[i] = r.Range
	}
	combined := semver.Intersect(ranges...)
	version, ok := semver.MaxSatisfying(combined, available)
	if !ok {
		return nil, conflict(id, reqs, available)
	}

	if had && previous.Compare(version) == 0 {
		return nil, nil
	}
	if had {
		s.withdraw(id, previous)
	}
	s.selected[id] = version
	step := event.ResolveStep{Identifier: id, Range: combined, Version: version}
	if had {
		step.Previous = &previous
	}
	s.emit(step)

	origin := reqs[0].Chain
	for _, r := range reqs[1:] {
		if len(r.Chain) < len(origin) {
			origin = r.Chain
		}
	}
	chain := append(slices.Clone(origin), id)
	from := parent{id: id, version: version}
	var next []pending
	for _, d := range s.recipes[id].Versions[version].Dependencies {
		next = append(next, pending{id: d.Identifier, from: from, req: Requirement{Range: d.Range, Chain: chain}})
	}
	return next, nil
}

// conflict explains why no version satisfies reqs, preferring a single
// unsatisfiable requirement, then a pair of incompatible ones.
func conflict(id recipe.RecipeIdentifier, reqs []Requirement, available []semver.Version) *ConflictError {
	err := &ConflictError{Identifier: id, Available: available}
	for _, r := range reqs {
		if _, ok := semver.MaxSatisfying(r.Range, available); !ok {
			err.Incoming = r
			return err
		}
	}
	for j := 1; j < len(reqs); j++ {
		for i := 0; i < j; i++ {
			if _, ok := semver.MaxSatisfying(semver.Intersect(reqs[i].Range, reqs[j].Range), available); !ok {
				err.Existing, err.Incoming = &reqs[i], reqs[j]
				return err
			}
		}
	}
	last := len(reqs) - 1
	ranges := make([]semver.Range, last)
	for i, r := range reqs[:last] {
		ranges[i] = r.Range
	}
	err.Existing = &Requirement{Range: semver.Intersect(ranges...), Chain: reqs[0].Chain}
	err.Incoming = reqs[last]
	return err
}

// result collects the selections reachable from the roots.
func (s *search) result(deps []recipe.Dependency) recipe.ResolvedDependencies {
	out := make(recipe.ResolvedDependencies)
	queue := make([]recipe.RecipeIdentifier, 0, len(deps))
	for _, d := range deps {
		queue = append(queue, d.Identifier)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := out[id]; ok {
			continue
		}
		v := s.selected[id]
		rv := s.recipes[id].Versions[v]
		out[id] = recipe.ResolvedDependency{Version: v, RecipeVersion: rv}
		for _, d := range rv.Dependencies {
			queue = append(queue, d.Identifier)
		}
	}
	return out
}
