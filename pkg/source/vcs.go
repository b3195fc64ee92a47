package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/integrations"
	"github.com/matzehuels/buckaroo/pkg/integrations/github"
	"github.com/matzehuels/buckaroo/pkg/integrations/gitlab"
	"github.com/matzehuels/buckaroo/pkg/manifest"
	"github.com/matzehuels/buckaroo/pkg/observability"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/semver"
	"github.com/matzehuels/buckaroo/pkg/tasks"
)

// Source tags of the built-in backends.
const (
	GitHubTag   recipe.Identifier = "github"
	GitLabTag   recipe.Identifier = "gitlab"
	CookbookTag recipe.Identifier = "official"
)

// Host is a source hosting service: it lists the tags of a repository and
// serves zip archives of commits. The github and gitlab clients implement it.
type Host interface {
	tasks.Downloader
	Tags(ctx context.Context, owner, project string, refresh bool) ([]integrations.Tag, error)
	RepoURL(owner, project string) string
	ArchiveURL(owner, project, commit string) string
	ArchiveSubPath(project, commit string) string
}

var (
	_ Host = (*github.Client)(nil)
	_ Host = (*gitlab.Client)(nil)
)

// VCSOptions configures a [VCS] source.
type VCSOptions struct {
	// Pool bounds concurrent network operations. Nil means unbounded.
	Pool *process.Pool
	// Refresh bypasses cached tag listings.
	Refresh bool
}

// VCS is a [Source] backed by a hosting service. Every tag that parses as a
// version is a release; its recipe version is read from the manifest at the
// root of the release archive.
type VCS struct {
	name    recipe.Identifier
	host    Host
	store   *cache.Artifacts
	pool    *process.Pool
	refresh bool
}

// NewVCS returns a source named name reading releases from host. Archives
// are downloaded into store.
func NewVCS(name recipe.Identifier, host Host, store *cache.Artifacts, opts VCSOptions) *VCS {
	return &VCS{name: name, host: host, store: store, pool: opts.Pool, refresh: opts.Refresh}
}

// NewGitHub returns the github source.
func NewGitHub(c *github.Client, store *cache.Artifacts, opts VCSOptions) *VCS {
	return NewVCS(GitHubTag, c, store, opts)
}

// NewGitLab returns the gitlab source.
func NewGitLab(c *gitlab.Client, store *cache.Artifacts, opts VCSOptions) *VCS {
	return NewVCS(GitLabTag, c, store, opts)
}

// Name returns the source tag.
func (v *VCS) Name() recipe.Identifier { return v.name }

// versioned is the recipe version read from one release.
type versioned struct {
	version semver.Version
	rv      recipe.RecipeVersion
}

// Fetch implements [Source]. Releases are read concurrently; the first
// failing release fails the fetch.
func (v *VCS) Fetch(id recipe.RecipeIdentifier) process.Process[recipe.Recipe] {
	owner, project := id.Organization.String(), id.Recipe.String()
	url := v.host.RepoURL(owner, project)

	fetch := process.Chain(
		process.Concat(process.Emit(event.RecipeFetchStarted{Identifier: id}), v.releases(id)),
		func(releases map[semver.Version]string) process.Process[recipe.Recipe] {
			if len(releases) == 0 {
				return process.Error[recipe.Recipe](&FetchRecipeError{
					Identifier: id,
					URL:        url,
					Cause:      errors.New(errors.ErrCodeFetchRecipe, "no releases found for %s", id),
				})
			}

			versions := slices.Collect(maps.Keys(releases))
			semver.Sort(versions)
			ps := make([]process.Process[versioned], 0, len(versions))
			for _, ver := range versions {
				ps = append(ps, v.release(id, ver, releases[ver]))
			}

			empty := recipe.Recipe{Name: project, URL: url, Versions: map[semver.Version]recipe.RecipeVersion{}}
			return process.Fold(ps, empty, func(r recipe.Recipe, x versioned) recipe.Recipe {
				return r.With(x.version, x.rv)
			})
		},
	)

	return func(ctx context.Context, emit process.Emitter) (recipe.Recipe, error) {
		start := time.Now()
		r, err := fetch(ctx, emit)
		observability.Resolve().OnFetch(ctx, v.name.String(), id.String(), time.Since(start), err)
		if err != nil {
			return recipe.Recipe{}, v.classify(id, url, err)
		}
		emit(event.RecipeFetched{Identifier: id, Versions: len(r.Versions)})
		return r, nil
	}
}

func (v *VCS) classify(id recipe.RecipeIdentifier, url string, err error) error {
	var notFound *RecipeNotFoundError
	var fetchErr *FetchRecipeError
	switch {
	case stderrors.As(err, &notFound), stderrors.As(err, &fetchErr), isContextError(err):
		return err
	case stderrors.Is(err, integrations.ErrNotFound):
		return &RecipeNotFoundError{Source: v.name.String(), Identifier: id}
	default:
		return &FetchRecipeError{Identifier: id, URL: url, Cause: err}
	}
}

// releases lists the tags of the repository keyed by the version they name.
// When several tags name the same version the lexically smallest wins.
func (v *VCS) releases(id recipe.RecipeIdentifier) process.Process[map[semver.Version]string] {
	return process.Limit(v.pool, func(ctx context.Context, emit process.Emitter) (map[semver.Version]string, error) {
		tags, err := v.host.Tags(ctx, id.Organization.String(), id.Recipe.String(), v.refresh)
		if err != nil {
			return nil, err
		}
		byName := integrations.TagMap(tags)
		names := slices.SortedFunc(maps.Keys(byName), func(a, b string) int { return strings.Compare(b, a) })

		releases := make(map[semver.Version]string)
		for _, name := range names {
			if ver, ok := semver.Parse(name); ok {
				releases[ver] = byName[name]
			}
		}
		emit(event.ReleasesListed{Identifier: id, Tags: len(byName), Versions: len(releases)})
		return releases, nil
	})
}

// release reads one version: download the archive at commit, hash it,
// extract it into a throwaway in-memory workspace and read its manifest.
func (v *VCS) release(id recipe.RecipeIdentifier, ver semver.Version, commit string) process.Process[versioned] {
	owner, project := id.Organization.String(), id.Recipe.String()
	archiveURL := v.host.ArchiveURL(owner, project, commit)
	subPath := v.host.ArchiveSubPath(project, commit)
	fs := v.store.Fs()

	download := process.MapEvents(
		tasks.CachedDownload(v.store, tasks.LimitDownloads(v.pool, v.host), archiveURL, cache.KindZip),
		func(e event.Event) event.Event { return event.FetchProgress{Identifier: id, Event: e} },
	)

	read := process.Chain(download, func(path string) process.Process[versioned] {
		return process.Chain(tasks.Hash(fs, path), func(sum string) process.Process[versioned] {
			work := afero.NewMemMapFs()
			root := "/" + sum
			return process.Chain(tasks.Unzip(fs, path, work, root, subPath), func(int) process.Process[versioned] {
				return process.Map(tasks.ReadManifest(work, root, id.Source), func(m manifest.Manifest) versioned {
					return versioned{version: ver, rv: recipe.RecipeVersion{
						Source: recipe.FromArchive(recipe.RemoteArchive{
							URL:     archiveURL,
							SHA256:  sum,
							SubPath: subPath,
						}),
						Target:       m.Target,
						Dependencies: m.Dependencies,
					}}
				})
			})
		})
	})

	return process.MapErr(read, func(err error) error {
		if isContextError(err) {
			return err
		}
		return &FetchRecipeError{Identifier: id, URL: archiveURL, Cause: fmt.Errorf("version %s: %w", ver, err)}
	})
}

func isContextError(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

