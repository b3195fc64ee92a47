package recipe

import (
	"maps"
	"slices"

	"github.com/matzehuels/buckaroo/pkg/semver"
)

// GitCommit locates a version by a commit in a git repository.
type GitCommit struct {
	URL    string
	Commit string
}

// RemoteArchive locates a version by a downloadable archive. SHA256 is the
// expected hex digest of the archive and SubPath the directory inside the
// archive that holds the package root.
type RemoteArchive struct {
	URL     string
	SHA256  string
	SubPath string
}

// RemoteFile is a single downloadable file with an expected digest.
type RemoteFile struct {
	URL    string
	SHA256 string
}

// Source is where the code of a version lives: exactly one of a git commit
// or a remote archive. The zero value is invalid.
type Source struct {
	commit  *GitCommit
	archive *RemoteArchive
}

// FromCommit returns a Source pointing at a git commit.
func FromCommit(c GitCommit) Source { return Source{commit: &c} }

// FromArchive returns a Source pointing at a remote archive.
func FromArchive(a RemoteArchive) Source { return Source{archive: &a} }

// Commit returns the git commit if s is one.
func (s Source) Commit() (GitCommit, bool) {
	if s.commit == nil {
		return GitCommit{}, false
	}
	return *s.commit, true
}

// Archive returns the remote archive if s is one.
func (s Source) Archive() (RemoteArchive, bool) {
	if s.archive == nil {
		return RemoteArchive{}, false
	}
	return *s.archive, true
}

// IsZero reports whether s holds neither branch.
func (s Source) IsZero() bool { return s.commit == nil && s.archive == nil }

// URL returns the repository or archive URL.
func (s Source) URL() string {
	switch {
	case s.commit != nil:
		return s.commit.URL
	case s.archive != nil:
		return s.archive.URL
	}
	return ""
}

// Equal reports structural equality.
func (s Source) Equal(o Source) bool {
	switch {
	case s.commit != nil && o.commit != nil:
		return *s.commit == *o.commit
	case s.archive != nil && o.archive != nil:
		return *s.archive == *o.archive
	}
	return s.IsZero() && o.IsZero()
}

// RecipeVersion is the metadata of one version of a package.
type RecipeVersion struct {
	Source Source
	// Target is the build target name; empty means the package default.
	Target string
	// Dependencies is sorted by identifier.
	Dependencies []Dependency
	// Buck is an optional auxiliary build file.
	Buck *RemoteFile
}

// Equal reports structural equality over all fields.
func (v RecipeVersion) Equal(o RecipeVersion) bool {
	if !v.Source.Equal(o.Source) || v.Target != o.Target {
		return false
	}
	if (v.Buck == nil) != (o.Buck == nil) || (v.Buck != nil && *v.Buck != *o.Buck) {
		return false
	}
	return slices.EqualFunc(v.Dependencies, o.Dependencies, func(a, b Dependency) bool {
		return a.Identifier == b.Identifier && a.Range.String() == b.Range.String()
	})
}

// Recipe is the complete version history of one package.
type Recipe struct {
	Name     string
	URL      string
	Versions map[semver.Version]RecipeVersion
}

// SortedVersions returns the versions of r in ascending order.
func (r Recipe) SortedVersions() []semver.Version {
	vs := slices.Collect(maps.Keys(r.Versions))
	semver.Sort(vs)
	return vs
}

// With returns a copy of r with v mapped to rv. r is not modified.
func (r Recipe) With(v semver.Version, rv RecipeVersion) Recipe {
	out := r
	out.Versions = make(map[semver.Version]RecipeVersion, len(r.Versions)+1)
	maps.Copy(out.Versions, r.Versions)
	out.Versions[v] = rv
	return out
}

// MergeVersions returns the union of a and b. Both inputs are left unchanged.
// Merging is commutative for maps with disjoint keys, which is the only way
// the sources use it.
func MergeVersions(a, b map[semver.Version]RecipeVersion) map[semver.Version]RecipeVersion {
	out := make(map[semver.Version]RecipeVersion, len(a)+len(b))
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}
