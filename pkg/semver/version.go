// Package semver implements the version lattice used by recipes.
//
// A [Version] is a (major, minor, optional patch) triple with a total order.
// Parsing is deliberately lossy: release tags such as "v1.2", "1.2.3" or
// "1.2.3-rc1" are versions, while "latest" or "release-1" are simply not
// versions, which is reported by a false second return value rather than an
// error.
//
// A [Range] is a predicate over versions. Ranges are either "any", an exact
// version, or an expression in the Masterminds constraint grammar ("^1.2",
// "~1.4", ">=1.0 <2.0"). Constraints from several requirers are combined with
// [Intersect].
package semver

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version whose patch component is optional.
//
// The zero value is version 0.0. Version is comparable; two versions are
// == exactly when [Version.Compare] returns 0.
type Version struct {
	Major    uint64
	Minor    uint64
	Patch    uint64
	hasPatch bool
}

// New returns the version major.minor without a patch component.
func New(major, minor uint64) Version {
	return Version{Major: major, Minor: minor}
}

// NewPatch returns the version major.minor.patch.
func NewPatch(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch, hasPatch: true}
}

// Parse reads a version from s.
//
// The grammar is: optional surrounding whitespace, an optional "v" or "V",
// one to three dot-separated decimal components, and an optional suffix
// starting with "-" or "+" which is discarded. A missing minor component is
// zero. Strings outside this grammar return ok == false.
func Parse(s string) (v Version, ok bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return Version{}, false
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, false
	}

	nums := make([]uint64, len(parts))
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return Version{}, false
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, false
		}
		nums[i] = n
	}

	v.Major = nums[0]
	if len(nums) > 1 {
		v.Minor = nums[1]
	}
	if len(nums) > 2 {
		v.Patch = nums[2]
		v.hasPatch = true
	}
	return v, true
}

// MustParse is like [Parse] but panics if s is not a version.
func MustParse(s string) Version {
	v, ok := Parse(s)
	if !ok {
		panic(fmt.Sprintf("semver: %q is not a version", s))
	}
	return v
}

// HasPatch reports whether the version carries an explicit patch component.
func (v Version) HasPatch() bool { return v.hasPatch }

// String returns "major.minor" or "major.minor.patch".
func (v Version) String() string {
	if v.hasPatch {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0 or +1 as v is less than, equal to or greater than o.
// A missing patch sorts as zero; 1.2 sorts immediately before 1.2.0.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Patch, o.Patch); c != 0 {
		return c
	}
	switch {
	case v.hasPatch == o.hasPatch:
		return 0
	case o.hasPatch:
		return -1
	default:
		return 1
	}
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// equivalent reports whether v and o denote the same release, treating a
// missing patch as zero.
func (v Version) equivalent(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

func (v Version) masterminds() *mm.Version {
	return mm.New(v.Major, v.Minor, v.Patch, "", "")
}

// MarshalText implements encoding.TextMarshaler so versions can be used as
// JSON object keys.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, ok := Parse(string(text))
	if !ok {
		return fmt.Errorf("semver: %q is not a version", text)
	}
	*v = parsed
	return nil
}

// Sort sorts versions in ascending order.
func Sort(vs []Version) {
	slices.SortFunc(vs, Version.Compare)
}

// Max returns the highest version in vs, or false if vs is empty.
func Max(vs []Version) (Version, bool) {
	if len(vs) == 0 {
		return Version{}, false
	}
	return slices.MaxFunc(vs, Version.Compare), true
}
