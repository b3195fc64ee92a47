package semver

import (
	"strings"

	mm "github.com/Masterminds/semver/v3"

	"github.com/matzehuels/buckaroo/pkg/errors"
)

type rangeKind uint8

const (
	kindAny rangeKind = iota
	kindExact
	kindExpr
	kindAll
)

// Range is a predicate over versions.
//
// The zero value is the unconstrained range that every version satisfies.
// Ranges are immutable; [Intersect] returns a new range.
type Range struct {
	kind  rangeKind
	exact Version
	expr  *mm.Constraints
	raw   string
	parts []Range
}

// Any returns the range that every version satisfies.
func Any() Range { return Range{} }

// Exact returns the range satisfied only by v (a missing patch matches .0).
func Exact(v Version) Range {
	return Range{kind: kindExact, exact: v}
}

// ParseRange parses a range expression.
//
// "", "*" and "any" are the unconstrained range. A bare version, optionally
// prefixed with "=", is an exact range. Anything else is handed to the
// Masterminds constraint grammar ("^1.2", "~1.4.0", ">=1.0, <2.0", "1.x").
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "*", "any":
		return Any(), nil
	}

	if v, ok := Parse(strings.TrimPrefix(s, "=")); ok && !strings.ContainsAny(s, "-+") {
		return Exact(v), nil
	}

	c, err := mm.NewConstraint(s)
	if err != nil {
		return Range{}, errors.Wrap(errors.ErrCodeInvalidRange, err, "invalid version range %q", s)
	}
	return Range{kind: kindExpr, expr: c, raw: s}, nil
}

// MustParseRange is like [ParseRange] but panics on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// IsAny reports whether r is satisfied by every version.
func (r Range) IsAny() bool {
	if r.kind == kindAll {
		for _, p := range r.parts {
			if !p.IsAny() {
				return false
			}
		}
		return true
	}
	return r.kind == kindAny
}

// Satisfies reports whether v lies in r.
func (r Range) Satisfies(v Version) bool {
	switch r.kind {
	case kindAny:
		return true
	case kindExact:
		return r.exact.equivalent(v)
	case kindExpr:
		return r.expr.Check(v.masterminds())
	case kindAll:
		for _, p := range r.parts {
			if !p.Satisfies(v) {
				return false
			}
		}
		return true
	}
	return false
}

// String returns the range in the syntax accepted by [ParseRange].
func (r Range) String() string {
	switch r.kind {
	case kindExact:
		return "=" + r.exact.String()
	case kindExpr:
		return r.raw
	case kindAll:
		// AND binds tighter than "||", so alternatives are distributed
		// over the conjunction: (a || b), c becomes a, c || b, c.
		groups := []string{""}
		for _, p := range r.parts {
			alternatives := strings.Split(p.String(), "||")
			next := make([]string, 0, len(groups)*len(alternatives))
			for _, g := range groups {
				for _, alt := range alternatives {
					alt = strings.TrimSpace(alt)
					if g != "" {
						alt = g + ", " + alt
					}
					next = append(next, alt)
				}
			}
			groups = next
		}
		return strings.Join(groups, " || ")
	}
	return "*"
}

// MarshalText implements encoding.TextMarshaler.
func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Intersect returns the range satisfied by exactly the versions that satisfy
// every one of rs. Unconstrained members are dropped; the intersection of no
// ranges is [Any].
func Intersect(rs ...Range) Range {
	var parts []Range
	for _, r := range rs {
		switch {
		case r.kind == kindAll:
			parts = append(parts, r.parts...)
		case r.IsAny():
		default:
			parts = append(parts, r)
		}
	}
	switch len(parts) {
	case 0:
		return Any()
	case 1:
		return parts[0]
	}
	return Range{kind: kindAll, parts: parts}
}

// Filter returns the members of candidates that satisfy r, preserving order.
func Filter(r Range, candidates []Version) []Version {
	var out []Version
	for _, v := range candidates {
		if r.Satisfies(v) {
			out = append(out, v)
		}
	}
	return out
}

// MaxSatisfying returns the highest version in candidates that satisfies r.
func MaxSatisfying(r Range, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !r.Satisfies(candidate) {
			continue
		}
		if !found || candidate.Compare(best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
