package semver

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/buckaroo/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Version
		wantOK bool
	}{
		{"1.2.3", NewPatch(1, 2, 3), true},
		{"v1.2.3", NewPatch(1, 2, 3), true},
		{"V2.0", New(2, 0), true},
		{"1.2", New(1, 2), true},
		{"7", New(7, 0), true},
		{" 1.2.3 ", NewPatch(1, 2, 3), true},
		{"1.2.3-rc1", NewPatch(1, 2, 3), true},
		{"1.2+build.5", New(1, 2), true},

		{"", Version{}, false},
		{"v", Version{}, false},
		{"latest", Version{}, false},
		{"release-1.0", Version{}, false},
		{"1.2.3.4", Version{}, false},
		{"1..2", Version{}, false},
		{"1.x", Version{}, false},
		{"-1.0", Version{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	if got := New(1, 2).String(); got != "1.2" {
		t.Errorf("String() = %q, want %q", got, "1.2")
	}
	if got := NewPatch(1, 2, 0).String(); got != "1.2.0" {
		t.Errorf("String() = %q, want %q", got, "1.2.0")
	}
}

func TestVersionCompare(t *testing.T) {
	ordered := []Version{
		New(0, 1),
		NewPatch(0, 1, 0),
		NewPatch(0, 1, 5),
		New(1, 0),
		New(1, 2),
		NewPatch(1, 2, 0),
		NewPatch(1, 2, 1),
		New(1, 10),
		New(2, 0),
	}

	for i := range ordered {
		for j := range ordered {
			got := ordered[i].Compare(ordered[j])
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got != want {
				t.Errorf("%v.Compare(%v) = %d, want %d", ordered[i], ordered[j], got, want)
			}
		}
	}
}

func TestSortAndMax(t *testing.T) {
	vs := []Version{New(1, 3), New(1, 0), NewPatch(1, 2, 4), New(0, 9)}
	Sort(vs)
	want := []Version{New(0, 9), New(1, 0), NewPatch(1, 2, 4), New(1, 3)}
	for i := range want {
		if vs[i] != want[i] {
			t.Fatalf("Sort() = %v, want %v", vs, want)
		}
	}

	if m, ok := Max(vs); !ok || m != New(1, 3) {
		t.Errorf("Max() = %v, %v; want 1.3, true", m, ok)
	}
	if _, ok := Max(nil); ok {
		t.Error("Max(nil) ok = true, want false")
	}
}

func TestVersionJSONMapKey(t *testing.T) {
	in := map[Version]string{New(1, 2): "a", NewPatch(2, 0, 1): "b"}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var out map[Version]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out[New(1, 2)] != "a" || out[NewPatch(2, 0, 1)] != "b" {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		wantStr string
		wantAny bool
	}{
		{"", "*", true},
		{"*", "*", true},
		{"any", "*", true},
		{"ANY", "*", true},
		{"1.2.3", "=1.2.3", false},
		{"=1.2", "=1.2", false},
		{"^1.2", "^1.2", false},
		{"~1.4.0", "~1.4.0", false},
		{">=1.0, <2.0", ">=1.0, <2.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseRange(tt.in)
			if err != nil {
				t.Fatalf("ParseRange(%q) error: %v", tt.in, err)
			}
			if r.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", r.String(), tt.wantStr)
			}
			if r.IsAny() != tt.wantAny {
				t.Errorf("IsAny() = %v, want %v", r.IsAny(), tt.wantAny)
			}
		})
	}
}

func TestParseRangeInvalid(t *testing.T) {
	_, err := ParseRange(">>nonsense<<")
	if err == nil {
		t.Fatal("ParseRange() error = nil, want error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidRange) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidRange)
	}
}

func TestRangeSatisfies(t *testing.T) {
	tests := []struct {
		rng  string
		v    Version
		want bool
	}{
		{"*", New(0, 1), true},
		{"^1.0", New(1, 0), true},
		{"^1.0", New(1, 3), true},
		{"^1.0", NewPatch(1, 9, 9), true},
		{"^1.0", New(2, 0), false},
		{"^1.0", New(0, 9), false},
		{"^2.0", New(1, 3), false},
		{"^1.2", New(1, 1), false},
		{"~1.4.0", NewPatch(1, 4, 7), true},
		{"~1.4.0", New(1, 5), false},
		{"=1.2", New(1, 2), true},
		{"=1.2", NewPatch(1, 2, 0), true},
		{"=1.2", NewPatch(1, 2, 1), false},
		{">=1.0, <2.0", New(1, 5), true},
		{">=1.0, <2.0", New(2, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.rng+"/"+tt.v.String(), func(t *testing.T) {
			r := MustParseRange(tt.rng)
			if got := r.Satisfies(tt.v); got != tt.want {
				t.Errorf("%s.Satisfies(%s) = %v, want %v", tt.rng, tt.v, got, tt.want)
			}
		})
	}
}

func TestIntersect(t *testing.T) {
	candidates := []Version{New(1, 0), New(1, 2), New(1, 3), New(2, 0), New(2, 1)}

	t.Run("empty is any", func(t *testing.T) {
		if !Intersect().IsAny() {
			t.Error("Intersect() should be Any")
		}
		if !Intersect(Any(), Any()).IsAny() {
			t.Error("Intersect(Any, Any) should be Any")
		}
	})

	t.Run("single member is returned unchanged", func(t *testing.T) {
		r := MustParseRange("^1.2")
		if got := Intersect(Any(), r); got.String() != "^1.2" {
			t.Errorf("Intersect(Any, ^1.2) = %s, want ^1.2", got)
		}
	})

	t.Run("compatible ranges narrow", func(t *testing.T) {
		r := Intersect(MustParseRange("^1.0"), MustParseRange(">=1.2"))
		got := Filter(r, candidates)
		want := []Version{New(1, 2), New(1, 3)}
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("Filter() = %v, want %v", got, want)
		}
		if r.String() != "^1.0, >=1.2" {
			t.Errorf("String() = %q", r.String())
		}
	})

	t.Run("disjoint ranges are empty", func(t *testing.T) {
		r := Intersect(MustParseRange("^1.0"), MustParseRange("^2.0"))
		if got := Filter(r, candidates); len(got) != 0 {
			t.Errorf("Filter() = %v, want empty", got)
		}
	})

	t.Run("commutative", func(t *testing.T) {
		a, b := MustParseRange("^1.0"), MustParseRange("<=1.2")
		ab, _ := MaxSatisfying(Intersect(a, b), candidates)
		ba, _ := MaxSatisfying(Intersect(b, a), candidates)
		if ab != ba {
			t.Errorf("MaxSatisfying differs by order: %v vs %v", ab, ba)
		}
	})

	t.Run("alternatives survive String", func(t *testing.T) {
		r := Intersect(MustParseRange("^1.0 || ^2.0"), MustParseRange(">=1.2"))
		if r.String() != "^1.0, >=1.2 || ^2.0, >=1.2" {
			t.Errorf("String() = %q", r.String())
		}
		back, err := ParseRange(r.String())
		if err != nil {
			t.Fatalf("ParseRange(%q): %v", r.String(), err)
		}
		for _, v := range append(candidates, New(3, 0)) {
			if r.Satisfies(v) != back.Satisfies(v) {
				t.Errorf("%s: reparsed range disagrees (%v vs %v)", v, back.Satisfies(v), r.Satisfies(v))
			}
		}
	})

	t.Run("nested intersections flatten", func(t *testing.T) {
		r := Intersect(Intersect(MustParseRange("^1.0"), MustParseRange(">=1.2")), MustParseRange("<1.3"))
		if len(r.parts) != 3 {
			t.Errorf("parts = %d, want 3", len(r.parts))
		}
	})
}

func TestMaxSatisfying(t *testing.T) {
	candidates := []Version{New(1, 0), New(1, 3), New(1, 2)}

	got, ok := MaxSatisfying(MustParseRange("^1.0"), candidates)
	if !ok || got != New(1, 3) {
		t.Errorf("MaxSatisfying(^1.0) = %v, %v; want 1.3, true", got, ok)
	}

	if _, ok := MaxSatisfying(MustParseRange("^2.0"), candidates); ok {
		t.Error("MaxSatisfying(^2.0) ok = true, want false")
	}
}

func TestRangeText(t *testing.T) {
	var r Range
	if err := r.UnmarshalText([]byte("^1.2")); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	text, _ := r.MarshalText()
	if string(text) != "^1.2" {
		t.Errorf("MarshalText() = %q, want %q", text, "^1.2")
	}
	if err := r.UnmarshalText([]byte("^^^")); err == nil {
		t.Error("UnmarshalText(^^^) error = nil, want error")
	}
}
