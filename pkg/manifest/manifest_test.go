package manifest

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/semver"
)

const jsonManifest = `{
  "name": "lib-a",
  "target": "//:lib-a",
  "dependencies": {
    "github+org/lib-b": "^1.0",
    "org/lib-c": "2.1.0"
  }
}`

const tomlManifest = `
name = "lib-a"
target = "//:lib-a"

[dependencies]
"github+org/lib-b" = "^1.0"
"org/lib-c" = "2.1.0"
`

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"json", JSONFile, jsonManifest},
		{"toml", TOMLFile, tomlManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.file, []byte(tt.data), "github")
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if m.Name != "lib-a" || m.Target != "//:lib-a" {
				t.Errorf("name/target = %q/%q", m.Name, m.Target)
			}
			want := []recipe.Dependency{
				{Identifier: recipe.MustRecipeIdentifier("github", "org", "lib-b"), Range: semver.MustParseRange("^1.0")},
				{Identifier: recipe.MustRecipeIdentifier("github", "org", "lib-c"), Range: semver.MustParseRange("2.1.0")},
			}
			if len(m.Dependencies) != len(want) {
				t.Fatalf("got %d dependencies, want %d", len(m.Dependencies), len(want))
			}
			for i := range want {
				if m.Dependencies[i].String() != want[i].String() {
					t.Errorf("dependency %d = %s, want %s", i, m.Dependencies[i], want[i])
				}
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	m, err := Parse("/work/project/"+TOMLFile, []byte(`target = "//:app"`), "github")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Target != "//:app" {
		t.Errorf("target = %q", m.Target)
	}
}

func TestParseEmpty(t *testing.T) {
	m, err := ParseJSON([]byte(`{}`), "github")
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if m.Target != "" || len(m.Dependencies) != 0 {
		t.Errorf("empty manifest = %+v", m)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"bad json", JSONFile, `{`},
		{"unknown json field", JSONFile, `{"tagret": "x"}`},
		{"bad toml", TOMLFile, `name = `},
		{"unknown toml key", TOMLFile, `tagret = "x"`},
		{"bad range", JSONFile, `{"dependencies": {"org/lib": "banana"}}`},
		{"unsupported", "buckaroo.yaml", `name: x`},
		{"hidden", "/work/.buckaroo.json", `{}`},
		{"no name", "", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.file, []byte(tt.data), "github")
			if err == nil {
				t.Fatal("expected error")
			}
			if code := errors.GetCode(err); code != errors.ErrCodeInvalidManifest && code != errors.ErrCodeInvalidRange {
				t.Errorf("code = %s, want invalid manifest or range", code)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	m, err := ParseJSON([]byte(jsonManifest), "github")
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseJSON(data, "")
	if err != nil {
		t.Fatalf("ParseJSON(%s): %v", data, err)
	}
	if len(back.Dependencies) != 2 || back.Dependencies[1].Identifier.Source != "github" {
		t.Errorf("round trip lost sources: %s", data)
	}
}
