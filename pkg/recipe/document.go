package recipe

import (
	"encoding/json"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/integrations"
	"github.com/matzehuels/buckaroo/pkg/semver"
)

// SourceDocument is the serialized form of a [Source]. A non-empty Commit
// selects the git branch, otherwise the document is an archive.
type SourceDocument struct {
	URL     string `json:"url" toml:"url"`
	Commit  string `json:"commit,omitempty" toml:"commit,omitempty"`
	SHA256  string `json:"sha256,omitempty" toml:"sha256,omitempty"`
	SubPath string `json:"subPath,omitempty" toml:"subPath,omitempty"`
}

// FileDocument is the serialized form of a [RemoteFile].
type FileDocument struct {
	URL    string `json:"url" toml:"url"`
	SHA256 string `json:"sha256" toml:"sha256"`
}

// VersionDocument is the serialized form of a [RecipeVersion].
type VersionDocument struct {
	Source       SourceDocument    `json:"source" toml:"source"`
	Target       string            `json:"target,omitempty" toml:"target,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty" toml:"dependencies,omitempty"`
	Buck         *FileDocument     `json:"buck,omitempty" toml:"buck,omitempty"`
}

// Document is the on-disk recipe format used by cookbooks and the recipe
// metadata cache. Version keys are version strings.
type Document struct {
	Name     string                     `json:"name" toml:"name"`
	URL      string                     `json:"url" toml:"url"`
	Versions map[string]VersionDocument `json:"versions" toml:"versions"`
}

// Recipe converts the document into a [Recipe]. Partial dependency
// identifiers are completed with source. Version keys that are not versions
// are rejected.
func (d Document) Recipe(source Identifier) (Recipe, error) {
	r := Recipe{Name: d.Name, URL: d.URL, Versions: make(map[semver.Version]RecipeVersion, len(d.Versions))}
	for key, vd := range d.Versions {
		v, ok := semver.Parse(key)
		if !ok {
			return Recipe{}, errors.New(errors.ErrCodeInvalidRecipe, "recipe %s: %q is not a version", d.Name, key)
		}
		rv, err := vd.RecipeVersion(source)
		if err != nil {
			return Recipe{}, errors.Wrap(errors.ErrCodeInvalidRecipe, err, "recipe %s version %s", d.Name, key)
		}
		r.Versions[v] = rv
	}
	return r, nil
}

// RecipeVersion converts the document into a [RecipeVersion]. Git URLs are
// normalized to their https form; archive and buck file URLs must be http
// or https.
func (d VersionDocument) RecipeVersion(source Identifier) (RecipeVersion, error) {
	if d.Source.URL == "" {
		return RecipeVersion{}, errors.New(errors.ErrCodeInvalidRecipe, "source url is required")
	}
	rv := RecipeVersion{Target: d.Target}
	if d.Source.Commit != "" {
		rv.Source = FromCommit(GitCommit{URL: integrations.NormalizeRepoURL(d.Source.URL), Commit: d.Source.Commit})
	} else {
		if err := errors.ValidateURL(d.Source.URL); err != nil {
			return RecipeVersion{}, errors.Wrap(errors.ErrCodeInvalidRecipe, err, "source %s", d.Source.URL)
		}
		rv.Source = FromArchive(RemoteArchive{URL: d.Source.URL, SHA256: d.Source.SHA256, SubPath: d.Source.SubPath})
	}
	if d.Buck != nil {
		if err := errors.ValidateURL(d.Buck.URL); err != nil {
			return RecipeVersion{}, errors.Wrap(errors.ErrCodeInvalidRecipe, err, "buck file %s", d.Buck.URL)
		}
		rv.Buck = &RemoteFile{URL: d.Buck.URL, SHA256: d.Buck.SHA256}
	}
	deps, err := DependencyGroup(d.Dependencies, source)
	if err != nil {
		return RecipeVersion{}, err
	}
	rv.Dependencies = deps
	return rv, nil
}

// Document returns the serialized form of r.
func (r Recipe) Document() Document {
	d := Document{Name: r.Name, URL: r.URL, Versions: make(map[string]VersionDocument, len(r.Versions))}
	for v, rv := range r.Versions {
		d.Versions[v.String()] = rv.Document()
	}
	return d
}

// Document returns the serialized form of v.
func (v RecipeVersion) Document() VersionDocument {
	d := VersionDocument{Target: v.Target, Dependencies: dependencyMap(v.Dependencies)}
	if c, ok := v.Source.Commit(); ok {
		d.Source = SourceDocument{URL: c.URL, Commit: c.Commit}
	}
	if a, ok := v.Source.Archive(); ok {
		d.Source = SourceDocument{URL: a.URL, SHA256: a.SHA256, SubPath: a.SubPath}
	}
	if v.Buck != nil {
		d.Buck = &FileDocument{URL: v.Buck.URL, SHA256: v.Buck.SHA256}
	}
	return d
}

// MarshalJSON implements json.Marshaler.
func (r Recipe) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}

// UnmarshalJSON implements json.Unmarshaler. Dependencies must carry a
// source tag.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := d.Recipe("")
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseJSON decodes a JSON recipe document.
func ParseJSON(data []byte, source Identifier) (Recipe, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Recipe{}, errors.Wrap(errors.ErrCodeInvalidRecipe, err, "decode recipe")
	}
	return d.Recipe(source)
}

// ParseTOML decodes a TOML recipe document.
func ParseTOML(data []byte, source Identifier) (Recipe, error) {
	var d Document
	if _, err := toml.Decode(string(data), &d); err != nil {
		return Recipe{}, errors.Wrap(errors.ErrCodeInvalidRecipe, err, "decode recipe")
	}
	return d.Recipe(source)
}
