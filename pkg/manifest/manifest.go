// Package manifest reads package manifests: the buckaroo.json or
// buckaroo.toml file at the root of every package, declaring its build
// target and the packages it depends on.
package manifest

import (
	"bytes"
	"encoding/json"
	"path"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/recipe"
)

// Manifest file names, in lookup order.
const (
	JSONFile = "buckaroo.json"
	TOMLFile = "buckaroo.toml"
)

// Files lists the recognised manifest names in lookup order.
var Files = []string{JSONFile, TOMLFile}

// Manifest is a parsed package manifest.
type Manifest struct {
	Name         string
	Target       string
	Dependencies []recipe.Dependency
}

type document struct {
	Name         string            `json:"name,omitempty" toml:"name,omitempty"`
	Target       string            `json:"target,omitempty" toml:"target,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty" toml:"dependencies,omitempty"`
}

func (d document) manifest(source recipe.Identifier) (Manifest, error) {
	deps, err := recipe.DependencyGroup(d.Dependencies, source)
	if err != nil {
		return Manifest{}, err
	}
	return Manifest{Name: d.Name, Target: d.Target, Dependencies: deps}, nil
}

// ParseJSON decodes a JSON manifest. Dependencies without a source tag are
// completed with source. Unknown fields are rejected.
func ParseJSON(data []byte, source recipe.Identifier) (Manifest, error) {
	var d document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Manifest{}, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode manifest")
	}
	return d.manifest(source)
}

// ParseTOML decodes a TOML manifest. Dependencies without a source tag are
// completed with source. Unknown keys are rejected.
func ParseTOML(data []byte, source recipe.Identifier) (Manifest, error) {
	var d document
	md, err := toml.Decode(string(data), &d)
	if err != nil {
		return Manifest{}, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode manifest")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Manifest{}, errors.New(errors.ErrCodeInvalidManifest, "unknown manifest key %q", undecoded[0].String())
	}
	return d.manifest(source)
}

// Parse decodes data according to the extension of name. Hidden files are
// not manifests.
func Parse(name string, data []byte, source recipe.Identifier) (Manifest, error) {
	if err := errors.ValidateManifestFilename(path.Base(name)); err != nil {
		return Manifest{}, err
	}
	switch path.Ext(name) {
	case ".json":
		return ParseJSON(data, source)
	case ".toml":
		return ParseTOML(data, source)
	default:
		return Manifest{}, errors.New(errors.ErrCodeInvalidManifest, "unsupported manifest file %s", name)
	}
}

// MarshalJSON encodes the manifest in its file form.
func (m Manifest) MarshalJSON() ([]byte, error) {
	d := document{Name: m.Name, Target: m.Target}
	if len(m.Dependencies) > 0 {
		d.Dependencies = make(map[string]string, len(m.Dependencies))
		for _, dep := range m.Dependencies {
			d.Dependencies[dep.Identifier.String()] = dep.Range.String()
		}
	}
	return json.Marshal(d)
}
