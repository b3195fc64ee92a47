package tasks

import (
	"context"
	"path"

	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/manifest"
	"github.com/matzehuels/buckaroo/pkg/process"
	"github.com/matzehuels/buckaroo/pkg/recipe"
)

// ReadManifestFile parses the manifest at file. Dependencies without a
// source tag are completed with source.
func ReadManifestFile(fs afero.Fs, file string, source recipe.Identifier) process.Process[manifest.Manifest] {
	return func(ctx context.Context, emit process.Emitter) (manifest.Manifest, error) {
		data, err := afero.ReadFile(fs, file)
		if err != nil {
			return manifest.Manifest{}, errors.Wrap(errors.ErrCodeIO, err, "read %s", file)
		}
		m, err := manifest.Parse(file, data, source)
		if err != nil {
			return manifest.Manifest{}, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s", file)
		}
		emit(event.ManifestRead{Path: file})
		return m, nil
	}
}

// ReadManifest reads the first manifest found in dir, trying the names in
// [manifest.Files] in order.
func ReadManifest(fs afero.Fs, dir string, source recipe.Identifier) process.Process[manifest.Manifest] {
	return func(ctx context.Context, emit process.Emitter) (manifest.Manifest, error) {
		for _, name := range manifest.Files {
			file := path.Join(dir, name)
			if ok, _ := afero.Exists(fs, file); ok {
				return ReadManifestFile(fs, file, source)(ctx, emit)
			}
		}
		return manifest.Manifest{}, errors.New(errors.ErrCodeInvalidManifest, "no manifest in %s", dir)
	}
}
