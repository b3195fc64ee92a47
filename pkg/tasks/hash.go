package tasks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/process"
)

// Hash computes the hex SHA-256 digest of the file at path.
func Hash(fs afero.Fs, path string) process.Process[string] {
	return func(ctx context.Context, emit process.Emitter) (string, error) {
		f, err := fs.Open(path)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
		}
		defer f.Close()

		h := sha256.New()
		if _, err := io.Copy(h, contextReader{ctx, f}); err != nil {
			return "", errors.Wrap(errors.ErrCodeIO, err, "hash %s", path)
		}
		sum := hex.EncodeToString(h.Sum(nil))
		emit(event.FileHashed{Path: path, SHA256: sum})
		return sum, nil
	}
}

// Verify fails unless the file at path has the given SHA-256 digest.
func Verify(fs afero.Fs, path, want string) process.Process[string] {
	return process.Chain(Hash(fs, path), func(got string) process.Process[string] {
		if got != want {
			return process.Error[string](errors.New(errors.ErrCodeIO, "%s: sha256 %s does not match expected %s", path, got, want))
		}
		return process.Just(got)
	})
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
