package cache

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/errors"
)

// Kind is the expected content kind of an artifact. Its value is used as
// the file extension of the cached path.
type Kind string

const (
	// KindFile is a plain file.
	KindFile Kind = ""
	// KindZip is a zip archive.
	KindZip Kind = "zip"
)

// Filler writes the content of an artifact to w.
type Filler func(ctx context.Context, w io.Writer) error

// Artifacts is a content-addressed store of downloaded files.
//
// Entries are write-once: a path that exists is complete, because content is
// written to a temporary sibling and renamed into place only after the
// filler succeeds. A failed fill leaves nothing behind, so a later call
// retries it.
type Artifacts struct {
	fs  afero.Fs
	dir string

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is one in-progress fill shared by every caller waiting on the same
// path. It is cancelled only when all of its waiters have gone, and is then
// removed from the flight table so later callers start a fresh fill.
type flight struct {
	path    string
	done    chan struct{}
	err     error
	waiters int
	cancel  context.CancelFunc
}

// NewArtifacts returns a store rooted at dir on fs.
func NewArtifacts(fs afero.Fs, dir string) (*Artifacts, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create artifact directory %s", dir)
	}
	return &Artifacts{fs: fs, dir: dir, flights: make(map[string]*flight)}, nil
}

// Fs returns the filesystem the store writes to.
func (a *Artifacts) Fs() afero.Fs { return a.fs }

// Dir returns the store directory.
func (a *Artifacts) Dir() string { return a.dir }

// Path returns the local path for locator. It is a pure function of its
// inputs: <dir>/<sha256(locator)>[.kind].
func (a *Artifacts) Path(locator string, kind Kind) string {
	name := Hash([]byte(locator))
	if kind != KindFile {
		name += "." + string(kind)
	}
	return filepath.Join(a.dir, name)
}

// Exists reports whether the artifact for locator is present.
func (a *Artifacts) Exists(locator string, kind Kind) bool {
	ok, _ := afero.Exists(a.fs, a.Path(locator, kind))
	return ok
}

// Fetch returns the path of the artifact for locator, running fill to
// populate it if it is missing. cached reports whether the artifact was
// already present. Concurrent calls for the same path share a single fill;
// only the first caller's fill function is used.
//
// If ctx is cancelled, Fetch returns immediately. The shared fill keeps
// running while another caller still waits for it.
func (a *Artifacts) Fetch(ctx context.Context, locator string, kind Kind, fill Filler) (path string, cached bool, err error) {
	path = a.Path(locator, kind)
	if ok, _ := afero.Exists(a.fs, path); ok {
		return path, true, nil
	}

	a.mu.Lock()
	f, inFlight := a.flights[path]
	if !inFlight {
		// a fill may have finished since the check above
		if ok, _ := afero.Exists(a.fs, path); ok {
			a.mu.Unlock()
			return path, true, nil
		}
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{path: path, done: make(chan struct{}), cancel: cancel}
		a.flights[path] = f
		go a.run(fctx, f, path, fill)
	}
	f.waiters++
	a.mu.Unlock()

	select {
	case <-f.done:
		a.leave(f)
		if f.err != nil {
			return "", false, f.err
		}
		return path, false, nil
	case <-ctx.Done():
		a.leave(f)
		return "", false, ctx.Err()
	}
}

func (a *Artifacts) leave(f *flight) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f.waiters--
	if f.waiters == 0 {
		select {
		case <-f.done:
		default:
			f.cancel()
			if a.flights[f.path] == f {
				delete(a.flights, f.path)
			}
		}
	}
}

func (a *Artifacts) run(ctx context.Context, f *flight, path string, fill Filler) {
	err := a.populate(ctx, path, fill)
	f.cancel()

	a.mu.Lock()
	if a.flights[path] == f {
		delete(a.flights, path)
	}
	f.err = err
	close(f.done)
	a.mu.Unlock()
}

func (a *Artifacts) populate(ctx context.Context, path string, fill Filler) error {
	tmp := path + ".part-" + uuid.NewString()
	file, err := a.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", tmp)
	}

	fillErr := fill(ctx, file)
	closeErr := file.Close()
	if fillErr == nil {
		fillErr = closeErr
	}
	if fillErr == nil {
		fillErr = ctx.Err()
	}
	if fillErr != nil {
		_ = a.fs.Remove(tmp)
		return fillErr
	}

	if err := a.fs.Rename(tmp, path); err != nil {
		_ = a.fs.Remove(tmp)
		return errors.Wrap(errors.ErrCodeIO, err, "store %s", path)
	}
	return nil
}

// Clear removes every artifact.
func (a *Artifacts) Clear() error {
	if err := a.fs.RemoveAll(a.dir); err != nil {
		return err
	}
	return a.fs.MkdirAll(a.dir, 0o755)
}
