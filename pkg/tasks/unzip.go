package tasks

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/process"
)

// maxEntrySize caps the uncompressed size of a single archive entry.
const maxEntrySize = 512 << 20

// Unzip extracts the zip archive at archive on src into target on dst and
// returns the number of files written. If subPath is not empty, only
// entries below that directory are extracted, with the prefix removed; an
// archive without it is an error. Entries that would escape target are
// rejected.
func Unzip(src afero.Fs, archive string, dst afero.Fs, target, subPath string) process.Process[int] {
	return func(ctx context.Context, emit process.Emitter) (int, error) {
		f, err := src.Open(archive)
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeIO, err, "open %s", archive)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeIO, err, "stat %s", archive)
		}
		zr, err := zip.NewReader(f, info.Size())
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeExtract, err, "read archive %s", archive)
		}

		prefix := strings.Trim(subPath, "/")
		if prefix != "" {
			prefix += "/"
		}
		if err := dst.MkdirAll(target, 0o755); err != nil {
			return 0, errors.Wrap(errors.ErrCodeIO, err, "create %s", target)
		}

		files, matched := 0, prefix == ""
		for _, entry := range zr.File {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			if err := errors.ValidateArchiveEntry(entry.Name); err != nil {
				return 0, err
			}
			name, ok := strings.CutPrefix(entry.Name, prefix)
			if !ok {
				continue
			}
			matched = true
			if name == "" {
				continue
			}

			out := path.Join(target, name)
			if entry.FileInfo().IsDir() {
				if err := dst.MkdirAll(out, 0o755); err != nil {
					return 0, errors.Wrap(errors.ErrCodeIO, err, "create %s", out)
				}
				continue
			}
			if err := extract(entry, dst, out); err != nil {
				return 0, err
			}
			files++
		}
		if !matched {
			return 0, errors.New(errors.ErrCodeExtract, "archive %s has no entries below %s", archive, subPath)
		}

		emit(event.ArchiveExtracted{Archive: archive, Target: target, SubPath: subPath, Files: files})
		return files, nil
	}
}

func extract(entry *zip.File, dst afero.Fs, out string) error {
	if err := dst.MkdirAll(path.Dir(out), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path.Dir(out))
	}
	r, err := entry.Open()
	if err != nil {
		return errors.Wrap(errors.ErrCodeExtract, err, "open entry %s", entry.Name)
	}
	defer r.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	w, err := dst.OpenFile(out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", out)
	}
	n, err := io.Copy(w, io.LimitReader(r, maxEntrySize+1))
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeExtract, err, "extract %s", entry.Name)
	}
	if n > maxEntrySize {
		return errors.New(errors.ErrCodeExtract, "entry %s exceeds %d bytes", entry.Name, maxEntrySize)
	}
	return nil
}
