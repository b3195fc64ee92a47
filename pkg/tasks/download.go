package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/process"
)

// Downloader streams a remote resource. integrations.Client implements it.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer, progress func(written, total int64)) error
}

// LimitDownloads returns d with every transfer holding one slot of pool.
// Callers waiting on a shared [CachedDownload] hold no slot; only the
// transfer itself does. A nil pool does not limit.
func LimitDownloads(pool *process.Pool, d Downloader) Downloader {
	if pool == nil {
		return d
	}
	return limitedDownloader{pool: pool, d: d}
}

type limitedDownloader struct {
	pool *process.Pool
	d    Downloader
}

func (l limitedDownloader) Download(ctx context.Context, url string, w io.Writer, progress func(written, total int64)) error {
	transfer := func(ctx context.Context, _ process.Emitter) (struct{}, error) {
		return struct{}{}, l.d.Download(ctx, url, w, progress)
	}
	_, err := process.Limit(l.pool, transfer).Run(ctx, nil)
	return err
}

// Download streams url to path on fs. An existing file is kept unless
// overwrite is set. The file appears only once it is complete.
func Download(fs afero.Fs, d Downloader, url, path string, overwrite bool) process.Process[struct{}] {
	return func(ctx context.Context, emit process.Emitter) (struct{}, error) {
		if !overwrite {
			if ok, _ := afero.Exists(fs, path); ok {
				emit(event.FileDownloaded{URL: url, Path: path, Cached: true})
				return struct{}{}, nil
			}
		}
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return struct{}{}, errors.Wrap(errors.ErrCodeIO, err, "create %s", filepath.Dir(path))
		}

		tmp := path + ".part-" + uuid.NewString()
		f, err := fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return struct{}{}, errors.Wrap(errors.ErrCodeIO, err, "create %s", tmp)
		}
		err = d.Download(ctx, url, f, progressEmitter(emit, url, path))
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			err = fs.Rename(tmp, path)
		}
		if err != nil {
			_ = fs.Remove(tmp)
			return struct{}{}, fmt.Errorf("download %s: %w", url, err)
		}
		emit(event.FileDownloaded{URL: url, Path: path})
		return struct{}{}, nil
	}
}

// CachedDownload fetches url into the artifact store and returns its path.
// Concurrent downloads of the same url share one transfer; only the caller
// that started it receives progress events.
func CachedDownload(store *cache.Artifacts, d Downloader, url string, kind cache.Kind) process.Process[string] {
	return func(ctx context.Context, emit process.Emitter) (string, error) {
		target := store.Path(url, kind)

		// the fill may outlive this call when other callers share it
		guarded, stop := process.Detach(emit)
		defer stop()

		path, cached, err := store.Fetch(ctx, url, kind, func(ctx context.Context, w io.Writer) error {
			return d.Download(ctx, url, w, progressEmitter(guarded, url, target))
		})
		if err != nil {
			return "", fmt.Errorf("download %s: %w", url, err)
		}
		emit(event.FileDownloaded{URL: url, Path: path, Cached: cached})
		return path, nil
	}
}

func progressEmitter(emit process.Emitter, url, path string) func(written, total int64) {
	return func(written, total int64) {
		emit(event.DownloadProgress{URL: url, Path: path, Downloaded: written, Total: total})
	}
}
