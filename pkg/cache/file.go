package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// FileCache stores each entry as a JSON file holding the data and its
// expiry. Entries are written to a temporary file and renamed into place, so
// a concurrent reader sees either the old entry or the new one.
type FileCache struct {
	fs  afero.Fs
	dir string
}

// NewFileCache creates a file-based cache in the given directory on the
// host filesystem. The directory will be created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	return NewFileCacheFs(afero.NewOsFs(), dir)
}

// NewFileCacheFs creates a file-based cache rooted at dir on fs.
func NewFileCacheFs(fs afero.Fs, dir string) (*FileCache, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{fs: fs, dir: dir}, nil
}

type cacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a value from the cache.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := afero.ReadFile(c.fs, path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// corrupt entry
		_ = c.fs.Remove(path)
		return nil, false, nil
	}

	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = c.fs.Remove(path)
		return nil, false, nil
	}

	return entry.Data, true, nil
}

// Set stores a value in the cache.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	entry := cacheEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := c.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp-" + uuid.NewString()
	if err := afero.WriteFile(c.fs, tmp, entryData, 0o644); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	return nil
}

// Delete removes a value from the cache.
func (c *FileCache) Delete(_ context.Context, key string) error {
	err := c.fs.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every entry.
func (c *FileCache) Clear() error {
	if err := c.fs.RemoveAll(c.dir); err != nil {
		return err
	}
	return c.fs.MkdirAll(c.dir, 0o755)
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// path spreads entries over 256 subdirectories by hash prefix.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+".json")
}

var _ Cache = (*FileCache)(nil)
