package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// File stores one file per key in a directory. It is the default backend and
// the one the map renderer uses, since a map is handed out as a file path.
type File struct {
	dir string
	ext string
	ttl time.Duration
}

// FileOption configures a File cache.
type FileOption func(*File)

// WithFileTTL expires entries older than ttl based on file modification time.
func WithFileTTL(ttl time.Duration) FileOption {
	return func(f *File) {
		f.ttl = ttl
	}
}

// NewFile creates the directory if needed and returns a File cache whose
// entries are named "{key}{ext}".
func NewFile(dir, ext string, opts ...FileOption) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}
	f := &File{dir: dir, ext: ext}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Path returns the file path backing key.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, SafeKey(key)+f.ext)
}

// Exists reports whether a live entry is stored under key.
func (f *File) Exists(key string) bool {
	info, err := os.Stat(f.Path(key))
	if err != nil {
		return false
	}
	return !info.IsDir() && !expired(info.ModTime(), f.ttl)
}

// Get implements Cache.
func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := f.Path(key)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: stat %s", path)
	}
	if expired(info.ModTime(), f.ttl) {
		zap.L().Debug("file cache entry expired", zap.String("path", path))
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: read %s", path)
	}
	return data, true, nil
}

// Put implements Cache. The value is written to a temp file and renamed into
// place so readers never see a partial entry.
func (f *File) Put(_ context.Context, key string, value []byte) error {
	path := f.Path(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "cache: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "cache: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "cache: rename %s", path)
	}
	return nil
}
