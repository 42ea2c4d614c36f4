package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/velmie/tillsync"
)

const (
	fileSuffix = ".json"
	tmpSuffix  = ".tmp"
	filePerm   = 0o600
	dirPerm    = 0o700
)

var (
	// ErrDirRequired is returned when the directory is empty.
	ErrDirRequired = errors.New("tillsync filestore: directory is required")
	// ErrKeyRequired is returned when an empty key is used.
	ErrKeyRequired = errors.New("tillsync filestore: key is required")
)

// Store implements tillsync.KV on a directory of files.
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ tillsync.KV = (*Store)(nil)

// New creates dir if needed and returns a store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, ErrDirRequired
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("tillsync filestore: create %q: %w", dir, err)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file holding key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+fileSuffix)
}

// Get implements tillsync.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, tillsync.ErrKeyNotFound
		}

		return nil, fmt.Errorf("tillsync filestore: read %q: %w", key, err)
	}

	return data, nil
}

// Put implements tillsync.KV.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrKeyRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.Path(key), value); err != nil {
		return fmt.Errorf("tillsync filestore: write %q: %w", key, err)
	}

	return nil
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //nolint:gosec // path is built from the store directory
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return syncDir(filepath.Dir(path))
}

func syncDir(path string) error {
	d, err := os.Open(path) //nolint:gosec // store directory
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	return d.Sync()
}
