package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileStore keeps the posted ids as a JSON array of strings, most recent last.
type FileStore struct {
	filePath string
	capacity int
	lock     *flock.Flock
}

func NewFileStore(filePath string, capacity int) *FileStore {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &FileStore{
		filePath: filePath,
		capacity: capacity,
		lock:     flock.New(filePath + ".lock"),
	}
}

func (fs *FileStore) Path() string {
	return fs.filePath
}

// Lock takes an advisory lock on a sibling ".lock" file. The kernel drops
// the lock when the process exits, so a file left behind by a crashed run
// does not block the next one.
func (fs *FileStore) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(fs.filePath), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	ok, err := fs.lock.TryLock()
	if err != nil {
		return fmt.Errorf("taking lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, fs.lock.Path())
	}
	return nil
}

// Unlock releases the lock. The lock file stays on disk.
func (fs *FileStore) Unlock() error {
	if err := fs.lock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

// Load reads the store. A missing or empty file is an empty set without error;
// unreadable or undecodable files yield an empty set and an error.
func (fs *FileStore) Load(ctx context.Context) (*PostedSet, error) {
	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewPostedSet(), nil
		}
		return NewPostedSet(), fmt.Errorf("reading %s: %w", fs.filePath, err)
	}

	if len(data) == 0 {
		return NewPostedSet(), nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return NewPostedSet(), fmt.Errorf("%w: %s: %v", ErrCorrupt, fs.filePath, err)
	}

	return NewPostedSet(ids...), nil
}

// Save trims the set to the store capacity and replaces the file atomically.
func (fs *FileStore) Save(ctx context.Context, set *PostedSet) error {
	set.Trim(fs.capacity)

	data, err := json.Marshal(set.IDs())
	if err != nil {
		return fmt.Errorf("marshalling posted ids: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fs.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, fs.filePath); err != nil {
		return fmt.Errorf("replacing %s: %w", fs.filePath, err)
	}

	return nil
}

func (fs *FileStore) Close() error {
	return fs.Unlock()
}
