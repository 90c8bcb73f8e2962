package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const storeFileName = "client_store.json"

var _ Store = (*FileStore)(nil)

// FileStore persists key-value pairs as a single JSON file under the data
// folder. Every Set/Delete rewrites the whole file; the data volume here is
// two small JSON blobs, so this is fine.
type FileStore struct {
	path   string
	lock   sync.Mutex
	values map[string]string
}

// NewFileStore creates a file-backed store rooted at dataFolder, loading any
// previously persisted values.
func NewFileStore(dataFolder string) (*FileStore, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, fmt.Errorf("[NewFileStore] os.MkdirAll: %w", err)
	}

	fs := &FileStore{
		path:   filepath.Join(dataFolder, storeFileName),
		values: make(map[string]string),
	}

	raw, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[NewFileStore] os.ReadFile: %w", err)
	}
	if err := json.Unmarshal(raw, &fs.values); err != nil {
		return nil, fmt.Errorf("[NewFileStore] corrupt store file %s: %w", fs.path, err)
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) (string, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	value, ok := fs.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.values[key] = value
	return fs.flush()
}

func (fs *FileStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.values, key)
	return fs.flush()
}

// flush writes via a temp file and rename so a crash mid-write cannot leave a
// truncated store behind. Caller must hold the lock.
func (fs *FileStore) flush() error {
	raw, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStore.flush] json.Marshal: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("[FileStore.flush] os.WriteFile: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("[FileStore.flush] os.Rename: %w", err)
	}
	return nil
}
