package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var _ Store = (*FileStore)(nil)

// FileStore is a durable Store backed by a single JSON file, typically
// ~/.config/lms/credentials.json. The file holds nothing but the two opaque
// token strings and is written with owner-only permissions.
type FileStore struct {
	path   string
	lock   sync.RWMutex
	tokens map[Kind]string
}

// NewFileStore loads (or lazily creates) the credential file at path.
// A missing file is an empty store, not an error.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		tokens: make(map[Kind]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] read credential file")
	}
	if len(data) == 0 {
		return fs, nil
	}
	if err := json.Unmarshal(data, &fs.tokens); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] decode credential file")
	}
	return fs, nil
}

func (fs *FileStore) Get(kind Kind) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	token, ok := fs.tokens[kind]
	if !ok || token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

func (fs *FileStore) Set(kind Kind, token string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.tokens[kind] = token
	return fs.persist()
}

func (fs *FileStore) Clear(kind Kind) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if _, ok := fs.tokens[kind]; !ok {
		return nil
	}
	delete(fs.tokens, kind)
	return fs.persist()
}

func (fs *FileStore) ClearAll() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.tokens = make(map[Kind]string)
	return fs.persist()
}

// persist writes the token map atomically: a rename can never leave a
// half-written file behind for the next process start to choke on.
// Callers must hold the write lock.
func (fs *FileStore) persist() error {
	data, err := json.Marshal(fs.tokens)
	if err != nil {
		return errors.Wrap(err, "[FileStore.persist] encode tokens")
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.persist] create credential directory")
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errors.Wrap(err, "[FileStore.persist] create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.persist] chmod temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.persist] write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileStore.persist] close temp file")
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return errors.Wrap(err, "[FileStore.persist] rename temp file")
	}
	return nil
}
