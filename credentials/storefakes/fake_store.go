package storefakes

import (
	"sync"

	"github.com/jrsteele09/go-lms-client/credentials"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credentials.Store for tests.
type FakeStore struct {
	tokens map[credentials.Kind]string
	lock   sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		tokens: make(map[credentials.Kind]string),
	}
}

func (fs *FakeStore) Get(kind credentials.Kind) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	token, ok := fs.tokens[kind]
	if !ok || token == "" {
		return "", credentials.ErrNotFound
	}
	return token, nil
}

func (fs *FakeStore) Set(kind credentials.Kind, token string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.tokens[kind] = token
	return nil
}

func (fs *FakeStore) Clear(kind credentials.Kind) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.tokens, kind)
	return nil
}

func (fs *FakeStore) ClearAll() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.tokens = make(map[credentials.Kind]string)
	return nil
}
