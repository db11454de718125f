package credentials_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-lms-client/credentials"
)

func newTestStore(t *testing.T) (*credentials.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)
	return store, path
}

func TestFileStoreSetGetClear(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(credentials.KindAccess)
	require.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, store.Set(credentials.KindAccess, "access-token"))
	require.NoError(t, store.Set(credentials.KindRefresh, "refresh-token"))

	access, err := store.Get(credentials.KindAccess)
	require.NoError(t, err)
	require.Equal(t, "access-token", access)

	require.NoError(t, store.Clear(credentials.KindAccess))
	_, err = store.Get(credentials.KindAccess)
	require.ErrorIs(t, err, credentials.ErrNotFound)

	// Refresh token untouched by clearing access.
	refresh, err := store.Get(credentials.KindRefresh)
	require.NoError(t, err)
	require.Equal(t, "refresh-token", refresh)
}

func TestFileStoreClearAll(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Set(credentials.KindAccess, "a"))
	require.NoError(t, store.Set(credentials.KindRefresh, "r"))
	require.NoError(t, store.ClearAll())

	_, err := store.Get(credentials.KindAccess)
	require.ErrorIs(t, err, credentials.ErrNotFound)
	_, err = store.Get(credentials.KindRefresh)
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	store, path := newTestStore(t)

	require.NoError(t, store.Set(credentials.KindAccess, "persisted-access"))
	require.NoError(t, store.Set(credentials.KindRefresh, "persisted-refresh"))

	reopened, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	access, err := reopened.Get(credentials.KindAccess)
	require.NoError(t, err)
	require.Equal(t, "persisted-access", access)

	refresh, err := reopened.Get(credentials.KindRefresh)
	require.NoError(t, err)
	require.Equal(t, "persisted-refresh", refresh)
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "credentials.json")
	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Get(credentials.KindRefresh)
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestFileStoreConcurrentReaders(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Set(credentials.KindAccess, "shared"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := store.Get(credentials.KindAccess)
			require.NoError(t, err)
			require.Equal(t, "shared", token)
		}()
	}
	wg.Wait()
}
