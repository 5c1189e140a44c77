package backstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories enumerates the Store implementations under test.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"local": func(t *testing.T) Store {
			s, err := NewLocalStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_PutOpenDelete(t *testing.T) {
	ctx := context.Background()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)

			data := []byte("snapshot payload")
			require.NoError(t, store.Put(ctx, "m/1.snap", data))

			blob, err := store.Open(ctx, "m/1.snap")
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), blob.Size())

			got, err := ReadAll(blob)
			require.NoError(t, err)
			assert.Equal(t, data, got)
			require.NoError(t, blob.Close())

			require.NoError(t, store.Delete(ctx, "m/1.snap"))
			_, err = store.Open(ctx, "m/1.snap")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutReplaces(t *testing.T) {
	ctx := context.Background()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)

			require.NoError(t, store.Put(ctx, "a.snap", []byte("old")))
			require.NoError(t, store.Put(ctx, "a.snap", []byte("new content")))

			blob, err := store.Open(ctx, "a.snap")
			require.NoError(t, err)
			defer blob.Close()

			got, err := ReadAll(blob)
			require.NoError(t, err)
			assert.Equal(t, []byte("new content"), got)
		})
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)

			require.NoError(t, store.Put(ctx, "x/1.snap", []byte("1")))
			require.NoError(t, store.Put(ctx, "x/2.snap", []byte("2")))
			require.NoError(t, store.Put(ctx, "y/1.snap", []byte("3")))

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"x/1.snap", "x/2.snap", "y/1.snap"}, all)

			xs, err := store.List(ctx, "x/")
			require.NoError(t, err)
			assert.Equal(t, []string{"x/1.snap", "x/2.snap"}, xs)
		})
	}
}

func TestStore_DeleteMissing(t *testing.T) {
	ctx := context.Background()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			assert.NoError(t, store.Delete(ctx, "nope.snap"))
		})
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte{1, 2, 3}
	require.NoError(t, store.Put(ctx, "iso.snap", data))

	// Mutating the caller's buffer must not change the stored blob.
	data[0] = 99

	blob, err := store.Open(ctx, "iso.snap")
	require.NoError(t, err)
	defer blob.Close()

	got, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, 1, store.Len())
}
