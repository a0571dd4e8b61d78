package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsig/vaultsig/errors"
)

// runStoreSuite exercises the KVStore contract every implementation must
// satisfy.
func runStoreSuite(t *testing.T, kv KVStore) {
	t.Helper()

	// Absent key.
	val, err := kv.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, val)

	ok, err := kv.Has([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Set, get, overwrite.
	require.NoError(t, kv.Set([]byte("a"), []byte("1")))
	require.NoError(t, kv.Set([]byte("b"), []byte("2")))
	require.NoError(t, kv.Set([]byte("c"), []byte("3")))

	val, err = kv.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), val)

	require.NoError(t, kv.Set([]byte("b"), []byte("22")))
	val, err = kv.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("22"), val)

	// Delete, including an absent key.
	require.NoError(t, kv.Delete([]byte("c")))
	require.NoError(t, kv.Delete([]byte("never-existed")))
	ok, err = kv.Has([]byte("c"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Range iteration in ascending key order.
	require.NoError(t, kv.Set([]byte("d"), []byte("4")))
	it, err := kv.Iterator([]byte("a"), []byte("d"))
	require.NoError(t, err)
	defer it.Release()

	var keys []string
	for {
		key, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		require.NoError(t, err)
		keys = append(keys, string(key))
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestMemStore(t *testing.T) {
	runStoreSuite(t, NewMemStore())
}

func TestBadgerStore(t *testing.T) {
	kv, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	runStoreSuite(t, kv)
}

func TestPrefixRange(t *testing.T) {
	start, end := PrefixRange([]byte("tx:"))
	assert.Equal(t, []byte("tx:"), start)
	assert.Equal(t, []byte("tx;"), end)

	start, end = PrefixRange(nil)
	assert.Nil(t, start)
	assert.Nil(t, end)

	start, end = PrefixRange([]byte{0xFF, 0xFF})
	assert.Equal(t, []byte{0xFF, 0xFF}, start)
	assert.Nil(t, end)
}

func TestMemStoreIteratorIsSnapshot(t *testing.T) {
	kv := NewMemStore()
	require.NoError(t, kv.Set([]byte("a"), []byte("1")))

	it, err := kv.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Release()

	// A write after iterator creation must not be observed.
	require.NoError(t, kv.Set([]byte("b"), []byte("2")))

	var n int
	for {
		_, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 1, n)
}
