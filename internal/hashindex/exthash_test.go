package hashindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// identityHash lets tests pick exact bit patterns for keys instead of
// depending on a real hash function's distribution.
func identityHash(k int) uint64 { return uint64(k) }

func TestExtendibleHashTable_FindMissingKey(t *testing.T) {
	table := New[int, string](2, identityHash)
	_, ok := table.Find(42)
	require.False(t, ok)
}

func TestExtendibleHashTable_InsertAndFind(t *testing.T) {
	table := New[int, string](2, identityHash)

	require.NoError(t, table.Insert(1, "a"))
	require.NoError(t, table.Insert(2, "b"))

	v, ok := table.Find(1)
	require.True(t, ok)
	require.Equal(t, "a", v)

	v, ok = table.Find(2)
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestExtendibleHashTable_InsertOverwritesExistingKey(t *testing.T) {
	table := New[int, string](2, identityHash)

	require.NoError(t, table.Insert(1, "a"))
	require.NoError(t, table.Insert(1, "a2"))

	v, ok := table.Find(1)
	require.True(t, ok)
	require.Equal(t, "a2", v)
	require.Equal(t, 1, table.NumBuckets())
}

func TestExtendibleHashTable_SplitGrowsDirectoryAndLocalDepth(t *testing.T) {
	// bucket size 2: keys 0 and 2 both land in bucket index 0 at depth 0
	// (identityHash & mask); a third colliding key forces a split.
	table := New[int, string](2, identityHash)

	require.NoError(t, table.Insert(0, "v0"))
	require.NoError(t, table.Insert(2, "v2")) // same low bit as 0 -> same bucket, now full
	require.Equal(t, 0, table.GlobalDepth())
	require.Equal(t, 1, table.NumBuckets())

	require.NoError(t, table.Insert(4, "v4")) // forces global depth to grow and bucket to split

	require.GreaterOrEqual(t, table.GlobalDepth(), 1)
	require.GreaterOrEqual(t, table.NumBuckets(), 2)
	require.GreaterOrEqual(t, table.LocalDepth(0), 1)

	for k, want := range map[int]string{0: "v0", 2: "v2", 4: "v4"} {
		v, ok := table.Find(k)
		require.True(t, ok, "key %d should still be found after split", k)
		require.Equal(t, want, v)
	}
}

func TestExtendibleHashTable_RemoveDoesNotMergeBuckets(t *testing.T) {
	table := New[int, string](2, identityHash)
	require.NoError(t, table.Insert(0, "v0"))
	require.NoError(t, table.Insert(2, "v2"))
	require.NoError(t, table.Insert(4, "v4")) // triggers a split

	bucketsAfterSplit := table.NumBuckets()
	require.True(t, table.Remove(4))
	require.Equal(t, bucketsAfterSplit, table.NumBuckets(), "removal must never merge buckets")

	_, ok := table.Find(4)
	require.False(t, ok)

	// The others are untouched.
	v, ok := table.Find(0)
	require.True(t, ok)
	require.Equal(t, "v0", v)
}

func TestExtendibleHashTable_RemoveMissingKeyReturnsFalse(t *testing.T) {
	table := New[int, string](2, identityHash)
	require.NoError(t, table.Insert(1, "a"))
	require.False(t, table.Remove(999))
}

func TestExtendibleHashTable_ManyKeysRoundTrip(t *testing.T) {
	table := New[int, int](2, func(k int) uint64 { return uint64(k) * 2654435761 })

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, table.Insert(i, i*i))
	}
	for i := 0; i < n; i++ {
		v, ok := table.Find(i)
		require.True(t, ok)
		require.Equal(t, i*i, v)
	}
}
