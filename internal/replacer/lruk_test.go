package replacer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUK_EvictsInfiniteDistanceFirst(t *testing.T) {
	r := NewLRUK(5, 2)

	// Frame 0 gets two accesses (full k=2 history), frame 1 gets only one.
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.RecordAccess(0)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	// Frame 1 has only one access (< k) so its backward distance is
	// infinite and it must be evicted before frame 0.
	victim, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 1, victim)
	require.Equal(t, 1, r.Size())
}

func TestLRUK_TieAtInfinityPicksEarliestFirstAccess(t *testing.T) {
	r := NewLRUK(5, 2)

	r.RecordAccess(0) // earliest overall
	r.RecordAccess(1)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 0, victim)
}

func TestLRUK_LargestBackwardKDistanceWins(t *testing.T) {
	r := NewLRUK(5, 2)

	// Frame 0: accessed at t=1,t=2 -> backward distance measured from t=1.
	r.RecordAccess(0)
	r.RecordAccess(0)
	// Frame 1: accessed at t=3,t=4 -> measured from t=3, smaller backward distance.
	r.RecordAccess(1)
	r.RecordAccess(1)

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	// Both have full k-history; frame 0's oldest-of-last-k access is older,
	// giving it the larger backward k-distance.
	victim, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 0, victim)
}

func TestLRUK_SetEvictableTogglesSize(t *testing.T) {
	r := NewLRUK(5, 2)

	r.RecordAccess(0)
	require.Equal(t, 0, r.Size())

	r.SetEvictable(0, true)
	require.Equal(t, 1, r.Size())

	r.SetEvictable(0, false)
	require.Equal(t, 0, r.Size())

	// Redundant sets are no-ops.
	r.SetEvictable(0, false)
	require.Equal(t, 0, r.Size())
}

func TestLRUK_RemoveStopsTracking(t *testing.T) {
	r := NewLRUK(5, 2)

	r.RecordAccess(0)
	r.SetEvictable(0, true)
	require.Equal(t, 1, r.Size())

	r.Remove(0)
	require.Equal(t, 0, r.Size())

	_, ok := r.Evict()
	require.False(t, ok)
}

func TestLRUK_EvictReturnsFalseWhenNothingEvictable(t *testing.T) {
	r := NewLRUK(3, 2)

	r.RecordAccess(0)
	r.RecordAccess(1)
	// Never marked evictable.

	_, ok := r.Evict()
	require.False(t, ok)
}
