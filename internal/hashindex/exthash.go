// Package hashindex implements a generic extendible hash table: a directory
// of buckets indexed by the low bits of a key's hash, where the directory
// doubles and buckets split on demand instead of being sized up front.
package hashindex

import (
	"errors"
	"sync"
)

// maxGlobalDepth bounds how many times the directory can double. A real
// workload never gets near this; it only exists so a pathological hash
// function (or a key space smaller than the bucket size) fails loudly
// instead of doubling the directory forever.
const maxGlobalDepth = 32

// ErrTooManyCollisions is returned by Insert when the target bucket's local
// depth would need to exceed maxGlobalDepth to make room for key — the hash
// function is not spreading keys across enough bits.
var ErrTooManyCollisions = errors.New("hashindex: local depth exceeded maximum; keys are not well distributed")

type entry[K comparable, V any] struct {
	key K
	val V
}

type bucket[K comparable, V any] struct {
	items []entry[K, V]
	depth int
	size  int
}

func newBucket[K comparable, V any](size, depth int) *bucket[K, V] {
	return &bucket[K, V]{size: size, depth: depth}
}

func (b *bucket[K, V]) isFull() bool { return len(b.items) >= b.size }

func (b *bucket[K, V]) find(key K) (V, bool) {
	for _, e := range b.items {
		if e.key == key {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) remove(key K) bool {
	for i, e := range b.items {
		if e.key == key {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// insert overwrites an existing key's value, or appends if there's room.
// Returns false only when the bucket is full and key is not already present
// — the caller (Insert) is responsible for splitting and retrying.
func (b *bucket[K, V]) insert(key K, val V) bool {
	for i := range b.items {
		if b.items[i].key == key {
			b.items[i].val = val
			return true
		}
	}
	if b.isFull() {
		return false
	}
	b.items = append(b.items, entry[K, V]{key: key, val: val})
	return true
}

// ExtendibleHashTable is a hash table whose directory grows by doubling and
// whose buckets split independently, so no bucket is ever resized in place
// and no full-table rehash is ever needed.
//
// K must be comparable; hashFn supplies the hash — this lets the same
// implementation serve any key type (page ids, strings, ints) without
// reflection.
type ExtendibleHashTable[K comparable, V any] struct {
	mu sync.Mutex

	hashFn      func(K) uint64
	globalDepth int
	bucketSize  int
	numBuckets  int
	dir         []*bucket[K, V]
}

// New returns an extendible hash table with one empty bucket of the given
// size and global depth zero.
func New[K comparable, V any](bucketSize int, hashFn func(K) uint64) *ExtendibleHashTable[K, V] {
	if bucketSize <= 0 {
		bucketSize = 4
	}
	t := &ExtendibleHashTable[K, V]{
		hashFn:     hashFn,
		bucketSize: bucketSize,
		numBuckets: 1,
		dir:        []*bucket[K, V]{newBucket[K, V](bucketSize, 0)},
	}
	return t
}

func (t *ExtendibleHashTable[K, V]) indexOf(key K) uint64 {
	mask := uint64(1)<<uint(t.globalDepth) - 1
	return t.hashFn(key) & mask
}

// Find returns the value stored for key, if any.
func (t *ExtendibleHashTable[K, V]) Find(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.indexOf(key)].find(key)
}

// Remove deletes key from the table, returning whether it was present.
// Buckets are never merged back together: removal only ever shrinks a
// bucket's item list, never the directory.
func (t *ExtendibleHashTable[K, V]) Remove(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.indexOf(key)].remove(key)
}

// Insert adds or updates key -> val, splitting buckets (and doubling the
// directory when needed) until there is room.
func (t *ExtendibleHashTable[K, V]) Insert(key K, val V) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !t.dir[t.indexOf(key)].insert(key, val) {
		idx := t.indexOf(key)
		target := t.dir[idx]

		// Need more directory bits before this bucket can split.
		if target.depth == t.globalDepth {
			if t.globalDepth >= maxGlobalDepth {
				return ErrTooManyCollisions
			}
			t.globalDepth++
			capacity := len(t.dir)
			grown := make([]*bucket[K, V], capacity<<1)
			copy(grown, t.dir)
			copy(grown[capacity:], t.dir)
			t.dir = grown
		}

		mask := uint64(1) << uint(target.depth)
		low := newBucket[K, V](t.bucketSize, target.depth+1)
		high := newBucket[K, V](t.bucketSize, target.depth+1)
		for _, e := range target.items {
			if t.hashFn(e.key)&mask != 0 {
				high.items = append(high.items, e)
			} else {
				low.items = append(low.items, e)
			}
		}
		t.numBuckets++

		for i := range t.dir {
			if t.dir[i] != target {
				continue
			}
			if uint64(i)&mask != 0 {
				t.dir[i] = high
			} else {
				t.dir[i] = low
			}
		}
	}
	return nil
}

// GlobalDepth returns the number of directory-index bits currently in use.
func (t *ExtendibleHashTable[K, V]) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// LocalDepth returns the local depth of the bucket a directory slot points
// at. Every slot sharing a bucket reports the same value.
func (t *ExtendibleHashTable[K, V]) LocalDepth(dirIndex int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[dirIndex].depth
}

// NumBuckets returns the number of distinct buckets currently allocated.
func (t *ExtendibleHashTable[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numBuckets
}
