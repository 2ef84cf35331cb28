// Package bufferpool implements an in-memory page cache: a bounded set of
// Frames backed by a DiskManager, with LRU-K (or CLOCK) replacement and an
// extendible-hash page table. It is the one place in the module that
// decides which pages live in memory and when a dirty one must be written
// back before its frame can be reused.
package bufferpool

import (
	"fmt"
	"sync"

	"github.com/nova-db/pagecache/internal/hashindex"
	"github.com/nova-db/pagecache/internal/replacer"
)

// ReplacerPolicy selects which eviction policy a Manager is built with.
type ReplacerPolicy string

const (
	// PolicyLRUK evicts by backward k-distance. This is the default and
	// the policy every invariant in this package is tested against.
	PolicyLRUK ReplacerPolicy = "lruk"

	// PolicyClock evicts via a second-chance sweep. Substitutable for
	// PolicyLRUK without any change to Manager's own logic.
	PolicyClock ReplacerPolicy = "clock"
)

// DiskManager is the pool's only way to reach durable storage. It reads and
// writes whole PageSize-byte pages.
type DiskManager interface {
	ReadPage(pageID PageID, buf []byte) error
	WritePage(pageID PageID, buf []byte) error
}

// LogManager is consulted immediately before a dirty victim frame is
// written back to make room for another page, and before each page write
// done by FlushPage and FlushAllPages. The pool
// never inspects the result or blocks meaningfully on it — there is no
// write-ahead-log-before-data-page ordering enforced here; durable crash
// recovery is out of scope for this package.
type LogManager interface {
	Flush() error
}

// Manager is a fixed-size buffer pool: pool_size frames, one pool-wide
// latch serializing every operation (including the disk I/O they trigger),
// a free list for frames holding no page, and a Replacer that picks a victim
// once the free list is empty.
type Manager struct {
	mu sync.Mutex

	disk DiskManager
	log  LogManager

	frames    []*Frame
	freeList  []FrameID
	pageTable *hashindex.ExtendibleHashTable[PageID, FrameID]
	replacer  replacer.Replacer

	nextPageID PageID
}

// NewManager builds a Manager with poolSize frames. replacerK is only
// meaningful for PolicyLRUK. bucketSize sizes the page table's buckets; a
// non-positive value falls back to a small default. A nil log is fine —
// the pre-eviction hook is simply skipped.
func NewManager(poolSize int, disk DiskManager, replacerK, bucketSize int, policy ReplacerPolicy, log LogManager) (*Manager, error) {
	if poolSize <= 0 {
		return nil, fmt.Errorf("bufferpool: pool size must be positive, got %d", poolSize)
	}
	if disk == nil {
		return nil, fmt.Errorf("bufferpool: disk manager must not be nil")
	}

	var repl replacer.Replacer
	switch policy {
	case "", PolicyLRUK:
		if replacerK <= 0 {
			return nil, fmt.Errorf("bufferpool: replacer_k must be positive for LRU-K, got %d", replacerK)
		}
		repl = replacer.NewLRUK(poolSize, replacerK)
	case PolicyClock:
		repl = replacer.NewClock(poolSize)
	default:
		return nil, fmt.Errorf("bufferpool: unknown replacer policy %q", policy)
	}

	m := &Manager{
		disk:      disk,
		log:       log,
		frames:    make([]*Frame, poolSize),
		freeList:  make([]FrameID, poolSize),
		pageTable: hashindex.New[PageID, FrameID](bucketSize, hashPageID),
		replacer:  repl,
	}
	for i := 0; i < poolSize; i++ {
		m.frames[i] = &Frame{pageID: InvalidPageID}
		m.freeList[i] = FrameID(i)
	}
	return m, nil
}

func hashPageID(id PageID) uint64 { return uint64(uint32(id)) }

// PoolSize returns the fixed number of frames this Manager was built with.
func (m *Manager) PoolSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// acquireFrame returns a frame ready to be repurposed for a new page: one
// straight off the free list, or one evicted by the replacer with its dirty
// content flushed and its old page-table entry removed. It does not touch
// the frame's page id, pin count, or content — callers finish the job via
// installFrame.
func (m *Manager) acquireFrame() (FrameID, error) {
	if n := len(m.freeList); n > 0 {
		fid := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return fid, nil
	}

	victim, ok := m.replacer.Evict()
	if !ok {
		return 0, ErrPoolExhausted
	}
	frameID := FrameID(victim)
	frame := m.frames[frameID]

	if frame.dirty {
		if m.log != nil {
			_ = m.log.Flush()
		}
		if err := m.disk.WritePage(frame.pageID, frame.Data()); err != nil {
			// Leave the frame evictable again; its content is unchanged.
			m.replacer.RecordAccess(victim)
			m.replacer.SetEvictable(victim, true)
			return 0, err
		}
		frame.dirty = false
	}

	m.pageTable.Remove(frame.pageID)
	return frameID, nil
}

// installFrame finishes wiring a freshly acquired frame into the pool:
// pins it once, records it in the page table, and records the access with
// the replacer (marked non-evictable, since it now carries one pin).
func (m *Manager) installFrame(frameID FrameID, frame *Frame, pageID PageID) {
	frame.pageID = pageID
	frame.pin.reset()
	frame.pin.inc()
	frame.dirty = false

	m.pageTable.Insert(pageID, frameID)
	m.replacer.RecordAccess(int(frameID))
	m.replacer.SetEvictable(int(frameID), false)
}

// allocatePage hands out the next page id, monotonically increasing from 0.
func (m *Manager) allocatePage() PageID {
	id := m.nextPageID
	m.nextPageID++
	return id
}

// NewPage allocates a fresh page, pins it in a frame, and returns its id.
// The frame's content is zeroed; nothing is read from disk. Returns
// ErrPoolExhausted if every frame is pinned.
func (m *Manager) NewPage() (PageID, *Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, err := m.acquireFrame()
	if err != nil {
		return InvalidPageID, nil, err
	}

	frame := m.frames[frameID]
	frame.zero()
	pageID := m.allocatePage()
	m.installFrame(frameID, frame, pageID)
	return pageID, frame, nil
}

// FetchPage returns the frame holding pageID, pinning it. If the page is
// not already resident, a frame is acquired (evicting if necessary) and its
// content is loaded from disk before being pinned.
func (m *Manager) FetchPage(pageID PageID) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fid, ok := m.pageTable.Find(pageID); ok {
		frame := m.frames[fid]
		wasUnpinned := frame.pin.get() == 0
		frame.pin.inc()
		m.replacer.RecordAccess(int(fid))
		if wasUnpinned {
			m.replacer.SetEvictable(int(fid), false)
		}
		return frame, nil
	}

	frameID, err := m.acquireFrame()
	if err != nil {
		return nil, err
	}
	frame := m.frames[frameID]

	if err := m.disk.ReadPage(pageID, frame.Data()); err != nil {
		// Nothing was installed; the frame goes back to the free list
		// rather than being left in limbo.
		m.freeList = append(m.freeList, frameID)
		return nil, err
	}
	m.installFrame(frameID, frame, pageID)
	return frame, nil
}

// UnpinPage releases one pin on pageID. If dirty is true the frame is
// marked dirty (sticky: never cleared except by a flush). Once the pin
// count reaches zero the frame becomes evictable.
func (m *Manager) UnpinPage(pageID PageID, dirty bool) error {
	if pageID == InvalidPageID {
		return ErrInvalidPageID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.pageTable.Find(pageID)
	if !ok {
		return ErrNotResident
	}
	frame := m.frames[fid]
	if frame.pin.get() == 0 {
		return ErrAlreadyUnpinned
	}

	if dirty {
		frame.dirty = true
	}
	if frame.pin.dec() == 0 {
		m.replacer.SetEvictable(int(fid), true)
	}
	return nil
}

// FlushPage writes pageID's frame to disk unconditionally and clears its
// dirty bit, regardless of pin state. It panics on InvalidPageID: callers
// are expected to never pass the sentinel here.
func (m *Manager) FlushPage(pageID PageID) error {
	if pageID == InvalidPageID {
		panic("bufferpool: FlushPage called with InvalidPageID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.pageTable.Find(pageID)
	if !ok {
		return ErrNotResident
	}
	frame := m.frames[fid]

	if m.log != nil {
		_ = m.log.Flush()
	}
	if err := m.disk.WritePage(pageID, frame.Data()); err != nil {
		return err
	}
	frame.dirty = false
	return nil
}

// FlushAllPages writes every resident frame to disk unconditionally, the
// same contract FlushPage makes for one page — not just the dirty ones.
func (m *Manager) FlushAllPages() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, frame := range m.frames {
		if frame.pageID == InvalidPageID {
			continue
		}
		if _, ok := m.pageTable.Find(frame.pageID); !ok {
			continue
		}
		if m.log != nil {
			_ = m.log.Flush()
		}
		if err := m.disk.WritePage(frame.pageID, frame.Data()); err != nil {
			return err
		}
		frame.dirty = false
	}
	return nil
}

// DeletePage removes pageID from the pool entirely, flushing it first if
// dirty, and returns its frame to the free list. Returns ErrPagePinned
// (false, ErrPagePinned) if the page is still pinned. Deleting a page that
// isn't resident is not an error.
func (m *Manager) DeletePage(pageID PageID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.pageTable.Find(pageID)
	if !ok {
		return true, nil
	}
	frame := m.frames[fid]
	if frame.pin.get() > 0 {
		return false, ErrPagePinned
	}

	if frame.dirty {
		if err := m.disk.WritePage(pageID, frame.Data()); err != nil {
			return false, err
		}
		frame.dirty = false
	}

	m.replacer.Remove(int(fid))
	m.pageTable.Remove(pageID)
	frame.pageID = InvalidPageID
	m.freeList = append(m.freeList, fid)
	return true, nil
}
