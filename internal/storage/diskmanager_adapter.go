package storage

import (
	"fmt"
	"math"

	"github.com/nova-db/pagecache/internal/bufferpool"
)

// PagecacheDisk adapts a StorageManager bound to one FileSet into
// bufferpool.DiskManager, translating bufferpool's PageID (int32, sentinel
// -1) into the segment+offset addressing StorageManager already knows.
type PagecacheDisk struct {
	sm *StorageManager
	fs FileSet
}

var _ bufferpool.DiskManager = (*PagecacheDisk)(nil)

// NewPagecacheDisk returns a DiskManager reading/writing pages through sm
// within the segment files named by fs.
func NewPagecacheDisk(sm *StorageManager, fs FileSet) *PagecacheDisk {
	return &PagecacheDisk{sm: sm, fs: fs}
}

func (d *PagecacheDisk) ReadPage(pageID bufferpool.PageID, buf []byte) error {
	if pageID < 0 {
		return fmt.Errorf("storage: read of invalid page id %d", pageID)
	}
	return d.sm.ReadPage(d.fs, int32(pageID), buf)
}

func (d *PagecacheDisk) WritePage(pageID bufferpool.PageID, buf []byte) error {
	if pageID < 0 {
		return fmt.Errorf("storage: write of invalid page id %d", pageID)
	}
	if int64(pageID) > math.MaxInt32 {
		return fmt.Errorf("storage: page id overflow: %d", pageID)
	}
	return d.sm.WritePage(d.fs, int32(pageID), buf)
}
