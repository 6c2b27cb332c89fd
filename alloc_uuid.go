package fskit

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// NewUUIDAllocator returns an (InodeAllocator, InodeReleaser) pair
// that derives inode ids from random UUIDs instead of a sequential
// counter. Unlike the default allocator, released ids are never
// reused, which matters for applications that persist inode ids
// outside the process (e.g. in a content-addressed store keyed by
// inode id) and cannot tolerate a later remount recycling one.
//
// Collisions are vanishingly unlikely but not impossible; on the
// exceedingly rare collision the allocator simply draws again.
func NewUUIDAllocator() (InodeAllocator, InodeReleaser) {
	var mu sync.Mutex
	seen := make(map[uint64]struct{})

	alloc := func() uint64 {
		mu.Lock()
		defer mu.Unlock()
		for {
			id := uuidToID(uuid.New())
			if id == 0 {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			return id
		}
	}
	release := func(id uint64) {
		mu.Lock()
		delete(seen, id)
		mu.Unlock()
	}
	return alloc, release
}

func uuidToID(u uuid.UUID) uint64 {
	b := u[:]
	return binary.BigEndian.Uint64(b[:8]) ^ binary.BigEndian.Uint64(b[8:])
}
