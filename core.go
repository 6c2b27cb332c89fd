package fskit

import (
	"sync"
)

// InodeAllocator hands out a fresh inode id. InodeReleaser returns one
// to the pool. Applications register both via SetInodeAllocator /
// SetInodeReleaser (spec.md §6 "Inode alloc hooks"); the default is a
// counter that hands released ids out again before issuing new ones.
type InodeAllocator func() uint64
type InodeReleaser func(id uint64)

// Options configures a Core at construction time. It plays the role
// the teacher's nodefs.Options plays for a mounted FUSE filesystem,
// minus the kernel-entry/attr-timeout fields that make no sense for
// an in-process library, plus the fields this spec's component E
// needs (clock, root mode and ownership, id allocator hooks).
type Options struct {
	// RootMode is the permission bits (not type bits) of the root
	// directory. Defaults to 0755.
	RootMode uint32
	// RootUID / RootGID set the root directory's owner. Both
	// default to 0.
	RootUID, RootGID uint64
	// Clock is the time source for ctime/mtime/atime. Defaults to
	// timeutil.RealClock().
	Clock Clock
	// Allocator / Releaser override the default sequential inode
	// id allocator. See also NewUUIDAllocator for a
	// collision-proof alternative.
	Allocator InodeAllocator
	Releaser  InodeReleaser
}

func (o *Options) withDefaults() *Options {
	out := *o
	if out.RootMode == 0 {
		out.RootMode = 0755
	}
	if out.Clock == nil {
		out.Clock = realClock()
	}
	if out.Allocator == nil {
		out.Allocator, out.Releaser = newSequentialAllocator()
	}
	return &out
}

// Core holds everything one filesystem namespace needs: the root
// inode (a separately allocated *Inode created by NewCore, not
// embedded in the Core struct), the allocator hooks, application-wide
// data, the route table, and the deferred-GC work queue.
type Core struct {
	lock sync.RWMutex // protects allocator hooks, appData and fileCount only

	root *Inode

	allocator InodeAllocator
	releaser  InodeReleaser
	fileCount int64

	appData interface{}

	clock Clock

	routes *routeTable
	wq     *workQueue
}

// NewCore initializes a Core with its root directory, per
// spec.md §3 invariants: link count 1, ".." pointing to itself, never
// garbage collected while the Core is alive.
func NewCore(opts *Options) *Core {
	if opts == nil {
		opts = &Options{}
	}
	opts = opts.withDefaults()

	core := &Core{
		allocator: opts.Allocator,
		releaser:  opts.Releaser,
		clock:     opts.Clock,
		routes:    newRouteTable(),
	}
	core.wq = newWorkQueue()

	root := newDirInode(core, opts.RootMode, opts.RootUID, opts.RootGID, nil)
	root.id = core.allocator()
	root.linkCount = 1
	core.root = root
	core.fileCount = 1

	return core
}

// Destroy stops the deferred-GC worker, draining any pending jobs
// synchronously (spec.md §4.5 work queue contract, "on shutdown,
// pending jobs are drained synchronously").
func (c *Core) Destroy() {
	c.wq.shutdown()
}

func (c *Core) Root() *Inode {
	return c.root
}

// SetAppData / AppData store/retrieve the filesystem-wide opaque
// pointer mentioned in spec.md §3 ("Core... app data").
func (c *Core) SetAppData(v interface{}) {
	c.lock.Lock()
	c.appData = v
	c.lock.Unlock()
}

func (c *Core) AppData() interface{} {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.appData
}

// SetInodeAllocator / SetInodeReleaser override the id-allocation
// hooks after construction (spec.md §6). Acquiring the core lock
// protects against a concurrent allocate/release racing the swap.
func (c *Core) SetInodeAllocator(a InodeAllocator) {
	c.lock.Lock()
	c.allocator = a
	c.lock.Unlock()
}

func (c *Core) SetInodeReleaser(r InodeReleaser) {
	c.lock.Lock()
	c.releaser = r
	c.lock.Unlock()
}

func (c *Core) nextID() uint64 {
	c.lock.RLock()
	alloc := c.allocator
	c.lock.RUnlock()
	return alloc()
}

func (c *Core) releaseID(id uint64) {
	c.lock.RLock()
	rel := c.releaser
	c.lock.RUnlock()
	if rel != nil {
		rel(id)
	}
}

func (c *Core) incFileCount(delta int64) {
	c.lock.Lock()
	c.fileCount += delta
	c.lock.Unlock()
}

// FileCount returns the running count of live inodes, surfaced via
// Statvfs (spec.md §6).
func (c *Core) FileCount() int64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.fileCount
}

func newSequentialAllocator() (InodeAllocator, InodeReleaser) {
	var mu sync.Mutex
	next := uint64(1)
	free := make([]uint64, 0)
	alloc := func() uint64 {
		mu.Lock()
		defer mu.Unlock()
		if len(free) > 0 {
			id := free[len(free)-1]
			free = free[:len(free)-1]
			return id
		}
		id := next
		next++
		return id
	}
	rel := func(id uint64) {
		mu.Lock()
		free = append(free, id)
		mu.Unlock()
	}
	return alloc, rel
}
