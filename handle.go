package fskit

import "sync"

// Handle is a live reference to an open inode: the path used to open
// it (retained so later per-handle operations can re-match routes),
// the open flags, the opened inode's id (for staleness detection
// after a concurrent unlink+recreate), and an application-supplied
// opaque pointer (spec.md §3 "Handle").
type Handle struct {
	lock sync.RWMutex

	ino       *Inode
	path      string
	flags     int
	inodeID   uint64
	isDir     bool
	appData   interface{}

	// readdir bookmark state (§4.6): the name of the last entry
	// returned, used by the bookmark-based readdir family
	// (telldir/seekdir/rewinddir).
	dirBookmark string
}

func newHandle(ino *Inode, path string, flags int, isDir bool) *Handle {
	return &Handle{
		ino:     ino,
		path:    path,
		flags:   flags,
		inodeID: ino.id,
		isDir:   isDir,
	}
}

func (h *Handle) Inode() *Inode          { return h.ino }
func (h *Handle) Path() string           { return h.path }
func (h *Handle) Flags() int             { return h.flags }
func (h *Handle) AppData() interface{}   { return h.appData }
func (h *Handle) SetAppData(v interface{}) { h.appData = v }

func (h *Handle) rlock(who string) {
	lockTrace(who, "handle-rlock")
	h.lock.RLock()
}

func (h *Handle) runlock(who string) {
	h.lock.RUnlock()
	lockTrace(who, "handle-runlock")
}

func (h *Handle) wlock(who string) {
	lockTrace(who, "handle-wlock")
	h.lock.Lock()
}

func (h *Handle) wunlock(who string) {
	h.lock.Unlock()
	lockTrace(who, "handle-wunlock")
}

// Telldir returns an opaque bookmark token for the handle's current
// readdir position (spec.md §6 "telldir/seekdir/rewinddir"). The
// token is simply the last-returned name: stable across mutation only
// in the bookmark sense documented in spec.md §9 (offset semantics are
// explicitly not supported).
func (h *Handle) Telldir() string {
	h.rlock("Telldir")
	defer h.runlock("Telldir")
	return h.dirBookmark
}

func (h *Handle) Seekdir(bookmark string) {
	h.wlock("Seekdir")
	h.dirBookmark = bookmark
	h.wunlock("Seekdir")
}

func (h *Handle) Rewinddir() {
	h.Seekdir("")
}
