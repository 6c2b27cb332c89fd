package fskit

import (
	"sync"
)

// Type is the inode's kind. deadType is a terminal tombstone state:
// any lock acquisition observing it must be treated as "not found"
// (spec.md §3).
type Type uint8

const (
	deadType Type = iota
	Regular
	Directory
	Fifo
	Socket
	CharDev
	BlockDev
	Symlink
)

// Inode is the in-memory descriptor of one filesystem object. Every
// mutable field below, the xattr set included (there is no separate
// xattr lock in this port), is guarded by lock.
type Inode struct {
	lock sync.RWMutex

	id   uint64
	typ  Type
	mode uint32 // permission bits only, no type bits
	uid  uint64
	gid  uint64

	ctimeSec, mtimeSec, atimeSec   int64
	ctimeNsec, mtimeNsec, atimeNsec int32

	linkCount int32
	openCount int32
	size      int64
	dev       uint32

	symlinkTarget string

	children *entrySet // non-nil only for directories
	xattrs   *xattrSet // allocated lazily on first SetXattr

	deletionInProgress bool

	appData interface{}

	core *Core
}

// newInode runs the common construction prologue shared by every
// typed initializer: stamp timestamps to now, set mode and ownership.
// The id is left zero for the caller to assign (core.nextID), and
// directory/symlink-specific setup happens in the caller (spec.md
// §4.2).
func newInode(core *Core, typ Type, mode uint32, uid, gid uint64) *Inode {
	now := core.clock.Now()
	sec, nsec := timespec(now)
	in := &Inode{
		typ:       typ,
		mode:      mode &^ 0170000,
		uid:       uid,
		gid:       gid,
		ctimeSec:  sec,
		ctimeNsec: nsec,
		mtimeSec:  sec,
		mtimeNsec: nsec,
		atimeSec:  sec,
		atimeNsec: nsec,
		core:      core,
	}
	return in
}

// newDirInode additionally allocates the children set and seeds it
// with "." (self) and ".." (parent). For the root, parent == the new
// inode itself, matching spec.md §3's "if `..` of the root is the
// root".
func newDirInode(core *Core, mode uint32, uid, gid uint64, parent *Inode) *Inode {
	in := newInode(core, Directory, mode, uid, gid)
	in.children = newEntrySet()
	if parent == nil {
		parent = in
	}
	in.children.insert(".", in, true)
	in.children.insert("..", parent, true)
	return in
}

func newSymlinkInode(core *Core, uid, gid uint64, target string) *Inode {
	in := newInode(core, Symlink, 0777, uid, gid)
	in.symlinkTarget = target
	in.size = int64(len(target))
	return in
}

// --- locking helpers (spec.md §4.2) ---
//
// Every helper takes a caller-site debug identifier purely for
// lock-trace diagnostics; it has no effect on correctness.

// rlock read-locks in unless it is already dead, in which case it
// reports ENOENT without acquiring anything (a dead inode's memory is
// about to be or has been freed of everything but the tombstone type
// tag).
func (in *Inode) rlock(who string) Status {
	lockTrace(who, "rlock-wait")
	in.lock.RLock()
	if in.typ == deadType {
		in.lock.RUnlock()
		lockTrace(who, "rlock-dead")
		return ENOENT
	}
	lockTrace(who, "rlock-ok")
	return OK
}

func (in *Inode) runlock(who string) {
	lockTrace(who, "runlock")
	in.lock.RUnlock()
}

func (in *Inode) wlock(who string) Status {
	lockTrace(who, "wlock-wait")
	in.lock.Lock()
	if in.typ == deadType {
		in.lock.Unlock()
		lockTrace(who, "wlock-dead")
		return ENOENT
	}
	lockTrace(who, "wlock-ok")
	return OK
}

func (in *Inode) wunlock(who string) {
	lockTrace(who, "wunlock")
	in.lock.Unlock()
}

// --- accessors; all require the appropriate lock already held ---

func (in *Inode) ID() uint64   { return in.id }
func (in *Inode) Type() Type   { return in.typ }
func (in *Inode) Mode() uint32 { return in.mode }
func (in *Inode) IsDir() bool  { return in.typ == Directory }
func (in *Inode) LinkCount() int32 { return in.linkCount }
func (in *Inode) OpenCount() int32 { return in.openCount }
func (in *Inode) Size() int64      { return in.size }

// AppData returns the application-supplied opaque pointer installed
// by a create/mkdir/mknod/open route callback.
func (in *Inode) AppData() interface{} { return in.appData }

func (in *Inode) SetAppData(v interface{}) { in.appData = v }

func (in *Inode) touchMtime() {
	sec, nsec := timespec(in.core.clock.Now())
	in.mtimeSec, in.mtimeNsec = sec, nsec
}

func (in *Inode) touchAtime() {
	sec, nsec := timespec(in.core.clock.Now())
	in.atimeSec, in.atimeNsec = sec, nsec
}

func (in *Inode) touchCtime() {
	sec, nsec := timespec(in.core.clock.Now())
	in.ctimeSec, in.ctimeNsec = sec, nsec
}

// ensureXattrs lazily allocates the xattr set on first write.
func (in *Inode) ensureXattrs() *xattrSet {
	if in.xattrs == nil {
		in.xattrs = newXattrSet()
	}
	return in.xattrs
}

// markDead transitions the inode to the terminal tombstone state
// under the write lock, immediately before its memory-bearing fields
// are released. Subsequent lock acquisitions observe ENOENT rather
// than risking use of freed state (spec.md §3, §4.2).
func (in *Inode) markDead() {
	in.typ = deadType
	in.children = nil
	in.xattrs = nil
	in.symlinkTarget = ""
	in.appData = nil
}
