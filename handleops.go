package fskit

// Open flag bits, matching the O_* subset this library's semantics
// actually branch on. These are this package's own bit values, not
// the os.O_* / syscall.O_* values: os.O_WRONLY, for one, equals
// OCreat here, so callers pass these constants rather than the
// standard library's.
const (
	OCreat int = 1 << iota
	OExcl
	OTrunc
	ODirectory
)

// Open resolves path, optionally creating it, and returns a live
// Handle with its open count already incremented (spec.md §4.6
// "open"). A bare O_CREAT racing a deletion-in-progress entry waits
// for the garbage collector to finish with it (via waitForNameFree)
// and then creates fresh, per original_source/libfskit/open.c.
func Open(core *Core, path string, flags int, mode uint32, uid, gid uint64) (*Handle, Status) {
	if flags&OCreat != 0 {
		return openCreate(core, path, flags, mode, uid, gid)
	}

	ino, st := Resolve(core, path, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return nil, st
	}
	defer ino.wunlock("Open")

	if ino.IsDir() {
		return nil, EISDIR
	}

	r, groups, matched := core.routes.match(RouteOpen, path)
	var appData interface{}
	if matched {
		if cb, ok := r.callback.(OpenCallback); ok {
			meta := RouteMetadata{Path: path, Groups: groups}
			rst := dispatch(r, ino, true, func() Status {
				var cst Status
				appData, cst = cb(core, meta, ino, flags, ino.AppData())
				return cst
			})
			if !rst.Ok() {
				return nil, rst
			}
		}
	}

	if flags&OTrunc != 0 {
		ino.size = 0
		ino.touchMtime()
	}

	ino.openCount++
	ino.touchAtime()
	h := newHandle(ino, path, flags, false)
	h.SetAppData(appData)
	return h, OK
}

func openCreate(core *Core, path string, flags int, mode uint32, uid, gid uint64) (*Handle, Status) {
	dirPath := Dirname(path)
	name := Basename(path)

	parent, st := Resolve(core, dirPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return nil, st
	}

	if existing := parent.children.find(name); existing != nil {
		if existing.deletionInProgress {
			if flags&OExcl != 0 {
				parent.wunlock("openCreate-excl-gc")
				return nil, EEXIST
			}
			parent.wunlock("openCreate-wait")
			waitForNameFree(core, parent, name, path)
			if st := parent.wlock("openCreate-relock"); !st.Ok() {
				return nil, st
			}
		} else if flags&OExcl != 0 {
			parent.wunlock("openCreate-excl")
			return nil, EEXIST
		} else {
			defer parent.wunlock("openCreate-existing")
			if st := existing.wlock("openCreate-existing-child"); !st.Ok() {
				return nil, st
			}
			if flags&OTrunc != 0 {
				existing.size = 0
				existing.touchMtime()
			}
			existing.openCount++
			existing.touchAtime()
			existing.wunlock("openCreate-existing-child")
			return newHandle(existing, path, flags, false), OK
		}
	}
	if !checkPermission(parent.mode, parent.uid, parent.gid, uid, gid, PermWrite|PermExecute) {
		parent.wunlock("openCreate")
		return nil, EACCES
	}
	// Create resolves and write-locks the parent itself, so the lock
	// taken above is released before calling it.
	parent.wunlock("openCreate")

	ino, cst := Create(core, path, mode, uid, gid)
	if !cst.Ok() {
		return nil, cst
	}
	if st := ino.wlock("openCreate-new"); st.Ok() {
		ino.openCount++
		ino.wunlock("openCreate-new")
	}
	return newHandle(ino, path, flags, false), OK
}

// Opendir resolves a directory and returns a Handle positioned at the
// start of its entry list (spec.md §4.6 "opendir").
func Opendir(core *Core, path string, uid, gid uint64) (*Handle, Status) {
	ino, st := Resolve(core, path, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return nil, st
	}
	defer ino.wunlock("Opendir")

	if !ino.IsDir() {
		return nil, ENOTDIR
	}
	if !checkPermission(ino.mode, ino.uid, ino.gid, uid, gid, PermRead|PermExecute) {
		return nil, EACCES
	}

	ino.openCount++
	return newHandle(ino, path, 0, true), OK
}

// Close runs the close route (if any), decrements the open count, and
// triggers try-destroy if the inode's link count has also already
// reached zero -- the path by which an unlinked-but-still-open file is
// finally freed (spec.md §4.6 "close").
func Close(core *Core, h *Handle) Status {
	ino := h.Inode()

	r, groups, matched := core.routes.match(RouteClose, h.Path())
	if matched {
		if cb, ok := r.callback.(CloseCallback); ok {
			meta := RouteMetadata{Path: h.Path(), Groups: groups}
			dispatch(r, ino, false, func() Status {
				return cb(core, meta, ino, h.AppData())
			})
		}
	}

	if st := ino.wlock("Close"); st.Ok() {
		ino.openCount--
		neg := ino.openCount < 0
		ino.wunlock("Close")
		if neg {
			errorf("BUG: inode %d open count went negative on close", ino.id)
		}
	}

	tryDestroy(core, nil, ino, h.Path())
	return OK
}

// Closedir is Close's directory-handle counterpart; directories never
// route through RouteClose, matching the teacher's split between file
// and directory release paths (fuse/nodefs distinguishes Release from
// ReleaseDir the same way).
func Closedir(core *Core, h *Handle) Status {
	ino := h.Inode()
	if st := ino.wlock("Closedir"); st.Ok() {
		ino.openCount--
		neg := ino.openCount < 0
		ino.wunlock("Closedir")
		if neg {
			errorf("BUG: inode %d open count went negative on closedir", ino.id)
		}
	}
	tryDestroy(core, nil, ino, h.Path())
	return OK
}
