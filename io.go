package fskit

// Read, Write, Trunc, and Sync are the I/O-path façades. Each matches
// a route (if any is declared for the handle's path) and runs it via
// dispatchIO / dispatch so that size/mtime bookkeeping happens as the
// "I/O continuation" under the very same lock the route callback ran
// under (spec.md §4.4 "I/O continuation", §4.6 "read/write/trunc").
// With no matching route, these fall back to operating directly on
// the inode's in-memory byte slice held in its AppData -- the default
// backing store for a plain in-memory file, matching the teacher's
// nodefs.DefaultFile pattern of "no override means a no-op/zero-value
// behavior".

// inMemoryData is the default byte-slice backing store used when no
// RouteWrite/RouteRead route claims a path: the inode simply grows or
// shrinks a []byte held in its AppData.
type inMemoryData struct {
	bytes []byte
}

func ensureInMemoryData(ino *Inode) *inMemoryData {
	d, ok := ino.AppData().(*inMemoryData)
	if !ok {
		d = &inMemoryData{}
		ino.SetAppData(d)
	}
	return d
}

// Read fills buf starting at offset and returns the number of bytes
// copied.
func Read(core *Core, h *Handle, buf []byte, offset int64) (int, Status) {
	ino := h.Inode()

	r, groups, matched := core.routes.match(RouteRead, h.Path())
	if matched {
		if cb, ok := r.callback.(ReadCallback); ok {
			meta := RouteMetadata{Path: h.Path(), Groups: groups}
			n, st := dispatchIO(r, ino, func() (int, Status) {
				return cb(core, meta, ino, buf, offset, h.AppData())
			}, func(int) {
				ino.touchAtime()
			})
			return n, st
		}
	}

	ino.rlock("Read-default")
	defer ino.runlock("Read-default")
	d := ensureInMemoryData(ino)
	if offset >= int64(len(d.bytes)) {
		return 0, OK
	}
	n := copy(buf, d.bytes[offset:])
	ino.touchAtime()
	return n, OK
}

// Write copies buf into the file starting at offset, growing it as
// needed, and returns the number of bytes written.
func Write(core *Core, h *Handle, buf []byte, offset int64) (int, Status) {
	ino := h.Inode()

	r, groups, matched := core.routes.match(RouteWrite, h.Path())
	if matched {
		if cb, ok := r.callback.(WriteCallback); ok {
			meta := RouteMetadata{Path: h.Path(), Groups: groups}
			n, st := dispatchIO(r, ino, func() (int, Status) {
				return cb(core, meta, ino, buf, offset, h.AppData())
			}, func(n int) {
				if end := offset + int64(n); end > ino.size {
					ino.size = end
				}
				ino.touchMtime()
			})
			return n, st
		}
	}

	ino.wlock("Write-default")
	defer ino.wunlock("Write-default")
	d := ensureInMemoryData(ino)
	end := offset + int64(len(buf))
	if end > int64(len(d.bytes)) {
		grown := make([]byte, end)
		copy(grown, d.bytes)
		d.bytes = grown
	}
	n := copy(d.bytes[offset:], buf)
	ino.size = int64(len(d.bytes))
	ino.touchMtime()
	return n, OK
}

// Trunc resizes an already-open file to size bytes.
func Trunc(core *Core, h *Handle, size int64) Status {
	ino := h.Inode()

	r, groups, matched := core.routes.match(RouteTrunc, h.Path())
	if matched {
		if cb, ok := r.callback.(TruncCallback); ok {
			meta := RouteMetadata{Path: h.Path(), Groups: groups}
			return dispatch(r, ino, false, func() Status {
				st := cb(core, meta, ino, size, h.AppData())
				if st.Ok() {
					ino.size = size
					ino.touchMtime()
				}
				return st
			})
		}
	}

	ino.wlock("Trunc-default")
	defer ino.wunlock("Trunc-default")
	d := ensureInMemoryData(ino)
	if size <= int64(len(d.bytes)) {
		d.bytes = d.bytes[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, d.bytes)
		d.bytes = grown
	}
	ino.size = size
	ino.touchMtime()
	return OK
}

// TruncPath is Trunc for a caller that has only a path, not an open
// handle (ftruncate's unopened cousin, truncate(2)).
func TruncPath(core *Core, path string, size int64, uid, gid uint64) Status {
	ino, st := Resolve(core, path, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return st
	}
	defer ino.wunlock("TruncPath")
	if ino.IsDir() {
		return EISDIR
	}
	if !checkPermission(ino.mode, ino.uid, ino.gid, uid, gid, PermWrite) {
		return EACCES
	}

	if r, groups, matched := core.routes.match(RouteTrunc, path); matched {
		if cb, ok := r.callback.(TruncCallback); ok {
			meta := RouteMetadata{Path: path, Groups: groups}
			return dispatch(r, ino, true, func() Status {
				st := cb(core, meta, ino, size, ino.AppData())
				if st.Ok() {
					ino.size = size
					ino.touchMtime()
				}
				return st
			})
		}
	}

	d := ensureInMemoryData(ino)
	if size <= int64(len(d.bytes)) {
		d.bytes = d.bytes[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, d.bytes)
		d.bytes = grown
	}
	ino.size = size
	ino.touchMtime()
	return OK
}

// Sync runs the sync route for a handle, if any; with no route
// declared it is a no-op, since the in-memory default backing store
// has nothing to flush (spec.md §4.6 "sync").
func Sync(core *Core, h *Handle) Status {
	ino := h.Inode()
	r, groups, matched := core.routes.match(RouteSync, h.Path())
	if !matched {
		return OK
	}
	cb, ok := r.callback.(SyncCallback)
	if !ok {
		return OK
	}
	meta := RouteMetadata{Path: h.Path(), Groups: groups}
	return dispatch(r, ino, false, func() Status {
		return cb(core, meta, ino, h.AppData())
	})
}
