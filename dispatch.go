package fskit

// dispatch enforces r's consistency discipline around fn and returns
// fn's result (spec.md §4.4 "Dispatch" table). alreadyLocked is set by
// callers that invoke a route while already holding the matched
// inode's lock -- the Open, Link, Readdir, Stat and xattr façades and
// TruncPath -- so an InodeSequential/InodeConcurrent discipline there
// does not try to re-acquire a lock the caller already holds. The
// detach/destroy notifications (runDetachRoute/runDestroyRoute) run
// with the inode unlocked and pass false.
func dispatch(r *route, ino *Inode, alreadyLocked bool, fn func() Status) Status {
	switch r.consistency {
	case Sequential:
		r.lock.Lock()
		defer r.lock.Unlock()
	case Concurrent:
		r.lock.RLock()
		defer r.lock.RUnlock()
	case InodeSequential:
		if !alreadyLocked {
			ino.lock.Lock()
			defer ino.lock.Unlock()
		}
	case InodeConcurrent:
		if !alreadyLocked {
			ino.lock.RLock()
			defer ino.lock.RUnlock()
		}
	}
	return fn()
}

// dispatchIO is the read/write/trunc variant: fn performs the route
// callback and returns a byte count plus status; on success,
// continuation runs under the exact same locks, before they are
// released, so it can safely update size/mtime bookkeeping (spec.md
// §4.4 "I/O continuation").
func dispatchIO(r *route, ino *Inode, fn func() (int, Status), continuation func(n int)) (int, Status) {
	var n int
	var st Status
	switch r.consistency {
	case Sequential:
		r.lock.Lock()
		defer r.lock.Unlock()
	case Concurrent:
		r.lock.RLock()
		defer r.lock.RUnlock()
	case InodeSequential:
		ino.lock.Lock()
		defer ino.lock.Unlock()
	case InodeConcurrent:
		ino.lock.RLock()
		defer ino.lock.RUnlock()
	}
	n, st = fn()
	if st.Ok() && continuation != nil {
		continuation(n)
	}
	return n, st
}
