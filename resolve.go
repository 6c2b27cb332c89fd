package fskit

// LockMode selects the lock taken on the terminal inode a Resolve
// call returns (spec.md §4.3).
type LockMode int

const (
	LockRead LockMode = iota
	LockWrite
)

// Perm bits, POSIX rwx.
const (
	PermRead    = 04
	PermWrite   = 0x2
	PermExecute = 0x1
)

// checkPermission implements spec.md §4.3's POSIX permission macro:
// root (uid 0) is always allowed; otherwise permission is granted via
// the "other" bits unconditionally, then the "group" bits if the
// requester's gid matches, then the "user" bits if the requester's
// uid matches.
func checkPermission(mode uint32, nodeUID, nodeGID uint64, reqUID, reqGID uint64, want uint32) bool {
	if reqUID == 0 {
		return true
	}
	if uint32(mode)&want != 0 {
		return true
	}
	if reqGID == nodeGID && (uint32(mode)>>3)&want != 0 {
		return true
	}
	if reqUID == nodeUID && (uint32(mode)>>6)&want != 0 {
		return true
	}
	return false
}

// StepEvaluator is run against the root (depth 0) and then against
// each child the resolver locks, the terminal one included,
// immediately after locking it and before releasing the previous
// inode's lock. Returning a non-OK status aborts the walk.
// It is how rename implements loop detection (spec.md §4.3).
type StepEvaluator func(ino *Inode, depth int) Status

// Resolve walks path from core's root, acquiring a read lock on every
// intermediate directory and releasing it only after the next lock is
// held (hand-over-hand locking, spec.md §4.3 "Liveness"). It returns
// the terminal inode locked in finalMode, or a negative Status.
func Resolve(core *Core, path string, uid, gid uint64, finalMode LockMode, eval StepEvaluator) (*Inode, Status) {
	clean := SanitizePath(path)
	if clean == "" {
		return nil, EINVAL
	}
	segs := splitSegments(clean)

	core.lock.RLock()
	root := core.root
	core.lock.RUnlock()

	if st := root.rlock("Resolve:root"); !st.Ok() {
		return nil, st
	}
	cur := root
	curLocked := LockRead

	if eval != nil {
		if st := eval(cur, 0); !st.Ok() {
			unlockStep(cur, curLocked, "Resolve:root-eval")
			return nil, st
		}
	}

	if len(segs) == 0 {
		// "/" itself: promote to write lock if requested.
		if finalMode == LockWrite {
			cur.runlock("Resolve:promote")
			if st := cur.wlock("Resolve:promote"); !st.Ok() {
				return nil, st
			}
			curLocked = LockWrite
		}
		if cur.typ == deadType || cur.deletionInProgress {
			unlockStep(cur, curLocked, "Resolve:root-dead")
			return nil, ENOENT
		}
		return cur, OK
	}

	for i, name := range segs {
		last := i == len(segs)-1

		if !cur.IsDir() {
			unlockStep(cur, curLocked, "Resolve:notdir")
			return nil, ENOTDIR
		}

		// Execute permission on cur is required to search it for name,
		// regardless of whether name is the final segment: resolving
		// /priv/anything needs exec on /priv just as much as exec on
		// root, even though "anything" is the last segment (spec.md
		// §4.3's "except the last" governs the lock mode and the
		// per-step evaluator's scope, not this check).
		if !checkPermission(cur.mode, cur.uid, cur.gid, uid, gid, PermExecute) {
			unlockStep(cur, curLocked, "Resolve:access")
			return nil, EACCES
		}

		child := cur.children.find(name)
		if child == nil {
			unlockStep(cur, curLocked, "Resolve:miss")
			return nil, ENOENT
		}

		var mode LockMode
		if last {
			mode = finalMode
		} else {
			mode = LockRead
		}

		var st Status
		if mode == LockWrite {
			st = child.wlock("Resolve:step")
		} else {
			st = child.rlock("Resolve:step")
		}
		if !st.Ok() {
			unlockStep(cur, curLocked, "Resolve:step-fail")
			return nil, st
		}
		if child.deletionInProgress {
			unlockStep(child, mode, "Resolve:step-deleted")
			unlockStep(cur, curLocked, "Resolve:step-deleted-parent")
			return nil, ENOENT
		}

		if eval != nil {
			if st := eval(child, i+1); !st.Ok() {
				unlockStep(child, mode, "Resolve:eval-fail")
				unlockStep(cur, curLocked, "Resolve:eval-fail-parent")
				return nil, st
			}
		}

		unlockStep(cur, curLocked, "Resolve:advance")
		cur = child
		curLocked = mode
	}

	if cur.typ == deadType || cur.deletionInProgress {
		unlockStep(cur, curLocked, "Resolve:terminal-dead")
		return nil, ENOENT
	}

	return cur, OK
}

func unlockStep(ino *Inode, mode LockMode, who string) {
	if mode == LockWrite {
		ino.wunlock(who)
	} else {
		ino.runlock(who)
	}
}

// loopGuard returns a StepEvaluator that fails with EINVAL the moment
// the destination walk steps onto sourceID -- used by rename to refuse
// moving a directory into its own subtree (spec.md §4.3 "Loop safety",
// testable property 8). It must be seeded with the source inode's id
// before walking the destination: a plain path is never revisited
// within one walk, so checking only for within-walk duplicates (as an
// empty-seeded set would) never fires. Grounded on
// original_source/libfskit/rename.c:360-364, which walks the
// destination's ancestor chain checking each one against the source's
// id.
func loopGuard(sourceID uint64) StepEvaluator {
	return func(ino *Inode, depth int) Status {
		if ino.id == sourceID {
			return EINVAL
		}
		return OK
	}
}

// PathWalker is the stepwise iterator form of Resolve mentioned in
// spec.md §4.3: it hands back each intermediate inode (still locked)
// and the path prefix resolved so far, releasing the prior hold on
// Next() and on an explicit Release(). A failed step halts iteration
// and records the error in Err().
type PathWalker struct {
	core     *Core
	uid, gid uint64
	finalize LockMode

	segs []string
	idx  int

	cur       *Inode
	curMode   LockMode
	prefix    string
	err       Status
	done      bool
}

func NewPathWalker(core *Core, path string, uid, gid uint64, finalMode LockMode) *PathWalker {
	clean := SanitizePath(path)
	w := &PathWalker{core: core, uid: uid, gid: gid, finalize: finalMode}
	if clean == "" {
		w.err = EINVAL
		w.done = true
		return w
	}
	w.segs = splitSegments(clean)
	core.lock.RLock()
	root := core.root
	core.lock.RUnlock()
	if st := root.rlock("PathWalker:root"); !st.Ok() {
		w.err = st
		w.done = true
		return w
	}
	w.cur = root
	w.curMode = LockRead
	w.prefix = "/"
	return w
}

// Err returns the error that halted iteration, if any.
func (w *PathWalker) Err() Status { return w.err }

// Release unlocks whatever inode the walker currently holds. Safe to
// call multiple times.
func (w *PathWalker) Release() {
	if w.cur != nil {
		unlockStep(w.cur, w.curMode, "PathWalker:release")
		w.cur = nil
	}
}

// Next advances one path segment, releasing the previous hold and
// returning the newly locked inode plus the path prefix resolved so
// far. ok is false once the walk is complete or has failed; check
// Err() to distinguish the two.
func (w *PathWalker) Next() (ino *Inode, prefix string, ok bool) {
	if w.done || w.idx >= len(w.segs) {
		w.done = true
		return nil, "", false
	}

	name := w.segs[w.idx]
	last := w.idx == len(w.segs)-1
	w.idx++

	if !w.cur.IsDir() {
		w.err = ENOTDIR
		w.Release()
		w.done = true
		return nil, "", false
	}
	if !checkPermission(w.cur.mode, w.cur.uid, w.cur.gid, w.uid, w.gid, PermExecute) {
		w.err = EACCES
		w.Release()
		w.done = true
		return nil, "", false
	}

	child := w.cur.children.find(name)
	if child == nil {
		w.err = ENOENT
		w.Release()
		w.done = true
		return nil, "", false
	}

	mode := LockRead
	if last {
		mode = w.finalize
	}
	var st Status
	if mode == LockWrite {
		st = child.wlock("PathWalker:step")
	} else {
		st = child.rlock("PathWalker:step")
	}
	if !st.Ok() {
		w.err = st
		w.Release()
		w.done = true
		return nil, "", false
	}

	w.Release()
	w.cur = child
	w.curMode = mode
	if w.prefix == "/" {
		w.prefix = "/" + name
	} else {
		w.prefix = w.prefix + "/" + name
	}
	return child, w.prefix, true
}
