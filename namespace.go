package fskit

// This file implements the façade operations that change the shape of
// the namespace itself: mkdir, mknod, rmdir, unlink, rename, symlink,
// link, readlink (spec.md §4.6). All of them share the same skeleton:
// resolve the parent(s) write-locked, check permission, mutate the
// entry set and refcounts, then run the matching route (if any) and
// finally release the locks -- grounded throughout on
// original_source/libfskit/{mkdir,mknod,rmdir,unlink,rename,symlink,link,readlink}.c.

// Create allocates a new regular-file inode under parent directory
// dirPath, running the matching RouteCreate callback (if any) to let
// the application install app data, then attaches it atomically
// (spec.md §4.6 "create").
func Create(core *Core, path string, mode uint32, uid, gid uint64) (*Inode, Status) {
	dirPath := Dirname(path)
	name := Basename(path)

	parent, st := Resolve(core, dirPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return nil, st
	}
	defer parent.wunlock("Create")

	if !parent.IsDir() {
		return nil, ENOTDIR
	}
	if !checkPermission(parent.mode, parent.uid, parent.gid, uid, gid, PermWrite|PermExecute) {
		return nil, EACCES
	}

	if existing := parent.children.find(name); existing != nil {
		if existing.deletionInProgress {
			parent.wunlock("Create-wait")
			waitForNameFree(core, parent, name, path)
			if st := parent.wlock("Create-relock"); !st.Ok() {
				return nil, st
			}
		} else {
			return nil, EEXIST
		}
	}

	ino := newInode(core, Regular, mode, uid, gid)
	ino.id = core.nextID()

	r, groups, matched := core.routes.match(RouteCreate, path)
	if matched {
		cb, ok := r.callback.(CreateCallback)
		if ok {
			meta := RouteMetadata{Path: path, Groups: groups, Parent: parent}
			var created *Inode
			rst := dispatch(r, ino, false, func() Status {
				var cst Status
				created, cst = cb(core, meta, nil)
				return cst
			})
			if !rst.Ok() {
				core.releaseID(ino.id)
				return nil, rst
			}
			if created != nil {
				ino = created
			}
		}
	}

	if st := parent.children.insert(name, ino, false); !st.Ok() {
		core.releaseID(ino.id)
		return nil, st
	}
	ino.linkCount = 1
	parent.touchMtime()
	core.incFileCount(1)
	return ino, OK
}

// Mknod creates a special file (fifo/socket/char/block device) the
// same way Create does, but with an explicit type and device number
// (spec.md §4.6 "mknod").
func Mknod(core *Core, path string, typ Type, mode uint32, dev uint32, uid, gid uint64) (*Inode, Status) {
	dirPath := Dirname(path)
	name := Basename(path)

	parent, st := Resolve(core, dirPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return nil, st
	}
	defer parent.wunlock("Mknod")

	if !parent.IsDir() {
		return nil, ENOTDIR
	}
	if !checkPermission(parent.mode, parent.uid, parent.gid, uid, gid, PermWrite|PermExecute) {
		return nil, EACCES
	}
	if parent.children.find(name) != nil {
		return nil, EEXIST
	}

	ino := newInode(core, typ, mode, uid, gid)
	ino.id = core.nextID()
	ino.dev = dev

	r, groups, matched := core.routes.match(RouteMknod, path)
	if matched {
		cb, ok := r.callback.(MknodCallback)
		if ok {
			meta := RouteMetadata{Path: path, Groups: groups, Parent: parent}
			rst := dispatch(r, ino, false, func() Status {
				created, cst := cb(core, meta, mode, dev, nil)
				if created != nil {
					ino = created
				}
				return cst
			})
			if !rst.Ok() {
				core.releaseID(ino.id)
				return nil, rst
			}
		}
	}

	if st := parent.children.insert(name, ino, false); !st.Ok() {
		core.releaseID(ino.id)
		return nil, st
	}
	ino.linkCount = 1
	parent.touchMtime()
	core.incFileCount(1)
	return ino, OK
}

// Mkdir creates a new directory, seeding its "." and ".." entries and
// bumping the parent's link count for the child's ".." back-reference
// (spec.md §4.6 "mkdir").
func Mkdir(core *Core, path string, mode uint32, uid, gid uint64) (*Inode, Status) {
	dirPath := Dirname(path)
	name := Basename(path)

	parent, st := Resolve(core, dirPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return nil, st
	}
	defer parent.wunlock("Mkdir")

	if !parent.IsDir() {
		return nil, ENOTDIR
	}
	if !checkPermission(parent.mode, parent.uid, parent.gid, uid, gid, PermWrite|PermExecute) {
		return nil, EACCES
	}
	if parent.children.find(name) != nil {
		return nil, EEXIST
	}

	ino := newDirInode(core, mode, uid, gid, parent)
	ino.id = core.nextID()

	r, groups, matched := core.routes.match(RouteMkdir, path)
	if matched {
		cb, ok := r.callback.(MkdirCallback)
		if ok {
			meta := RouteMetadata{Path: path, Groups: groups, Parent: parent}
			rst := dispatch(r, ino, false, func() Status {
				created, cst := cb(core, meta, mode, nil)
				if created != nil {
					ino = created
				}
				return cst
			})
			if !rst.Ok() {
				core.releaseID(ino.id)
				return nil, rst
			}
		}
	}

	if st := parent.children.insert(name, ino, false); !st.Ok() {
		core.releaseID(ino.id)
		return nil, st
	}
	ino.linkCount = 1
	parent.linkCount++ // child's ".." refers back to parent
	parent.touchMtime()
	core.incFileCount(1)
	return ino, OK
}

// Symlink creates a symbolic link whose contents are target (spec.md
// §4.6 "symlink"). Symlinks are never followed by the resolver itself
// -- that policy lives with the caller, per spec.md's Non-goals.
func Symlink(core *Core, path, target string, uid, gid uint64) (*Inode, Status) {
	dirPath := Dirname(path)
	name := Basename(path)

	parent, st := Resolve(core, dirPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return nil, st
	}
	defer parent.wunlock("Symlink")

	if !parent.IsDir() {
		return nil, ENOTDIR
	}
	if !checkPermission(parent.mode, parent.uid, parent.gid, uid, gid, PermWrite|PermExecute) {
		return nil, EACCES
	}
	if parent.children.find(name) != nil {
		return nil, EEXIST
	}

	ino := newSymlinkInode(core, uid, gid, target)
	ino.id = core.nextID()
	if st := parent.children.insert(name, ino, false); !st.Ok() {
		core.releaseID(ino.id)
		return nil, st
	}
	ino.linkCount = 1
	parent.touchMtime()
	core.incFileCount(1)
	return ino, OK
}

// Readlink returns a symlink's target string.
func Readlink(core *Core, path string, uid, gid uint64) (string, Status) {
	ino, st := Resolve(core, path, uid, gid, LockRead, nil)
	if !st.Ok() {
		return "", st
	}
	defer ino.runlock("Readlink")
	if ino.typ != Symlink {
		return "", EINVAL
	}
	return ino.symlinkTarget, OK
}

// Link creates a new hard link newPath pointing at the same inode as
// oldPath (spec.md §4.6 "link"). Directories cannot be hard-linked.
func Link(core *Core, oldPath, newPath string, uid, gid uint64) Status {
	ino, st := Resolve(core, oldPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return st
	}
	if ino.IsDir() {
		ino.wunlock("Link-isdir")
		return EPERM
	}

	dirPath := Dirname(newPath)
	name := Basename(newPath)
	parent, st := Resolve(core, dirPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		ino.wunlock("Link")
		return st
	}
	defer parent.wunlock("Link-parent")
	defer ino.wunlock("Link")

	if !parent.IsDir() {
		return ENOTDIR
	}
	if !checkPermission(parent.mode, parent.uid, parent.gid, uid, gid, PermWrite|PermExecute) {
		return EACCES
	}
	if parent.children.find(name) != nil {
		return EEXIST
	}

	if r, groups, matched := core.routes.match(RouteLink, newPath); matched {
		if cb, ok := r.callback.(LinkCallback); ok {
			meta := RouteMetadata{Path: oldPath, NewPath: newPath, Groups: groups, Parent: parent}
			if rst := dispatch(r, ino, true, func() Status {
				return cb(core, meta, ino, ino.AppData())
			}); !rst.Ok() {
				return rst
			}
		}
	}

	if st := parent.children.insert(name, ino, false); !st.Ok() {
		return st
	}
	ino.linkCount++
	ino.touchCtime()
	parent.touchMtime()
	return OK
}

// Unlink removes a non-directory directory entry, running the detach
// route and destroying the inode immediately if that was its last
// reference (spec.md §4.6 "unlink", grounded on
// original_source/libfskit/unlink.c).
func Unlink(core *Core, path string, uid, gid uint64) Status {
	dirPath := Dirname(path)
	name := Basename(path)

	parent, st := Resolve(core, dirPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return st
	}
	if !parent.IsDir() {
		parent.wunlock("Unlink")
		return ENOTDIR
	}
	if !checkPermission(parent.mode, parent.uid, parent.gid, uid, gid, PermWrite|PermExecute) {
		parent.wunlock("Unlink")
		return EACCES
	}

	child := parent.children.find(name)
	if child == nil {
		parent.wunlock("Unlink")
		return ENOENT
	}
	if st := child.wlock("Unlink-child"); !st.Ok() {
		parent.wunlock("Unlink")
		return ENOENT
	}
	if child.IsDir() {
		child.wunlock("Unlink-child")
		parent.wunlock("Unlink")
		return EISDIR
	}
	child.wunlock("Unlink-child")

	detachOne(core, parent, name, child)
	parent.touchMtime()
	parent.wunlock("Unlink")

	runDetachRoute(core, path, parent, child, false)
	tryDestroy(core, parent, child, path)
	return OK
}

// Rmdir removes an empty directory entry (spec.md §4.6 "rmdir"). A
// non-empty directory fails with ENOTEMPTY; recursive removal is a
// separate, explicit operation (see RemoveTree) rather than something
// rmdir does implicitly.
func Rmdir(core *Core, path string, uid, gid uint64) Status {
	dirPath := Dirname(path)
	name := Basename(path)

	parent, st := Resolve(core, dirPath, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return st
	}
	if !parent.IsDir() {
		parent.wunlock("Rmdir")
		return ENOTDIR
	}
	if !checkPermission(parent.mode, parent.uid, parent.gid, uid, gid, PermWrite|PermExecute) {
		parent.wunlock("Rmdir")
		return EACCES
	}

	child := parent.children.find(name)
	if child == nil {
		parent.wunlock("Rmdir")
		return ENOENT
	}
	if st := child.wlock("Rmdir-child"); !st.Ok() {
		parent.wunlock("Rmdir")
		return ENOENT
	}
	if !child.IsDir() {
		child.wunlock("Rmdir-child")
		parent.wunlock("Rmdir")
		return ENOTDIR
	}
	if child.children.count() > 0 {
		child.wunlock("Rmdir-child")
		parent.wunlock("Rmdir")
		return ENOTEMPTY
	}
	child.wunlock("Rmdir-child")

	detachOne(core, parent, name, child)
	parent.linkCount-- // drop the removed child's ".." reference
	parent.touchMtime()
	parent.wunlock("Rmdir")

	runDetachRoute(core, path, parent, child, false)
	tryDestroy(core, parent, child, path)
	return OK
}

// RemoveTree recursively tears down everything under path, including
// path itself if it is a directory, using the deferred bulk-teardown
// machinery (spec.md §4.5 "Subtree deferred removal"). This is a
// library-level convenience beyond plain POSIX rmdir, supplementing
// what the distilled spec covers with the recursive-removal support
// original_source/libfskit/path.c exposes to higher-level callers.
func RemoveTree(core *Core, path string, uid, gid uint64) Status {
	ino, st := Resolve(core, path, uid, gid, LockRead, nil)
	if !st.Ok() {
		return st
	}
	isDir := ino.IsDir()
	ino.runlock("RemoveTree")

	if !isDir {
		return Unlink(core, path, uid, gid)
	}

	if st := teardownSubtree(core, path, ino); !st.Ok() {
		return st
	}

	if path == "/" {
		return OK
	}
	return Rmdir(core, path, uid, gid)
}

// RemoveTreeWithBudget behaves like RemoveTree but bounds the number
// of inodes queued for deferred removal to budget, returning EAGAIN
// (rather than blocking indefinitely) once it runs out with work
// still pending. The budget's count is set once by NewTeardownBudget
// and is never replenished by these calls: once it reaches zero, every
// later call with that budget returns EAGAIN without processing
// anything.
func RemoveTreeWithBudget(core *Core, path string, uid, gid uint64, budget *TeardownBudget) Status {
	ino, st := Resolve(core, path, uid, gid, LockRead, nil)
	if !st.Ok() {
		return st
	}
	isDir := ino.IsDir()
	ino.runlock("RemoveTreeWithBudget")

	if !isDir {
		return Unlink(core, path, uid, gid)
	}

	if st := teardownSubtreeBudgeted(core, path, ino, budget); !st.Ok() {
		// EAGAIN: the budget ran out with descendants still queued in
		// budget.pending. path's own children set is already empty
		// (swapped out above), but the caller must drain the rest of
		// the budget before it is safe to rmdir path itself.
		return st
	}

	if path == "/" {
		return OK
	}
	return Rmdir(core, path, uid, gid)
}

// DrainTeardownBudget processes whatever work remains in budget,
// continuing a bulk removal started by RemoveTreeWithBudget (or a
// prior DrainTeardownBudget call) that returned EAGAIN. Returns OK
// once budget.pending is empty, or EAGAIN if the budget's remaining
// count reaches zero first (immediately, if it is already zero).
func DrainTeardownBudget(core *Core, budget *TeardownBudget) Status {
	return budget.drain(core)
}

// Rename moves oldPath to newPath, overwriting an existing newPath if
// one exists and the types are compatible (spec.md §4.6 "rename",
// grounded on original_source/libfskit/rename.c). Locks are acquired
// deepest-path-first to match lock ordering elsewhere in the resolver,
// and newDir's ancestor chain is always walked with a loop guard
// seeded with the source entry's id -- regardless of which of
// oldDir/newDir happens to be locked first -- so a rename that would
// turn a directory into its own descendant fails with EINVAL instead
// of deadlocking or corrupting the tree.
func Rename(core *Core, oldPath, newPath string, uid, gid uint64) Status {
	oldDir := Dirname(oldPath)
	oldName := Basename(oldPath)
	newDir := Dirname(newPath)
	newName := Basename(newPath)

	// The loop guard needs the source entry's id before newDir's
	// ancestor chain is walked, which may happen before oldDir's
	// parent is ever resolved (when newDir is the deeper side and is
	// locked first) -- so look it up under its own brief read lock
	// ahead of the real locking below, rather than trying to thread it
	// out of whichever resolve happens to run first.
	srcProbe, st := Resolve(core, oldPath, uid, gid, LockRead, nil)
	if !st.Ok() {
		return st
	}
	sourceID := srcProbe.id
	srcProbe.runlock("Rename-source-probe")

	// Lock the deeper parent first; ties broken lexically, to impose
	// a total order across concurrent renames (spec.md §4.6).
	firstDir, secondDir := oldDir, newDir
	swapped := false
	if Depth(newDir) > Depth(oldDir) || (Depth(newDir) == Depth(oldDir) && newDir < oldDir) {
		firstDir, secondDir = newDir, oldDir
		swapped = true
	}

	// The loop-detecting evaluator always attaches to whichever
	// resolve call targets newDir, never to oldDir's -- a same-
	// directory rename (oldDir == newDir) needs no guard at all, since
	// siblings in one directory can never nest one inside the other.
	var firstEval, secondEval StepEvaluator
	if firstDir != secondDir {
		if swapped {
			firstEval = loopGuard(sourceID)
		} else {
			secondEval = loopGuard(sourceID)
		}
	}

	firstParent, st := Resolve(core, firstDir, uid, gid, LockWrite, firstEval)
	if !st.Ok() {
		return st
	}

	var oldParent, newParent *Inode
	if firstDir == secondDir {
		oldParent, newParent = firstParent, firstParent
	} else {
		secondParent, st := Resolve(core, secondDir, uid, gid, LockWrite, secondEval)
		if !st.Ok() {
			firstParent.wunlock("Rename-first")
			return st
		}
		if swapped {
			newParent, oldParent = firstParent, secondParent
		} else {
			oldParent, newParent = firstParent, secondParent
		}
	}
	unlockParents := func() {
		if oldParent == newParent {
			oldParent.wunlock("Rename-shared")
			return
		}
		oldParent.wunlock("Rename-old")
		newParent.wunlock("Rename-new")
	}

	if !oldParent.IsDir() || !newParent.IsDir() {
		unlockParents()
		return ENOTDIR
	}
	if !checkPermission(oldParent.mode, oldParent.uid, oldParent.gid, uid, gid, PermWrite|PermExecute) ||
		!checkPermission(newParent.mode, newParent.uid, newParent.gid, uid, gid, PermWrite|PermExecute) {
		unlockParents()
		return EACCES
	}

	src := oldParent.children.find(oldName)
	if src == nil {
		unlockParents()
		return ENOENT
	}

	var displaced *Inode
	if dst := newParent.children.find(newName); dst != nil {
		if dst == src {
			unlockParents()
			return OK
		}
		if src.IsDir() != dst.IsDir() {
			unlockParents()
			if dst.IsDir() {
				return EISDIR
			}
			return ENOTDIR
		}
		if dst.IsDir() {
			if st := dst.wlock("Rename-dst-check"); st.Ok() {
				empty := dst.children.count() == 0
				dst.wunlock("Rename-dst-check")
				if !empty {
					unlockParents()
					return ENOTEMPTY
				}
			}
		}

		detachOne(core, newParent, newName, dst)
		if dst.IsDir() {
			newParent.linkCount--
		}
		displaced = dst
	}

	if r, groups, matched := core.routes.match(RouteRename, oldPath); matched {
		if cb, ok := r.callback.(RenameCallback); ok {
			meta := RouteMetadata{Path: oldPath, NewPath: newPath, Groups: groups, Parent: oldParent, DestParent: newParent}
			if rst := dispatch(r, src, false, func() Status {
				return cb(core, meta, src, src.AppData())
			}); !rst.Ok() {
				unlockParents()
				return rst
			}
		}
	}

	oldParent.children.remove(oldName)
	newParent.children.insert(newName, src, true)
	if src.IsDir() && oldParent != newParent {
		src.wlock("Rename-src-dotdot")
		src.children.insert("..", newParent, true)
		src.wunlock("Rename-src-dotdot")
		oldParent.linkCount--
		newParent.linkCount++
	}
	oldParent.touchMtime()
	newParent.touchMtime()

	// Parents are released before the displaced destination's detach
	// notification and try-destroy run, for the same reason Unlink
	// releases its parent first: a destroy-route callback must never
	// run while a directory lock it might need to resolve through is
	// still held (spec.md §4.5).
	unlockParents()

	if displaced != nil {
		runDetachRoute(core, newPath, newParent, displaced, false)
		tryDestroy(core, newParent, displaced, newPath)
	}
	return OK
}
