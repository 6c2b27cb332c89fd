package fskit

import "golang.org/x/sync/singleflight"

// runDetachRoute and runDestroyRoute fire the two lifecycle
// notifications spec.md §4.4 sets aside for names being removed and
// inodes being freed. Both are best-effort: a route that is not
// declared, or whose callback reports ENOSYS or EPERM, is treated as
// "nothing to do"; any other failure is only logged (grounded on
// original_source/libfskit/entry.c's fskit_run_user_detach /
// fskit_run_user_destroy).
func runDetachRoute(core *Core, path string, parent, ino *Inode, gc bool) {
	r, groups, ok := core.routes.match(RouteDetach, path)
	if !ok {
		return
	}
	cb, ok := r.callback.(DetachCallback)
	if !ok {
		return
	}
	meta := RouteMetadata{Path: path, Groups: groups, Parent: parent, GC: gc}
	st := dispatch(r, ino, false, func() Status {
		return cb(core, meta, ino, ino.AppData())
	})
	if st != OK && st != ENOSYS && st != EPERM {
		errorf("detach route for %q returned %s", path, st)
	}
}

func runDestroyRoute(core *Core, path string, parent, ino *Inode) {
	r, groups, ok := core.routes.match(RouteDestroy, path)
	if !ok {
		return
	}
	cb, ok := r.callback.(DestroyCallback)
	if !ok {
		return
	}
	meta := RouteMetadata{Path: path, Groups: groups, Parent: parent}
	st := dispatch(r, ino, false, func() Status {
		return cb(core, meta, ino, ino.AppData())
	})
	if st != OK && st != ENOSYS && st != EPERM {
		errorf("destroy route for %q returned %s", path, st)
	}
}

// tryDestroy implements fskit_entry_try_destroy (grounded on
// original_source/libfskit/entry.c lines ~1150-1270): given an inode
// whose link count and open count have both already reached zero, it
// runs the destroy route and frees the inode's memory-bearing fields,
// returning its id to the allocator.
//
// ino must NOT be locked on entry; tryDestroy acquires and releases
// the lock itself, in two separate critical sections, so that the
// (possibly slow, possibly path-resolving) destroy-route callback
// never runs while ino's own lock is held -- the same reason the C
// original unlocks fent before invoking fskit_run_user_destroy.
// Between the two sections the open count is held at 1 as a guard
// against a second caller entering concurrently (it can only have
// reached zero once, by construction: see the check below).
//
// Returns true if the inode was destroyed, false if it still has
// outstanding links or open handles (or is already dead).
func tryDestroy(core *Core, parent *Inode, ino *Inode, path string) bool {
	if st := ino.wlock("tryDestroy"); !st.Ok() {
		return false
	}
	if ino.linkCount < 0 || ino.openCount < 0 {
		errorf("BUG: inode %d has negative refcount (link=%d open=%d)", ino.id, ino.linkCount, ino.openCount)
		ino.wunlock("tryDestroy")
		return false
	}
	if ino.linkCount > 0 || ino.openCount > 0 {
		ino.wunlock("tryDestroy")
		return false
	}
	ino.openCount++ // transient guard against a concurrent second try-destroy
	ino.wunlock("tryDestroy")

	runDestroyRoute(core, path, parent, ino)

	if st := ino.wlock("tryDestroy-finish"); st.Ok() {
		ino.openCount--
		id := ino.id
		ino.markDead()
		ino.wunlock("tryDestroy-finish")
		core.releaseID(id)
		core.incFileCount(-1)
	}
	return true
}

// detachOne removes name from parent's live children set and performs
// the matching link-count decrement in one step (spec.md §3 "Detach":
// "removal of a name from the set is atomic with the link-count
// decrement of the child"). parent must be write-locked by the
// caller; ino must not be. Used directly by unlink/rmdir, where the
// name disappears from the namespace immediately regardless of
// whether the inode itself can be destroyed yet.
func detachOne(core *Core, parent *Inode, name string, ino *Inode) {
	parent.children.remove(name)

	ino.wlock("detachOne")
	ino.linkCount--
	if ino.linkCount <= 0 {
		ino.deletionInProgress = true
	}
	ino.wunlock("detachOne")
}

// singleInodeDeferredRemoval implements spec.md §4.5's first
// primitive: it flags ino for deletion, decrements its link count,
// bumps its open count as a transient guard, and hands the final
// try-destroy off to the core's deferred work queue rather than
// running it on the caller's goroutine. Used by bulk subtree teardown,
// where the caller is mid-BFS and should not block on an arbitrary
// destroy-route callback per child.
//
// Unlike detachOne, this does not touch parent's children set: the
// caller (teardownSubtree) has already cut the whole directory's
// children off from the live tree via an atomic pointer swap, so the
// name's visibility is already gone the moment this is called.
func singleInodeDeferredRemoval(core *Core, parent *Inode, path string, ino *Inode) Status {
	if st := ino.wlock("singleInodeDeferredRemoval"); !st.Ok() {
		return OK // already gone
	}
	ino.linkCount--
	ino.deletionInProgress = true
	ino.openCount++
	ino.wunlock("singleInodeDeferredRemoval")

	return core.wq.enqueue(&wqJob{
		inode: ino,
		path:  path,
		fn: func() {
			ino.wlock("deferred-job")
			ino.openCount--
			ino.wunlock("deferred-job")
			tryDestroy(core, parent, ino, path)
		},
	})
}

// tryGarbageCollect implements fskit_entry_try_garbage_collect: given
// a name that is still visible in parent's live children set but whose
// inode has already been flagged deletionInProgress (the race window
// a concurrent create with bare O_CREAT must wait out, spec.md §4.6
// "open"), it detaches the name and destroys the inode in one step.
// parent must not be locked on entry.
func tryGarbageCollect(core *Core, parent *Inode, name string, path string) bool {
	if st := parent.wlock("tryGarbageCollect"); !st.Ok() {
		return false
	}
	ino := parent.children.find(name)
	if ino == nil {
		parent.wunlock("tryGarbageCollect")
		return false
	}
	parent.children.remove(name)
	parent.wunlock("tryGarbageCollect")

	return tryDestroy(core, parent, ino, path)
}

// gcWaiters collapses concurrent waiters on the same (parent, name)
// pair into a single poll loop, per spec.md §3's domain-stack wiring
// for golang.org/x/sync/singleflight: several goroutines racing a
// bare-O_CREAT open against the same deletion-in-progress name should
// not each spin independently.
var gcWaiters singleflight.Group

// waitForNameFree is used by open(O_CREAT) when it finds an existing,
// still-visible entry flagged deletionInProgress: spec.md §4.6 says
// such a create "waits for that entry to be garbage-collected, then
// proceeds." It runs (at most once per colliding key, the rest riding
// the same result) a synchronous garbage-collect of the stale entry.
func waitForNameFree(core *Core, parent *Inode, name, path string) {
	key := gcWaiterKey(parent.id, name)
	gcWaiters.Do(key, func() (interface{}, error) {
		tryGarbageCollect(core, parent, name, path)
		return nil, nil
	})
}

func gcWaiterKey(parentID uint64, name string) string {
	return itoa64(parentID) + "/" + name
}

func itoa64(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// TeardownBudget bounds how many inodes a single bulk-teardown call
// will queue for deferred removal before returning EAGAIN, so a caller
// tearing down a very large subtree can make the work interruptible
// instead of walking millions of inodes in one call. This is this
// port's answer to the C original's allocation-failure path during
// bulk removal (original_source/libfskit/path.c): Go's allocator
// cannot report ENOMEM to callers, so an exhaustible, caller-supplied
// budget is the honest analog -- it can legitimately run out and be
// retried, the same way the C path can legitimately hit ENOMEM and be
// retried after the caller frees something.
//
// A TeardownBudget is not safe for concurrent use; share one across
// calls only from a single goroutine at a time.
type TeardownBudget struct {
	remaining int
	pending   []pendingTeardown
}

type pendingTeardown struct {
	parent     *Inode
	parentPath string
	name       string
	ino        *Inode
}

// NewTeardownBudget returns a budget that will queue at most max
// inodes (across however many teardown calls share it) before
// reporting EAGAIN.
func NewTeardownBudget(max int) *TeardownBudget {
	return &TeardownBudget{remaining: max}
}

// Remaining reports how many more inodes this budget will queue
// before exhausting.
func (b *TeardownBudget) Remaining() int { return b.remaining }

// teardownSubtree implements spec.md §4.5's "Subtree deferred
// removal": dir's children set is atomically swapped for a fresh one
// containing only "." and "..", and every former child is queued
// breadth-first for deferred removal. Directories among them are
// swapped the same way before their own former children are queued.
// Each dequeued inode has its detach route run and its removal handed
// to the work queue before the next one is dequeued, so destroy routes
// may already be running on the work queue while the walk continues.
//
// dir must not be locked on entry. The actual destruction of each
// child happens asynchronously on core's work queue; callers that need
// it complete (e.g. Core.Destroy) rely on workQueue.shutdown's
// synchronous drain.
func teardownSubtree(core *Core, dirPath string, dir *Inode) Status {
	if st := dir.wlock("teardownSubtree"); !st.Ok() {
		return OK
	}
	if !dir.IsDir() {
		dir.wunlock("teardownSubtree")
		return ENOTDIR
	}
	old := dir.children
	dir.children = newEntrySet()
	dir.children.insert(".", dir, true)
	if parent := old.find(".."); parent != nil {
		dir.children.insert("..", parent, true)
	} else {
		dir.children.insert("..", dir, true)
	}
	dir.wunlock("teardownSubtree")

	type queued struct {
		parent     *Inode
		parentPath string
		name       string
		ino        *Inode
	}
	var queue []queued
	old.each(func(name string, ino *Inode) bool {
		if name == "." || name == ".." {
			return true
		}
		queue = append(queue, queued{dir, dirPath, name, ino})
		return true
	})

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		childPath := Fullpath(item.parentPath, item.name)

		if st := item.ino.wlock("teardownSubtree-child"); st.Ok() {
			if item.ino.IsDir() {
				grandchildren := item.ino.children
				item.ino.children = newEntrySet()
				item.ino.children.insert(".", item.ino, true)
				item.ino.children.insert("..", item.parent, true)
				item.ino.wunlock("teardownSubtree-child")

				grandchildren.each(func(n string, gc *Inode) bool {
					if n == "." || n == ".." {
						return true
					}
					queue = append(queue, queued{item.ino, childPath, n, gc})
					return true
				})
			} else {
				item.ino.wunlock("teardownSubtree-child")
			}
		}

		runDetachRoute(core, childPath, item.parent, item.ino, true)
		if st := singleInodeDeferredRemoval(core, item.parent, childPath, item.ino); !st.Ok() {
			errorf("teardownSubtree: deferred removal of %q failed: %s", childPath, st)
		}
	}
	return OK
}

// teardownSubtreeBudgeted is the budget-bounded sibling of
// teardownSubtree: it cuts dir loose from the live tree exactly the
// same way, then hands the former children to budget instead of
// draining them unconditionally. Call budget.drain(core) (directly or
// via another teardownSubtreeBudgeted sharing the same budget) to make
// progress; EAGAIN means the budget ran out with work still pending.
func teardownSubtreeBudgeted(core *Core, dirPath string, dir *Inode, budget *TeardownBudget) Status {
	if st := dir.wlock("teardownSubtreeBudgeted"); !st.Ok() {
		return OK
	}
	if !dir.IsDir() {
		dir.wunlock("teardownSubtreeBudgeted")
		return ENOTDIR
	}
	old := dir.children
	dir.children = newEntrySet()
	dir.children.insert(".", dir, true)
	if parent := old.find(".."); parent != nil {
		dir.children.insert("..", parent, true)
	} else {
		dir.children.insert("..", dir, true)
	}
	dir.wunlock("teardownSubtreeBudgeted")

	old.each(func(name string, ino *Inode) bool {
		if name == "." || name == ".." {
			return true
		}
		budget.pending = append(budget.pending, pendingTeardown{dir, dirPath, name, ino})
		return true
	})

	return budget.drain(core)
}

// drain processes budget.pending breadth-first until it empties or
// the budget's remaining count hits zero, in which case it returns
// EAGAIN with whatever is left still queued in budget.pending for a
// later call to pick back up.
func (b *TeardownBudget) drain(core *Core) Status {
	for len(b.pending) > 0 {
		if b.remaining <= 0 {
			return EAGAIN
		}
		item := b.pending[0]
		b.pending = b.pending[1:]
		b.remaining--

		childPath := Fullpath(item.parentPath, item.name)

		if st := item.ino.wlock("teardownSubtreeBudgeted-child"); st.Ok() {
			if item.ino.IsDir() {
				grandchildren := item.ino.children
				item.ino.children = newEntrySet()
				item.ino.children.insert(".", item.ino, true)
				item.ino.children.insert("..", item.parent, true)
				item.ino.wunlock("teardownSubtreeBudgeted-child")

				grandchildren.each(func(n string, gc *Inode) bool {
					if n == "." || n == ".." {
						return true
					}
					b.pending = append(b.pending, pendingTeardown{item.ino, childPath, n, gc})
					return true
				})
			} else {
				item.ino.wunlock("teardownSubtreeBudgeted-child")
			}
		}

		runDetachRoute(core, childPath, item.parent, item.ino, true)
		if st := singleInodeDeferredRemoval(core, item.parent, childPath, item.ino); !st.Ok() {
			errorf("teardownSubtreeBudgeted: deferred removal of %q failed: %s", childPath, st)
		}
	}
	return OK
}
