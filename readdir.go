package fskit

// DirEntry is one row returned by Readdir: a name plus the minimal
// stat-shaped fields a caller typically wants without a second Stat
// call (spec.md §4.6 "readdir").
type DirEntry struct {
	Name string
	Ino  uint64
	Type Type
}

// Readdir returns up to max entries starting after the handle's
// current bookmark (or from the beginning, if none), advancing the
// bookmark to the last name returned. max <= 0 means "no limit"
// (spec.md §9's resolved Open Question: bookmark-based pagination,
// not numeric offsets, so entries inserted/removed between calls never
// shift another entry's position the way an offset-based cursor
// would).
func Readdir(core *Core, h *Handle, max int) ([]DirEntry, Status) {
	ino := h.Inode()

	// A handle's lock is always acquired before the inode it
	// references (spec.md §5 "Handle before inode"), so the bookmark
	// is read before ino is locked below.
	h.rlock("Readdir-bookmark")
	bookmark := h.dirBookmark
	h.runlock("Readdir-bookmark")

	if st := ino.rlock("Readdir"); !st.Ok() {
		return nil, st
	}

	if !ino.IsDir() {
		ino.runlock("Readdir")
		return nil, ENOTDIR
	}

	if r, groups, matched := core.routes.match(RouteReaddir, h.Path()); matched {
		if cb, ok := r.callback.(ReaddirCallback); ok {
			meta := RouteMetadata{Path: h.Path(), Groups: groups}
			if rst := dispatch(r, ino, true, func() Status {
				return cb(core, meta, ino, h.AppData())
			}); !rst.Ok() {
				ino.runlock("Readdir")
				return nil, rst
			}
		}
	}

	names := ino.children.namesFrom(bookmark)
	if max > 0 && len(names) > max {
		names = names[:max]
	}

	out := make([]DirEntry, 0, len(names))
	for _, name := range names {
		child := ino.children.find(name)
		if child == nil || child.deletionInProgress {
			continue
		}
		out = append(out, DirEntry{Name: name, Ino: child.id, Type: child.typ})
	}
	ino.runlock("Readdir")

	// Seekdir takes the handle's own lock; ino is already released
	// above so this never holds both at once in the inode-then-handle
	// order (spec.md §5 "Handle before inode").
	if len(out) > 0 {
		h.Seekdir(out[len(out)-1].Name)
	}
	return out, OK
}

// Listdir is Readdir's one-shot, handle-free convenience: it opens,
// reads every entry, and closes, for callers that don't need the
// bookmark-based incremental API.
func Listdir(core *Core, path string, uid, gid uint64) ([]DirEntry, Status) {
	h, st := Opendir(core, path, uid, gid)
	if !st.Ok() {
		return nil, st
	}
	defer Closedir(core, h)

	var all []DirEntry
	for {
		batch, st := Readdir(core, h, 0)
		if !st.Ok() {
			return nil, st
		}
		all = append(all, batch...)
		break // namesFrom("") with max<=0 already returns everything
	}
	return all, OK
}
