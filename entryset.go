package fskit

import "sort"

// maxNameLen is the bound on a single path component, matching the
// FSKIT_FILESYSTEM_NAMEMAX used throughout the original C core.
const maxNameLen = 255

// entrySet is an ordered map from child name to child inode, one per
// directory. It is the Go analog of fskit_entry_set: a name-sorted
// association that supports logarithmic-ish lookup via a side index
// plus a stable, sorted slice for in-order iteration (readdir §4.6
// requires name-order output).
//
// entrySet is not safe for concurrent use; callers hold the owning
// inode's lock (spec.md §3 "Entry set").
type entrySet struct {
	byName map[string]*Inode
	sorted []string // kept sorted; rebuilt lazily
	dirty  bool
}

func newEntrySet() *entrySet {
	return &entrySet{byName: make(map[string]*Inode, 8)}
}

// insert adds name -> ino. If replace is false and name already
// exists, it fails with EEXIST (used by mkdir/mknod/create/symlink).
// If replace is true, an existing entry is silently overwritten
// (used internally by rename's atomic swap).
func (s *entrySet) insert(name string, ino *Inode, replace bool) Status {
	if len(name) > maxNameLen {
		return ENAMETOOLONG
	}
	if _, ok := s.byName[name]; ok && !replace {
		return EEXIST
	}
	if _, ok := s.byName[name]; !ok {
		s.dirty = true
	}
	s.byName[name] = ino
	return OK
}

func (s *entrySet) find(name string) *Inode {
	return s.byName[name]
}

// remove deletes name from the set. Removing "." or ".." is a bug:
// the caller (lifecycle.go) never does it directly, it swaps the
// whole children set instead (spec.md §4.1).
func (s *entrySet) remove(name string) *Inode {
	if name == "." || name == ".." {
		panic("fskit: bug: attempted to remove . or .. from entry set")
	}
	ino := s.byName[name]
	if ino != nil {
		delete(s.byName, name)
		s.dirty = true
	}
	return ino
}

// count returns the number of entries excluding "." and "..".
func (s *entrySet) count() int {
	n := len(s.byName)
	if _, ok := s.byName["."]; ok {
		n--
	}
	if _, ok := s.byName[".."]; ok {
		n--
	}
	return n
}

// rawLen returns the total map size, including "." and "..".
func (s *entrySet) rawLen() int {
	return len(s.byName)
}

// reindex rebuilds sorted from byName, excluding "." and "..": every
// consumer of sorted (each, namesFrom) is a readdir-shaped listing,
// and readdir never surfaces the dot entries (spec.md §8 testable
// property 5).
func (s *entrySet) reindex() {
	if !s.dirty {
		return
	}
	s.sorted = s.sorted[:0]
	for name := range s.byName {
		if name == "." || name == ".." {
			continue
		}
		s.sorted = append(s.sorted, name)
	}
	sort.Strings(s.sorted)
	s.dirty = false
}

// each calls fn(name, inode) for every entry in name order, excluding
// "." and "..", stopping early if fn returns false.
func (s *entrySet) each(fn func(name string, ino *Inode) bool) {
	s.reindex()
	for _, name := range s.sorted {
		if !fn(name, s.byName[name]) {
			return
		}
	}
}

// namesFrom returns names in order starting strictly after bookmark
// (or from the beginning if bookmark is empty), used by the
// bookmark-based readdir (spec.md §9 open question, resolved in
// favor of bookmarks over offsets).
func (s *entrySet) namesFrom(bookmark string) []string {
	s.reindex()
	if bookmark == "" {
		out := make([]string, len(s.sorted))
		copy(out, s.sorted)
		return out
	}
	idx := sort.SearchStrings(s.sorted, bookmark)
	if idx < len(s.sorted) && s.sorted[idx] == bookmark {
		idx++
	}
	out := make([]string, len(s.sorted)-idx)
	copy(out, s.sorted[idx:])
	return out
}
