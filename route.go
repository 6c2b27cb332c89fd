package fskit

import (
	"regexp"
	"sync"
)

// RouteKind is the closed set of operation kinds a route can be
// declared against (spec.md §4.4).
type RouteKind int

const (
	RouteCreate RouteKind = iota
	RouteMknod
	RouteMkdir
	RouteOpen
	RouteClose
	RouteReaddir
	RouteRead
	RouteWrite
	RouteTrunc
	RouteDetach
	RouteDestroy
	RouteStat
	RouteSync
	RouteRename
	RouteLink
	RouteGetXattr
	RouteSetXattr
	RouteListXattr
	RouteRemoveXattr

	numRouteKinds
)

// Consistency is the locking discipline the dispatcher enforces
// around a route's callback (spec.md §4.4, §9 "first-class").
type Consistency int

const (
	Sequential Consistency = iota
	Concurrent
	InodeSequential
	InodeConcurrent
)

// RouteHandle identifies a declared route for later removal. It is
// only meaningful together with the RouteKind it was declared under.
type RouteHandle int

// RouteMetadata is the bundle passed to every callback: the matched
// path, the captured regex groups, and whatever extras the operation
// kind needs (spec.md §4.4 "Matching").
type RouteMetadata struct {
	Path   string
	Groups []string

	// Parent is set for create/mknod/mkdir: the directory inode
	// the new entry is being created under.
	Parent *Inode

	// NewPath / DestParent are set for rename: the destination
	// path and its (already-locked, by the façade) parent.
	NewPath    string
	DestParent *Inode

	// GC is set for detach: true when the detach is happening as
	// part of a bulk subtree teardown rather than a direct
	// unlink/rmdir.
	GC bool

	// XattrName carries the attribute name for the xattr route
	// kinds.
	XattrName string
}

type route struct {
	lock sync.RWMutex // used only by Sequential/Concurrent discipline

	kind        RouteKind
	regexSrc    string
	regex       *regexp.Regexp
	numGroups   int
	consistency Consistency
	callback    interface{}
}

// routeTable holds, per kind, an ordered list of routes with
// reusable slots (spec.md §4.4 "Declaration and removal").
type routeTable struct {
	lock sync.RWMutex
	rows [numRouteKinds][]*route
}

func newRouteTable() *routeTable {
	return &routeTable{}
}

// declare validates and compiles regexSrc, appends a route to kind's
// list (reusing a freed slot if one exists), and returns a stable
// handle.
//
// Declaring an InodeSequential route on RouteRename is rejected:
// rename already acquires two inode write locks itself, so an
// inode-sequential discipline on top would be redundant at best and
// deadlock-prone at worst (spec.md §4.4).
func (t *routeTable) declare(kind RouteKind, regexSrc string, consistency Consistency, callback interface{}) (RouteHandle, Status) {
	if kind == RouteRename && consistency == InodeSequential {
		return -1, EINVAL
	}

	re, err := regexp.Compile("^(?:" + regexSrc + ")$")
	if err != nil {
		return -1, EINVAL
	}

	r := &route{
		kind:        kind,
		regexSrc:    regexSrc,
		regex:       re,
		numGroups:   re.NumSubexp(),
		consistency: consistency,
		callback:    callback,
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	row := t.rows[kind]
	for i, slot := range row {
		if slot == nil {
			row[i] = r
			return RouteHandle(i), OK
		}
	}
	t.rows[kind] = append(row, r)
	return RouteHandle(len(row)), OK
}

func (t *routeTable) remove(kind RouteKind, handle RouteHandle) Status {
	t.lock.Lock()
	defer t.lock.Unlock()

	row := t.rows[kind]
	if int(handle) < 0 || int(handle) >= len(row) || row[handle] == nil {
		return ENOENT
	}
	row[handle] = nil
	return OK
}

// unrouteAll clears every route of every kind, per spec.md §6
// "unroute-all".
func (t *routeTable) unrouteAll() {
	t.lock.Lock()
	defer t.lock.Unlock()
	for k := range t.rows {
		t.rows[k] = nil
	}
}

// match walks kind's route list under the table read lock -- held for
// the whole pass, per original_source/libfskit/route.c's
// fskit_route_table_access, so a declare/remove cannot interleave
// with a match using a half-updated row -- and returns the first
// route whose regex matches path anchored at both ends, plus the
// captured groups.
func (t *routeTable) match(kind RouteKind, path string) (*route, []string, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	for _, r := range t.rows[kind] {
		if r == nil {
			continue
		}
		groups := r.regex.FindStringSubmatch(path)
		if groups == nil {
			continue
		}
		return r, groups[1:], true
	}
	return nil, nil, false
}
