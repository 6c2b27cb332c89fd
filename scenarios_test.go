package fskit

import (
	"bytes"
	"testing"
	"time"

	"github.com/jacobsa/timeutil"
)

func newTestCore(t *testing.T) *Core {
	t.Helper()
	core := NewCore(&Options{RootMode: 0755})
	t.Cleanup(core.Destroy)
	return core
}

// S1 -- simple tree.
func TestSimpleTree(t *testing.T) {
	core := newTestCore(t)

	if _, st := Mkdir(core, "/a", 0755, 0, 0); !st.Ok() {
		t.Fatalf("mkdir /a: %s", st)
	}
	if _, st := Mkdir(core, "/a/b", 0755, 0, 0); !st.Ok() {
		t.Fatalf("mkdir /a/b: %s", st)
	}
	if _, st := Create(core, "/a/b/f", 0644, 0, 0); !st.Ok() {
		t.Fatalf("create /a/b/f: %s", st)
	}

	st, serr := Stat(core, "/a/b/f", 0, 0)
	if !serr.Ok() {
		t.Fatalf("stat: %s", serr)
	}
	if st.Mode&0170000 != modeToUnixType(Regular) {
		t.Fatalf("wrong type bits: %#o", st.Mode)
	}
	if st.Mode&0777 != 0644 {
		t.Fatalf("wrong perm bits: %#o", st.Mode&0777)
	}
	if st.Nlink != 1 {
		t.Fatalf("wrong nlink: %d", st.Nlink)
	}
	if st.Size != 0 {
		t.Fatalf("wrong size: %d", st.Size)
	}

	entries, derr := Listdir(core, "/a/b", 0, 0)
	if !derr.Ok() {
		t.Fatalf("listdir: %s", derr)
	}
	if len(entries) != 1 || entries[0].Name != "f" {
		t.Fatalf("unexpected readdir result: %+v", entries)
	}
}

// S2 -- permission denied.
func TestPermissionDenied(t *testing.T) {
	core := newTestCore(t)

	if _, st := Mkdir(core, "/priv", 0700, 1, 1); !st.Ok() {
		t.Fatalf("mkdir /priv: %s", st)
	}

	_, st := Resolve(core, "/priv/anything", 2, 2, LockRead, nil)
	if st != EACCES {
		t.Fatalf("expected access denied for uid=2, got %s", st)
	}

	ino, st := Resolve(core, "/priv", 0, 0, LockRead, nil)
	if !st.Ok() {
		t.Fatalf("root should bypass permission bits: %s", st)
	}
	ino.runlock("test")
}

// S3 -- unlink while open.
func TestUnlinkWhileOpen(t *testing.T) {
	core := newTestCore(t)

	if _, st := Create(core, "/t", 0644, 0, 0); !st.Ok() {
		t.Fatalf("create: %s", st)
	}
	h, st := Open(core, "/t", 0, 0, 0, 0)
	if !st.Ok() {
		t.Fatalf("open: %s", st)
	}

	if st := Unlink(core, "/t", 0, 0); !st.Ok() {
		t.Fatalf("unlink: %s", st)
	}

	if _, st := Resolve(core, "/t", 0, 0, LockRead, nil); st != ENOENT {
		t.Fatalf("expected no-entry after unlink, got %s", st)
	}

	if _, st := Write(core, h, []byte("hi"), 0); !st.Ok() {
		t.Fatalf("write through held handle should still succeed: %s", st)
	}
	buf := make([]byte, 2)
	if _, st := Read(core, h, buf, 0); !st.Ok() {
		t.Fatalf("read through held handle should still succeed: %s", st)
	}

	ino := h.Inode()
	Close(core, h)

	if st := ino.rlock("post-close"); st != ENOENT {
		t.Fatalf("inode should be dead after last close released it, got %s", st)
	}
}

// S4 -- rename overwriting.
func TestRenameOverwriting(t *testing.T) {
	core := newTestCore(t)

	if _, st := Create(core, "/a", 0644, 0, 0); !st.Ok() {
		t.Fatalf("create /a: %s", st)
	}
	if _, st := Create(core, "/b", 0644, 0, 0); !st.Ok() {
		t.Fatalf("create /b: %s", st)
	}

	var written bytes.Buffer
	DeclareWrite(core.Routes(), `/[ab]`, InodeSequential,
		func(core *Core, meta RouteMetadata, ino *Inode, buf []byte, offset int64, appData interface{}) (int, Status) {
			written.Write(buf)
			return len(buf), OK
		})
	DeclareRead(core.Routes(), `/[ab]`, InodeConcurrent,
		func(core *Core, meta RouteMetadata, ino *Inode, buf []byte, offset int64, appData interface{}) (int, Status) {
			return copy(buf, written.Bytes()), OK
		})

	aIno, st := Resolve(core, "/a", 0, 0, LockWrite, nil)
	if !st.Ok() {
		t.Fatalf("resolve /a: %s", st)
	}
	aID := aIno.id
	aIno.wunlock("test")

	h, st := Open(core, "/a", 0, 0, 0, 0)
	if !st.Ok() {
		t.Fatalf("open /a: %s", st)
	}
	if _, st := Write(core, h, []byte("xyz"), 0); !st.Ok() {
		t.Fatalf("write: %s", st)
	}
	Close(core, h)

	if st := Rename(core, "/a", "/b", 0, 0); !st.Ok() {
		t.Fatalf("rename: %s", st)
	}

	bIno, st := Resolve(core, "/b", 0, 0, LockRead, nil)
	if !st.Ok() {
		t.Fatalf("resolve /b: %s", st)
	}
	if bIno.id != aID {
		t.Fatalf("/b should resolve to the inode that was /a")
	}
	bIno.runlock("test")

	h2, st := Open(core, "/b", 0, 0, 0, 0)
	if !st.Ok() {
		t.Fatalf("open /b: %s", st)
	}
	buf := make([]byte, 3)
	if _, st := Read(core, h2, buf, 0); !st.Ok() {
		t.Fatalf("read: %s", st)
	}
	Close(core, h2)
	if string(buf) != "xyz" {
		t.Fatalf("expected xyz, got %q", buf)
	}

	if _, st := Resolve(core, "/a", 0, 0, LockRead, nil); st != ENOENT {
		t.Fatalf("expected /a gone, got %s", st)
	}
}

// S5 -- route dispatch.
func TestRouteDispatchUpdatesSizeAndMtime(t *testing.T) {
	clock := timeutil.NewSimulatedClock()
	clock.AdvanceTime(1000)
	core := NewCore(&Options{RootMode: 0755, Clock: clock})
	t.Cleanup(core.Destroy)

	DeclareWrite(core.Routes(), `/data/[^/]+`, InodeSequential,
		func(core *Core, meta RouteMetadata, ino *Inode, buf []byte, offset int64, appData interface{}) (int, Status) {
			return len(buf), OK
		})

	if _, st := Mkdir(core, "/data", 0755, 0, 0); !st.Ok() {
		t.Fatalf("mkdir: %s", st)
	}
	if _, st := Create(core, "/data/x", 0644, 0, 0); !st.Ok() {
		t.Fatalf("create: %s", st)
	}

	before := clock.Now()
	clock.AdvanceTime(time.Second)

	h, st := Open(core, "/data/x", 0, 0, 0, 0)
	if !st.Ok() {
		t.Fatalf("open: %s", st)
	}
	n, st := Write(core, h, []byte("world"), 10)
	if !st.Ok() {
		t.Fatalf("write: %s", st)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}
	ino := h.Inode()
	Close(core, h)

	if ino.size != 15 {
		t.Fatalf("expected size 15, got %d", ino.size)
	}
	mtime := time.Unix(ino.mtimeSec, int64(ino.mtimeNsec))
	if mtime.Before(before) {
		t.Fatalf("mtime %v should be >= pre-write now %v", mtime, before)
	}

	if diff := DumpDiff(before.Unix(), mtime.Unix()); diff == "" {
		t.Fatalf("expected write to advance mtime, got no diff")
	}
}

// S6 -- xattr bounds.
func TestXattrBounds(t *testing.T) {
	core := newTestCore(t)

	if _, st := Create(core, "/f", 0644, 0, 0); !st.Ok() {
		t.Fatalf("create: %s", st)
	}

	if st := SetXattr(core, "/f", "user.note", []byte("hello"), XattrCreate, 0, 0); !st.Ok() {
		t.Fatalf("setxattr create: %s", st)
	}
	if st := SetXattr(core, "/f", "user.note", []byte("x"), XattrCreate, 0, 0); st != EEXIST {
		t.Fatalf("expected EEXIST on redundant create, got %s", st)
	}

	// Zero-length buffer probes the attribute's size without copying.
	n, st := GetXattr(core, "/f", "user.note", nil, 0, 0)
	if !st.Ok() {
		t.Fatalf("getxattr probe: %s", st)
	}
	if n != len("hello") {
		t.Fatalf("expected probe length %d, got %d", len("hello"), n)
	}

	// A too-small non-empty buffer fails ERANGE rather than truncating.
	tiny := make([]byte, 2)
	if _, st := GetXattr(core, "/f", "user.note", tiny, 0, 0); st != ERANGE {
		t.Fatalf("expected ERANGE for undersized buffer, got %s", st)
	}

	full := make([]byte, n)
	n, st = GetXattr(core, "/f", "user.note", full, 0, 0)
	if !st.Ok() || string(full[:n]) != "hello" {
		t.Fatalf("getxattr: %s %q", st, full[:n])
	}

	if st := SetXattr(core, "/f", "user.note", []byte("world"), XattrReplace, 0, 0); !st.Ok() {
		t.Fatalf("setxattr replace: %s", st)
	}
	if st := SetXattr(core, "/f", "user.missing", []byte("x"), XattrReplace, 0, 0); st != ENOATTR {
		t.Fatalf("expected ENOATTR replacing nonexistent attr, got %s", st)
	}

	names, st := ListXattr(core, "/f", 0, 0)
	if !st.Ok() || len(names) != 1 || names[0] != "user.note" {
		t.Fatalf("listxattr: %s %+v", st, names)
	}

	if st := RemoveXattr(core, "/f", "user.note", 0, 0); !st.Ok() {
		t.Fatalf("removexattr: %s", st)
	}
	if _, st := GetXattr(core, "/f", "user.note", nil, 0, 0); st != ENOATTR {
		t.Fatalf("expected ENOATTR after remove, got %s", st)
	}
}

func TestRemoveTreeWithBudgetResumes(t *testing.T) {
	core := newTestCore(t)

	if _, st := Mkdir(core, "/dir", 0755, 0, 0); !st.Ok() {
		t.Fatalf("mkdir /dir: %s", st)
	}
	for _, name := range []string{"a", "b", "c"} {
		if _, st := Create(core, "/dir/"+name, 0644, 0, 0); !st.Ok() {
			t.Fatalf("create /dir/%s: %s", name, st)
		}
	}

	budget := NewTeardownBudget(1)
	st := RemoveTreeWithBudget(core, "/dir", 0, 0, budget)
	if st != EAGAIN {
		t.Fatalf("expected EAGAIN with an exhausted budget, got %s", st)
	}

	budget.remaining += 10
	if st := DrainTeardownBudget(core, budget); !st.Ok() {
		t.Fatalf("drain: %s", st)
	}
	if st := Rmdir(core, "/dir", 0, 0); !st.Ok() {
		t.Fatalf("rmdir /dir after drain: %s", st)
	}

	if _, st := Resolve(core, "/dir", 0, 0, LockRead, nil); st != ENOENT {
		t.Fatalf("expected /dir gone, got %s", st)
	}
}
