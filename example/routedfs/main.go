// Command routedfs is a worked example of declaring routes over a
// fskit Core instead of relying on the default in-memory byte-slice
// backing store: every regular file under /blobs/ is backed by a
// content-addressed blob store keyed by its inode id, which is
// allocated from random UUIDs (via fskit.NewUUIDAllocator) rather
// than the default sequential counter so ids remain stable if the
// store is ever persisted outside the process.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/jcnelson/fskit-sub000"
)

// blobStore is the toy "application" wired in behind the routes: a
// process-local map from inode id to contents, standing in for
// whatever real content-addressed backend an application might use.
type blobStore struct {
	data map[uint64][]byte
}

func newBlobStore() *blobStore {
	return &blobStore{data: make(map[uint64][]byte)}
}

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()
	fskit.SetDebug(*verbose)

	allocator, releaser := fskit.NewUUIDAllocator()
	core := fskit.NewCore(&fskit.Options{
		Allocator: allocator,
		Releaser:  releaser,
	})
	defer core.Destroy()

	store := newBlobStore()
	routes := core.Routes()

	fskit.DeclareWrite(routes, `/blobs/[^/]+`, fskit.InodeSequential,
		func(core *fskit.Core, meta fskit.RouteMetadata, ino *fskit.Inode, buf []byte, offset int64, appData interface{}) (int, fskit.Status) {
			existing := store.data[ino.ID()]
			end := offset + int64(len(buf))
			if end > int64(len(existing)) {
				grown := make([]byte, end)
				copy(grown, existing)
				existing = grown
			}
			n := copy(existing[offset:], buf)
			store.data[ino.ID()] = existing
			return n, fskit.OK
		})

	fskit.DeclareRead(routes, `/blobs/[^/]+`, fskit.InodeConcurrent,
		func(core *fskit.Core, meta fskit.RouteMetadata, ino *fskit.Inode, buf []byte, offset int64, appData interface{}) (int, fskit.Status) {
			existing := store.data[ino.ID()]
			if offset >= int64(len(existing)) {
				return 0, fskit.OK
			}
			return copy(buf, existing[offset:]), fskit.OK
		})

	fskit.DeclareDestroy(routes, `/blobs/[^/]+`, fskit.Sequential,
		func(core *fskit.Core, meta fskit.RouteMetadata, ino *fskit.Inode, appData interface{}) fskit.Status {
			delete(store.data, ino.ID())
			return fskit.OK
		})

	if _, st := fskit.Mkdir(core, "/blobs", 0755, 0, 0); !st.Ok() {
		log.Fatalf("mkdir /blobs: %s", st)
	}

	h, st := fskit.Open(core, "/blobs/greeting", fskit.OCreat|fskit.OExcl, 0644, 0, 0)
	if !st.Ok() {
		log.Fatalf("create /blobs/greeting: %s", st)
	}
	if _, st := fskit.Write(core, h, []byte("hello from routedfs\n"), 0); !st.Ok() {
		log.Fatalf("write: %s", st)
	}
	fskit.Close(core, h)

	h, st = fskit.Open(core, "/blobs/greeting", 0, 0, 0, 0)
	if !st.Ok() {
		log.Fatalf("open /blobs/greeting: %s", st)
	}
	buf := make([]byte, 256)
	n, st := fskit.Read(core, h, buf, 0)
	if !st.Ok() {
		log.Fatalf("read: %s", st)
	}
	fskit.Close(core, h)

	fmt.Print(strings.TrimSpace(string(buf[:n])) + "\n")

	if st := fskit.Unlink(core, "/blobs/greeting", 0, 0); !st.Ok() {
		log.Fatalf("unlink: %s", st)
	}
}
