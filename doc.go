// Copyright 2019 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fskit implements an in-memory, multi-threaded, POSIX-shaped
// virtual filesystem: an inode graph with a hand-over-hand path
// resolver, a regex-indexed route table for dispatching namespace and
// I/O operations to application-supplied callbacks, and a deferred
// detach/garbage-collection engine for reclaiming inodes once both
// their link count and open count reach zero.
//
// Unlike github.com/hanwen/go-fuse, fskit never talks to a kernel
// FUSE channel and never mounts anything: every operation here is a
// direct, in-process Go call against a Core. An application builds a
// namespace with Mkdir/Create/Symlink/Link, optionally declares
// routes (see Declare* in callbacks.go) so that regex-matched paths
// dispatch reads, writes, and lifecycle events to its own backing
// store instead of the package's default in-memory byte slices, and
// otherwise drives the filesystem exactly as a POSIX client would.
package fskit
