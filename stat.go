package fskit

import "golang.org/x/sys/unix"

// fsMagic is this library's statvfs f_fsid/f_type stand-in: an
// arbitrary, stable constant identifying "this is an fskit-backed
// filesystem" the way loopback.go's real statfs passes through the
// host's actual magic number (spec.md §6 "statvfs").
const fsMagic = 0x19880119

func modeToUnixType(typ Type) uint32 {
	switch typ {
	case Directory:
		return unix.S_IFDIR
	case Regular:
		return unix.S_IFREG
	case Symlink:
		return unix.S_IFLNK
	case Fifo:
		return unix.S_IFIFO
	case Socket:
		return unix.S_IFSOCK
	case CharDev:
		return unix.S_IFCHR
	case BlockDev:
		return unix.S_IFBLK
	default:
		return 0
	}
}

// fillStat populates st from ino, which must already be locked by the
// caller (spec.md §4.6 "stat" reuses the same Stat_t shape the teacher
// passes across the FUSE wire in fuse/attr.go's FromStat).
func fillStat(ino *Inode, st *unix.Stat_t) {
	*st = unix.Stat_t{}
	st.Ino = ino.id
	st.Mode = modeToUnixType(ino.typ) | ino.mode
	st.Nlink = uint64(ino.linkCount)
	st.Uid = uint32(ino.uid)
	st.Gid = uint32(ino.gid)
	st.Size = ino.size
	st.Rdev = uint64(ino.dev)
	st.Blksize = 4096
	st.Blocks = (ino.size + 511) / 512
	st.Atim = unix.Timespec{Sec: ino.atimeSec, Nsec: int64(ino.atimeNsec)}
	st.Mtim = unix.Timespec{Sec: ino.mtimeSec, Nsec: int64(ino.mtimeNsec)}
	st.Ctim = unix.Timespec{Sec: ino.ctimeSec, Nsec: int64(ino.ctimeNsec)}
}

// Stat resolves path and fills a unix.Stat_t describing it (spec.md
// §4.6 "stat"), running the RouteStat callback first if one matches so
// an application can override size/mode/etc. before the struct is
// filled.
func Stat(core *Core, path string, uid, gid uint64) (unix.Stat_t, Status) {
	ino, st := Resolve(core, path, uid, gid, LockRead, nil)
	if !st.Ok() {
		return unix.Stat_t{}, st
	}
	defer ino.runlock("Stat")

	if r, groups, matched := core.routes.match(RouteStat, path); matched {
		if cb, ok := r.callback.(StatCallback); ok {
			meta := RouteMetadata{Path: path, Groups: groups}
			if rst := dispatch(r, ino, true, func() Status {
				return cb(core, meta, ino, ino.AppData())
			}); !rst.Ok() {
				return unix.Stat_t{}, rst
			}
		}
	}

	var out unix.Stat_t
	fillStat(ino, &out)
	return out, OK
}

// Access checks want (PermRead/PermWrite/PermExecute bits) against
// path's permission bits for uid/gid, without opening anything
// (spec.md §4.6 "access", POSIX access(2)).
func Access(core *Core, path string, uid, gid uint64, want uint32) Status {
	ino, st := Resolve(core, path, uid, gid, LockRead, nil)
	if !st.Ok() {
		return st
	}
	defer ino.runlock("Access")
	if !checkPermission(ino.mode, ino.uid, ino.gid, uid, gid, want) {
		return EACCES
	}
	return OK
}

// Chmod changes path's permission bits. Only the owner or root may do
// so (POSIX chmod(2)); callers pass the acting uid as both "node" and
// "requester" reference points the way the teacher's memnode.go does.
func Chmod(core *Core, path string, mode uint32, uid, gid uint64) Status {
	ino, st := Resolve(core, path, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return st
	}
	defer ino.wunlock("Chmod")
	if uid != 0 && uid != ino.uid {
		return EPERM
	}
	ino.mode = mode &^ 0170000
	ino.touchCtime()
	return OK
}

// Chown changes path's owner/group. newUID/newGID of -1 (represented
// here as ^uint64(0)) leave that field unchanged, matching chown(2).
func Chown(core *Core, path string, newUID, newGID uint64, uid, gid uint64) Status {
	ino, st := Resolve(core, path, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return st
	}
	defer ino.wunlock("Chown")
	if uid != 0 && uid != ino.uid {
		return EPERM
	}
	if newUID != ^uint64(0) {
		ino.uid = newUID
	}
	if newGID != ^uint64(0) {
		ino.gid = newGID
	}
	ino.touchCtime()
	return OK
}

// Utimes sets path's atime/mtime explicitly (utimes(2)); a negative
// nanosecond value for either leaves that timestamp untouched.
func Utimes(core *Core, path string, atimeSec, atimeNsec, mtimeSec, mtimeNsec int64, uid, gid uint64) Status {
	ino, st := Resolve(core, path, uid, gid, LockWrite, nil)
	if !st.Ok() {
		return st
	}
	defer ino.wunlock("Utimes")
	if uid != 0 && uid != ino.uid {
		return EPERM
	}
	if atimeNsec >= 0 {
		ino.atimeSec, ino.atimeNsec = atimeSec, int32(atimeNsec)
	}
	if mtimeNsec >= 0 {
		ino.mtimeSec, ino.mtimeNsec = mtimeSec, int32(mtimeNsec)
	}
	ino.touchCtime()
	return OK
}

// Statvfs reports filesystem-wide statistics (spec.md §6 "statvfs"):
// an fskit-backed namespace has no fixed capacity and no block device
// behind it, so the block-oriented fields (Bsize, Blocks, Bfree,
// Bavail) stay zero rather than fabricating a device size that does
// not exist; only the fields this namespace can answer honestly --
// the fsMagic type/id, inode count and name length -- are populated.
func Statvfs(core *Core) unix.Statfs_t {
	var out unix.Statfs_t
	out.Type = fsMagic
	out.Fsid.Val[0] = fsMagic
	out.Files = uint64(core.FileCount())
	out.Namelen = maxNameLen
	return out
}
