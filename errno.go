package fskit

import (
	"fmt"
	"os"
	"syscall"
)

// Status is a POSIX errno represented as a negative integer, mirroring
// the wire convention of FUSE implementations: 0 means success, any
// other value is -errno.
type Status int32

const (
	OK Status = 0

	ENOENT  Status = Status(-syscall.ENOENT)
	EEXIST  Status = Status(-syscall.EEXIST)
	ENOTDIR Status = Status(-syscall.ENOTDIR)
	EISDIR  Status = Status(-syscall.EISDIR)
	EACCES  Status = Status(-syscall.EACCES)
	EPERM   Status = Status(-syscall.EPERM)
	ENOMEM  Status = Status(-syscall.ENOMEM)
	ENOTEMPTY Status = Status(-syscall.ENOTEMPTY)
	ENAMETOOLONG Status = Status(-syscall.ENAMETOOLONG)
	EINVAL  Status = Status(-syscall.EINVAL)
	ERANGE  Status = Status(-syscall.ERANGE)
	// ENOATTR has no distinct errno on Linux; ENODATA is the kernel's
	// stand-in for "no such extended attribute".
	ENOATTR Status = Status(-syscall.ENODATA)
	EBADF   Status = Status(-syscall.EBADF)
	EIO     Status = Status(-syscall.EIO)
	EDEADLK Status = Status(-syscall.EDEADLK)
	EAGAIN  Status = Status(-syscall.EAGAIN)
	ENOSYS  Status = Status(-syscall.ENOSYS)
)

func (s Status) Ok() bool {
	return s == OK
}

func (s Status) String() string {
	if s == OK {
		return "OK"
	}
	return fmt.Sprintf("%d=%v", int32(s), syscall.Errno(-s))
}

// Error implements the error interface so a Status can be returned
// wherever idiomatic Go code wants an error, while the POSIX-shaped
// façades keep returning Status directly per spec.
func (s Status) Error() string {
	return s.String()
}

// ToStatus converts a Go error from the standard library into the
// closed set of errnos this library returns. Route callbacks that
// wrap os/syscall errors can use it directly instead of hand-mapping
// errno values.
func ToStatus(err error) Status {
	switch err {
	case nil:
		return OK
	case os.ErrPermission:
		return EPERM
	case os.ErrExist:
		return EEXIST
	case os.ErrNotExist:
		return ENOENT
	case os.ErrInvalid:
		return EINVAL
	}

	switch t := err.(type) {
	case Status:
		return t
	case syscall.Errno:
		return Status(-t)
	case *os.SyscallError:
		if errno, ok := t.Err.(syscall.Errno); ok {
			return Status(-errno)
		}
	case *os.PathError:
		return ToStatus(t.Err)
	case *os.LinkError:
		return ToStatus(t.Err)
	}
	return EIO
}
