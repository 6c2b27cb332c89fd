package fskit

import (
	"time"

	"github.com/jacobsa/timeutil"
)

// Clock is the time source used for ctime/mtime/atime. Production
// cores use timeutil.RealClock(); tests inject
// timeutil.NewSimulatedClock so timestamp assertions (e.g. "mtime
// must be >= the pre-write now") are exact instead of racy against
// wall-clock resolution.
type Clock = timeutil.Clock

func realClock() Clock {
	return timeutil.RealClock()
}

// timespec splits a time.Time into the seconds+nanoseconds pairs the
// inode stores its three timestamps as.
func timespec(t time.Time) (sec int64, nsec int32) {
	return t.Unix(), int32(t.Nanosecond())
}
