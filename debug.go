package fskit

import (
	"log"

	"github.com/kylelemons/godebug/pretty"
)

// Package-level diagnostic switches. They are read without
// synchronization: tearing is acceptable because they only gate log
// output, never data-plane behavior (spec.md §9).
var (
	DebugOn     int32
	ErrorsOn    int32 = 1
	LockTraceOn int32
)

// SetDebug toggles verbose trace-level logging.
func SetDebug(on bool) {
	DebugOn = b2i(on)
}

// SetErrors toggles error logging (on by default).
func SetErrors(on bool) {
	ErrorsOn = b2i(on)
}

// SetLockTrace toggles per-call-site lock acquisition tracing.
func SetLockTrace(on bool) {
	LockTraceOn = b2i(on)
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func debugf(format string, args ...interface{}) {
	if DebugOn != 0 {
		log.Printf("fskit: "+format, args...)
	}
}

func errorf(format string, args ...interface{}) {
	if ErrorsOn != 0 {
		log.Printf("fskit: ERROR: "+format, args...)
	}
}

// lockTrace logs a lock acquisition/release with the caller-supplied
// debug identifier, per spec.md §4.2 ("every lock helper has a
// caller-site debug identifier for diagnostics").
func lockTrace(who string, op string) {
	if LockTraceOn != 0 {
		log.Printf("fskit: lock %s: %s", op, who)
	}
}

// DumpDiff renders a human-readable diff between two snapshots (e.g.
// two StatInfo values taken before/after an operation), the same way
// the teacher's loopback tests compare directory listings across a
// mutation. Empty string means no difference.
func DumpDiff(before, after interface{}) string {
	return pretty.Compare(before, after)
}
