package fskit

import (
	"sync"

	"github.com/jacobsa/syncutil"
)

// wqJob is one deferred piece of work: destroy the named child of an
// inode once its refcounts allow it (spec.md §4.5).
type wqJob struct {
	inode *Inode
	path  string
	fn    func()
}

// workQueue is the single-producer/single-consumer deferred-GC queue
// spec.md §4.5 calls an "external collaborator": appending is
// non-blocking for the producer, dequeuing is strict FIFO, and
// shutdown drains whatever is pending synchronously.
//
// The job list itself only ever needs mutual exclusion, never a
// reader/writer split, so it is guarded by
// github.com/jacobsa/syncutil.InvariantMutex (the same dependency
// gcsfuse pulls in and jacobsa-fuse's memfs sample uses for its inode
// lock) rather than a plain sync.Mutex: the invariant hook checks
// that the queue's reported depth always matches len(jobs).
type workQueue struct {
	mu   syncutil.InvariantMutex
	cond *sync.Cond

	jobs    []*wqJob
	running bool
	depth   int

	done chan struct{}
}

func newWorkQueue() *workQueue {
	wq := &workQueue{running: true, done: make(chan struct{})}
	wq.mu = syncutil.NewInvariantMutex(wq.checkInvariants)
	wq.cond = sync.NewCond(&wq.mu)
	go wq.run()
	return wq
}

func (wq *workQueue) checkInvariants() {
	if wq.depth != len(wq.jobs) {
		panic("fskit: work queue depth out of sync with job list")
	}
}

// enqueue appends job to the tail. It never blocks on I/O; the only
// wait is the brief internal mutex, matching the "non-blocking from
// the producer's perspective" contract.
func (wq *workQueue) enqueue(job *wqJob) Status {
	wq.mu.Lock()
	if !wq.running {
		wq.mu.Unlock()
		return EAGAIN
	}
	wq.jobs = append(wq.jobs, job)
	wq.depth++
	wq.mu.Unlock()
	wq.cond.Signal()
	return OK
}

func (wq *workQueue) run() {
	defer close(wq.done)
	for {
		wq.mu.Lock()
		for len(wq.jobs) == 0 && wq.running {
			wq.cond.Wait()
		}
		if len(wq.jobs) == 0 && !wq.running {
			wq.mu.Unlock()
			return
		}
		batch := wq.jobs
		wq.jobs = nil
		wq.depth = 0
		wq.mu.Unlock()

		for _, job := range batch {
			job.fn()
		}
	}
}

// shutdown stops accepting new jobs and blocks until every job that
// was already queued has run, per spec.md §4.5's "on shutdown,
// pending jobs are drained synchronously".
func (wq *workQueue) shutdown() {
	wq.mu.Lock()
	wq.running = false
	wq.mu.Unlock()
	wq.cond.Broadcast()
	<-wq.done
}
