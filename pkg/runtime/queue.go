package runtime

import (
	"sync"

	"github.com/opera-rt/opera/pkg/lookahead"
)

// Job is the unit the waiting/sleeping queues carry.
type Job = lookahead.Job

// JobQueue is a synchronised FIFO with reservation semantics: a worker
// reserves and removes the head item under one held mutex, so no two
// workers can ever observe and take the same item — the reservation and
// the dequeue are the same atomic step.
type JobQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []*Job
	stopped bool
}

// NewJobQueue returns an empty queue.
func NewJobQueue() *JobQueue {
	q := &JobQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends job and wakes one waiting reserver.
func (q *JobQueue) Enqueue(job *Job) {
	q.mu.Lock()
	q.items = append(q.items, job)
	q.mu.Unlock()
	q.cond.Signal()
}

// CanReserve reports whether an unreserved item is currently available.
func (q *JobQueue) CanReserve() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.canReserveLocked()
}

func (q *JobQueue) canReserveLocked() bool {
	return len(q.items) > 0
}

// ReserveAndDequeue blocks (condition variable wait) until either an
// unreserved item becomes available or Stop is called. On success it
// atomically reserves and dequeues the head item and returns it with ok
// true; on stop it returns (nil, false).
func (q *JobQueue) ReserveAndDequeue() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.canReserveLocked() && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		return nil, false
	}
	job := q.items[0]
	q.items = q.items[1:]
	return job, true
}

// Size returns the total number of items currently held (reserved or
// not).
func (q *JobQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop sets the stop flag and wakes every blocked worker so they can
// observe it and exit.
func (q *JobQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
