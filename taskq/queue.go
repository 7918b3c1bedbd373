// Package taskq is the node's deferred-task runner.
//
// Tasks are posted with a priority level and run to completion one at a time.
// Level 0 runs first; tasks within a level run in FIFO order.
package taskq

import (
	"context"
	"sync"
)

const (
	// Levels is the number of priority levels.
	Levels = 4

	slotsPerLevel = 16
)

// Task is a unit of deferred work.
type Task func()

type ring struct {
	head  uint8
	tail  uint8
	slots [slotsPerLevel]Task
}

func (r *ring) push(t Task) bool {
	if r.head-r.tail >= slotsPerLevel {
		return false
	}
	r.slots[r.head%slotsPerLevel] = t
	r.head++
	return true
}

func (r *ring) pop() (Task, bool) {
	if r.tail == r.head {
		return nil, false
	}
	t := r.slots[r.tail%slotsPerLevel]
	r.slots[r.tail%slotsPerLevel] = nil
	r.tail++
	return t, true
}

func (r *ring) len() int { return int(r.head - r.tail) }

// Queue is a fixed-capacity priority task queue. It is safe for concurrent
// posting; tasks are run by a single consumer.
type Queue struct {
	mu      sync.Mutex
	levels  [Levels]ring
	dropped uint64

	notify chan struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Post enqueues fn at the given priority level, returning false if that level
// is full. Levels above Levels-1 are clamped.
func (q *Queue) Post(fn func(), prio uint8) bool {
	if fn == nil {
		return false
	}
	if prio >= Levels {
		prio = Levels - 1
	}

	q.mu.Lock()
	ok := q.levels[prio].push(fn)
	if !ok {
		q.dropped++
	}
	q.mu.Unlock()

	if ok {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return ok
}

func (q *Queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.levels {
		if t, ok := q.levels[i].pop(); ok {
			return t, true
		}
	}
	return nil, false
}

// RunOnce runs at most one task and reports whether one ran.
func (q *Queue) RunOnce() bool {
	t, ok := q.pop()
	if !ok {
		return false
	}
	t()
	return true
}

// RunPending runs tasks until the queue is empty, at most limit tasks when
// limit is positive. It returns the number of tasks run.
func (q *Queue) RunPending(limit int) int {
	n := 0
	for limit <= 0 || n < limit {
		if !q.RunOnce() {
			break
		}
		n++
	}
	return n
}

// Run runs tasks until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		if q.RunOnce() {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notify:
		}
	}
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for i := range q.levels {
		n += q.levels[i].len()
	}
	return n
}

// Dropped returns the number of posts rejected because a level was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
