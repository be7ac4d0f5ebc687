// Package mutable provides the task queue used to apply topology and
// parameter mutations on the audio goroutine at a block boundary.
//
// Control goroutines enqueue mutations; the node manager applies all of
// them before it processes the next block. This removes the need for any
// mutex around graph topology: only the audio goroutine ever touches it.
package mutable

import "pipelined.dev/dsp/internal/mpsc"

type (
	// Mutation mutates an object owned by the audio goroutine. It must be
	// short and must not block.
	Mutation func()

	// Queue is a lock-free FIFO of mutations. Mutations enqueued by the
	// same goroutine are applied in order.
	Queue struct {
		q *mpsc.Queue[Mutation]
	}
)

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{q: mpsc.New[Mutation]()}
}

// Enqueue adds mutation to the queue. It never blocks. Nil mutations are
// ignored.
func (q *Queue) Enqueue(m Mutation) {
	if m == nil {
		return
	}
	q.q.Push(m)
}

// Apply executes all queued mutations and returns how many were applied.
// Mutations enqueued by applied mutations are executed in the same call.
// Must only be called by the consumer goroutine.
func (q *Queue) Apply() int {
	var applied int
	for {
		m, ok := q.q.Pop()
		if !ok {
			return applied
		}
		m()
		applied++
	}
}

// Len returns the number of pending mutations. There is no back-pressure:
// callers that need it should poll this value.
func (q *Queue) Len() int {
	return q.q.Len()
}
