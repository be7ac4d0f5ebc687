// Package mpsc implements an unbounded lock-free queue with many producers
// and a single consumer.
package mpsc

import "sync/atomic"

type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
}

// Queue is an intrusive linked queue. Push may be called from any
// goroutine and never blocks. Pop must only be called from one goroutine
// at a time and never allocates.
//
// The queue has no capacity limit: if the consumer stalls, it grows.
type Queue[T any] struct {
	head   atomic.Pointer[node[T]] // last pushed node, producers side
	tail   *node[T]                // consumer side, always a stub
	length atomic.Int64
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	stub := &node[T]{}
	q := &Queue[T]{tail: stub}
	q.head.Store(stub)
	return q
}

// Push appends the value to the queue.
func (q *Queue[T]) Push(v T) {
	n := &node[T]{value: v}
	q.length.Add(1)
	prev := q.head.Swap(n)
	prev.next.Store(n)
}

// Pop removes the oldest value. It returns false if the queue is empty or
// if a producer is in the middle of a push; the value becomes visible on
// the following call.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	next := q.tail.next.Load()
	if next == nil {
		return zero, false
	}
	q.tail = next
	v := next.value
	next.value = zero
	q.length.Add(-1)
	return v, true
}

// Len returns the number of pushed values not yet popped.
func (q *Queue[T]) Len() int {
	return int(q.length.Load())
}
