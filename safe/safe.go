// Package safe implements ownership with deferred reclamation for objects
// shared between control goroutines and the audio goroutine.
//
// An Owner is the exclusive handle of an object. Releasing it never
// disposes the object inline: the object is posted to a DeletionQueue that
// is drained by the audio goroutine at a safe point of its block cycle.
// Until then every Ptr still resolves the object, so the audio goroutine
// never observes a disposed object in the middle of a block. Neither side
// blocks the other.
package safe

import (
	"sync/atomic"

	"pipelined.dev/dsp/internal/mpsc"
)

type (
	// Disposer is implemented by objects that need to release resources
	// when reclaimed, e.g. nodes disconnecting their pins. Dispose is called
	// on the goroutine that drains the deletion queue.
	Disposer interface {
		Dispose()
	}

	// DeletionQueue holds released objects until the consumer reclaims
	// them.
	DeletionQueue struct {
		q *mpsc.Queue[Disposer]
	}

	// Owner is the exclusive handle of an object of type T.
	Owner[T any] struct {
		cb *control[T]
	}

	// Ptr is a non-owning reference. It resolves the object until the
	// object is reclaimed.
	Ptr[T any] struct {
		cb *control[T]
	}

	// control is shared between the owner and all its pointers.
	control[T any] struct {
		value    atomic.Pointer[T]
		released atomic.Bool
		queue    *DeletionQueue
	}
)

// NewDeletionQueue returns an empty deletion queue.
func NewDeletionQueue() *DeletionQueue {
	return &DeletionQueue{q: mpsc.New[Disposer]()}
}

// Enqueue posts d for deferred disposal. Safe to call from any goroutine.
func (dq *DeletionQueue) Enqueue(d Disposer) {
	if d == nil {
		return
	}
	dq.q.Push(d)
}

// Drain disposes every queued object and returns their count. Must only
// be called by the consumer goroutine.
func (dq *DeletionQueue) Drain() int {
	var n int
	for {
		d, ok := dq.q.Pop()
		if !ok {
			return n
		}
		d.Dispose()
		n++
	}
}

// Len returns the number of objects waiting for reclamation.
func (dq *DeletionQueue) Len() int {
	return dq.q.Len()
}

// New takes ownership of v. Released objects are posted to dq.
func New[T any](dq *DeletionQueue, v *T) Owner[T] {
	cb := &control[T]{queue: dq}
	cb.value.Store(v)
	return Owner[T]{cb: cb}
}

// Get returns the owned object or nil if the owner is empty or released.
func (o Owner[T]) Get() *T {
	if o.cb == nil || o.cb.released.Load() {
		return nil
	}
	return o.cb.value.Load()
}

// Ptr returns a non-owning pointer to the object.
func (o Owner[T]) Ptr() Ptr[T] {
	return Ptr[T]{cb: o.cb}
}

// Release posts the object to the deletion queue. Calling Release more
// than once or on an empty owner does nothing.
func (o *Owner[T]) Release() {
	if o.cb == nil || !o.cb.released.CompareAndSwap(false, true) {
		return
	}
	o.cb.queue.Enqueue(o.cb)
	o.cb = nil
}

// Reset releases the current object and takes ownership of v. The new
// object is posted to the same deletion queue.
func (o *Owner[T]) Reset(v *T) {
	if o.cb == nil {
		panic("safe: reset of empty owner")
	}
	dq := o.cb.queue
	o.Release()
	*o = New(dq, v)
}

// Empty returns true if the owner holds nothing.
func (o Owner[T]) Empty() bool {
	return o.cb == nil
}

// Get returns the object or nil if it was reclaimed.
func (p Ptr[T]) Get() *T {
	if p.cb == nil {
		return nil
	}
	return p.cb.value.Load()
}

// Valid returns true if the object was not reclaimed yet.
func (p Ptr[T]) Valid() bool {
	return p.Get() != nil
}

// Dispose reclaims the object: pointers stop resolving it and its own
// Dispose is called if it implements Disposer.
func (cb *control[T]) Dispose() {
	v := cb.value.Swap(nil)
	if v == nil {
		return
	}
	if d, ok := any(v).(Disposer); ok {
		d.Dispose()
	}
}
