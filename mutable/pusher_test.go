package mutable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/dsp/mutable"
)

func TestPusher(t *testing.T) {
	q := mutable.NewQueue()
	var (
		p mutable.Pusher
		v int
	)
	p.Push(q)
	assert.Equal(t, 0, q.Len(), "empty pusher enqueues nothing")

	p.Put(func() { v++ }, nil, func() { v *= 10 })
	assert.Equal(t, 2, p.Len())
	p.Push(q)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, q.Len(), "batch is a single mutation")

	assert.Equal(t, 1, q.Apply())
	assert.Equal(t, 10, v)
}
