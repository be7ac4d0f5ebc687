package mpsc_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/dsp/internal/mpsc"
)

func TestOrder(t *testing.T) {
	q := mpsc.New[int]()
	_, ok := q.Pop()
	assert.False(t, ok)

	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	assert.Equal(t, 10, q.Len())
	for i := 0; i < 10; i++ {
		v, ok := q.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok = q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestConcurrentProducers(t *testing.T) {
	const (
		producers = 8
		values    = 1000
	)
	q := mpsc.New[int]()
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < values; i++ {
				q.Push(p*values + i)
			}
		}(p)
	}

	seen := make(map[int]bool, producers*values)
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	consume := func() {
		for {
			v, ok := q.Pop()
			if !ok {
				return
			}
			p, i := v/values, v%values
			// values of one producer keep their order
			assert.Greater(t, i, last[p])
			last[p] = i
			seen[v] = true
		}
	}
	for {
		select {
		case <-done:
			consume()
			assert.Equal(t, producers*values, len(seen))
			assert.Equal(t, 0, q.Len())
			return
		default:
			consume()
		}
	}
}
