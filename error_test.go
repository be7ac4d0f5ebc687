package dsp_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/dsp"
)

func TestErrorState(t *testing.T) {
	var s dsp.ErrorState
	assert.False(t, s.HasErrors())
	assert.Nil(t, s.Err())

	s.Fail(nil)
	assert.True(t, s.Check(true, "never"))
	assert.Nil(t, s.Err())

	errTest := errors.New("test error")
	s.Fail(errTest)
	assert.False(t, s.Check(false, "channel %d: %w", 3, dsp.ErrInvalidChannel))
	s.Failf("object %q not found", "gain")

	assert.True(t, s.HasErrors())
	err := s.Err()
	assert.ErrorIs(t, err, errTest)
	assert.ErrorIs(t, err, dsp.ErrInvalidChannel)
	assert.Contains(t, err.Error(), `object "gain" not found`)
	assert.Contains(t, err.Error(), "3 errors occurred")
}

func TestSignal(t *testing.T) {
	var s dsp.Signal[int]
	var received []int
	s.Connect(func(v int) { received = append(received, v) })
	s.Connect(func(v int) { received = append(received, v*10) })
	s.Connect(nil)
	assert.Equal(t, 2, s.SlotCount())

	s.Trigger(1)
	assert.Equal(t, []int{1, 10}, received)

	s.DisconnectAll()
	s.Trigger(2)
	assert.Equal(t, 0, s.SlotCount())
	assert.Equal(t, []int{1, 10}, received)
}
