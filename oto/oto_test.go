//go:build oto

package oto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/object"
	"pipelined.dev/dsp/oto"
)

func TestPlayer(t *testing.T) {
	m, err := dsp.NewNodeManager()
	require.NoError(t, err)
	_, err = object.Chain{Objects: []object.Object{
		object.Oscillator{Channels: 1, Frequency: 440, Amplitude: 0.1},
		object.Output{},
	}}.Instantiate(m)
	require.NoError(t, err)

	p, err := oto.New(m, 0)
	require.NoError(t, err)
	p.Start()
	time.Sleep(200 * time.Millisecond)
	p.Pause()
	require.NoError(t, p.Close())
}
