//go:build portaudio

package portaudio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/object"
	"pipelined.dev/dsp/portaudio"
)

func TestStream(t *testing.T) {
	m, err := dsp.NewNodeManager()
	require.NoError(t, err)
	_, err = object.Chain{Objects: []object.Object{
		object.Oscillator{Channels: 1, Frequency: 440, Amplitude: 0.1},
		object.Output{},
	}}.Instantiate(m)
	require.NoError(t, err)

	s, err := portaudio.Open(m, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Close())
}
