package asset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/asset"
	"pipelined.dev/dsp/mock"
	"pipelined.dev/dsp/node"
	"pipelined.dev/dsp/object"
	"pipelined.dev/dsp/record"
)

const blockSize = 4

func newManager(t *testing.T) *dsp.NodeManager {
	t.Helper()
	m, err := dsp.NewNodeManager(dsp.WithBlockSize(blockSize))
	require.NoError(t, err)
	return m
}

func TestAsset(t *testing.T) {
	a := asset.New(44100)
	assert.Nil(t, a.Sample())
	require.NoError(t, a.Write([][]float64{{1, 2}, {3, 4}}))
	require.NoError(t, a.Write([][]float64{{5}, {6}}))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Write([][]float64{{7}, {8}}), asset.ErrSealed)

	s := a.Sample()
	require.NotNil(t, s)
	assert.Equal(t, 2, s.Channels())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 44100.0, s.SampleRate())
	assert.Equal(t, 5.0, s.At(0, 2))
	assert.Equal(t, 6.0, s.At(1, 2))

	var tests = []struct {
		start, length int
		expected      int
	}{
		{start: 1, length: 1, expected: 1},
		{start: 1, length: 10, expected: 2},
		{start: 3, length: 1, expected: -1},
		{start: -1, length: 1, expected: -1},
	}
	for _, test := range tests {
		c := a.Clip(test.start, test.length)
		if test.expected < 0 {
			assert.Nil(t, c)
			continue
		}
		require.NotNil(t, c)
		assert.Equal(t, test.expected, c.Len())
		assert.Equal(t, s.At(0, float64(test.start)), c.At(0, 0))
	}
}

func TestRecordPlayback(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := newManager(t)
	a := asset.New(m.SampleRate())
	inst, err := object.Chain{Objects: []object.Object{
		object.Control{Value: 0.5},
		record.Object{Channels: 1, Encoder: a},
	}}.Instantiate(m)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		m.Process(nil, nil, blockSize)
	}
	inst.Release()

	s := a.Sample()
	require.NotNil(t, s)
	assert.Equal(t, 3*blockSize, s.Len())

	// play back the recording in another manager
	pm := newManager(t)
	player, err := object.Player{Sample: s, Channels: 2}.Instantiate(pm)
	require.NoError(t, err)
	p := player.(*object.NodeInstance).Nodes()[0].(*node.Player)
	sink := mock.NewSink(pm, 2)
	for ch := 0; ch < 2; ch++ {
		sink.Inputs()[ch].Connect(player.OutputForChannel(ch))
	}
	pm.RegisterRootProcess(sink)
	p.Play(0, false)
	pm.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, sink.Buffer()[0])
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, sink.Buffer()[1])
}
