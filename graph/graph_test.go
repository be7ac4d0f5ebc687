package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/graph"
	"pipelined.dev/dsp/mock"
	"pipelined.dev/dsp/object"
)

func newManager(t *testing.T) *dsp.NodeManager {
	t.Helper()
	m, err := dsp.NewNodeManager(dsp.WithBlockSize(4))
	require.NoError(t, err)
	return m
}

func TestGraph(t *testing.T) {
	m := newManager(t)
	g := graph.Graph{
		Objects: []graph.Entry{
			{ID: "in", Object: object.Gain{Channels: 1, Gain: 2}},
			{ID: "dry", Object: object.Gain{Channels: 1, Gain: 1}},
			{ID: "wet", Object: object.Gain{Channels: 1, Gain: 0.5}},
			{ID: "out", Object: object.Mix{Channels: 2}},
		},
		Links: []graph.Link{
			{From: "in", To: "dry"},
			{From: "in", To: "wet"},
			{From: "dry", To: "out"},
			{From: "wet", To: "out"},
		},
		Input:  "in",
		Output: "out",
	}
	inst, err := g.Instantiate(m)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.ChannelCount())
	assert.Equal(t, 1, inst.InputChannelCount())
	assert.NotNil(t, inst.(*graph.Instance).Object("wet"))
	assert.Nil(t, inst.(*graph.Instance).Object("missing"))

	source := mock.NewSource(m, 1, 1)
	require.NoError(t, inst.Connect(0, source.Outputs()[0]))
	sink := mock.NewSink(m, 2)
	for ch := 0; ch < 2; ch++ {
		sink.Inputs()[ch].Connect(inst.OutputForChannel(ch))
	}
	m.RegisterRootProcess(sink)
	m.Process(nil, nil, 4)
	// 1 * 2 * (1 + 0.5)
	assert.Equal(t, []float64{3, 3, 3, 3}, sink.Buffer()[0])
	assert.Equal(t, []float64{3, 3, 3, 3}, sink.Buffer()[1])

	require.NoError(t, inst.Disconnect(0, source.Outputs()[0]))
	m.Process(nil, nil, 4)
	assert.Equal(t, []float64{0, 0, 0, 0}, sink.Buffer()[0][4:])

	inst.Release()
	m.Process(nil, nil, 4)
	assert.Equal(t, 2, m.NodeCount())
}

func TestNestedGraph(t *testing.T) {
	m := newManager(t)
	inner := graph.Graph{
		Objects: []graph.Entry{
			{ID: "control", Object: object.Control{Value: 0.5}},
		},
		Output: "control",
	}
	outer := graph.Graph{
		Objects: []graph.Entry{
			{ID: "source", Object: inner},
			{ID: "gain", Object: object.Gain{Channels: 2, Gain: 4}},
		},
		Links:  []graph.Link{{From: "source", To: "gain"}},
		Output: "gain",
	}
	inst, err := outer.New(m)
	require.NoError(t, err)
	assert.Equal(t, 0, inst.InputChannelCount())
	assert.ErrorIs(t, inst.Connect(0, nil), object.ErrNoInputs)
	assert.ErrorIs(t, inst.Disconnect(0, nil), object.ErrNoInputs)

	sink := mock.NewSink(m, 2)
	for ch := 0; ch < 2; ch++ {
		sink.Inputs()[ch].Connect(inst.OutputForChannel(ch))
	}
	m.RegisterRootProcess(sink)
	m.Process(nil, nil, 4)
	assert.Equal(t, []float64{2, 2, 2, 2}, sink.Buffer()[1])
}

func TestGraphErrors(t *testing.T) {
	var tests = []struct {
		name    string
		graph   graph.Graph
		err     error
		deleted int
	}{
		{
			name: "duplicate id",
			graph: graph.Graph{
				Objects: []graph.Entry{
					{ID: "a", Object: object.Control{}},
					{ID: "a", Object: object.Control{}},
				},
				Output: "a",
			},
			err: graph.ErrDuplicateID,
		},
		{
			name: "unknown link",
			graph: graph.Graph{
				Objects: []graph.Entry{{ID: "a", Object: object.Control{}}},
				Links:   []graph.Link{{From: "a", To: "b"}},
				Output:  "a",
			},
			err: graph.ErrUnknownID,
		},
		{
			name: "no output",
			graph: graph.Graph{
				Objects: []graph.Entry{{ID: "a", Object: object.Control{}}},
			},
			err: graph.ErrNoOutput,
		},
		{
			name: "unknown input",
			graph: graph.Graph{
				Objects: []graph.Entry{{ID: "a", Object: object.Control{}}},
				Input:   "b",
				Output:  "a",
			},
			err: graph.ErrUnknownID,
		},
		{
			name: "object error",
			graph: graph.Graph{
				Objects: []graph.Entry{
					{ID: "a", Object: object.Control{}},
					{ID: "b", Object: object.Gain{Channels: 0}},
				},
				Output: "a",
			},
			err:     dsp.ErrInvalidChannelCount,
			deleted: 1,
		},
		{
			name: "link to source",
			graph: graph.Graph{
				Objects: []graph.Entry{
					{ID: "a", Object: object.Control{}},
					{ID: "b", Object: object.Control{}},
				},
				Links:  []graph.Link{{From: "a", To: "b"}},
				Output: "b",
			},
			err:     object.ErrNoInputs,
			deleted: 2,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newManager(t)
			inst, err := test.graph.Instantiate(m)
			assert.Nil(t, inst)
			assert.ErrorIs(t, err, test.err)
			assert.Equal(t, test.deleted, m.PendingDeletions())
		})
	}
}
