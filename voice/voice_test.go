package voice_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/graph"
	"pipelined.dev/dsp/mock"
	"pipelined.dev/dsp/node"
	"pipelined.dev/dsp/object"
	"pipelined.dev/dsp/voice"
)

const blockSize = 4

// sustained returns a mono voice that jumps to 1 and holds until stopped.
func sustained() voice.Voice {
	return voice.Voice{
		Graph: graph.Graph{
			Objects: []graph.Entry{
				{
					ID: "env",
					Object: object.Envelope{
						Segments: []node.Segment{{Value: 1}, {Value: 0.5}},
						Sustain:  0,
					},
				},
			},
			Output: "env",
		},
		Envelope: "env",
	}
}

func newPolyphonic(t *testing.T, p voice.Polyphonic) (*dsp.NodeManager, *voice.PolyphonicInstance, *mock.Sink) {
	t.Helper()
	m, err := dsp.NewNodeManager(dsp.WithBlockSize(blockSize))
	require.NoError(t, err)
	inst, err := p.New(m)
	require.NoError(t, err)
	sink := mock.NewSink(m, inst.ChannelCount())
	for ch := 0; ch < inst.ChannelCount(); ch++ {
		sink.Inputs()[ch].Connect(inst.OutputForChannel(ch))
	}
	m.RegisterRootProcess(sink)
	return m, inst, sink
}

// lastBlock returns the last processed block of channel ch.
func lastBlock(s *mock.Sink, ch int) []float64 {
	b := s.Buffer()[ch]
	return b[len(b)-blockSize:]
}

func countFinished(p *voice.PolyphonicInstance) *int {
	var finished int
	for _, v := range p.Voices() {
		v.Finished.Connect(func(*voice.Instance) {
			finished++
		})
	}
	return &finished
}

func TestPolyphonicExhausted(t *testing.T) {
	m, p, sink := newPolyphonic(t, voice.Polyphonic{
		Voice:        sustained(),
		VoiceCount:   2,
		ChannelCount: 2,
	})
	finished := countFinished(p)

	v1 := p.Play(0)
	v2 := p.Play(0)
	v3 := p.Play(0)
	require.NotNil(t, v1)
	require.NotNil(t, v2)
	assert.NotSame(t, v1, v2)
	assert.Nil(t, v3)
	assert.Equal(t, 2, p.BusyVoiceCount())

	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{2, 2, 2, 2}, lastBlock(sink, 0))
	assert.Equal(t, []float64{2, 2, 2, 2}, lastBlock(sink, 1))

	p.Stop(0)
	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{0, 0, 0, 0}, lastBlock(sink, 0))
	assert.Equal(t, 0, p.BusyVoiceCount())
	assert.Equal(t, 2, *finished)
	for _, v := range p.Voices() {
		assert.False(t, v.Busy())
	}

	assert.NotNil(t, p.Play(0))
	assert.Equal(t, 1, p.BusyVoiceCount())
}

func TestVoiceStealing(t *testing.T) {
	m, p, sink := newPolyphonic(t, voice.Polyphonic{
		Voice:         sustained(),
		VoiceCount:    3,
		VoiceStealing: true,
	})
	finished := countFinished(p)

	v0 := p.Play(0)
	p.Play(0)
	m.Process(nil, nil, blockSize)
	p.Play(0)
	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{3, 3, 3, 3}, lastBlock(sink, 0))

	stolen := p.Play(0)
	assert.Same(t, v0, stolen)
	assert.Equal(t, uint64(2*blockSize), stolen.StartTime())
	assert.Equal(t, 3, p.BusyVoiceCount())

	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{3, 3, 3, 3}, lastBlock(sink, 0))
	// the stolen event is reported as finished
	assert.Equal(t, 1, *finished)
	assert.Equal(t, 3, p.BusyVoiceCount())
}

func TestReservedVoice(t *testing.T) {
	m, p, sink := newPolyphonic(t, voice.Polyphonic{
		Voice:      sustained(),
		VoiceCount: 3,
	})
	finished := countFinished(p)
	p.Play(0)
	p.Play(0)

	v := p.FindFreeVoice()
	require.NotNil(t, v)
	require.NoError(t, p.PlayVoice(v, 0))
	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{3, 3, 3, 3}, lastBlock(sink, 0))

	require.NoError(t, p.StopVoice(v, 0))
	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{2, 2, 2, 2}, lastBlock(sink, 0))
	assert.Equal(t, 1, *finished)
	assert.False(t, v.Busy())
	assert.Equal(t, 2, p.BusyVoiceCount())

	assert.ErrorIs(t, p.PlayVoice(v, 0), voice.ErrNotReserved)
	assert.ErrorIs(t, p.PlayVoice(nil, 0), voice.ErrForeignVoice)

	_, other, _ := newPolyphonic(t, voice.Polyphonic{
		Voice:      sustained(),
		VoiceCount: 1,
	})
	foreign := other.FindFreeVoice()
	require.NotNil(t, foreign)
	assert.ErrorIs(t, p.PlayVoice(foreign, 0), voice.ErrForeignVoice)
	assert.ErrorIs(t, p.StopVoice(foreign, 0), voice.ErrForeignVoice)

	v = p.FindFreeVoice()
	require.NotNil(t, v)
	assert.ErrorIs(t, p.PlayVoiceOnChannels(v, []int{1}, 0), dsp.ErrInvalidChannel)
	require.NoError(t, p.PlayVoiceOnChannels(v, []int{0}, 0))
	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{3, 3, 3, 3}, lastBlock(sink, 0))
}

func TestReservedVoiceFinishes(t *testing.T) {
	m, err := dsp.NewNodeManager(dsp.WithSampleRate(1000), dsp.WithBlockSize(blockSize))
	require.NoError(t, err)
	p, err := voice.Polyphonic{
		Voice: voice.Voice{
			Graph: graph.Graph{
				Objects: []graph.Entry{{
					ID: "env",
					Object: object.Envelope{
						Segments: []node.Segment{{Value: 1}, {Value: 0, Duration: 6 * time.Millisecond}},
						Sustain:  node.NoSustain,
					},
				}},
				Output: "env",
			},
			Envelope: "env",
		},
		VoiceCount: 1,
	}.New(m)
	require.NoError(t, err)
	sink := mock.NewSink(m, 1)
	sink.Inputs()[0].Connect(p.OutputForChannel(0))
	m.RegisterRootProcess(sink)
	finished := countFinished(p)

	v := p.FindFreeVoice()
	require.NotNil(t, v)
	assert.Nil(t, p.FindFreeVoice())
	require.NoError(t, p.PlayVoiceSection(v, 0, 2, 0, 0))
	m.Process(nil, nil, blockSize)
	assert.NotEqual(t, []float64{0, 0, 0, 0}, lastBlock(sink, 0))
	for i := 0; i < 3; i++ {
		m.Process(nil, nil, blockSize)
	}
	assert.Equal(t, []float64{0, 0, 0, 0}, lastBlock(sink, 0))
	assert.False(t, v.Busy())
	assert.Equal(t, 1, *finished)
	assert.Same(t, v, p.FindFreeVoice())
}

func TestPlayOnChannels(t *testing.T) {
	m, p, sink := newPolyphonic(t, voice.Polyphonic{
		Voice:        sustained(),
		VoiceCount:   2,
		ChannelCount: 2,
	})
	v, err := p.PlayOnChannels([]int{1}, 0)
	require.NoError(t, err)
	require.NotNil(t, v)
	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{0, 0, 0, 0}, lastBlock(sink, 0))
	assert.Equal(t, []float64{1, 1, 1, 1}, lastBlock(sink, 1))

	_, err = p.PlayOnChannels([]int{2}, 0)
	assert.ErrorIs(t, err, dsp.ErrInvalidChannel)
	_, err = p.PlayOnChannels(nil, 0)
	assert.ErrorIs(t, err, dsp.ErrInvalidChannelCount)
	assert.Equal(t, 1, p.BusyVoiceCount())
}

func TestPlaySection(t *testing.T) {
	m, p, sink := newPolyphonic(t, voice.Polyphonic{
		Voice:      sustained(),
		VoiceCount: 1,
	})
	finished := countFinished(p)

	// second segment only, no sustain point on the way
	v := p.PlaySection(1, 2, 0, 0)
	require.NotNil(t, v)
	m.Process(nil, nil, blockSize)
	assert.False(t, v.Busy())
	assert.Equal(t, 1, *finished)
	assert.Equal(t, []float64{0, 0, 0, 0}, lastBlock(sink, 0))

	// empty section
	require.NotNil(t, p.PlaySection(1, 1, 0, 0))
	m.Process(nil, nil, blockSize)
	assert.Equal(t, 0, p.BusyVoiceCount())
	assert.Equal(t, 2, *finished)
}

func TestReset(t *testing.T) {
	m, p, sink := newPolyphonic(t, voice.Polyphonic{
		Voice:      sustained(),
		VoiceCount: 3,
	})
	finished := countFinished(p)
	p.Play(0)
	p.Play(0)
	m.Process(nil, nil, blockSize)
	assert.Equal(t, []float64{2, 2, 2, 2}, lastBlock(sink, 0))

	reserved := p.FindFreeVoice()
	require.NotNil(t, reserved)
	assert.Equal(t, 3, p.BusyVoiceCount())
	p.Reset()
	m.Process(nil, nil, blockSize)
	assert.Equal(t, 0, p.BusyVoiceCount())
	assert.Equal(t, 0, *finished)
	assert.Equal(t, []float64{0, 0, 0, 0}, lastBlock(sink, 0))

	// reservations made before the reset is applied never start
	p.Reset()
	v := p.Play(0)
	require.NotNil(t, v)
	m.Process(nil, nil, blockSize)
	assert.False(t, v.Busy())
	assert.Equal(t, []float64{0, 0, 0, 0}, lastBlock(sink, 0))
}

func TestFindFreeVoiceExclusive(t *testing.T) {
	const (
		voices  = 8
		callers = 32
	)
	_, p, _ := newPolyphonic(t, voice.Polyphonic{
		Voice:      sustained(),
		VoiceCount: voices,
	})

	var (
		mu       sync.Mutex
		reserved = make(map[*voice.Instance]int)
		dropped  int
	)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			v := p.FindFreeVoice()
			mu.Lock()
			defer mu.Unlock()
			if v == nil {
				dropped++
				return nil
			}
			reserved[v]++
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, reserved, voices)
	for _, n := range reserved {
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, callers-voices, dropped)
	assert.Equal(t, voices, p.BusyVoiceCount())
}

func TestVoiceErrors(t *testing.T) {
	m, err := dsp.NewNodeManager(dsp.WithBlockSize(blockSize))
	require.NoError(t, err)

	noEnvelope := voice.Voice{
		Graph: graph.Graph{
			Objects: []graph.Entry{{ID: "gain", Object: object.Gain{Channels: 1, Gain: 1}}},
			Output:  "gain",
		},
		Envelope: "gain",
	}
	_, err = noEnvelope.Instantiate(m)
	assert.ErrorIs(t, err, voice.ErrNoEnvelope)
	assert.Equal(t, 1, m.PendingDeletions())

	_, err = voice.Polyphonic{Voice: sustained()}.Instantiate(m)
	assert.Error(t, err)

	pending := m.PendingDeletions()
	_, err = voice.Polyphonic{Voice: noEnvelope, VoiceCount: 2}.Instantiate(m)
	assert.ErrorIs(t, err, voice.ErrNoEnvelope)
	assert.Equal(t, pending+1, m.PendingDeletions())

	inst, err := voice.Polyphonic{Voice: sustained(), VoiceCount: 2}.Instantiate(m)
	require.NoError(t, err)
	assert.Equal(t, 0, inst.InputChannelCount())
	assert.ErrorIs(t, inst.Connect(0, nil), object.ErrNoInputs)
	inst.Release()
	m.Process(nil, nil, blockSize)
	assert.Equal(t, 0, m.NodeCount())
}
