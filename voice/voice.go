// Package voice provides a pool of identical sub-graphs used to play
// overlapping events. A voice is a graph with a designated envelope: the
// voice is busy from the moment it is reserved until its envelope
// finishes.
package voice

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/graph"
	"pipelined.dev/dsp/node"
	"pipelined.dev/dsp/object"
)

var (
	// ErrNoEnvelope is returned when the envelope object of a voice doesn't
	// contain an envelope node.
	ErrNoEnvelope = errors.New("no envelope")
	// ErrNotReserved is returned when a voice is played but it isn't
	// reserved.
	ErrNotReserved = errors.New("voice is not reserved")
	// ErrForeignVoice is returned when a voice is played by a pool it
	// doesn't belong to.
	ErrForeignVoice = errors.New("voice belongs to another pool")
)

// Voice is a graph template with a designated envelope object.
type Voice struct {
	Graph    graph.Graph
	Envelope string
}

// connection is a voice output connected to a mixer input.
type connection struct {
	in  *dsp.MultiInputPin
	out *dsp.OutputPin
}

// Instance is a running voice. Its state word packs a reservation
// generation and the busy flag: gen<<1 | busy. Every reservation
// increments the generation, so a finish of a previous reservation can
// never free a reused voice.
type Instance struct {
	*graph.Instance
	// Finished is emitted on the audio goroutine when a played event of
	// the voice ends: its envelope finished or the voice was stolen by
	// another event. The voice is already disconnected from mixers. Reset
	// doesn't emit it.
	Finished dsp.Signal[*Instance]

	m         *dsp.NodeManager
	envelope  *node.Envelope
	state     atomic.Uint64
	reserved  atomic.Uint64
	startTime atomic.Uint64

	// audio goroutine state
	playing     uint64
	active      bool
	connections []connection
}

// Instantiate implements object.Object.
func (v Voice) Instantiate(m *dsp.NodeManager) (object.Instance, error) {
	inst, err := v.New(m)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// New instantiates the voice graph and resolves its envelope.
func (v Voice) New(m *dsp.NodeManager) (*Instance, error) {
	gi, err := v.Graph.New(m)
	if err != nil {
		return nil, fmt.Errorf("voice: %w", err)
	}
	env := findEnvelope(gi.Object(v.Envelope))
	if env == nil {
		gi.Release()
		return nil, fmt.Errorf("voice: object %q: %w", v.Envelope, ErrNoEnvelope)
	}
	inst := &Instance{
		Instance: gi,
		m:        m,
		envelope: env,
	}
	env.Finished.Connect(inst.finishNow)
	return inst, nil
}

func findEnvelope(oi object.Instance) *node.Envelope {
	ni, ok := oi.(*object.NodeInstance)
	if !ok {
		return nil
	}
	for _, n := range ni.Nodes() {
		if env, ok := n.(*node.Envelope); ok {
			return env
		}
	}
	return nil
}

// Envelope returns the envelope node of the voice.
func (v *Instance) Envelope() *node.Envelope {
	return v.envelope
}

// Stop schedules the release of the event played by the current
// reservation. The voice stays busy until the fade ends. If the voice is
// stolen or reset before the stop is applied, it's dropped.
func (v *Instance) Stop(fade time.Duration) {
	gen := v.reserved.Load()
	v.m.Enqueue(func() {
		if v.active && v.playing == gen {
			v.envelope.StopNow(fade)
		}
	})
}

// Busy returns true if the voice is reserved or playing.
func (v *Instance) Busy() bool {
	return v.state.Load()&1 == 1
}

// StartTime returns the sample time of the last reservation.
func (v *Instance) StartTime() uint64 {
	return v.startTime.Load()
}

// reserve marks an idle voice busy and returns the new generation.
func (v *Instance) reserve() (uint64, bool) {
	s := v.state.Load()
	if s&1 == 1 {
		return 0, false
	}
	gen := s>>1 + 1
	if !v.state.CompareAndSwap(s, gen<<1|1) {
		return 0, false
	}
	v.setReserved(gen)
	return gen, true
}

// setReserved records gen unless a later reservation is already recorded.
func (v *Instance) setReserved(gen uint64) {
	for {
		r := v.reserved.Load()
		if r >= gen || v.reserved.CompareAndSwap(r, gen) {
			return
		}
	}
}

// current returns the generation of the last reservation and true if it's
// still holding the voice.
func (v *Instance) current() (uint64, bool) {
	gen := v.reserved.Load()
	return gen, v.state.Load() == gen<<1|1
}

// steal takes over a busy voice observed in state s.
func (v *Instance) steal(s uint64) (uint64, bool) {
	if s&1 == 0 {
		return 0, false
	}
	gen := s>>1 + 1
	if !v.state.CompareAndSwap(s, gen<<1|1) {
		return 0, false
	}
	v.setReserved(gen)
	return gen, true
}

// free clears the busy flag if the voice still belongs to gen.
func (v *Instance) free(gen uint64) bool {
	return v.state.CompareAndSwap(gen<<1|1, gen<<1)
}

// invalidate frees the voice and increments its generation, so pending
// starts of earlier reservations are dropped.
func (v *Instance) invalidate() {
	for {
		s := v.state.Load()
		if v.state.CompareAndSwap(s, (s>>1+1)<<1) {
			return
		}
	}
}

// startNow connects the voice to mixers and plays the envelope if the
// reservation gen is still current. Audio goroutine only.
func (v *Instance) startNow(gen uint64, mixers []*dsp.MultiInputPin, channels []int, play func(*node.Envelope)) {
	if v.state.Load() != gen<<1|1 {
		return
	}
	v.disconnectNow()
	v.playing = gen
	v.active = true
	vc := v.ChannelCount()
	for i, ch := range channels {
		c := connection{in: mixers[ch], out: v.OutputForChannel(i % vc)}
		c.in.ConnectNow(c.out)
		v.connections = append(v.connections, c)
	}
	play(v.envelope)
}

// resetNow stops the envelope without Finished and disconnects the voice.
// Audio goroutine only.
func (v *Instance) resetNow() {
	v.envelope.ResetNow()
	v.disconnectNow()
	v.active = false
}

// stealNow resets the voice for a new reservation and reports the end of
// the event it was playing. Audio goroutine only.
func (v *Instance) stealNow() {
	active := v.active
	v.resetNow()
	if active {
		v.Finished.Trigger(v)
	}
}

func (v *Instance) disconnectNow() {
	for i, c := range v.connections {
		c.in.DisconnectNow(c.out)
		v.connections[i] = connection{}
	}
	v.connections = v.connections[:0]
}

// finishNow is connected to the envelope Finished signal.
func (v *Instance) finishNow(*node.Envelope) {
	v.disconnectNow()
	v.active = false
	v.free(v.playing)
	v.Finished.Trigger(v)
}
