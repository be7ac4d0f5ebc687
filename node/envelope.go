package node

import (
	"time"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/signal"
)

// NoSustain disables the sustain point of an envelope.
const NoSustain = -1

// Segment is one ramp of an envelope: the value reaches Value after
// Duration.
type Segment struct {
	Value    float64
	Duration time.Duration
}

type envelopeState int

const (
	idle envelopeState = iota
	ramping
	holding
)

// Envelope produces a control signal shaped by segments. When played, it
// ramps through segments in order. If the sustain segment is reached
// before the hold time elapses, the envelope holds its value until then,
// or until Stop if the hold time is zero.
//
// After the last segment the envelope keeps its final value and emits
// Finished.
type Envelope struct {
	*dsp.Base
	// DestinationReached is emitted on the audio goroutine with the index
	// of every reached segment.
	DestinationReached dsp.Signal[int]
	// Finished is emitted on the audio goroutine when the envelope
	// completes or its stop fade ends. Reset doesn't emit it.
	Finished dsp.Signal[*Envelope]

	segments []Segment
	sustain  int

	state    envelopeState
	stopping bool
	index    int
	end      int
	elapsed  int
	hold     int
	ramp     ramp
}

// NewEnvelope returns an envelope with segments. Sustain is the index of
// the segment after which the envelope holds or NoSustain.
func NewEnvelope(m *dsp.NodeManager, segments []Segment, sustain int) *Envelope {
	n := &Envelope{
		segments: append([]Segment(nil), segments...),
		sustain:  sustain,
	}
	n.Base = dsp.NewBase(m, n)
	n.AddOutput()
	return n
}

// Output returns the output pin.
func (n *Envelope) Output() *dsp.OutputPin {
	return n.Outputs()[0]
}

// SegmentCount returns the number of segments.
func (n *Envelope) SegmentCount() int {
	return len(n.segments)
}

// Play schedules playback of all segments from zero.
func (n *Envelope) Play(hold time.Duration) {
	n.Manager().Enqueue(func() {
		n.PlayNow(hold)
	})
}

// PlaySection schedules playback of segments [start, end) from
// startValue.
func (n *Envelope) PlaySection(start, end int, startValue float64, hold time.Duration) {
	n.Manager().Enqueue(func() {
		n.PlaySectionNow(start, end, startValue, hold)
	})
}

// Stop schedules a fade to zero. Finished is emitted when the fade ends.
func (n *Envelope) Stop(fade time.Duration) {
	n.Manager().Enqueue(func() {
		n.StopNow(fade)
	})
}

// PlayNow starts playback of all segments. Audio goroutine only.
func (n *Envelope) PlayNow(hold time.Duration) {
	n.PlaySectionNow(0, len(n.segments), 0, hold)
}

// PlaySectionNow starts playback of segments [start, end). An empty
// section finishes immediately. Audio goroutine only.
func (n *Envelope) PlaySectionNow(start, end int, startValue float64, hold time.Duration) {
	if start < 0 {
		start = 0
	}
	if end > len(n.segments) {
		end = len(n.segments)
	}
	n.ramp.set(startValue)
	n.stopping = false
	n.elapsed = 0
	n.hold = -1
	if hold > 0 {
		n.hold = signal.SamplesOf(n.SampleRate(), hold)
	}
	n.index, n.end = start, end
	if start >= end {
		n.finish()
		return
	}
	n.state = ramping
	n.startSegment()
	n.advance()
}

// StopNow starts a fade to zero. Stopping an idle envelope does nothing.
// Audio goroutine only.
func (n *Envelope) StopNow(fade time.Duration) {
	if n.state == idle {
		return
	}
	n.stopping = true
	n.state = ramping
	n.ramp.to(0, signal.SamplesOf(n.SampleRate(), fade))
	n.advance()
}

// ResetNow stops the envelope at zero without emitting Finished. Audio
// goroutine only.
func (n *Envelope) ResetNow() {
	n.state = idle
	n.stopping = false
	n.ramp.set(0)
}

// Active returns true if the envelope is playing. Audio goroutine only.
func (n *Envelope) Active() bool {
	return n.state != idle
}

// Process writes the envelope.
func (n *Envelope) Process() {
	out := n.Output().Buffer()
	for i := range out {
		if n.state == holding && n.hold >= 0 && n.elapsed >= n.hold {
			n.state = ramping
			n.nextSegment()
			n.advance()
		}
		out[i] = n.ramp.next()
		if n.state == idle {
			continue
		}
		n.elapsed++
		if n.state == ramping && !n.ramp.active() {
			n.advance()
		}
	}
}

func (n *Envelope) startSegment() {
	s := n.segments[n.index]
	n.ramp.to(s.Value, signal.SamplesOf(n.SampleRate(), s.Duration))
}

func (n *Envelope) nextSegment() {
	n.index++
	if n.index >= n.end {
		n.finish()
		return
	}
	n.startSegment()
}

// advance moves past every segment whose destination is reached.
func (n *Envelope) advance() {
	for n.state == ramping && !n.ramp.active() {
		if n.stopping {
			n.finish()
			return
		}
		n.DestinationReached.Trigger(n.index)
		if n.index == n.sustain && (n.hold < 0 || n.elapsed < n.hold) {
			n.state = holding
			return
		}
		n.nextSegment()
	}
}

func (n *Envelope) finish() {
	n.state = idle
	n.stopping = false
	n.Finished.Trigger(n)
}
