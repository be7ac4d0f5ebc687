package node

import (
	"time"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/signal"
)

// Control produces a control signal that ramps between values. Changes
// are applied at the block boundary.
type Control struct {
	*dsp.Base
	// DestinationReached is emitted on the audio goroutine when a ramp
	// reaches its target.
	DestinationReached dsp.Signal[*Control]

	ramp  ramp
	value Param
}

// NewControl returns a control node with initial value.
func NewControl(m *dsp.NodeManager, value float64) *Control {
	n := &Control{}
	n.ramp.set(value)
	n.value.Set(value)
	n.Base = dsp.NewBase(m, n)
	n.AddOutput()
	return n
}

// Output returns the output pin.
func (n *Control) Output() *dsp.OutputPin {
	return n.Outputs()[0]
}

// Value returns the value at the end of the last processed block.
func (n *Control) Value() float64 {
	return n.value.Get()
}

// SetValue schedules a jump to v.
func (n *Control) SetValue(v float64) {
	n.Manager().Enqueue(func() {
		n.SetValueNow(v)
	})
}

// RampTo schedules a linear ramp to target over d.
func (n *Control) RampTo(target float64, d time.Duration) {
	n.Manager().Enqueue(func() {
		n.RampToNow(target, d)
	})
}

// SetValueNow jumps to v. Audio goroutine only.
func (n *Control) SetValueNow(v float64) {
	n.ramp.set(v)
}

// RampToNow starts a ramp to target. Audio goroutine only.
func (n *Control) RampToNow(target float64, d time.Duration) {
	n.ramp.to(target, signal.SamplesOf(n.SampleRate(), d))
}

// Process writes the ramp.
func (n *Control) Process() {
	out := n.Output().Buffer()
	wasActive := n.ramp.active()
	for i := range out {
		out[i] = n.ramp.next()
	}
	n.value.Set(n.ramp.value)
	if wasActive && !n.ramp.active() {
		n.DestinationReached.Trigger(n)
	}
}
