package node

import "pipelined.dev/dsp"

// Gain multiplies its signal input. If the control input is connected,
// the signal is multiplied by it, otherwise by the Gain param. Param
// changes are smoothed over one block.
type Gain struct {
	*dsp.Base
	Gain *Param
	ramp ramp
}

// NewGain returns a gain node with initial gain.
func NewGain(m *dsp.NodeManager, gain float64) *Gain {
	n := &Gain{Gain: NewParam(gain)}
	n.ramp.set(gain)
	n.Base = dsp.NewBase(m, n)
	n.AddInput()
	n.AddInput()
	n.AddOutput()
	return n
}

// Input returns the signal input pin.
func (n *Gain) Input() *dsp.InputPin {
	return n.Inputs()[0]
}

// Control returns the gain control input pin.
func (n *Gain) Control() *dsp.InputPin {
	return n.Inputs()[1]
}

// Output returns the output pin.
func (n *Gain) Output() *dsp.OutputPin {
	return n.Outputs()[0]
}

// Process applies gain.
func (n *Gain) Process() {
	out := n.Output().Buffer()
	in := n.Input().Pull()
	if target := n.Gain.Get(); target != n.ramp.target {
		n.ramp.to(target, len(out))
	}
	if ctrl := n.Control().Pull(); ctrl != nil {
		for i := range out {
			n.ramp.next()
			if in == nil {
				out[i] = 0
				continue
			}
			out[i] = in[i] * ctrl[i]
		}
		return
	}
	for i := range out {
		g := n.ramp.next()
		if in == nil {
			out[i] = 0
			continue
		}
		out[i] = in[i] * g
	}
}
