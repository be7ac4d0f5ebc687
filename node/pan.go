package node

import (
	"pipelined.dev/dsp"
	"pipelined.dev/dsp/signal"
)

// Pan spreads a mono input over left and right outputs with an equal
// power curve. Pan is in [-1, 1].
type Pan struct {
	*dsp.Base
	Pan *Param

	table       *signal.EqualPower
	left, right ramp
}

// NewPan returns a pan node.
func NewPan(m *dsp.NodeManager, pan float64) *Pan {
	n := &Pan{
		Pan:   NewParam(pan),
		table: signal.EqualPowerTable(),
	}
	l, r := n.table.Gains(pan)
	n.left.set(l)
	n.right.set(r)
	n.Base = dsp.NewBase(m, n)
	n.AddInput()
	n.AddOutput()
	n.AddOutput()
	return n
}

// Input returns the input pin.
func (n *Pan) Input() *dsp.InputPin {
	return n.Inputs()[0]
}

// Left returns the left output pin.
func (n *Pan) Left() *dsp.OutputPin {
	return n.Outputs()[0]
}

// Right returns the right output pin.
func (n *Pan) Right() *dsp.OutputPin {
	return n.Outputs()[1]
}

// Process writes both outputs.
func (n *Pan) Process() {
	left, right := n.Left().Buffer(), n.Right().Buffer()
	l, r := n.table.Gains(n.Pan.Get())
	if l != n.left.target || r != n.right.target {
		n.left.to(l, len(left))
		n.right.to(r, len(right))
	}
	in := n.Input().Pull()
	for i := range left {
		gl, gr := n.left.next(), n.right.next()
		if in == nil {
			left[i], right[i] = 0, 0
			continue
		}
		left[i] = in[i] * gl
		right[i] = in[i] * gr
	}
}
