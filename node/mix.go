package node

import "pipelined.dev/dsp"

// Mix sums any number of inputs.
type Mix struct {
	*dsp.Base
	in *dsp.MultiInputPin
}

// NewMix returns a mix node with room for n inputs.
func NewMix(m *dsp.NodeManager, n int) *Mix {
	mix := &Mix{}
	mix.Base = dsp.NewBase(m, mix)
	mix.in = mix.AddMultiInput(n)
	mix.AddOutput()
	return mix
}

// Input returns the multi input pin.
func (n *Mix) Input() *dsp.MultiInputPin {
	return n.in
}

// Output returns the output pin.
func (n *Mix) Output() *dsp.OutputPin {
	return n.Outputs()[0]
}

// Process sums pulled inputs.
func (n *Mix) Process() {
	out := n.Output().Buffer()
	out.Clear()
	for _, in := range n.in.PullAll() {
		for i := range out {
			out[i] += in[i]
		}
	}
}
