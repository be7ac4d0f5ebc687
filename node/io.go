package node

import "pipelined.dev/dsp"

// Input exposes one device input channel of the manager on its output
// pin. Missing channels produce silence.
type Input struct {
	*dsp.Base
	channel int
}

// NewInput returns the input node of device channel ch.
func NewInput(m *dsp.NodeManager, ch int) *Input {
	n := &Input{channel: ch}
	n.Base = dsp.NewBase(m, n)
	n.AddOutput()
	return n
}

// Output returns the output pin.
func (n *Input) Output() *dsp.OutputPin {
	return n.Outputs()[0]
}

// Process copies the device input.
func (n *Input) Process() {
	out := n.Output().Buffer()
	in := n.Manager().InputBuffer(n.channel)
	if in == nil {
		out.Clear()
		return
	}
	copy(out, in)
}

// Output adds its input into one device output channel. It has no output
// pins, so it must be registered as a root process to run.
type Output struct {
	*dsp.Base
	channel int
}

// NewOutput returns the output node of device channel ch.
func NewOutput(m *dsp.NodeManager, ch int) *Output {
	n := &Output{channel: ch}
	n.Base = dsp.NewBase(m, n)
	n.AddInput()
	return n
}

// Input returns the input pin.
func (n *Output) Input() *dsp.InputPin {
	return n.Inputs()[0]
}

// Process adds pulled samples to the device output. The manager clears
// device outputs before every block, so outputs of the same channel sum.
func (n *Output) Process() {
	in := n.Input().Pull()
	out := n.Manager().OutputBuffer(n.channel)
	if in == nil || out == nil {
		return
	}
	for i := range out {
		out[i] += in[i]
	}
}
