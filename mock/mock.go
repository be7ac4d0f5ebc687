// Package mock provides mocks for graph nodes and allows to execute
// integration tests.
package mock

import (
	"pipelined.dev/dsp"
)

type counter struct {
	blocks  int
	samples int
}

// Blocks returns the number of Process calls.
func (c *counter) Blocks() int {
	return c.blocks
}

// Samples returns the number of processed samples per channel.
func (c *counter) Samples() int {
	return c.samples
}

func (c *counter) advance(samples int) {
	c.blocks++
	c.samples += samples
}

// Source produces blocks filled with Value. If Limit is positive, it
// produces silence after Limit samples.
type Source struct {
	*dsp.Base
	counter
	Value float64
	Limit int
}

// NewSource returns a source with n output channels.
func NewSource(m *dsp.NodeManager, channels int, value float64) *Source {
	s := &Source{Value: value}
	s.Base = dsp.NewBase(m, s)
	for i := 0; i < channels; i++ {
		s.AddOutput()
	}
	return s
}

// ValueParam returns a mutation that sets a new signal value.
func (s *Source) ValueParam(v float64) func() {
	return func() {
		s.Value = v
	}
}

// Process fills output pins.
func (s *Source) Process() {
	bs := s.BlockSize()
	for _, out := range s.Outputs() {
		b := out.Buffer()
		for i := range b {
			if s.Limit > 0 && s.samples+i >= s.Limit {
				b[i] = 0
				continue
			}
			b[i] = s.Value
		}
	}
	s.advance(bs)
}

// Processor copies its inputs into outputs and counts processed blocks.
type Processor struct {
	*dsp.Base
	counter
}

// NewProcessor returns a processor with n input and output channels.
func NewProcessor(m *dsp.NodeManager, channels int) *Processor {
	p := &Processor{}
	p.Base = dsp.NewBase(m, p)
	for i := 0; i < channels; i++ {
		p.AddInput()
		p.AddOutput()
	}
	return p
}

// Process copies pulled inputs into outputs. Unconnected inputs produce
// silence.
func (p *Processor) Process() {
	outputs := p.Outputs()
	for i, in := range p.Inputs() {
		out := outputs[i].Buffer()
		b := in.Pull()
		if b == nil {
			out.Clear()
			continue
		}
		copy(out, b)
	}
	p.advance(p.BlockSize())
}

// Sink is a root process that pulls its inputs and stores received
// samples. Sink allocates while storing, unless Discard is set, so it's
// only suitable for tests.
type Sink struct {
	*dsp.Base
	counter
	buffer  [][]float64
	Discard bool
}

// NewSink returns a sink with n input channels.
func NewSink(m *dsp.NodeManager, channels int) *Sink {
	s := &Sink{
		buffer: make([][]float64, channels),
	}
	s.Base = dsp.NewBase(m, s)
	for i := 0; i < channels; i++ {
		s.AddInput()
	}
	return s
}

// Process pulls all inputs.
func (s *Sink) Process() {
	bs := s.BlockSize()
	for i, in := range s.Inputs() {
		b := in.Pull()
		if s.Discard {
			continue
		}
		if b == nil {
			s.buffer[i] = append(s.buffer[i], make([]float64, bs)...)
			continue
		}
		s.buffer[i] = append(s.buffer[i], b...)
	}
	s.advance(bs)
}

// Buffer returns received samples. It's not safe to call while the
// manager is processing.
func (s *Sink) Buffer() [][]float64 {
	return s.buffer
}

// Disposable counts Dispose calls.
type Disposable struct {
	Disposed int
}

// Dispose implements safe.Disposer.
func (d *Disposable) Dispose() {
	d.Disposed++
}
