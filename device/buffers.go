// Package device adapts node managers to audio devices: interleaved device
// buffers, a headless clock and a pull-driven reader for stream players.
//
// Whatever goroutine calls into these adapters becomes the audio goroutine
// of the manager. There must be only one.
package device

import (
	"pipelined.dev/dsp"
	"pipelined.dev/dsp/signal"
)

// Buffers converts interleaved device buffers to manager channels. Device
// callbacks with more frames than the capacity are processed in chunks.
type Buffers struct {
	m        *dsp.NodeManager
	input    [][]float64
	output   [][]float64
	inputs   [][]float64
	outputs  [][]float64
	capacity int
}

// NewBuffers allocates buffers for frames per chunk with the manager's
// channel counts.
func NewBuffers(m *dsp.NodeManager, frames int) *Buffers {
	if frames <= 0 {
		frames = m.BlockSize()
	}
	return &Buffers{
		m:        m,
		input:    signal.EmptyFloat64(m.InputChannelCount(), frames),
		output:   signal.EmptyFloat64(m.OutputChannelCount(), frames),
		inputs:   make([][]float64, m.InputChannelCount()),
		outputs:  make([][]float64, m.OutputChannelCount()),
		capacity: frames,
	}
}

// Capacity returns the number of frames processed at once.
func (b *Buffers) Capacity() int {
	return b.capacity
}

// Output returns the output channels of the last processed chunk.
func (b *Buffers) Output() [][]float64 {
	return b.outputs
}

// Process deinterleaves in, runs the manager and interleaves the result
// into out. The number of frames is defined by out, or by in if there are
// no output channels. It returns the number of processed frames.
func (b *Buffers) Process(in, out []float32) int {
	ic, oc := len(b.input), len(b.output)
	var frames int
	switch {
	case oc > 0:
		frames = len(out) / oc
	case ic > 0:
		frames = len(in) / ic
	}
	for done := 0; done < frames; {
		n := frames - done
		if n > b.capacity {
			n = b.capacity
		}
		b.slice(n)
		if ic > 0 && len(in) >= (done+n)*ic {
			signal.Deinterleave(b.inputs, in[done*ic:(done+n)*ic], ic)
		} else {
			for _, ch := range b.inputs {
				clear(ch)
			}
		}
		b.m.Process(b.inputs, b.outputs, n)
		if oc > 0 {
			signal.Interleave(out[done*oc:], b.outputs, oc, n)
		}
		done += n
	}
	return frames
}

func (b *Buffers) slice(n int) {
	for i := range b.input {
		b.inputs[i] = b.input[i][:n]
	}
	for i := range b.output {
		b.outputs[i] = b.output[i][:n]
	}
}
