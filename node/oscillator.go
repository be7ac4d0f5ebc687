package node

import (
	"pipelined.dev/dsp"
	"pipelined.dev/dsp/signal"
)

// Oscillator reads a shared wave table. If the frequency input is
// connected, its samples are added to the Frequency param.
type Oscillator struct {
	*dsp.Base
	Frequency *Param
	Amplitude *Param

	table *signal.WaveTable
	phase float64
}

// NewOscillator returns a sine oscillator.
func NewOscillator(m *dsp.NodeManager, frequency, amplitude float64) *Oscillator {
	return NewTableOscillator(m, signal.SineTable(), frequency, amplitude)
}

// NewTableOscillator returns an oscillator reading table.
func NewTableOscillator(m *dsp.NodeManager, table *signal.WaveTable, frequency, amplitude float64) *Oscillator {
	n := &Oscillator{
		Frequency: NewParam(frequency),
		Amplitude: NewParam(amplitude),
		table:     table,
	}
	n.Base = dsp.NewBase(m, n)
	n.AddInput()
	n.AddOutput()
	return n
}

// FrequencyInput returns the frequency modulation input pin.
func (n *Oscillator) FrequencyInput() *dsp.InputPin {
	return n.Inputs()[0]
}

// Output returns the output pin.
func (n *Oscillator) Output() *dsp.OutputPin {
	return n.Outputs()[0]
}

// ResetPhaseNow restarts the period. Audio goroutine only.
func (n *Oscillator) ResetPhaseNow() {
	n.phase = 0
}

// Process writes the waveform.
func (n *Oscillator) Process() {
	out := n.Output().Buffer()
	fm := n.FrequencyInput().Pull()
	freq, amp := n.Frequency.Get(), n.Amplitude.Get()
	inc := 1 / n.SampleRate()
	for i := range out {
		f := freq
		if fm != nil {
			f += fm[i]
		}
		out[i] = amp * n.table.At(n.phase)
		n.phase += f * inc
		if n.phase >= 1 || n.phase < 0 {
			n.phase -= float64(int(n.phase))
			if n.phase < 0 {
				n.phase++
			}
		}
	}
}
