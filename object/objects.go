package object

import (
	"fmt"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/node"
	"pipelined.dev/dsp/signal"
)

// reservedMixInputs is the connection capacity reserved by every mix
// channel if Mix.Inputs is not set.
const reservedMixInputs = 16

type (
	// Input exposes device input channels. Nil Channels means all input
	// channels of the manager.
	Input struct {
		Channels []int
	}

	// Output writes into device output channels. Every channel is a root
	// process. Nil Channels means all output channels of the manager.
	Output struct {
		Channels []int
	}

	// Gain is a bank of gain nodes.
	Gain struct {
		Channels int
		Gain     float64
	}

	// Mix is a bank of mix nodes. Every input channel accepts any number of
	// connections.
	Mix struct {
		Channels int
		Inputs   int
	}

	// Oscillator is a bank of sine oscillators.
	Oscillator struct {
		Channels  int
		Frequency float64
		Amplitude float64
	}

	// Envelope is a single channel envelope. Sustain is the index of the
	// segment to hold after or node.NoSustain.
	Envelope struct {
		Segments []node.Segment
		Sustain  int
	}

	// Tone is a single channel sine oscillator shaped by an envelope. It
	// can serve as a voice with the envelope driving its lifetime.
	Tone struct {
		Frequency float64
		Amplitude float64
		Envelope  Envelope
	}

	// Control is a single channel control signal.
	Control struct {
		Value float64
	}

	// Pan spreads one input channel over two output channels.
	Pan struct {
		Pan float64
	}

	// Player plays a shared sample on Channels outputs.
	Player struct {
		Sample   *signal.Sample
		Channels int
	}
)

// Instantiate implements Object.
func (o Input) Instantiate(m *dsp.NodeManager) (Instance, error) {
	channels, err := deviceChannels(o.Channels, m.InputChannelCount(), "input")
	if err != nil {
		return nil, err
	}
	inst := NewNodeInstance()
	for _, ch := range channels {
		n := node.NewInput(m, ch)
		inst.Own(m, n)
		inst.AddOutput(n.Output())
	}
	return inst, nil
}

// Instantiate implements Object.
func (o Output) Instantiate(m *dsp.NodeManager) (Instance, error) {
	channels, err := deviceChannels(o.Channels, m.OutputChannelCount(), "output")
	if err != nil {
		return nil, err
	}
	inst := NewNodeInstance()
	for _, ch := range channels {
		n := node.NewOutput(m, ch)
		inst.Own(m, n)
		inst.AddInput(n.Input())
		m.RegisterRootProcess(n)
	}
	return inst, nil
}

// deviceChannels validates channels against the device channel count.
func deviceChannels(channels []int, count int, kind string) ([]int, error) {
	if channels == nil {
		channels = make([]int, count)
		for i := range channels {
			channels[i] = i
		}
	}
	var s dsp.ErrorState
	s.Check(len(channels) > 0, "%s: %w", kind, ErrNoChannels)
	for _, ch := range channels {
		s.Check(ch >= 0 && ch < count, "%s: %w: %d of %d", kind, dsp.ErrInvalidChannel, ch, count)
	}
	if s.HasErrors() {
		return nil, s.Err()
	}
	return channels, nil
}

// Instantiate implements Object.
func (o Gain) Instantiate(m *dsp.NodeManager) (Instance, error) {
	return Parallel{
		Channels: o.Channels,
		New: func(m *dsp.NodeManager, _ int) (Node, error) {
			return node.NewGain(m, o.Gain), nil
		},
	}.Instantiate(m)
}

// Instantiate implements Object.
func (o Mix) Instantiate(m *dsp.NodeManager) (Instance, error) {
	if o.Channels <= 0 {
		return nil, fmt.Errorf("mix: %w: %d", dsp.ErrInvalidChannelCount, o.Channels)
	}
	reserved := o.Inputs
	if reserved <= 0 {
		reserved = reservedMixInputs
	}
	inst := NewNodeInstance()
	for ch := 0; ch < o.Channels; ch++ {
		n := node.NewMix(m, reserved)
		inst.Own(m, n)
		inst.AddInput(n.Input())
		inst.AddOutput(n.Output())
	}
	return inst, nil
}

// Instantiate implements Object.
func (o Oscillator) Instantiate(m *dsp.NodeManager) (Instance, error) {
	return Parallel{
		Channels: o.Channels,
		New: func(m *dsp.NodeManager, _ int) (Node, error) {
			return node.NewOscillator(m, o.Frequency, o.Amplitude), nil
		},
	}.Instantiate(m)
}

func (o Envelope) validate() error {
	var s dsp.ErrorState
	s.Check(len(o.Segments) > 0, "envelope: no segments")
	s.Check(o.Sustain >= node.NoSustain && o.Sustain < len(o.Segments),
		"envelope: invalid sustain segment %d", o.Sustain)
	for i, seg := range o.Segments {
		s.Check(seg.Duration >= 0, "envelope: segment %d: negative duration", i)
	}
	return s.Err()
}

// Instantiate implements Object.
func (o Envelope) Instantiate(m *dsp.NodeManager) (Instance, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	inst := NewNodeInstance()
	n := node.NewEnvelope(m, o.Segments, o.Sustain)
	inst.Own(m, n)
	inst.AddOutput(n.Output())
	return inst, nil
}

// Instantiate implements Object. The envelope controls the gain applied
// to the oscillator.
func (o Tone) Instantiate(m *dsp.NodeManager) (Instance, error) {
	if err := o.Envelope.validate(); err != nil {
		return nil, fmt.Errorf("tone: %w", err)
	}
	inst := NewNodeInstance()
	osc := node.NewOscillator(m, o.Frequency, o.Amplitude)
	env := node.NewEnvelope(m, o.Envelope.Segments, o.Envelope.Sustain)
	vca := node.NewGain(m, 0)
	vca.Input().Connect(osc.Output())
	vca.Control().Connect(env.Output())
	inst.Own(m, osc)
	inst.Own(m, env)
	inst.Own(m, vca)
	inst.AddOutput(vca.Output())
	return inst, nil
}

// Instantiate implements Object.
func (o Control) Instantiate(m *dsp.NodeManager) (Instance, error) {
	inst := NewNodeInstance()
	n := node.NewControl(m, o.Value)
	inst.Own(m, n)
	inst.AddOutput(n.Output())
	return inst, nil
}

// Instantiate implements Object.
func (o Pan) Instantiate(m *dsp.NodeManager) (Instance, error) {
	inst := NewNodeInstance()
	n := node.NewPan(m, o.Pan)
	inst.Own(m, n)
	inst.AddInput(n.Input())
	inst.AddOutput(n.Left())
	inst.AddOutput(n.Right())
	return inst, nil
}

// Instantiate implements Object.
func (o Player) Instantiate(m *dsp.NodeManager) (Instance, error) {
	var s dsp.ErrorState
	s.Check(o.Sample != nil, "player: missing sample")
	s.Check(o.Channels > 0, "player: %w: %d", dsp.ErrInvalidChannelCount, o.Channels)
	if o.Sample != nil {
		s.Check(o.Sample.Channels() > 0, "player: sample: %w", ErrNoChannels)
	}
	if s.HasErrors() {
		return nil, s.Err()
	}
	inst := NewNodeInstance()
	n := node.NewPlayer(m, o.Sample, o.Channels)
	inst.Own(m, n)
	for _, out := range n.Outputs() {
		inst.AddOutput(out)
	}
	return inst, nil
}
