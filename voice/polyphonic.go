package voice

import (
	"fmt"
	"time"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/node"
	"pipelined.dev/dsp/object"
)

// stealAttempts limits retries when concurrent callers race for the same
// voices.
const stealAttempts = 8

// Polyphonic is a pool of VoiceCount voices mixed into ChannelCount
// channels. If ChannelCount is zero, the voice channel count is used.
// Voice channels wrap modulo the voice channel count.
type Polyphonic struct {
	Voice         Voice
	VoiceCount    int
	ChannelCount  int
	VoiceStealing bool
}

// PolyphonicInstance is a running voice pool. Voices are connected to the
// mixers only while they play.
type PolyphonicInstance struct {
	m        *dsp.NodeManager
	voices   []*Instance
	mix      object.Instance
	mixers   []*dsp.MultiInputPin
	all      []int
	stealing bool
}

// Instantiate implements object.Object.
func (p Polyphonic) Instantiate(m *dsp.NodeManager) (object.Instance, error) {
	inst, err := p.New(m)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// New instantiates all voices and mixers.
func (p Polyphonic) New(m *dsp.NodeManager) (*PolyphonicInstance, error) {
	if p.VoiceCount <= 0 {
		return nil, fmt.Errorf("polyphonic: invalid voice count: %d", p.VoiceCount)
	}
	inst := &PolyphonicInstance{
		m:        m,
		voices:   make([]*Instance, 0, p.VoiceCount),
		stealing: p.VoiceStealing,
	}
	for i := 0; i < p.VoiceCount; i++ {
		v, err := p.Voice.New(m)
		if err != nil {
			inst.Release()
			return nil, fmt.Errorf("polyphonic: voice %d: %w", i, err)
		}
		inst.voices = append(inst.voices, v)
	}
	channels := p.ChannelCount
	if channels == 0 {
		channels = inst.voices[0].ChannelCount()
	}
	var s dsp.ErrorState
	s.Check(channels > 0, "polyphonic: %w: %d", dsp.ErrInvalidChannelCount, channels)
	s.Check(inst.voices[0].ChannelCount() > 0, "polyphonic: voice: %w", object.ErrNoChannels)
	if s.HasErrors() {
		inst.Release()
		return nil, s.Err()
	}
	mix, err := object.Mix{Channels: channels, Inputs: p.VoiceCount}.Instantiate(m)
	if err != nil {
		inst.Release()
		return nil, fmt.Errorf("polyphonic: %w", err)
	}
	inst.mix = mix
	for _, n := range mix.(*object.NodeInstance).Nodes() {
		inst.mixers = append(inst.mixers, n.(*node.Mix).Input())
	}
	inst.all = make([]int, channels)
	for i := range inst.all {
		inst.all[i] = i
	}
	for _, v := range inst.voices {
		v.connections = make([]connection, 0, channels)
	}
	return inst, nil
}

// Voices returns all voices of the pool.
func (p *PolyphonicInstance) Voices() []*Instance {
	return p.voices
}

// BusyVoiceCount returns the number of reserved or playing voices.
func (p *PolyphonicInstance) BusyVoiceCount() int {
	var n int
	for _, v := range p.voices {
		if v.Busy() {
			n++
		}
	}
	return n
}

// FindFreeVoice reserves the first idle voice. If all voices are busy and
// stealing is enabled, the voice with the oldest start time is reset and
// reserved, lowest index first. Nil means the event must be dropped.
// A reserved voice stays busy until it is played with PlayVoice,
// PlayVoiceSection or PlayVoiceOnChannels and finishes, or until Reset.
// Safe to call from any number of control goroutines.
func (p *PolyphonicInstance) FindFreeVoice() *Instance {
	v, _ := p.findFreeVoice()
	return v
}

func (p *PolyphonicInstance) findFreeVoice() (*Instance, uint64) {
	for attempt := 0; attempt < stealAttempts; attempt++ {
		for _, v := range p.voices {
			if gen, ok := v.reserve(); ok {
				v.startTime.Store(p.m.SampleTime())
				return v, gen
			}
		}
		if !p.stealing {
			return nil, 0
		}
		oldest, state := p.oldest()
		if oldest == nil {
			continue
		}
		if gen, ok := oldest.steal(state); ok {
			oldest.startTime.Store(p.m.SampleTime())
			p.m.Enqueue(oldest.stealNow)
			return oldest, gen
		}
	}
	return nil, 0
}

// oldest returns the busy voice with the smallest start time and its
// observed state.
func (p *PolyphonicInstance) oldest() (*Instance, uint64) {
	var (
		found *Instance
		state uint64
		start uint64
	)
	for _, v := range p.voices {
		s := v.state.Load()
		if s&1 == 0 {
			continue
		}
		t := v.startTime.Load()
		if found == nil || t < start {
			found, state, start = v, s, t
		}
	}
	return found, state
}

// Play reserves a voice and plays its whole envelope on all channels.
func (p *PolyphonicInstance) Play(hold time.Duration) *Instance {
	return p.start(p.all, playAll(hold))
}

// PlaySection reserves a voice and plays envelope segments [start, end)
// on all channels.
func (p *PolyphonicInstance) PlaySection(start, end int, startValue float64, hold time.Duration) *Instance {
	return p.start(p.all, playSection(start, end, startValue, hold))
}

// PlayOnChannels reserves a voice and plays its whole envelope. Voice
// channel i is mixed into channels[i], wrapping modulo the voice channel
// count.
func (p *PolyphonicInstance) PlayOnChannels(channels []int, hold time.Duration) (*Instance, error) {
	channels, err := p.channels(channels)
	if err != nil {
		return nil, err
	}
	return p.start(channels, playAll(hold)), nil
}

// PlayVoice plays the whole envelope of a voice reserved with
// FindFreeVoice on all channels. A voice stolen by another event after
// FindFreeVoice returned belongs to that event, so handles must be played
// right after reservation.
func (p *PolyphonicInstance) PlayVoice(v *Instance, hold time.Duration) error {
	return p.startVoice(v, p.all, playAll(hold))
}

// PlayVoiceSection plays envelope segments [start, end) of a reserved
// voice on all channels.
func (p *PolyphonicInstance) PlayVoiceSection(v *Instance, start, end int, startValue float64, hold time.Duration) error {
	return p.startVoice(v, p.all, playSection(start, end, startValue, hold))
}

// PlayVoiceOnChannels plays the whole envelope of a reserved voice into
// channels, see PlayOnChannels.
func (p *PolyphonicInstance) PlayVoiceOnChannels(v *Instance, channels []int, hold time.Duration) error {
	channels, err := p.channels(channels)
	if err != nil {
		return err
	}
	return p.startVoice(v, channels, playAll(hold))
}

// StopVoice schedules the release of the event played by v. Other voices
// keep playing.
func (p *PolyphonicInstance) StopVoice(v *Instance, fade time.Duration) error {
	if !p.owns(v) {
		return fmt.Errorf("polyphonic: %w", ErrForeignVoice)
	}
	v.Stop(fade)
	return nil
}

func playAll(hold time.Duration) func(*node.Envelope) {
	return func(e *node.Envelope) {
		e.PlayNow(hold)
	}
}

func playSection(start, end int, startValue float64, hold time.Duration) func(*node.Envelope) {
	return func(e *node.Envelope) {
		e.PlaySectionNow(start, end, startValue, hold)
	}
}

// channels validates mixer channels and returns their copy.
func (p *PolyphonicInstance) channels(channels []int) ([]int, error) {
	var s dsp.ErrorState
	s.Check(len(channels) > 0 && len(channels) <= len(p.mixers),
		"polyphonic: %w: %d", dsp.ErrInvalidChannelCount, len(channels))
	for _, ch := range channels {
		s.Check(ch >= 0 && ch < len(p.mixers), "polyphonic: %w: %d of %d", dsp.ErrInvalidChannel, ch, len(p.mixers))
	}
	if s.HasErrors() {
		return nil, s.Err()
	}
	return append([]int(nil), channels...), nil
}

func (p *PolyphonicInstance) owns(v *Instance) bool {
	for _, pv := range p.voices {
		if pv == v {
			return v != nil
		}
	}
	return false
}

func (p *PolyphonicInstance) start(channels []int, play func(*node.Envelope)) *Instance {
	v, gen := p.findFreeVoice()
	if v == nil {
		return nil
	}
	p.enqueueStart(v, gen, channels, play)
	return v
}

func (p *PolyphonicInstance) startVoice(v *Instance, channels []int, play func(*node.Envelope)) error {
	if !p.owns(v) {
		return fmt.Errorf("polyphonic: %w", ErrForeignVoice)
	}
	gen, ok := v.current()
	if !ok {
		return fmt.Errorf("polyphonic: %w", ErrNotReserved)
	}
	p.enqueueStart(v, gen, channels, play)
	return nil
}

func (p *PolyphonicInstance) enqueueStart(v *Instance, gen uint64, channels []int, play func(*node.Envelope)) {
	p.m.Enqueue(func() {
		v.startNow(gen, p.mixers, channels, play)
	})
}

// Stop schedules the release of all playing voices.
func (p *PolyphonicInstance) Stop(fade time.Duration) {
	p.m.Enqueue(func() {
		for _, v := range p.voices {
			v.envelope.StopNow(fade)
		}
	})
}

// Reset schedules ResetNow.
func (p *PolyphonicInstance) Reset() {
	p.m.Enqueue(p.ResetNow)
}

// ResetNow stops and disconnects all voices immediately, without fades and
// without Finished signals. Reservations that didn't start yet are
// dropped. It must only be called on the audio goroutine or while
// processing is paused.
func (p *PolyphonicInstance) ResetNow() {
	for _, v := range p.voices {
		v.resetNow()
		v.invalidate()
	}
}

// ChannelCount implements object.Instance.
func (p *PolyphonicInstance) ChannelCount() int {
	return p.mix.ChannelCount()
}

// OutputForChannel implements object.Instance.
func (p *PolyphonicInstance) OutputForChannel(ch int) *dsp.OutputPin {
	return p.mix.OutputForChannel(ch)
}

// InputChannelCount implements object.Instance.
func (p *PolyphonicInstance) InputChannelCount() int {
	return 0
}

// Connect implements object.Instance.
func (p *PolyphonicInstance) Connect(int, *dsp.OutputPin) error {
	return fmt.Errorf("polyphonic: %w", object.ErrNoInputs)
}

// Disconnect implements object.Instance.
func (p *PolyphonicInstance) Disconnect(int, *dsp.OutputPin) error {
	return fmt.Errorf("polyphonic: %w", object.ErrNoInputs)
}

// Release implements object.Instance.
func (p *PolyphonicInstance) Release() {
	for _, v := range p.voices {
		v.Release()
	}
	if p.mix != nil {
		p.mix.Release()
	}
}
