package node

import (
	"math"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/signal"
)

// Player plays a shared sample. Output channel i plays sample channel i
// modulo the sample channel count. Sample rate is converted with linear
// interpolation, Rate scales the playback speed.
type Player struct {
	*dsp.Base
	Rate *Param
	// Finished is emitted on the audio goroutine when a non-looping
	// playback reaches the end of the sample.
	Finished dsp.Signal[*Player]

	sample   *signal.Sample
	position float64
	playing  bool
	loop     bool
}

// NewPlayer returns a player with the number of output channels.
func NewPlayer(m *dsp.NodeManager, sample *signal.Sample, channels int) *Player {
	n := &Player{
		Rate:   NewParam(1),
		sample: sample,
	}
	n.Base = dsp.NewBase(m, n)
	for i := 0; i < channels; i++ {
		n.AddOutput()
	}
	return n
}

// Play schedules playback from position in samples of the clip.
func (n *Player) Play(position int, loop bool) {
	n.Manager().Enqueue(func() {
		n.PlayNow(position, loop)
	})
}

// Stop schedules the end of playback. Finished is not emitted.
func (n *Player) Stop() {
	n.Manager().Enqueue(n.StopNow)
}

// PlayNow starts playback. Audio goroutine only.
func (n *Player) PlayNow(position int, loop bool) {
	if position < 0 {
		position = 0
	}
	n.position = float64(position)
	n.loop = loop
	n.playing = n.sample != nil && n.sample.Len() > 0
}

// StopNow ends playback. Audio goroutine only.
func (n *Player) StopNow() {
	n.playing = false
}

// Playing returns true if the player is playing. Audio goroutine only.
func (n *Player) Playing() bool {
	return n.playing
}

// Process writes the sample.
func (n *Player) Process() {
	outputs := n.Outputs()
	if !n.playing {
		for _, out := range outputs {
			out.Buffer().Clear()
		}
		return
	}
	step := n.sample.SampleRate() / n.SampleRate() * n.Rate.Get()
	length := float64(n.sample.Len())
	channels := n.sample.Channels()
	bs := n.BlockSize()
	var finished bool
	for i := 0; i < bs; i++ {
		if finished {
			for _, out := range outputs {
				out.Buffer()[i] = 0
			}
			continue
		}
		for ch, out := range outputs {
			out.Buffer()[i] = n.sample.At(ch%channels, n.position)
		}
		n.position += step
		if n.position >= length || n.position < 0 {
			if n.loop {
				n.position -= length * math.Floor(n.position/length)
				continue
			}
			finished = true
		}
	}
	if finished {
		n.playing = false
		n.Finished.Trigger(n)
	}
}
