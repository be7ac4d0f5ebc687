package main

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/cache"
	"pipelined.dev/dsp/graph"
	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/node"
	"pipelined.dev/dsp/object"
	"pipelined.dev/dsp/signal"
	"pipelined.dev/dsp/voice"
)

const (
	sceneChannels  = 2
	voicesPerNote  = 2
	noteAmplitude  = 0.2
	sampleGain     = 0.5
	defaultNotes   = "261.63;329.63;392.00;523.25"
	defaultStep    = 250 * time.Millisecond
	defaultBlock   = 512
	defaultRate    = 44100
	releaseSegment = 300 * time.Millisecond
)

// sceneConfig is shared by commands that build a scene.
type sceneConfig struct {
	notes  stringList
	step   time.Duration
	sample string
	scan   stringList
	rate   float64
	block  int
}

func (c *sceneConfig) register(fs *flag.FlagSet) {
	fs.Var(&c.notes, "notes", "semicolon separated note frequencies in Hz (default "+defaultNotes+")")
	fs.DurationVar(&c.step, "step", defaultStep, "time between notes")
	fs.StringVar(&c.sample, "sample", "", "name of a wav sample looped under the notes")
	fs.Var(&c.scan, "scan", "semicolon separated paths to scan for wav samples")
	fs.Float64Var(&c.rate, "rate", defaultRate, "sample rate")
	fs.IntVar(&c.block, "block", defaultBlock, "block size")
}

func (c *sceneConfig) frequencies() ([]float64, error) {
	notes := c.notes
	if len(notes) == 0 {
		notes.Set(defaultNotes)
	}
	freqs := make([]float64, 0, len(notes))
	for _, n := range notes {
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid note frequency: %q", n)
		}
		freqs = append(freqs, f)
	}
	return freqs, nil
}

func (c *sceneConfig) manager(logger log.Logger) (*dsp.NodeManager, error) {
	if c.step <= 0 {
		return nil, fmt.Errorf("invalid step: %v", c.step)
	}
	return dsp.NewNodeManager(
		dsp.WithSampleRate(c.rate),
		dsp.WithBlockSize(c.block),
		dsp.WithOutputChannels(sceneChannels),
		dsp.WithLogger(logger),
	)
}

// scene is an arpeggio of tones with an optional looped sample. Every note
// has its own voice pool, so a note retriggered before its release steals
// its oldest voice.
type scene struct {
	notes  []*voice.PolyphonicInstance
	player *node.Player
	sample object.Instance
	mix    object.Instance
	out    object.Instance
	hold   time.Duration
	next   int
}

func newScene(m *dsp.NodeManager, c *sceneConfig, logger log.Logger) (*scene, error) {
	freqs, err := c.frequencies()
	if err != nil {
		return nil, err
	}
	var sample *signal.Sample
	if c.sample != "" {
		if sample, err = cache.NewSamples(logger, c.scan...).Get(c.sample); err != nil {
			return nil, err
		}
	}

	s := &scene{hold: c.step / 2}
	mix, err := object.Mix{Channels: sceneChannels, Inputs: len(freqs) + 1}.Instantiate(m)
	if err != nil {
		return nil, err
	}
	s.mix = mix
	for _, f := range freqs {
		p, err := noteVoices(f).New(m)
		if err != nil {
			s.Release()
			return nil, err
		}
		s.notes = append(s.notes, p)
		if err := object.ConnectInstance(mix, p); err != nil {
			s.Release()
			return nil, err
		}
	}
	if sample != nil {
		if err := s.addSample(m, sample); err != nil {
			s.Release()
			return nil, err
		}
	}
	if s.out, err = (object.Output{}).Instantiate(m); err != nil {
		s.Release()
		return nil, err
	}
	if err := object.ConnectInstance(s.out, mix); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func noteVoices(frequency float64) voice.Polyphonic {
	return voice.Polyphonic{
		Voice: voice.Voice{
			Graph: graph.Graph{
				Objects: []graph.Entry{{
					ID: "tone",
					Object: object.Tone{
						Frequency: frequency,
						Amplitude: noteAmplitude,
						Envelope: object.Envelope{
							Segments: []node.Segment{
								{Value: 1, Duration: 10 * time.Millisecond},
								{Value: 0.6, Duration: 100 * time.Millisecond},
								{Value: 0, Duration: releaseSegment},
							},
							Sustain: 1,
						},
					},
				}},
				Output: "tone",
			},
			Envelope: "tone",
		},
		VoiceCount:    voicesPerNote,
		ChannelCount:  sceneChannels,
		VoiceStealing: true,
	}
}

func (s *scene) addSample(m *dsp.NodeManager, sample *signal.Sample) error {
	player, err := object.Chain{Objects: []object.Object{
		object.Player{Sample: sample, Channels: sceneChannels},
		object.Gain{Channels: sceneChannels, Gain: sampleGain},
	}}.Instantiate(m)
	if err != nil {
		return err
	}
	s.sample = player
	for _, o := range player.(*object.ChainInstance).Instances() {
		if ni, ok := o.(*object.NodeInstance); ok {
			for _, n := range ni.Nodes() {
				if p, ok := n.(*node.Player); ok {
					s.player = p
				}
			}
		}
	}
	return object.ConnectInstance(s.mix, player)
}

// start starts the sample loop.
func (s *scene) start() {
	if s.player != nil {
		s.player.Play(0, true)
	}
}

// advance plays the next note of the arpeggio.
func (s *scene) advance() {
	s.notes[s.next].Play(s.hold)
	s.next = (s.next + 1) % len(s.notes)
}

// Release releases all objects of the scene.
func (s *scene) Release() {
	for _, p := range s.notes {
		p.Release()
	}
	if s.sample != nil {
		s.sample.Release()
	}
	if s.out != nil {
		s.out.Release()
	}
	s.mix.Release()
}
