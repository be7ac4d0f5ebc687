package example_test

import (
	"context"
	"fmt"
	"time"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/asset"
	"pipelined.dev/dsp/device"
	"pipelined.dev/dsp/graph"
	"pipelined.dev/dsp/node"
	"pipelined.dev/dsp/object"
	"pipelined.dev/dsp/record"
	"pipelined.dev/dsp/voice"
)

// Example 1:
//
//	Build a graph of a tone through a gain
//	Render it offline with a clock
//	Record the result into memory
func Example_render() {
	m, err := dsp.NewNodeManager(dsp.WithSampleRate(8000), dsp.WithBlockSize(64))
	if err != nil {
		panic(err)
	}
	g := graph.Graph{
		Objects: []graph.Entry{
			{ID: "osc", Object: object.Oscillator{Channels: 1, Frequency: 440, Amplitude: 1}},
			{ID: "gain", Object: object.Gain{Channels: 2, Gain: 0.5}},
		},
		Links:  []graph.Link{{From: "osc", To: "gain"}},
		Output: "gain",
	}
	a := asset.New(m.SampleRate())
	rec, err := object.Chain{Objects: []object.Object{
		g,
		record.Object{Channels: 2, Encoder: a},
	}}.Instantiate(m)
	if err != nil {
		panic(err)
	}

	if err := device.NewClock(m, 256).Run(context.Background(), 4); err != nil {
		panic(err)
	}
	rec.Release()
	fmt.Println(a.Sample().Channels(), a.Sample().Len())
	// Output: 2 1024
}

// Example 2:
//
//	Create a pool of two voices with stealing
//	Play three notes
//	The third note steals the oldest voice
func Example_voices() {
	m, err := dsp.NewNodeManager(dsp.WithBlockSize(64))
	if err != nil {
		panic(err)
	}
	p, err := voice.Polyphonic{
		Voice: voice.Voice{
			Graph: graph.Graph{
				Objects: []graph.Entry{{
					ID: "tone",
					Object: object.Tone{
						Frequency: 440,
						Amplitude: 0.5,
						Envelope: object.Envelope{
							Segments: []node.Segment{
								{Value: 1, Duration: time.Millisecond},
								{Value: 0, Duration: 10 * time.Millisecond},
							},
							Sustain: 0,
						},
					},
				}},
				Output: "tone",
			},
			Envelope: "tone",
		},
		VoiceCount:    2,
		VoiceStealing: true,
	}.New(m)
	if err != nil {
		panic(err)
	}
	out, err := object.Output{Channels: []int{0}}.Instantiate(m)
	if err != nil {
		panic(err)
	}
	if err := object.ConnectInstance(out, p); err != nil {
		panic(err)
	}

	first := p.Play(0)
	m.Process(nil, nil, 64)
	second := p.Play(0)
	m.Process(nil, nil, 64)
	third := p.Play(0)
	m.Process(nil, nil, 64)
	fmt.Println(p.BusyVoiceCount(), first == third, second == third)
	// Output: 2 true false
}
