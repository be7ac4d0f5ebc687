package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"strings"
	"time"

	"pipelined.dev/dsp/device"
	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/mp3"
	"pipelined.dev/dsp/object"
	"pipelined.dev/dsp/record"
	"pipelined.dev/dsp/signal"
	"pipelined.dev/dsp/wav"
)

const (
	mp3Quality  = 2
	renderQueue = 64
)

type renderCommand struct {
	sceneConfig
	out      string
	duration time.Duration
	bitDepth int
	bitRate  int
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render an arpeggio offline into a wav or mp3 file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	cmd.sceneConfig.register(fs)
	fs.StringVar(&cmd.out, "out", "", "output file, .wav or .mp3 (required)")
	fs.DurationVar(&cmd.duration, "duration", 2*time.Second, "rendered duration")
	fs.IntVar(&cmd.bitDepth, "bitdepth", 16, "wav bit depth: 16, 24 or 32")
	fs.IntVar(&cmd.bitRate, "bitrate", 192, "mp3 bit rate in kbps")
}

func (cmd *renderCommand) Validate() error {
	var message string
	if cmd.out == "" {
		message = message + "Missing -out required flag\n"
	}
	if cmd.duration <= 0 {
		message = message + fmt.Sprintf("Invalid -duration: %v\n", cmd.duration)
	}
	if message != "" {
		return errors.New(message)
	}
	return nil
}

func (cmd *renderCommand) encoder(sampleRate int) (record.Encoder, error) {
	switch ext := strings.ToLower(filepath.Ext(cmd.out)); ext {
	case ".wav":
		e, err := wav.Create(cmd.out, sampleRate, sceneChannels, signal.BitDepth(cmd.bitDepth))
		if err != nil {
			return nil, err
		}
		return e, nil
	case ".mp3":
		e, err := mp3.Create(cmd.out, sampleRate, sceneChannels, cmd.bitRate, mp3Quality)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", ext)
	}
}

func (cmd *renderCommand) Run(w io.Writer) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	logger := log.GetLogger()
	m, err := cmd.manager(logger)
	if err != nil {
		return err
	}
	s, err := newScene(m, &cmd.sceneConfig, logger)
	if err != nil {
		return err
	}
	defer s.Release()

	enc, err := cmd.encoder(int(m.SampleRate()))
	if err != nil {
		return err
	}
	inst, err := record.Object{
		Channels: sceneChannels,
		Encoder:  enc,
		Options:  []record.Option{record.WithLogger(logger), record.WithQueueSize(renderQueue)},
	}.Instantiate(m)
	if err != nil {
		enc.Close()
		return err
	}
	defer inst.Release()
	if err := object.ConnectInstance(inst, s.mix); err != nil {
		return err
	}
	rec := inst.(*record.Instance).Recorder()

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = cmd.render(ctx, s, rec, device.NewClock(m, 0, device.WithLogger(logger)))
	if cerr := rec.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Rendered %v into %s: %d blocks\n", cmd.duration, cmd.out, rec.Recorded())
	return nil
}

// render processes one block per tick. It waits for the recorder before
// every block, so nothing is dropped.
func (cmd *renderCommand) render(ctx context.Context, s *scene, rec *record.Recorder, c *device.Clock) error {
	m := rec.Manager()
	total := signal.SamplesOf(m.SampleRate(), cmd.duration)
	step := signal.SamplesOf(m.SampleRate(), cmd.step)
	if step <= 0 {
		step = 1
	}
	s.start()
	next := 0
	for rendered := 0; rendered < total; rendered += m.BlockSize() {
		for ; next <= rendered; next += step {
			s.advance()
		}
		for rec.Available() == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
		if err := c.Run(ctx, 1); err != nil {
			return err
		}
	}
	return nil
}
