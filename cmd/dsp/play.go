package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"sort"
	"strings"
	"time"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/log"
)

// output is an audio device that drives the manager.
type output interface {
	Start() error
	Close() error
}

type openFunc func(m *dsp.NodeManager, logger log.Logger) (output, error)

// drivers are registered by files built with the driver tags.
var drivers = map[string]openFunc{}

func driverNames() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type playCommand struct {
	sceneConfig
	driver   string
	duration time.Duration
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play an arpeggio on the default audio device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	cmd.sceneConfig.register(fs)
	fs.StringVar(&cmd.driver, "driver", "", "audio driver: "+strings.Join(driverNames(), ", "))
	fs.DurationVar(&cmd.duration, "duration", 0, "playback duration, zero plays until interrupted")
}

func (cmd *playCommand) open(m *dsp.NodeManager, logger log.Logger) (output, error) {
	if len(drivers) == 0 {
		return nil, fmt.Errorf("no audio drivers, build with -tags portaudio or -tags oto")
	}
	name := cmd.driver
	if name == "" {
		name = driverNames()[0]
	}
	open, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q, available: %v", name, driverNames())
	}
	return open(m, logger)
}

func (cmd *playCommand) Run(w io.Writer) error {
	logger := log.GetLogger()
	m, err := cmd.manager(logger)
	if err != nil {
		return err
	}
	out, err := cmd.open(m, logger)
	if err != nil {
		return err
	}
	defer out.Close()
	s, err := newScene(m, &cmd.sceneConfig, logger)
	if err != nil {
		return err
	}
	defer s.Release()

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cmd.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.duration)
		defer cancel()
	}
	s.start()
	if err := out.Start(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Playing %d notes every %v\n", len(s.notes), cmd.step)
	ticker := time.NewTicker(cmd.step)
	defer ticker.Stop()
	for {
		s.advance()
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}
