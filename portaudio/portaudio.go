// Package portaudio runs a node manager in the PortAudio callback of the
// default device.
package portaudio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/device"
	"pipelined.dev/dsp/log"
)

// Stream is an open default device stream. The PortAudio callback
// goroutine is the audio goroutine of the manager.
type Stream struct {
	m       *dsp.NodeManager
	buffers *device.Buffers
	stream  *portaudio.Stream
	log     log.Logger
}

// Open initializes PortAudio and opens the default stream with the manager
// channel counts, sample rate and block size.
func Open(m *dsp.NodeManager, logger log.Logger) (*Stream, error) {
	if logger == nil {
		logger = log.Silent
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	s := &Stream{
		m:       m,
		buffers: device.NewBuffers(m, m.BlockSize()),
		log:     logger,
	}
	stream, err := portaudio.OpenDefaultStream(
		m.InputChannelCount(),
		m.OutputChannelCount(),
		m.SampleRate(),
		m.BlockSize(),
		s.process,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: open stream: %w", err)
	}
	s.stream = stream
	logger.Debug(fmt.Sprintf("portaudio: stream opened for manager %s", m.Name()))
	return s, nil
}

func (s *Stream) process(in, out []float32) {
	s.buffers.Process(in, out)
}

// Start starts the device callback.
func (s *Stream) Start() error {
	return s.stream.Start()
}

// Stop stops the device callback. Pending tasks stay queued until the
// stream is started again.
func (s *Stream) Stop() error {
	return s.stream.Stop()
}

// Close closes the stream and terminates PortAudio.
func (s *Stream) Close() error {
	var es dsp.ErrorState
	es.Fail(s.stream.Close())
	es.Fail(portaudio.Terminate())
	s.log.Debug(fmt.Sprintf("portaudio: stream closed for manager %s", s.m.Name()))
	return es.Err()
}
