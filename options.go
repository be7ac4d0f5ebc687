package dsp

import (
	"fmt"

	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/metric"
)

// Option provides a way to set functional parameters to node manager.
type Option func(*NodeManager) error

// WithSampleRate sets the initial sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(m *NodeManager) error {
		if sampleRate <= 0 {
			return fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
		}
		m.rate = sampleRate
		return nil
	}
}

// WithBlockSize sets the initial block size.
func WithBlockSize(blockSize int) Option {
	return func(m *NodeManager) error {
		if blockSize <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
		}
		m.size = blockSize
		return nil
	}
}

// WithInputChannels sets the number of device input channels.
func WithInputChannels(n int) Option {
	return func(m *NodeManager) error {
		if n < 0 {
			return fmt.Errorf("%w: %d input channels", ErrInvalidChannelCount, n)
		}
		m.inputChannels = n
		return nil
	}
}

// WithOutputChannels sets the number of device output channels.
func WithOutputChannels(n int) Option {
	return func(m *NodeManager) error {
		if n < 0 {
			return fmt.Errorf("%w: %d output channels", ErrInvalidChannelCount, n)
		}
		m.outputChannels = n
		return nil
	}
}

// WithLogger sets logger to node manager. If this option is not provided,
// silent logger is used. The logger is never called from the audio
// goroutine.
func WithLogger(logger log.Logger) Option {
	return func(m *NodeManager) error {
		m.log = logger
		return nil
	}
}

// WithName sets name to node manager. It's used as a metrics label.
func WithName(name string) Option {
	return func(m *NodeManager) error {
		m.name = name
		return nil
	}
}

// WithMetric enables block metrics for the node manager. Metrics are
// published with expvar under the manager name.
func WithMetric() Option {
	return func(m *NodeManager) error {
		m.metric = true
		return nil
	}
}

func newMeter(m *NodeManager) metric.MeasureFunc {
	if !m.metric {
		return nil
	}
	return metric.Meter(m.name)
}
