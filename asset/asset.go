// Package asset records blocks into memory so they can be played back as
// a shared sample.
package asset

import (
	"errors"
	"sync"

	"pipelined.dev/dsp/signal"
)

// ErrSealed is returned when a sealed asset is written to.
var ErrSealed = errors.New("asset is sealed")

// Asset is a record encoder which uses a regular buffer as underlying
// storage. Once closed, the buffer becomes a read-only sample.
type Asset struct {
	sampleRate float64
	data       signal.Float64
	sample     *signal.Sample
	once       sync.Once
	mutex      sync.Mutex
}

// New returns an empty asset recorded with sampleRate.
func New(sampleRate float64) *Asset {
	return &Asset{sampleRate: sampleRate}
}

// Write appends a copy of block to the asset.
func (a *Asset) Write(block [][]float64) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.sample != nil {
		return ErrSealed
	}
	a.data = a.data.Append(block)
	return nil
}

// Close seals the asset.
func (a *Asset) Close() error {
	a.once.Do(func() {
		a.mutex.Lock()
		defer a.mutex.Unlock()
		a.sample = signal.NewSample(a.data, a.sampleRate)
		a.data = nil
	})
	return nil
}

// Sample returns the recorded sample or nil if the asset isn't sealed.
func (a *Asset) Sample() *signal.Sample {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.sample
}

// Clip returns a copy of the recorded data from start with defined length
// as a new sample. If start is out of range, nil is returned. Length is
// decreased till the end of data.
func (a *Asset) Clip(start, length int) *signal.Sample {
	s := a.Sample()
	if s == nil {
		return nil
	}
	return s.Slice(start, length)
}
