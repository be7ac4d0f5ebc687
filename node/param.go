// Package node provides concrete nodes: device input and output, gain,
// mixing, control ramps, envelopes, oscillators, panning and buffer
// playback.
package node

import (
	"math"
	"sync/atomic"
)

// Param is a parameter published with a single atomic store. Changes made
// by control goroutines become visible to the audio goroutine on its next
// read. There is no ordering between different params.
type Param struct {
	bits atomic.Uint64
}

// NewParam returns a param set to v.
func NewParam(v float64) *Param {
	p := &Param{}
	p.Set(v)
	return p
}

// Set stores a new value.
func (p *Param) Set(v float64) {
	p.bits.Store(math.Float64bits(v))
}

// Get loads the current value.
func (p *Param) Get() float64 {
	return math.Float64frombits(p.bits.Load())
}

// ramp moves a value linearly towards a target.
type ramp struct {
	value     float64
	target    float64
	step      float64
	remaining int
}

// set jumps to v.
func (r *ramp) set(v float64) {
	r.value, r.target, r.step, r.remaining = v, v, 0, 0
}

// to starts a ramp of n samples. Non-positive n jumps to target.
func (r *ramp) to(target float64, n int) {
	if n <= 0 {
		r.set(target)
		return
	}
	r.target = target
	r.step = (target - r.value) / float64(n)
	r.remaining = n
}

// next advances one sample and returns the new value.
func (r *ramp) next() float64 {
	if r.remaining > 0 {
		r.remaining--
		r.value += r.step
		if r.remaining == 0 {
			r.value = r.target
		}
	}
	return r.value
}

// active returns true if the ramp didn't reach its target.
func (r *ramp) active() bool {
	return r.remaining > 0
}
