package device

import (
	"encoding/binary"
	"math"

	"pipelined.dev/dsp"
)

// bytesPerSample is the size of a float32 sample.
const bytesPerSample = 4

// Reader renders the manager output as interleaved little endian float32
// stream. Stream players that pull data with io.Reader call Read from
// their own goroutine, which becomes the audio goroutine.
type Reader struct {
	buffers  *Buffers
	channels int
	out      []float32
	pending  []byte
	chunk    []byte
}

// NewReader returns a reader that renders frames per chunk. Non-positive
// frames means the manager block size.
func NewReader(m *dsp.NodeManager, frames int) *Reader {
	b := NewBuffers(m, frames)
	channels := m.OutputChannelCount()
	return &Reader{
		buffers:  b,
		channels: channels,
		out:      make([]float32, b.Capacity()*channels),
		chunk:    make([]byte, b.Capacity()*channels*bytesPerSample),
	}
}

// Read implements io.Reader. It never fails and always fills p with whole
// samples.
func (r *Reader) Read(p []byte) (int, error) {
	if r.channels == 0 {
		return 0, nil
	}
	var n int
	limit := len(p) - len(p)%bytesPerSample
	for n < limit {
		if len(r.pending) == 0 {
			r.render()
		}
		c := copy(p[n:limit], r.pending)
		r.pending = r.pending[c:]
		n += c
	}
	return n, nil
}

// render processes one chunk into pending bytes.
func (r *Reader) render() {
	r.buffers.Process(nil, r.out)
	for i, v := range r.out {
		binary.LittleEndian.PutUint32(r.chunk[i*bytesPerSample:], math.Float32bits(v))
	}
	r.pending = r.chunk
}
