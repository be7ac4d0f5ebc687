// Package mp3 encodes recorded blocks into mp3 streams with lame.
package mp3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/viert/lame"

	"pipelined.dev/dsp/signal"
)

// Encoder writes blocks into mp3 stream. It implements record.Encoder.
type Encoder struct {
	file *os.File
	wr   *lame.LameWriter
	ints []int
	buf  bytes.Buffer
}

// NewEncoder creates an encoder that writes into w. Close doesn't close w.
func NewEncoder(w io.Writer, sampleRate, channels, bitRate, quality int) (*Encoder, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("mp3: unsupported channel count: %d", channels)
	}
	wr := lame.NewWriter(w)
	wr.Encoder.SetBitrate(bitRate)
	wr.Encoder.SetQuality(quality)
	wr.Encoder.SetNumChannels(channels)
	wr.Encoder.SetInSamplerate(sampleRate)
	if channels == 2 {
		wr.Encoder.SetMode(lame.JOINT_STEREO)
	}
	wr.Encoder.SetVBR(lame.VBR_RH)
	wr.Encoder.InitParams()
	return &Encoder{wr: wr}, nil
}

// Create creates an mp3 file at path. Close closes the file.
func Create(path string, sampleRate, channels, bitRate, quality int) (*Encoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	e, err := NewEncoder(f, sampleRate, channels, bitRate, quality)
	if err != nil {
		f.Close()
		return nil, err
	}
	e.file = f
	return e, nil
}

// Write encodes one block as 16 bit little endian PCM.
func (e *Encoder) Write(block [][]float64) error {
	floats := signal.Float64(block)
	n := floats.Size() * floats.NumChannels()
	if cap(e.ints) < n {
		e.ints = make([]int, n)
	}
	e.ints = floats.PutInterInt(e.ints[:n], signal.BitDepth16)
	e.buf.Reset()
	for _, v := range e.ints {
		if err := binary.Write(&e.buf, binary.LittleEndian, int16(v)); err != nil {
			return err
		}
	}
	if _, err := e.wr.Write(e.buf.Bytes()); err != nil {
		return fmt.Errorf("mp3: encode: %w", err)
	}
	return nil
}

// Close flushes the encoder and closes the file if the encoder owns it.
func (e *Encoder) Close() error {
	if err := e.wr.Close(); err != nil {
		return err
	}
	if e.file != nil {
		return e.file.Close()
	}
	return nil
}
