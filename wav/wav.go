// Package wav encodes recorded blocks into wav files and loads wav files
// into samples for players.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/dsp/signal"
)

// pcmFormat is the wav audio format of integer PCM.
const pcmFormat = 1

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")
	// ErrInvalidFile is returned when the decoded file is not a valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
)

func supported(bitDepth signal.BitDepth) bool {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return true
	}
	return false
}

// Encoder writes blocks into wav stream. It implements record.Encoder.
type Encoder struct {
	file     *os.File
	encoder  *wav.Encoder
	bitDepth signal.BitDepth
	buf      *audio.IntBuffer
}

// NewEncoder creates an encoder that writes into ws. Close doesn't close
// ws.
func NewEncoder(ws io.WriteSeeker, sampleRate, channels int, bitDepth signal.BitDepth) (*Encoder, error) {
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	if channels <= 0 {
		return nil, fmt.Errorf("wav: invalid channel count: %d", channels)
	}
	return &Encoder{
		encoder:  wav.NewEncoder(ws, sampleRate, int(bitDepth), channels, pcmFormat),
		bitDepth: bitDepth,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: int(bitDepth),
		},
	}, nil
}

// Create creates a wav file at path. Close closes the file.
func Create(path string, sampleRate, channels int, bitDepth signal.BitDepth) (*Encoder, error) {
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	e, err := NewEncoder(f, sampleRate, channels, bitDepth)
	if err != nil {
		f.Close()
		return nil, err
	}
	e.file = f
	return e, nil
}

// Write encodes one block. Blocks must have the encoder channel count.
func (e *Encoder) Write(block [][]float64) error {
	floats := signal.Float64(block)
	n := floats.Size() * floats.NumChannels()
	if cap(e.buf.Data) < n {
		e.buf.Data = make([]int, n)
	}
	e.buf.Data = floats.PutInterInt(e.buf.Data[:n], e.bitDepth)
	return e.encoder.Write(e.buf)
}

// Close finalizes the wav header and closes the file if the encoder owns
// it.
func (e *Encoder) Close() error {
	if err := e.encoder.Close(); err != nil {
		return err
	}
	if e.file != nil {
		return e.file.Close()
	}
	return nil
}

// Load reads the whole wav file into a sample.
func Load(path string) (*signal.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads the whole wav stream into a sample.
func Decode(r io.ReadSeeker) (*signal.Sample, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidFile
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: decode: %w", err)
	}
	channels := int(decoder.NumChans)
	data := signal.InterInt{
		Data:        buf.Data,
		NumChannels: channels,
		BitDepth:    bitDepth,
	}.AsFloat64()
	if data == nil {
		data = signal.EmptyFloat64(channels, 0)
	}
	return signal.NewSample(data, float64(decoder.SampleRate)), nil
}
