package record_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/mock"
	"pipelined.dev/dsp/object"
	"pipelined.dev/dsp/record"
	"pipelined.dev/dsp/signal"
	"pipelined.dev/dsp/wav"
)

const blockSize = 4

// encoder stores copies of written blocks.
type encoder struct {
	mu     sync.Mutex
	blocks [][][]float64
	closed bool
	err    error
	block  chan struct{}
}

func (e *encoder) Write(b [][]float64) error {
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	c := make([][]float64, len(b))
	for i := range b {
		c[i] = append([]float64(nil), b[i]...)
	}
	e.blocks = append(e.blocks, c)
	return nil
}

func (e *encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func newManager(t *testing.T) *dsp.NodeManager {
	t.Helper()
	m, err := dsp.NewNodeManager(dsp.WithBlockSize(blockSize))
	require.NoError(t, err)
	return m
}

func TestRecorder(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := newManager(t)
	enc := &encoder{}
	r, err := record.New(m, 2, enc)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID())

	source := mock.NewSource(m, 1, 0.5)
	r.Inputs()[0].Connect(source.Outputs()[0])
	for i := 0; i < 3; i++ {
		m.Process(nil, nil, blockSize)
	}
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), record.ErrClosed)

	assert.True(t, enc.closed)
	assert.Equal(t, int64(3), r.Recorded())
	assert.Equal(t, int64(0), r.Dropped())
	require.Len(t, enc.blocks, 3)
	for _, b := range enc.blocks {
		assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, b[0])
		assert.Equal(t, []float64{0, 0, 0, 0}, b[1])
	}

	m.Process(nil, nil, blockSize)
	assert.Equal(t, 0, m.RootProcessCount())
}

func TestRecorderDrops(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := newManager(t)
	enc := &encoder{block: make(chan struct{})}
	r, err := record.New(m, 1, enc, record.WithQueueSize(1))
	require.NoError(t, err)

	assert.Equal(t, 1, r.Available())
	for i := 0; i < 3; i++ {
		m.Process(nil, nil, blockSize)
	}
	assert.Equal(t, 0, r.Available())
	close(enc.block)
	require.NoError(t, r.Close())
	assert.Equal(t, int64(1), r.Recorded())
	assert.Equal(t, int64(2), r.Dropped())
}

func TestRecorderError(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := newManager(t)
	errEncode := errors.New("encode failed")
	enc := &encoder{err: errEncode}
	r, err := record.New(m, 1, enc)
	require.NoError(t, err)
	m.Process(nil, nil, blockSize)
	m.Process(nil, nil, blockSize)
	assert.ErrorIs(t, r.Close(), errEncode)
	assert.Equal(t, int64(0), r.Recorded())

	_, err = record.New(m, 0, enc)
	assert.ErrorIs(t, err, dsp.ErrInvalidChannelCount)
	_, err = record.New(m, 1, nil)
	assert.Error(t, err)
}

// warnings collects warnings of the recorder.
type warnings struct {
	mu       sync.Mutex
	messages []string
}

func (w *warnings) Debug(...interface{}) {}

func (w *warnings) Info(...interface{}) {}

func (w *warnings) Warn(args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, fmt.Sprint(args...))
}

func TestReleaseLogsError(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := newManager(t)
	errEncode := errors.New("encode failed")
	logger := &warnings{}
	inst, err := record.Object{
		Channels: 1,
		Encoder:  &encoder{err: errEncode},
		Options:  []record.Option{record.WithLogger(logger)},
	}.Instantiate(m)
	require.NoError(t, err)
	m.Process(nil, nil, blockSize)
	inst.Release()

	logger.mu.Lock()
	defer logger.mu.Unlock()
	// one from the encoder goroutine, one from release
	require.Len(t, logger.messages, 2)
	assert.Contains(t, logger.messages[1], "release")
	assert.Contains(t, logger.messages[1], "encode failed")

	// closed before release, nothing to report
	closed := &warnings{}
	inst, err = record.Object{
		Channels: 1,
		Encoder:  &encoder{},
		Options:  []record.Option{record.WithLogger(closed)},
	}.Instantiate(m)
	require.NoError(t, err)
	require.NoError(t, inst.(*record.Instance).Recorder().Close())
	inst.Release()
	assert.Empty(t, closed.messages)
}

func TestRecordWav(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := newManager(t)
	path := filepath.Join(t.TempDir(), "record.wav")
	enc, err := wav.Create(path, int(m.SampleRate()), 2, signal.BitDepth16)
	require.NoError(t, err)

	inst, err := object.Chain{Objects: []object.Object{
		object.Control{Value: 0.5},
		record.Object{Channels: 2, Encoder: enc},
	}}.Instantiate(m)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		m.Process(nil, nil, blockSize)
	}
	inst.Release()
	m.Process(nil, nil, blockSize)
	assert.Equal(t, 0, m.NodeCount())

	s, err := wav.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Channels())
	assert.Equal(t, 4*blockSize, s.Len())
	for ch := 0; ch < 2; ch++ {
		assert.InDelta(t, 0.5, s.At(ch, 7), 1e-4)
	}
}
