// Package record provides a root process that streams pulled blocks to an
// encoder running on its own goroutine.
//
// The audio goroutine never waits for the encoder: blocks are handed over
// through a bounded queue and dropped if the encoder falls behind.
package record

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/object"
)

// DefaultQueueSize is the number of blocks buffered between the audio
// goroutine and the encoder if WithQueueSize is not provided.
const DefaultQueueSize = 16

// ErrClosed is returned when a closed recorder is closed again.
var ErrClosed = errors.New("recorder is closed")

// Encoder consumes recorded blocks. It's only called from the encoder
// goroutine.
type Encoder interface {
	Write(block [][]float64) error
	Close() error
}

// Option configures a recorder.
type Option func(*Recorder)

// WithLogger sets the logger of the encoder goroutine.
func WithLogger(logger log.Logger) Option {
	return func(r *Recorder) {
		r.log = logger
	}
}

// WithQueueSize sets the number of blocks buffered for the encoder.
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// Recorder is a root process that pulls its inputs every block and sends
// copies to the encoder. It must be registered as root process, otherwise
// it never runs. New does that.
type Recorder struct {
	*dsp.Base
	id        string
	log       log.Logger
	encoder   Encoder
	queueSize int

	free chan [][]float64
	full chan [][]float64
	stop chan struct{}
	done chan struct{}

	recorded atomic.Int64
	dropped  atomic.Int64
	err      error
	once     sync.Once
}

// New creates a recorder with channels inputs, registers it as root
// process and starts the encoder goroutine. Close must be called to stop
// it.
func New(m *dsp.NodeManager, channels int, encoder Encoder, options ...Option) (*Recorder, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("recorder: %w: %d", dsp.ErrInvalidChannelCount, channels)
	}
	if encoder == nil {
		return nil, fmt.Errorf("recorder: missing encoder")
	}
	r := &Recorder{
		id:        xid.New().String(),
		log:       log.Silent,
		encoder:   encoder,
		queueSize: DefaultQueueSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, option := range options {
		option(r)
	}
	r.Base = dsp.NewBase(m, r)
	for i := 0; i < channels; i++ {
		r.AddInput()
	}
	r.free = make(chan [][]float64, r.queueSize)
	r.full = make(chan [][]float64, r.queueSize)
	for i := 0; i < r.queueSize; i++ {
		r.free <- newBlock(channels, m.BlockSize())
	}
	m.RegisterRootProcess(r)
	go r.encode()
	r.log.Debug(fmt.Sprintf("recorder %s started: %d channels", r.id, channels))
	return r, nil
}

func newBlock(channels, size int) [][]float64 {
	b := make([][]float64, channels)
	for i := range b {
		b[i] = make([]float64, size)
	}
	return b
}

// ID returns the unique id of the recorder.
func (r *Recorder) ID() string {
	return r.id
}

// Recorded returns the number of blocks passed to the encoder.
func (r *Recorder) Recorded() int64 {
	return r.recorded.Load()
}

// Dropped returns the number of blocks lost because the encoder didn't
// keep up.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Available returns the number of blocks the audio goroutine can fill
// before the recorder starts dropping. Offline renderers wait for it to be
// positive before every block.
func (r *Recorder) Available() int {
	return len(r.free)
}

// Process copies pulled inputs into a free block and hands it over to the
// encoder. Unconnected inputs are recorded as silence.
func (r *Recorder) Process() {
	var b [][]float64
	select {
	case b = <-r.free:
	default:
		r.dropped.Add(1)
		return
	}
	bs := r.BlockSize()
	for i, in := range r.Inputs() {
		// grows only after a block size increase
		if cap(b[i]) < bs {
			b[i] = make([]float64, bs)
		}
		b[i] = b[i][:bs]
		if data := in.Pull(); data != nil {
			copy(b[i], data)
			continue
		}
		clear(b[i])
	}
	select {
	case r.full <- b:
	default:
		r.dropped.Add(1)
		r.free <- b
	}
}

// encode runs the encoder until the recorder is closed. Blocks queued
// before Close are still encoded.
func (r *Recorder) encode() {
	defer close(r.done)
	for {
		select {
		case b := <-r.full:
			r.write(b)
		case <-r.stop:
			for {
				select {
				case b := <-r.full:
					r.write(b)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(b [][]float64) {
	if r.err == nil {
		if err := r.encoder.Write(b); err != nil {
			r.err = err
			r.log.Warn(fmt.Sprintf("recorder %s: encoder failed: %v", r.id, err))
		} else {
			r.recorded.Add(1)
		}
	}
	r.free <- b
}

// Close unregisters the recorder, waits for queued blocks to be encoded and
// closes the encoder. It returns the first write error and the close
// error.
func (r *Recorder) Close() error {
	err := ErrClosed
	r.once.Do(func() {
		r.Manager().UnregisterRootProcess(r)
		close(r.stop)
		<-r.done
		var s dsp.ErrorState
		s.Fail(r.err)
		s.Fail(r.encoder.Close())
		r.log.Info(fmt.Sprintf("recorder %s closed: %d blocks recorded, %d dropped", r.id, r.Recorded(), r.Dropped()))
		err = s.Err()
	})
	return err
}

// Object is a recorder object. Its input channels are recorder inputs and
// it has no outputs. Instance release closes the recorder.
type Object struct {
	Channels int
	Encoder  Encoder
	Options  []Option
}

// Instance is a running recorder object.
type Instance struct {
	*object.NodeInstance
	recorder *Recorder
}

// Instantiate implements object.Object.
func (o Object) Instantiate(m *dsp.NodeManager) (object.Instance, error) {
	r, err := New(m, o.Channels, o.Encoder, o.Options...)
	if err != nil {
		return nil, err
	}
	inst := &Instance{
		NodeInstance: object.NewNodeInstance(),
		recorder:     r,
	}
	inst.Own(m, r)
	for _, in := range r.Inputs() {
		inst.AddInput(in)
	}
	return inst, nil
}

// Recorder returns the recorder node.
func (i *Instance) Recorder() *Recorder {
	return i.recorder
}

// Release closes the recorder and releases its node. Close errors are
// logged, call Recorder().Close first to handle them.
func (i *Instance) Release() {
	r := i.recorder
	if err := r.Close(); err != nil && !errors.Is(err, ErrClosed) {
		r.log.Warn(fmt.Sprintf("recorder %s: release: %v", r.id, err))
	}
	i.NodeInstance.Release()
}
