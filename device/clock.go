package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/signal"
)

// ClockOption configures a clock.
type ClockOption func(*Clock)

// Realtime paces the clock with the duration of processed frames.
// Otherwise it renders as fast as possible.
func Realtime() ClockOption {
	return func(c *Clock) {
		c.realtime = true
	}
}

// WithLogger sets the clock logger.
func WithLogger(logger log.Logger) ClockOption {
	return func(c *Clock) {
		c.log = logger
	}
}

// Clock drives a manager without a device, e.g. for offline rendering or
// tests. It processes silent input.
type Clock struct {
	buffers  *Buffers
	m        *dsp.NodeManager
	realtime bool
	log      log.Logger
	in, out  []float32
	ticks    int
}

// NewClock returns a clock that processes frames per tick. Non-positive
// frames means the manager block size.
func NewClock(m *dsp.NodeManager, frames int, options ...ClockOption) *Clock {
	b := NewBuffers(m, frames)
	c := &Clock{
		buffers: b,
		m:       m,
		log:     log.Silent,
		in:      make([]float32, b.Capacity()*m.InputChannelCount()),
		out:     make([]float32, b.Capacity()*m.OutputChannelCount()),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Output returns the last processed output. It's only valid between
// ticks.
func (c *Clock) Output() [][]float64 {
	return c.buffers.Output()
}

// Ticks returns the number of processed ticks. It's only valid between
// ticks.
func (c *Clock) Ticks() int {
	return c.ticks
}

// Run processes ticks on the calling goroutine. If ticks is not positive,
// it runs until ctx is done. It returns ctx error if interrupted.
func (c *Clock) Run(ctx context.Context, ticks int) error {
	var ticker *time.Ticker
	if c.realtime {
		d := signal.DurationOf(c.m.SampleRate(), int64(c.buffers.Capacity()))
		if d <= 0 {
			d = time.Millisecond
		}
		ticker = time.NewTicker(d)
		defer ticker.Stop()
	}
	for i := 0; ticks <= 0 || i < ticks; i++ {
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		c.buffers.Process(c.in, c.out)
		c.ticks++
	}
	return nil
}

// Running is a clock started on its own goroutine.
type Running struct {
	g      *errgroup.Group
	cancel context.CancelFunc
}

// Start runs the clock on a new goroutine until ctx is done or Stop is
// called.
func (c *Clock) Start(ctx context.Context) *Running {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(ctx, 0)
	})
	c.log.Debug(fmt.Sprintf("clock started: manager %s, %d frames per tick", c.m.Name(), c.buffers.Capacity()))
	return &Running{g: g, cancel: cancel}
}

// Wait blocks until the clock goroutine exits and returns its error.
// Cancellation is not an error.
func (r *Running) Wait() error {
	err := r.g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop cancels the clock and waits for its goroutine.
func (r *Running) Stop() error {
	r.cancel()
	return r.Wait()
}
