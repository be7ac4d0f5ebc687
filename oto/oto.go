// Package oto plays a node manager through oto. Oto pulls the rendered
// stream from its own goroutine, which is the audio goroutine of the
// manager.
package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/device"
)

// DefaultBufferSize is the device buffer duration if it's not provided.
const DefaultBufferSize = 20 * time.Millisecond

// Player renders the manager output into an oto player. Only one oto
// context can exist in a process, so only one player can be created.
type Player struct {
	ctx     *oto.Context
	player  *oto.Player
	reader  *device.Reader
	mutex   sync.Mutex
	started bool
}

// New creates the oto context with the manager sample rate and output
// channels and waits until the device is ready.
func New(m *dsp.NodeManager, bufferSize time.Duration) (*Player, error) {
	if m.OutputChannelCount() == 0 {
		return nil, fmt.Errorf("oto: %w: no output channels", dsp.ErrInvalidChannelCount)
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(m.SampleRate()),
		ChannelCount: m.OutputChannelCount(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	<-ready
	p := &Player{
		ctx:    ctx,
		reader: device.NewReader(m, m.BlockSize()),
	}
	p.player = ctx.NewPlayer(p.reader)
	return p, nil
}

// Start starts playback.
func (p *Player) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.started {
		p.player.Play()
		p.started = true
	}
}

// Pause pauses playback. The manager isn't processed while paused.
func (p *Player) Pause() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.started {
		p.player.Pause()
		p.started = false
	}
}

// Close stops playback and closes the player.
func (p *Player) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.started = false
	return p.player.Close()
}
