package dsp

// SampleBuffer is one block of samples of a single channel.
type SampleBuffer []float64

// Clear sets all samples to zero.
func (b SampleBuffer) Clear() {
	for i := range b {
		b[i] = 0
	}
}

type (
	// OutputPin exposes one channel of a node's computed block.
	OutputPin struct {
		node        *Base
		buffer      SampleBuffer
		connections []inputPin
	}

	// InputPin pulls from at most one output pin.
	InputPin struct {
		node  *Base
		input *OutputPin
	}

	// MultiInputPin pulls from any number of output pins.
	MultiInputPin struct {
		node    *Base
		inputs  []*OutputPin
		pulled  []SampleBuffer
		pulling bool
		removed bool
	}

	// inputPin is implemented by both input pin kinds so output pins can
	// disconnect their consumers.
	inputPin interface {
		disconnectNow(*OutputPin)
	}
)

// reservedConnections is the connection capacity each pin reserves, so the
// audio goroutine rarely grows connection slices.
const reservedConnections = 4

func newOutputPin(node *Base, blockSize int) *OutputPin {
	return &OutputPin{
		node:        node,
		buffer:      make(SampleBuffer, blockSize),
		connections: make([]inputPin, 0, reservedConnections),
	}
}

// Pull returns the block of the current cycle. If the owning node was not
// processed for this block yet, it is processed first.
func (p *OutputPin) Pull() SampleBuffer {
	p.node.update()
	return p.buffer
}

// Buffer returns the pin's block without processing the node. Nodes use it
// to write their output inside Process.
func (p *OutputPin) Buffer() SampleBuffer {
	return p.buffer
}

// Node returns the node that owns this pin.
func (p *OutputPin) Node() Node {
	return p.node.self
}

// ConnectionCount returns the number of input pins fed by this pin. Audio
// goroutine only.
func (p *OutputPin) ConnectionCount() int {
	return len(p.connections)
}

// disconnectAllNow removes this pin from all connected inputs.
func (p *OutputPin) disconnectAllNow() {
	for i := len(p.connections) - 1; i >= 0; i-- {
		if i < len(p.connections) {
			p.connections[i].disconnectNow(p)
		}
	}
	p.connections = p.connections[:0]
}

func (p *OutputPin) resize(blockSize int) {
	if cap(p.buffer) >= blockSize {
		p.buffer = p.buffer[:blockSize]
		p.buffer.Clear()
		return
	}
	p.buffer = make(SampleBuffer, blockSize)
}

func (p *OutputPin) addConnection(in inputPin) {
	p.connections = append(p.connections, in)
}

func (p *OutputPin) removeConnection(in inputPin) {
	for i := range p.connections {
		if p.connections[i] == in {
			last := len(p.connections) - 1
			p.connections[i] = p.connections[last]
			p.connections[last] = nil
			p.connections = p.connections[:last]
			return
		}
	}
}

// Pull returns the connected pin's block or nil if the pin is not
// connected. Nodes must treat nil as silence.
func (p *InputPin) Pull() SampleBuffer {
	if p.input == nil {
		return nil
	}
	return p.input.Pull()
}

// IsConnected returns true if the pin has an input. Audio goroutine only.
func (p *InputPin) IsConnected() bool {
	return p.input != nil
}

// Connect schedules a connection to out. The previous connection, if any,
// is replaced. Safe to call from control goroutines.
func (p *InputPin) Connect(out *OutputPin) {
	p.node.manager.Enqueue(func() {
		p.ConnectNow(out)
	})
}

// Disconnect schedules removal of the connection to out. Safe to call from
// control goroutines.
func (p *InputPin) Disconnect(out *OutputPin) {
	p.node.manager.Enqueue(func() {
		p.disconnectNow(out)
	})
}

// DisconnectAll schedules removal of the current connection.
func (p *InputPin) DisconnectAll() {
	p.node.manager.Enqueue(p.DisconnectAllNow)
}

// ConnectNow connects the pin to out immediately. Must only be called on
// the audio goroutine: from a mutation or from Process.
func (p *InputPin) ConnectNow(out *OutputPin) {
	if p.input == out {
		return
	}
	p.DisconnectAllNow()
	if out == nil || out.node.disposed || p.node.disposed {
		return
	}
	p.input = out
	out.addConnection(p)
}

// DisconnectNow removes the connection to out immediately. Audio goroutine
// only.
func (p *InputPin) DisconnectNow(out *OutputPin) {
	p.disconnectNow(out)
}

// DisconnectAllNow removes the current connection. Audio goroutine only.
func (p *InputPin) DisconnectAllNow() {
	if p.input != nil {
		p.disconnectNow(p.input)
	}
}

func (p *InputPin) disconnectNow(out *OutputPin) {
	if p.input != out || out == nil {
		return
	}
	out.removeConnection(p)
	p.input = nil
}

// Reserve preallocates room for n connections. Control goroutines should
// call it before the pin is used by the audio goroutine.
func (p *MultiInputPin) Reserve(n int) {
	if cap(p.inputs) >= n {
		return
	}
	inputs := make([]*OutputPin, len(p.inputs), n)
	copy(inputs, p.inputs)
	p.inputs = inputs
	p.pulled = make([]SampleBuffer, 0, n)
}

// PullAll pulls every connected pin and returns their blocks. The returned
// slice is reused by the next call. Pins disconnected while pulling are
// skipped and removed once all inputs are pulled.
func (p *MultiInputPin) PullAll() []SampleBuffer {
	p.pulled = p.pulled[:0]
	p.pulling = true
	for i := 0; i < len(p.inputs); i++ {
		in := p.inputs[i]
		if in == nil {
			continue
		}
		if b := in.Pull(); b != nil {
			p.pulled = append(p.pulled, b)
		}
	}
	p.pulling = false
	if p.removed {
		p.compact()
	}
	return p.pulled
}

// ConnectionCount returns number of connected pins. Audio goroutine only.
func (p *MultiInputPin) ConnectionCount() int {
	var n int
	for _, in := range p.inputs {
		if in != nil {
			n++
		}
	}
	return n
}

// Connect schedules a new connection to out. Safe to call from control
// goroutines.
func (p *MultiInputPin) Connect(out *OutputPin) {
	p.node.manager.Enqueue(func() {
		p.ConnectNow(out)
	})
}

// Disconnect schedules removal of the connection to out.
func (p *MultiInputPin) Disconnect(out *OutputPin) {
	p.node.manager.Enqueue(func() {
		p.disconnectNow(out)
	})
}

// DisconnectAll schedules removal of all connections.
func (p *MultiInputPin) DisconnectAll() {
	p.node.manager.Enqueue(p.DisconnectAllNow)
}

// ConnectNow adds a connection immediately. Connecting the same pin twice
// does nothing. Audio goroutine only.
func (p *MultiInputPin) ConnectNow(out *OutputPin) {
	if out == nil || out.node.disposed || p.node.disposed {
		return
	}
	for _, in := range p.inputs {
		if in == out {
			return
		}
	}
	p.inputs = append(p.inputs, out)
	if cap(p.pulled) < cap(p.inputs) {
		// the pulled slice must never grow during a pull
		pulled := make([]SampleBuffer, len(p.pulled), cap(p.inputs))
		copy(pulled, p.pulled)
		p.pulled = pulled
	}
	out.addConnection(p)
}

// DisconnectNow removes a connection immediately. Audio goroutine only.
func (p *MultiInputPin) DisconnectNow(out *OutputPin) {
	p.disconnectNow(out)
}

// DisconnectAllNow removes all connections. Audio goroutine only.
func (p *MultiInputPin) DisconnectAllNow() {
	for i := len(p.inputs) - 1; i >= 0; i-- {
		if in := p.inputs[i]; in != nil {
			p.disconnectNow(in)
		}
	}
}

func (p *MultiInputPin) disconnectNow(out *OutputPin) {
	for i, in := range p.inputs {
		if in != out || in == nil {
			continue
		}
		out.removeConnection(p)
		if p.pulling {
			p.inputs[i] = nil
			p.removed = true
			return
		}
		copy(p.inputs[i:], p.inputs[i+1:])
		p.inputs[len(p.inputs)-1] = nil
		p.inputs = p.inputs[:len(p.inputs)-1]
		return
	}
}

func (p *MultiInputPin) compact() {
	n := 0
	for _, in := range p.inputs {
		if in != nil {
			p.inputs[n] = in
			n++
		}
	}
	for i := n; i < len(p.inputs); i++ {
		p.inputs[i] = nil
	}
	p.inputs = p.inputs[:n]
	p.removed = false
}
