package dsp

import "pipelined.dev/dsp/safe"

type (
	// Process is a unit of work the node manager can schedule. Root
	// processes are executed once per block, in registration order.
	Process interface {
		Process()
	}

	// Node is a unit of per-block computation with input and output pins.
	// Implementations embed *Base created by NewBase. Process is called at
	// most once per block, when one of the node's output pins is pulled or
	// when the node is a root process. It must not allocate or block and
	// must treat nil input blocks as silence.
	Node interface {
		Process
		nodeBase() *Base
	}

	// SampleRateChanger is implemented by nodes that depend on sample
	// rate. The hook is called on the audio goroutine, once per change,
	// before the next Process.
	SampleRateChanger interface {
		SampleRateChanged(sampleRate float64)
	}

	// BlockSizeChanger is implemented by nodes that depend on block size.
	// Output pins are already resized when the hook is called.
	BlockSizeChanger interface {
		BlockSizeChanged(blockSize int)
	}
)

// Base holds the state shared by all nodes: pins, the manager and the
// index of the last processed block.
type Base struct {
	manager   *NodeManager
	self      Node
	lastBlock uint64

	outputs     []*OutputPin
	inputs      []*InputPin
	multiInputs []*MultiInputPin

	// configuration this node was built with or last notified about
	sampleRate float64
	blockSize  int

	// intrusive list of registered nodes, owned by the audio goroutine
	prev, next *Base
	disposed   bool
}

// NewBase creates the base for node self, which must embed the result.
// Registration with the manager is applied at the next block boundary.
func NewBase(m *NodeManager, self Node) *Base {
	b := &Base{
		manager:    m,
		self:       self,
		sampleRate: m.SampleRate(),
		blockSize:  m.BlockSize(),
	}
	m.Enqueue(func() {
		m.registerNode(b)
	})
	return b
}

// Own wraps the node into a safe owner bound to the manager's deletion
// queue. Releasing the owner disposes the node on the audio goroutine.
func Own[T any](m *NodeManager, v *T) safe.Owner[T] {
	return safe.New(m.DeletionQueue(), v)
}

func (b *Base) nodeBase() *Base {
	return b
}

// Manager returns the node manager that processes this node.
func (b *Base) Manager() *NodeManager {
	return b.manager
}

// SampleRate returns the sample rate the node is configured with.
func (b *Base) SampleRate() float64 {
	return b.sampleRate
}

// BlockSize returns the block size the node is configured with.
func (b *Base) BlockSize() int {
	return b.blockSize
}

// AddOutput creates a new output pin. Pins must be created during node
// construction.
func (b *Base) AddOutput() *OutputPin {
	p := newOutputPin(b, b.blockSize)
	b.outputs = append(b.outputs, p)
	return p
}

// AddInput creates a new input pin.
func (b *Base) AddInput() *InputPin {
	p := &InputPin{node: b}
	b.inputs = append(b.inputs, p)
	return p
}

// AddMultiInput creates a new multi input pin with room reserved for n
// connections.
func (b *Base) AddMultiInput(n int) *MultiInputPin {
	p := &MultiInputPin{node: b}
	p.Reserve(n)
	b.multiInputs = append(b.multiInputs, p)
	return p
}

// Outputs returns node's output pins in creation order.
func (b *Base) Outputs() []*OutputPin {
	return b.outputs
}

// Inputs returns node's single-connection input pins in creation order.
func (b *Base) Inputs() []*InputPin {
	return b.inputs
}

// Dispose disconnects all pins and unregisters the node from its manager.
// It is called by the deletion queue on the audio goroutine. Nodes that
// implement their own Dispose must call this one.
func (b *Base) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	for _, p := range b.outputs {
		p.disconnectAllNow()
	}
	for _, p := range b.inputs {
		p.DisconnectAllNow()
	}
	for _, p := range b.multiInputs {
		p.DisconnectAllNow()
	}
	b.manager.unregisterNode(b)
	b.manager.removeRootNow(b.self)
}

// update processes the node if it wasn't processed in the current block.
// The index is stored before processing, so cycles in the graph terminate
// and return the previous block.
func (b *Base) update() {
	idx := b.manager.blockIndex
	if b.lastBlock == idx {
		return
	}
	b.lastBlock = idx
	b.self.Process()
}

// configure notifies the node about configuration changes. Audio goroutine
// only.
func (b *Base) configure(sampleRate float64, blockSize int) {
	if blockSize != b.blockSize {
		b.blockSize = blockSize
		for _, p := range b.outputs {
			p.resize(blockSize)
		}
		if c, ok := b.self.(BlockSizeChanger); ok {
			c.BlockSizeChanged(blockSize)
		}
	}
	if sampleRate != b.sampleRate {
		b.sampleRate = sampleRate
		if c, ok := b.self.(SampleRateChanger); ok {
			c.SampleRateChanged(sampleRate)
		}
	}
}
