package dsp

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/rs/xid"

	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/metric"
	"pipelined.dev/dsp/mutable"
	"pipelined.dev/dsp/safe"
)

const (
	// DefaultSampleRate is used if WithSampleRate is not provided.
	DefaultSampleRate = 44100
	// DefaultBlockSize is used if WithBlockSize is not provided.
	DefaultBlockSize = 512
	// DefaultOutputChannels is used if WithOutputChannels is not provided.
	DefaultOutputChannels = 2

	reservedRoots = 64
)

// NodeManager runs the block schedule of a node graph. It owns sample rate
// and block size, the root processes, the task queue and the deletion
// queue.
//
// Process must be called from exactly one goroutine, the audio goroutine.
// All other exported methods are safe to call from control goroutines,
// unless their documentation says otherwise.
type NodeManager struct {
	uid     string
	name    string
	log     log.Logger
	metric  bool
	measure metric.MeasureFunc

	tasks     *mutable.Queue
	deletions *safe.DeletionQueue

	// audio goroutine state
	rate           float64
	size           int
	blockIndex     uint64
	sampleTime     uint64
	inputChannels  int
	outputChannels int
	roots          []Process
	nodes          Base // sentinel of the registered nodes list
	inputs         []SampleBuffer
	outputs        []SampleBuffer
	scratch        []SampleBuffer // outputs missing in the device buffers
	// applied tasks and reclaimed objects not measured yet, carried over
	// to the next processed block
	applied   int
	reclaimed int

	// values published for control goroutines
	publishedRate  atomic.Uint64
	publishedSize  atomic.Int64
	publishedBlock atomic.Uint64
	publishedTime  atomic.Uint64
}

// NewNodeManager creates a node manager and applies provided options.
func NewNodeManager(options ...Option) (*NodeManager, error) {
	m := NodeManager{
		uid:            newUID(),
		log:            log.Silent,
		tasks:          mutable.NewQueue(),
		deletions:      safe.NewDeletionQueue(),
		rate:           DefaultSampleRate,
		size:           DefaultBlockSize,
		outputChannels: DefaultOutputChannels,
		roots:          make([]Process, 0, reservedRoots),
	}
	for _, option := range options {
		if err := option(&m); err != nil {
			return nil, err
		}
	}
	if m.name == "" {
		m.name = m.uid
	}
	m.nodes.prev = &m.nodes
	m.nodes.next = &m.nodes
	m.inputs = make([]SampleBuffer, m.inputChannels)
	m.outputs = make([]SampleBuffer, m.outputChannels)
	m.scratch = make([]SampleBuffer, m.outputChannels)
	m.resizeScratch()
	m.measure = newMeter(&m)
	m.publishConfig()
	m.log.Debug(fmt.Sprintf("node manager %s created: %v Hz, %d samples block", m.name, m.rate, m.size))
	return &m, nil
}

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

// Name returns the name of the manager. If no name was provided, unique id
// is used.
func (m *NodeManager) Name() string {
	return m.name
}

// Enqueue schedules mutation to run on the audio goroutine before the next
// block is processed. Mutations enqueued by the same goroutine run in
// order.
func (m *NodeManager) Enqueue(mutation func()) {
	m.tasks.Enqueue(mutation)
}

// EnqueueAll schedules mutations to run in order within the same block
// boundary, e.g. connections that must never be heard half made.
func (m *NodeManager) EnqueueAll(mutations ...func()) {
	var p mutable.Pusher
	for _, mutation := range mutations {
		p.Put(mutation)
	}
	p.Push(m.tasks)
}

// RegisterRootProcess schedules p to run unconditionally once per block,
// after all previously registered root processes.
//
// Nodes are processed only when their outputs are pulled. A node with
// side effects (writing to a device, a file or a ring buffer) whose outputs
// nobody pulls silently never runs unless it is registered here.
func (m *NodeManager) RegisterRootProcess(p Process) {
	m.Enqueue(func() {
		m.RegisterRootProcessNow(p)
	})
}

// RegisterRootProcessNow registers p immediately. Registering the same
// process twice does nothing. Audio goroutine only.
func (m *NodeManager) RegisterRootProcessNow(p Process) {
	if p == nil {
		return
	}
	if n, ok := p.(Node); ok && n.nodeBase().disposed {
		return
	}
	for _, r := range m.roots {
		if r == p {
			return
		}
	}
	m.roots = append(m.roots, p)
}

// UnregisterRootProcess schedules removal of p from root processes.
func (m *NodeManager) UnregisterRootProcess(p Process) {
	m.Enqueue(func() {
		m.removeRootNow(p)
	})
}

// RootProcessCount returns the number of root processes. Audio goroutine
// only.
func (m *NodeManager) RootProcessCount() int {
	return len(m.roots)
}

func (m *NodeManager) removeRootNow(p Process) {
	for i, r := range m.roots {
		if r != p {
			continue
		}
		copy(m.roots[i:], m.roots[i+1:])
		m.roots[len(m.roots)-1] = nil
		m.roots = m.roots[:len(m.roots)-1]
		return
	}
}

// SetSampleRate schedules a sample rate change. Every live node receives
// the change before its next Process.
func (m *NodeManager) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}
	m.log.Debug(fmt.Sprintf("node manager %s: sample rate change to %v Hz", m.name, sampleRate))
	m.Enqueue(func() {
		m.SetSampleRateNow(sampleRate)
	})
	return nil
}

// SetBlockSize schedules a block size change. Output pins of every live
// node are resized before their next Process.
func (m *NodeManager) SetBlockSize(blockSize int) error {
	if blockSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	m.log.Debug(fmt.Sprintf("node manager %s: block size change to %d", m.name, blockSize))
	m.Enqueue(func() {
		m.SetBlockSizeNow(blockSize)
	})
	return nil
}

// SetSampleRateNow changes the sample rate immediately. Audio goroutine
// only, it must not be called while a block is processed.
func (m *NodeManager) SetSampleRateNow(sampleRate float64) {
	if sampleRate <= 0 || sampleRate == m.rate {
		return
	}
	m.rate = sampleRate
	m.publishConfig()
	m.configureNodes()
}

// SetBlockSizeNow changes the block size immediately. Audio goroutine
// only, it must not be called while a block is processed.
func (m *NodeManager) SetBlockSizeNow(blockSize int) {
	if blockSize <= 0 || blockSize == m.size {
		return
	}
	m.size = blockSize
	m.resizeScratch()
	m.publishConfig()
	m.configureNodes()
}

// SampleRate returns the current sample rate.
func (m *NodeManager) SampleRate() float64 {
	return math.Float64frombits(m.publishedRate.Load())
}

// BlockSize returns the current block size.
func (m *NodeManager) BlockSize() int {
	return int(m.publishedSize.Load())
}

// BlockIndex returns the index of the last processed block. The first
// block has index 1.
func (m *NodeManager) BlockIndex() uint64 {
	return m.publishedBlock.Load()
}

// SampleTime returns the number of samples per channel processed so far.
func (m *NodeManager) SampleTime() uint64 {
	return m.publishedTime.Load()
}

// CurrentSampleTime returns the sample time of the block being processed.
// Audio goroutine only.
func (m *NodeManager) CurrentSampleTime() uint64 {
	return m.sampleTime
}

// InputChannelCount returns the number of device input channels.
func (m *NodeManager) InputChannelCount() int {
	return m.inputChannels
}

// OutputChannelCount returns the number of device output channels.
func (m *NodeManager) OutputChannelCount() int {
	return m.outputChannels
}

// PendingTasks returns the number of tasks waiting for the next block.
// There is no back-pressure: callers that need it should poll this value.
func (m *NodeManager) PendingTasks() int {
	return m.tasks.Len()
}

// PendingDeletions returns the number of released objects waiting for
// reclamation.
func (m *NodeManager) PendingDeletions() int {
	return m.deletions.Len()
}

// DeletionQueue returns the queue drained by this manager at every block.
func (m *NodeManager) DeletionQueue() *safe.DeletionQueue {
	return m.deletions
}

// InputBuffer returns the device input of channel ch for the current
// block or nil if the channel is missing. Audio goroutine only.
func (m *NodeManager) InputBuffer(ch int) SampleBuffer {
	if ch < 0 || ch >= len(m.inputs) {
		return nil
	}
	return m.inputs[ch]
}

// OutputBuffer returns the device output of channel ch for the current
// block or nil if the channel doesn't exist. Audio goroutine only.
func (m *NodeManager) OutputBuffer(ch int) SampleBuffer {
	if ch < 0 || ch >= len(m.outputs) {
		return nil
	}
	return m.outputs[ch]
}

// Process runs as many blocks as fit into frames. Before every block the
// pending tasks are applied and released objects are reclaimed. Samples
// after the last whole block are silenced. Missing input channels read as
// silence.
//
// Process must only be called from the audio goroutine. It doesn't
// allocate unless a task does.
func (m *NodeManager) Process(input, output [][]float64, frames int) {
	var offset int
	for {
		m.applied += m.tasks.Apply()
		m.reclaimed += m.deletions.Drain()
		bs := m.size
		if offset+bs > frames {
			break
		}
		m.bindBuffers(input, output, offset, bs)
		m.blockIndex++
		for _, out := range m.outputs {
			out.Clear()
		}
		for _, r := range m.roots {
			r.Process()
		}
		m.sampleTime += uint64(bs)
		m.publishedBlock.Store(m.blockIndex)
		m.publishedTime.Store(m.sampleTime)
		if m.measure != nil {
			m.measure(bs, m.rate, m.applied, m.reclaimed)
		}
		m.applied, m.reclaimed = 0, 0
		offset += bs
	}
	if offset < 0 {
		offset = 0
	}
	for _, out := range output {
		if offset >= len(out) {
			continue
		}
		end := frames
		if end > len(out) {
			end = len(out)
		}
		for i := offset; i < end; i++ {
			out[i] = 0
		}
	}
}

// bindBuffers points channel views at the block of device buffers.
func (m *NodeManager) bindBuffers(input, output [][]float64, offset, blockSize int) {
	for ch := range m.inputs {
		if ch < len(input) && len(input[ch]) >= offset+blockSize {
			m.inputs[ch] = input[ch][offset : offset+blockSize]
		} else {
			m.inputs[ch] = nil
		}
	}
	for ch := range m.outputs {
		if ch < len(output) && len(output[ch]) >= offset+blockSize {
			m.outputs[ch] = output[ch][offset : offset+blockSize]
		} else {
			m.outputs[ch] = m.scratch[ch]
		}
	}
}

func (m *NodeManager) resizeScratch() {
	for ch := range m.scratch {
		if cap(m.scratch[ch]) >= m.size {
			m.scratch[ch] = m.scratch[ch][:m.size]
		} else {
			m.scratch[ch] = make(SampleBuffer, m.size)
		}
	}
}

func (m *NodeManager) publishConfig() {
	m.publishedRate.Store(math.Float64bits(m.rate))
	m.publishedSize.Store(int64(m.size))
}

// registerNode links b into the list of live nodes and brings its
// configuration up to date.
func (m *NodeManager) registerNode(b *Base) {
	if b.disposed || b.next != nil {
		return
	}
	last := m.nodes.prev
	b.prev = last
	b.next = &m.nodes
	last.next = b
	m.nodes.prev = b
	b.configure(m.rate, m.size)
}

func (m *NodeManager) unregisterNode(b *Base) {
	if b.next == nil {
		return
	}
	b.prev.next = b.next
	b.next.prev = b.prev
	b.prev, b.next = nil, nil
}

// NodeCount returns the number of registered nodes. Audio goroutine only.
func (m *NodeManager) NodeCount() int {
	var n int
	for b := m.nodes.next; b != &m.nodes; b = b.next {
		n++
	}
	return n
}

func (m *NodeManager) configureNodes() {
	for b := m.nodes.next; b != &m.nodes; {
		next := b.next
		b.configure(m.rate, m.size)
		b = next
	}
}
