// Package nested provides a node that runs a whole node manager with a
// smaller block size inside one block of its parent.
package nested

import (
	"errors"
	"fmt"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/object"
)

// ErrBlockSize is returned when the parent block size is not a multiple of
// the nested block size.
var ErrBlockSize = errors.New("parent block size is not a multiple of nested block size")

// Config defines the nested manager.
type Config struct {
	BlockSize      int
	InputChannels  int
	OutputChannels int
}

// Node runs parentBlock/nestedBlock blocks of the inner manager per parent
// block. Node inputs are inner device inputs and inner device outputs are
// node outputs. The inner sample rate follows the parent.
//
// The inner manager processes synchronously on the parent audio goroutine.
// Its tasks are applied at inner block boundaries.
type Node struct {
	*dsp.Base
	inner     *dsp.NodeManager
	blockSize int
	inputs    [][]float64
	outputs   [][]float64
	valid     bool
	release   func()
}

// New creates a nested node in parent.
func New(parent *dsp.NodeManager, cfg Config, options ...dsp.Option) (*Node, error) {
	var s dsp.ErrorState
	s.Check(cfg.BlockSize > 0, "nested: %w: %d", dsp.ErrInvalidBlockSize, cfg.BlockSize)
	s.Check(cfg.InputChannels >= 0, "nested: %w: %d inputs", dsp.ErrInvalidChannelCount, cfg.InputChannels)
	s.Check(cfg.OutputChannels > 0, "nested: %w: %d outputs", dsp.ErrInvalidChannelCount, cfg.OutputChannels)
	if s.HasErrors() {
		return nil, s.Err()
	}
	if parent.BlockSize()%cfg.BlockSize != 0 {
		return nil, fmt.Errorf("nested: %w: %d and %d", ErrBlockSize, parent.BlockSize(), cfg.BlockSize)
	}
	inner, err := dsp.NewNodeManager(append([]dsp.Option{
		dsp.WithSampleRate(parent.SampleRate()),
		dsp.WithBlockSize(cfg.BlockSize),
		dsp.WithInputChannels(cfg.InputChannels),
		dsp.WithOutputChannels(cfg.OutputChannels),
	}, options...)...)
	if err != nil {
		return nil, fmt.Errorf("nested: %w", err)
	}
	n := &Node{
		inner:     inner,
		blockSize: cfg.BlockSize,
		inputs:    make([][]float64, cfg.InputChannels),
		outputs:   make([][]float64, cfg.OutputChannels),
	}
	n.Base = dsp.NewBase(parent, n)
	for i := 0; i < cfg.InputChannels; i++ {
		n.AddInput()
	}
	for i := 0; i < cfg.OutputChannels; i++ {
		n.AddOutput()
	}
	n.BlockSizeChanged(parent.BlockSize())
	return n, nil
}

// Inner returns the nested manager. Nodes of the nested graph are created
// in it.
func (n *Node) Inner() *dsp.NodeManager {
	return n.inner
}

// BlockSizeChanged implements dsp.BlockSizeChanger. If the new parent block
// size is not a multiple of the nested one, the node produces silence.
func (n *Node) BlockSizeChanged(blockSize int) {
	n.valid = blockSize%n.blockSize == 0
	for i := range n.inputs {
		if cap(n.inputs[i]) >= blockSize {
			n.inputs[i] = n.inputs[i][:blockSize]
			continue
		}
		n.inputs[i] = make([]float64, blockSize)
	}
}

// SampleRateChanged implements dsp.SampleRateChanger.
func (n *Node) SampleRateChanged(sampleRate float64) {
	n.inner.SetSampleRateNow(sampleRate)
}

// Process runs the nested blocks.
func (n *Node) Process() {
	for i, in := range n.Inputs() {
		b := in.Pull()
		if b == nil {
			clear(n.inputs[i])
			continue
		}
		copy(n.inputs[i], b)
	}
	for i, out := range n.Outputs() {
		n.outputs[i] = out.Buffer()
	}
	if !n.valid {
		for _, out := range n.outputs {
			clear(out)
		}
		return
	}
	n.inner.Process(n.inputs, n.outputs, n.BlockSize())
}

// Dispose releases the nested graph attached by Object and reclaims
// released nested objects.
func (n *Node) Dispose() {
	n.Base.Dispose()
	if n.release != nil {
		n.release()
		n.release = nil
	}
	n.inner.DeletionQueue().Drain()
}

// Object runs Object inside a nested manager. The nested chain is device
// input, Object, device output, so Object must accept input if
// InputChannels is positive.
type Object struct {
	Config Config
	Object object.Object
}

// Instantiate implements object.Object.
func (o Object) Instantiate(m *dsp.NodeManager) (object.Instance, error) {
	if o.Object == nil {
		return nil, fmt.Errorf("nested: missing object")
	}
	n, err := New(m, o.Config)
	if err != nil {
		return nil, err
	}
	objects := []object.Object{o.Object, object.Output{}}
	if o.Config.InputChannels > 0 {
		objects = append([]object.Object{object.Input{}}, objects...)
	}
	inner, err := object.Chain{Objects: objects}.Instantiate(n.inner)
	inst := object.NewNodeInstance()
	inst.Own(m, n)
	if err != nil {
		inst.Release()
		return nil, fmt.Errorf("nested: %w", err)
	}
	n.release = inner.Release
	for _, in := range n.Inputs() {
		inst.AddInput(in)
	}
	for _, out := range n.Outputs() {
		inst.AddOutput(out)
	}
	return inst, nil
}
