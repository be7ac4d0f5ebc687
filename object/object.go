// Package object provides audio objects: configuration values that
// instantiate into running sub-graphs with a uniform multichannel
// contract. Objects compose into chains, parallel banks and graphs without
// knowing node internals.
package object

import (
	"errors"
	"fmt"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/safe"
)

var (
	// ErrNoChannels is returned when an object or an instance has no
	// channels to connect.
	ErrNoChannels = errors.New("no channels")
	// ErrNoInputs is returned when an instance must be fed but has no
	// input channels.
	ErrNoInputs = errors.New("no inputs")
	// ErrEmptyChain is returned when chain has no objects.
	ErrEmptyChain = errors.New("empty chain")
)

type (
	// Object is a configuration that instantiates a sub-graph. Failed
	// instantiation returns no instance and leaves nothing wired.
	Object interface {
		Instantiate(m *dsp.NodeManager) (Instance, error)
	}

	// Instance is a running sub-graph. Input channels are connected to
	// external output pins, outputs are exposed per channel.
	Instance interface {
		// ChannelCount returns the number of output channels.
		ChannelCount() int
		// OutputForChannel returns the output pin of channel ch or nil.
		OutputForChannel(ch int) *dsp.OutputPin
		// InputChannelCount returns the number of input channels.
		InputChannelCount() int
		// Connect schedules a connection of input channel ch to out.
		Connect(ch int, out *dsp.OutputPin) error
		// Disconnect schedules removal of the connection of input
		// channel ch to out.
		Disconnect(ch int, out *dsp.OutputPin) error
		// Release disposes all nodes of the instance on the audio
		// goroutine.
		Release()
	}

	// Node is a node with pins, e.g. any node embedding *dsp.Base.
	Node interface {
		dsp.Node
		safe.Disposer
		Inputs() []*dsp.InputPin
		Outputs() []*dsp.OutputPin
	}

	// Connector is an input pin of an instance channel.
	Connector interface {
		Connect(*dsp.OutputPin)
		Disconnect(*dsp.OutputPin)
	}
)

// NodeInstance is an instance built from nodes. It owns its nodes and
// releases them together.
type NodeInstance struct {
	nodes   []Node
	owners  []safe.Owner[owned]
	inputs  []Connector
	outputs []*dsp.OutputPin
}

// owned adapts a node to a safe owner.
type owned struct {
	node Node
}

func (o *owned) Dispose() {
	o.node.Dispose()
}

// NewNodeInstance returns an empty instance.
func NewNodeInstance() *NodeInstance {
	return &NodeInstance{}
}

// Own takes ownership of n.
func (i *NodeInstance) Own(m *dsp.NodeManager, n Node) {
	i.nodes = append(i.nodes, n)
	i.owners = append(i.owners, safe.New(m.DeletionQueue(), &owned{node: n}))
}

// AddInput appends an input channel.
func (i *NodeInstance) AddInput(in Connector) {
	i.inputs = append(i.inputs, in)
}

// AddOutput appends an output channel.
func (i *NodeInstance) AddOutput(out *dsp.OutputPin) {
	i.outputs = append(i.outputs, out)
}

// Nodes returns owned nodes in creation order.
func (i *NodeInstance) Nodes() []Node {
	return i.nodes
}

// ChannelCount implements Instance.
func (i *NodeInstance) ChannelCount() int {
	return len(i.outputs)
}

// OutputForChannel implements Instance.
func (i *NodeInstance) OutputForChannel(ch int) *dsp.OutputPin {
	if ch < 0 || ch >= len(i.outputs) {
		return nil
	}
	return i.outputs[ch]
}

// InputChannelCount implements Instance.
func (i *NodeInstance) InputChannelCount() int {
	return len(i.inputs)
}

// Connect implements Instance.
func (i *NodeInstance) Connect(ch int, out *dsp.OutputPin) error {
	in, err := i.input(ch)
	if err != nil {
		return err
	}
	in.Connect(out)
	return nil
}

// Disconnect implements Instance.
func (i *NodeInstance) Disconnect(ch int, out *dsp.OutputPin) error {
	in, err := i.input(ch)
	if err != nil {
		return err
	}
	in.Disconnect(out)
	return nil
}

func (i *NodeInstance) input(ch int) (Connector, error) {
	if ch < 0 || ch >= len(i.inputs) {
		return nil, fmt.Errorf("%w: input %d of %d", dsp.ErrInvalidChannel, ch, len(i.inputs))
	}
	return i.inputs[ch], nil
}

// Release implements Instance.
func (i *NodeInstance) Release() {
	for j := range i.owners {
		i.owners[j].Release()
	}
}

// ConnectInstance connects every input channel of dst to the outputs of
// src. Source channels wrap modulo the source channel count.
func ConnectInstance(dst, src Instance) error {
	if src.ChannelCount() == 0 {
		return fmt.Errorf("connect instance: source: %w", ErrNoChannels)
	}
	var s dsp.ErrorState
	for ch := 0; ch < dst.InputChannelCount(); ch++ {
		s.Fail(dst.Connect(ch, src.OutputForChannel(ch%src.ChannelCount())))
	}
	return s.Err()
}

// DisconnectInstance removes connections made by ConnectInstance.
func DisconnectInstance(dst, src Instance) error {
	if src.ChannelCount() == 0 {
		return fmt.Errorf("disconnect instance: source: %w", ErrNoChannels)
	}
	var s dsp.ErrorState
	for ch := 0; ch < dst.InputChannelCount(); ch++ {
		s.Fail(dst.Disconnect(ch, src.OutputForChannel(ch%src.ChannelCount())))
	}
	return s.Err()
}
