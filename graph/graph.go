// Package graph resolves a named collection of audio objects and their
// links into one connected sub-network with designated input and output
// objects.
package graph

import (
	"errors"
	"fmt"

	"pipelined.dev/dsp"
	"pipelined.dev/dsp/object"
)

var (
	// ErrDuplicateID is returned when two objects share an id.
	ErrDuplicateID = errors.New("duplicate object id")
	// ErrUnknownID is returned when a link or a designated object refers
	// to a missing object.
	ErrUnknownID = errors.New("unknown object id")
	// ErrNoOutput is returned when the output object is not set.
	ErrNoOutput = errors.New("no output object")
)

type (
	// Entry is a named object of a graph.
	Entry struct {
		ID     string
		Object object.Object
	}

	// Link feeds inputs of object To from outputs of object From. Channels
	// of From wrap modulo its channel count.
	Link struct {
		From string
		To   string
	}

	// Graph is a description of a sub-network. Output is required, Input
	// is optional: a graph without input is a source.
	Graph struct {
		Objects []Entry
		Links   []Link
		Input   string
		Output  string
	}

	// Instance is an instantiated graph. Its outputs are outputs of the
	// output object and its inputs are inputs of the input object.
	Instance struct {
		instances map[string]object.Instance
		order     []object.Instance
		input     object.Instance
		output    object.Instance
	}
)

// Instantiate implements object.Object. Any error aborts instantiation and
// releases everything already built.
func (g Graph) Instantiate(m *dsp.NodeManager) (object.Instance, error) {
	inst, err := g.New(m)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// New instantiates the graph and returns its concrete instance.
func (g Graph) New(m *dsp.NodeManager) (*Instance, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	var s dsp.ErrorState
	inst := &Instance{
		instances: make(map[string]object.Instance, len(g.Objects)),
		order:     make([]object.Instance, 0, len(g.Objects)),
	}
	for _, e := range g.Objects {
		oi, err := e.Object.Instantiate(m)
		if err != nil {
			s.Fail(fmt.Errorf("graph: object %q: %w", e.ID, err))
			break
		}
		inst.instances[e.ID] = oi
		inst.order = append(inst.order, oi)
	}
	if !s.HasErrors() {
		for _, l := range g.Links {
			to, from := inst.instances[l.To], inst.instances[l.From]
			if !s.Check(to.InputChannelCount() > 0, "graph: link %q -> %q: %w", l.From, l.To, object.ErrNoInputs) {
				continue
			}
			if err := object.ConnectInstance(to, from); err != nil {
				s.Fail(fmt.Errorf("graph: link %q -> %q: %w", l.From, l.To, err))
			}
		}
	}
	if s.HasErrors() {
		inst.Release()
		return nil, s.Err()
	}
	inst.output = inst.instances[g.Output]
	if g.Input != "" {
		inst.input = inst.instances[g.Input]
	}
	return inst, nil
}

// validate checks ids before anything is instantiated.
func (g Graph) validate() error {
	var s dsp.ErrorState
	ids := make(map[string]struct{}, len(g.Objects))
	for i, e := range g.Objects {
		if !s.Check(e.ID != "", "graph: object %d has no id", i) {
			continue
		}
		if _, ok := ids[e.ID]; ok {
			s.Failf("graph: %w: %q", ErrDuplicateID, e.ID)
			continue
		}
		ids[e.ID] = struct{}{}
		s.Check(e.Object != nil, "graph: object %q is nil", e.ID)
	}
	for _, l := range g.Links {
		for _, id := range []string{l.From, l.To} {
			if _, ok := ids[id]; !ok {
				s.Failf("graph: link %q -> %q: %w: %q", l.From, l.To, ErrUnknownID, id)
			}
		}
	}
	if g.Output == "" {
		s.Fail(fmt.Errorf("graph: %w", ErrNoOutput))
	} else if _, ok := ids[g.Output]; !ok {
		s.Failf("graph: output: %w: %q", ErrUnknownID, g.Output)
	}
	if g.Input != "" {
		if _, ok := ids[g.Input]; !ok {
			s.Failf("graph: input: %w: %q", ErrUnknownID, g.Input)
		}
	}
	return s.Err()
}

// Object returns the instance of object id or nil.
func (i *Instance) Object(id string) object.Instance {
	return i.instances[id]
}

// ChannelCount implements object.Instance.
func (i *Instance) ChannelCount() int {
	return i.output.ChannelCount()
}

// OutputForChannel implements object.Instance.
func (i *Instance) OutputForChannel(ch int) *dsp.OutputPin {
	return i.output.OutputForChannel(ch)
}

// InputChannelCount implements object.Instance.
func (i *Instance) InputChannelCount() int {
	if i.input == nil {
		return 0
	}
	return i.input.InputChannelCount()
}

// Connect implements object.Instance.
func (i *Instance) Connect(ch int, out *dsp.OutputPin) error {
	if i.input == nil {
		return fmt.Errorf("graph: %w", object.ErrNoInputs)
	}
	return i.input.Connect(ch, out)
}

// Disconnect implements object.Instance.
func (i *Instance) Disconnect(ch int, out *dsp.OutputPin) error {
	if i.input == nil {
		return fmt.Errorf("graph: %w", object.ErrNoInputs)
	}
	return i.input.Disconnect(ch, out)
}

// Release implements object.Instance.
func (i *Instance) Release() {
	for _, oi := range i.order {
		oi.Release()
	}
}
