package object

import (
	"fmt"

	"pipelined.dev/dsp"
)

// NodeFunc creates the node of one channel.
type NodeFunc func(m *dsp.NodeManager, ch int) (Node, error)

// Parallel is a bank of identical single-channel nodes. Channel i input is
// the first input pin of node i, if it has one, and channel i output is
// its first output pin.
type Parallel struct {
	Channels int
	New      NodeFunc
}

// Instantiate implements Object.
func (p Parallel) Instantiate(m *dsp.NodeManager) (Instance, error) {
	var s dsp.ErrorState
	s.Check(p.Channels > 0, "parallel: %w: %d", dsp.ErrInvalidChannelCount, p.Channels)
	s.Check(p.New != nil, "parallel: missing node func")
	if s.HasErrors() {
		return nil, s.Err()
	}
	inst := NewNodeInstance()
	for ch := 0; ch < p.Channels; ch++ {
		n, err := p.New(m, ch)
		if err != nil {
			s.Fail(fmt.Errorf("parallel: channel %d: %w", ch, err))
			break
		}
		inst.Own(m, n)
		if len(n.Outputs()) == 0 {
			s.Failf("parallel: channel %d: node has no outputs", ch)
			break
		}
		if ins := n.Inputs(); len(ins) > 0 {
			inst.AddInput(ins[0])
		}
		inst.AddOutput(n.Outputs()[0])
	}
	if s.HasErrors() {
		inst.Release()
		return nil, s.Err()
	}
	return inst, nil
}
