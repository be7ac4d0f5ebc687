package object

import (
	"fmt"

	"pipelined.dev/dsp"
)

// Chain connects objects in sequence: inputs of object i+1 are fed from
// outputs of object i.
type Chain struct {
	Objects []Object
}

// ChainInstance is an instantiated chain. Its inputs are inputs of the
// first instance and outputs are outputs of the last one.
type ChainInstance struct {
	instances []Instance
}

// Instantiate implements Object.
func (c Chain) Instantiate(m *dsp.NodeManager) (Instance, error) {
	if len(c.Objects) == 0 {
		return nil, fmt.Errorf("chain: %w", ErrEmptyChain)
	}
	var s dsp.ErrorState
	inst := &ChainInstance{instances: make([]Instance, 0, len(c.Objects))}
	for i, o := range c.Objects {
		if o == nil {
			s.Failf("chain: object %d is nil", i)
			break
		}
		oi, err := o.Instantiate(m)
		if err != nil {
			s.Fail(fmt.Errorf("chain: object %d: %w", i, err))
			break
		}
		if i > 0 {
			prev := inst.instances[i-1]
			if !s.Check(oi.InputChannelCount() > 0, "chain: object %d: %w", i, ErrNoInputs) {
				oi.Release()
				break
			}
			if err := ConnectInstance(oi, prev); err != nil {
				s.Fail(fmt.Errorf("chain: object %d: %w", i, err))
				oi.Release()
				break
			}
		}
		inst.instances = append(inst.instances, oi)
	}
	if s.HasErrors() {
		inst.Release()
		return nil, s.Err()
	}
	return inst, nil
}

// Instances returns instances of chained objects.
func (c *ChainInstance) Instances() []Instance {
	return c.instances
}

func (c *ChainInstance) first() Instance {
	return c.instances[0]
}

func (c *ChainInstance) last() Instance {
	return c.instances[len(c.instances)-1]
}

// ChannelCount implements Instance.
func (c *ChainInstance) ChannelCount() int {
	return c.last().ChannelCount()
}

// OutputForChannel implements Instance.
func (c *ChainInstance) OutputForChannel(ch int) *dsp.OutputPin {
	return c.last().OutputForChannel(ch)
}

// InputChannelCount implements Instance.
func (c *ChainInstance) InputChannelCount() int {
	return c.first().InputChannelCount()
}

// Connect implements Instance.
func (c *ChainInstance) Connect(ch int, out *dsp.OutputPin) error {
	return c.first().Connect(ch, out)
}

// Disconnect implements Instance.
func (c *ChainInstance) Disconnect(ch int, out *dsp.OutputPin) error {
	return c.first().Disconnect(ch, out)
}

// Release implements Instance.
func (c *ChainInstance) Release() {
	for _, i := range c.instances {
		i.Release()
	}
}
