//go:build oto

package main

import (
	"pipelined.dev/dsp"
	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/oto"
)

type otoOutput struct {
	*oto.Player
}

func (o otoOutput) Start() error {
	o.Player.Start()
	return nil
}

func init() {
	drivers["oto"] = func(m *dsp.NodeManager, _ log.Logger) (output, error) {
		p, err := oto.New(m, 0)
		if err != nil {
			return nil, err
		}
		return otoOutput{Player: p}, nil
	}
}
