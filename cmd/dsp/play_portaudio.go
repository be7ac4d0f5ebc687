//go:build portaudio

package main

import (
	"pipelined.dev/dsp"
	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/portaudio"
)

func init() {
	drivers["portaudio"] = func(m *dsp.NodeManager, logger log.Logger) (output, error) {
		return portaudio.Open(m, logger)
	}
}
