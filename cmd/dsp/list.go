package main

import (
	"flag"
	"fmt"
	"io"

	"pipelined.dev/dsp/cache"
	"pipelined.dev/dsp/log"
)

type listCommand struct {
	scan stringList
}

func (cmd *listCommand) Name() string {
	return "list"
}

func (cmd *listCommand) Help() string {
	return "Show the list of available samples"
}

func (cmd *listCommand) Register(fs *flag.FlagSet) {
	fs.Var(&cmd.scan, "scan", "semicolon separated paths to scan for wav samples")
}

func (cmd *listCommand) Run(w io.Writer) error {
	samples := cache.NewSamples(log.GetLogger(), cmd.scan...)
	fmt.Fprint(w, samples)
	return nil
}
