package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

type config struct {
	args   []string
	stdout io.Writer
}

type command interface {
	Name() string
	Help() string
	Run(io.Writer) error
	Register(*flag.FlagSet)
}

func (config *config) run() int {
	cmdName, args := parseArgs(config.args)
	if cmdName == "" {
		printUsage(config.stdout)
		return errorExitCode
	}

	for _, cmd := range commands() {
		if cmd.Name() != cmdName {
			continue
		}
		flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		flags.SetOutput(config.stdout)
		cmd.Register(flags)
		if err := flags.Parse(args); err != nil {
			return errorExitCode
		}
		if err := cmd.Run(config.stdout); err != nil {
			fmt.Fprintf(config.stdout, "Command failed: %v\n", err)
			return errorExitCode
		}
		return successExitCode
	}
	fmt.Fprintf(config.stdout, "Unknown command: %s\n\n", cmdName)
	printUsage(config.stdout)
	return errorExitCode
}

const (
	successExitCode = 0
	errorExitCode   = 1
)

func commands() []command {
	return []command{&listCommand{}, &renderCommand{}, &playCommand{}}
}

func main() {
	c := config{
		args:   os.Args,
		stdout: os.Stdout,
	}
	os.Exit(c.run())
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "dsp renders and plays node networks")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: dsp <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands() {
		fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}

// stringList is a semicolon separated flag value.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ";")
}

func (l *stringList) Set(value string) error {
	for _, v := range strings.Split(value, ";") {
		if v = strings.TrimSpace(v); v != "" {
			*l = append(*l, v)
		}
	}
	return nil
}
