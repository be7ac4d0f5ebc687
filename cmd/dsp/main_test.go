package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/dsp/signal"
	"pipelined.dev/dsp/wav"
)

func run(args ...string) (int, string) {
	var out bytes.Buffer
	c := config{
		args:   append([]string{"dsp"}, args...),
		stdout: &out,
	}
	return c.run(), out.String()
}

func TestUsage(t *testing.T) {
	code, out := run()
	assert.Equal(t, errorExitCode, code)
	for _, cmd := range commands() {
		assert.Contains(t, out, cmd.Name())
	}

	code, out = run("unknown")
	assert.Equal(t, errorExitCode, code)
	assert.Contains(t, out, "Unknown command")

	code, _ = run("render", "-unknown")
	assert.Equal(t, errorExitCode, code)
}

func TestStringList(t *testing.T) {
	var l stringList
	require.NoError(t, l.Set("a; b;;c"))
	require.NoError(t, l.Set("d"))
	assert.Equal(t, stringList{"a", "b", "c", "d"}, l)
	assert.Equal(t, "a;b;c;d", l.String())
}

func TestRender(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := t.TempDir()
	loop := filepath.Join(dir, "loop.wav")
	e, err := wav.Create(loop, 8000, 1, signal.BitDepth16)
	require.NoError(t, err)
	require.NoError(t, e.Write([][]float64{{0.1, 0.2, 0.3, 0.4}}))
	require.NoError(t, e.Close())

	path := filepath.Join(dir, "out.wav")
	code, out := run("render",
		"-out", path,
		"-duration", "100ms",
		"-rate", "8000",
		"-block", "64",
		"-step", "20ms",
		"-notes", "440;660",
		"-sample", "loop",
		"-scan", dir,
	)
	require.Equal(t, successExitCode, code, out)
	assert.Contains(t, out, "13 blocks")

	s, err := wav.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Channels())
	assert.Equal(t, 13*64, s.Len())
	var silent = true
	for i := 0; i < s.Len(); i++ {
		if s.At(0, float64(i)) != 0 {
			silent = false
			break
		}
	}
	assert.False(t, silent)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	var tests = []struct {
		name string
		args []string
	}{
		{name: "missing out", args: nil},
		{name: "invalid duration", args: []string{"-out", filepath.Join(dir, "a.wav"), "-duration", "0s"}},
		{name: "invalid note", args: []string{"-out", filepath.Join(dir, "b.wav"), "-notes", "abc"}},
		{name: "unsupported format", args: []string{"-out", filepath.Join(dir, "c.flac")}},
		{name: "unsupported bit depth", args: []string{"-out", filepath.Join(dir, "d.wav"), "-bitdepth", "12"}},
		{name: "missing sample", args: []string{"-out", filepath.Join(dir, "e.wav"), "-sample", "kick", "-scan", dir}},
		{name: "invalid step", args: []string{"-out", filepath.Join(dir, "f.wav"), "-step", "0s"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, out := run(append([]string{"render", "-duration", "10ms"}, test.args...)...)
			assert.Equal(t, errorExitCode, code)
			assert.Contains(t, out, "Command failed")
		})
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	e, err := wav.Create(filepath.Join(dir, "kick.wav"), 8000, 1, signal.BitDepth16)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	code, out := run("list", "-scan", dir)
	assert.Equal(t, successExitCode, code)
	assert.Contains(t, out, "kick")
}
