package metric_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/dsp/metric"
)

func TestMeter(t *testing.T) {
	sampleRate := 44100.0
	// test cases
	var tests = []struct {
		label              string
		routines           int
		blocks             int
		blockSize          int
		expectedSamples    string
		expectedBlocks     string
		expectedTasks      string
		expectedComponents string
	}{
		{
			label:              "meter test",
			routines:           2,
			blocks:             10,
			blockSize:          100,
			expectedSamples:    "2000",
			expectedBlocks:     "20",
			expectedTasks:      "20",
			expectedComponents: "2",
		},
		{
			label:              "meter test",
			routines:           2,
			blocks:             10,
			blockSize:          100,
			expectedSamples:    "4000",
			expectedBlocks:     "40",
			expectedTasks:      "40",
			expectedComponents: "4",
		},
	}
	// function to test meter.
	testFn := func(fn metric.MeasureFunc, wg *sync.WaitGroup, blocks, blockSize int) {
		for i := 0; i < blocks; i++ {
			fn(blockSize, sampleRate, 1, 0)
		}
		wg.Done()
	}

	for _, c := range tests {
		wg := &sync.WaitGroup{}
		wg.Add(c.routines)
		for i := 0; i < c.routines; i++ {
			go testFn(metric.Meter(c.label), wg, c.blocks, c.blockSize)
		}
		// check if no data race.
		wg.Wait()
		values := metric.Get(c.label)
		assert.Equal(t, c.expectedSamples, values[metric.SampleCounter])
		assert.Equal(t, c.expectedBlocks, values[metric.BlockCounter])
		assert.Equal(t, c.expectedTasks, values[metric.TaskCounter])
		assert.Equal(t, "0", values[metric.ReclaimCounter])
		assert.Equal(t, c.expectedComponents, values[metric.ManagerCounter])
	}
	_, ok := metric.GetAll()["meter test"]
	assert.True(t, ok)
}

func TestDurationOf(t *testing.T) {
	assert.Equal(t, time.Second, metric.DurationOf(44100, 44100))
	assert.Equal(t, 500*time.Millisecond, metric.DurationOf(48000, 24000))
	assert.Equal(t, time.Duration(0), metric.DurationOf(0, 100))
}
