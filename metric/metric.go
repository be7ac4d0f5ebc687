// Package metric publishes node manager counters with expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const managersLabel = "dsp.managers"

const (
	// BlockCounter measures number of processed blocks.
	BlockCounter = "Blocks"
	// SampleCounter measures number of processed samples per channel.
	SampleCounter = "Samples"
	// DurationCounter counts the duration of processed signal.
	DurationCounter = "Duration"
	// LatencyCounter measures time between consecutive blocks.
	LatencyCounter = "Latency"
	// TaskCounter counts mutations applied by the audio goroutine.
	TaskCounter = "Tasks"
	// ReclaimCounter counts objects reclaimed from the deletion queue.
	ReclaimCounter = "Reclaimed"
	// ManagerCounter counts meters created with the same label.
	ManagerCounter = "Managers"
)

var (
	managers = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BlockCounter,
		SampleCounter,
		DurationCounter,
		LatencyCounter,
		TaskCounter,
		ReclaimCounter,
		ManagerCounter,
	}
)

// Get metrics values for provided label.
func Get(label string) map[string]string {
	return getCounters(label)
}

// GetAll returns counters for all measured labels.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	managers.Lock()
	defer managers.Unlock()
	for label := range managers.m {
		m[label] = getCounters(label)
	}
	return m
}

func getCounters(label string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(label, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// MeasureFunc captures metrics when a block is processed. It doesn't
// allocate and can be called from the audio goroutine.
type MeasureFunc func(blockSize int, sampleRate float64, tasks, reclaimed int)

// Meter creates new meter closure to capture counters of a node manager.
// Meters with the same label share counters.
func Meter(label string) MeasureFunc {
	metric := managers.get(label)
	metric.managers.Add(1)
	var calledAt time.Time
	return func(blockSize int, sampleRate float64, tasks, reclaimed int) {
		now := time.Now()
		if !calledAt.IsZero() {
			metric.latency.set(now.Sub(calledAt))
		}
		calledAt = now
		metric.blocks.Add(1)
		metric.samples.Add(int64(blockSize))
		metric.tasks.Add(int64(tasks))
		metric.reclaimed.Add(int64(reclaimed))
		metric.duration.add(DurationOf(sampleRate, blockSize))
	}
}

// DurationOf returns time duration of samples at this sample rate.
func DurationOf(sampleRate float64, samples int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / sampleRate * float64(time.Second))
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(label string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[label]; ok {
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(label)
	m.m[label] = metric
	return metric
}

type metric struct {
	managers  *expvar.Int
	blocks    *expvar.Int
	samples   *expvar.Int
	tasks     *expvar.Int
	reclaimed *expvar.Int
	latency   *duration
	duration  *duration
}

func newMetric(label string) metric {
	m := metric{
		managers:  expvar.NewInt(key(label, ManagerCounter)),
		blocks:    expvar.NewInt(key(label, BlockCounter)),
		samples:   expvar.NewInt(key(label, SampleCounter)),
		tasks:     expvar.NewInt(key(label, TaskCounter)),
		reclaimed: expvar.NewInt(key(label, ReclaimCounter)),
		latency:   &duration{},
		duration:  &duration{},
	}
	expvar.Publish(key(label, LatencyCounter), m.latency)
	expvar.Publish(key(label, DurationCounter), m.duration)
	return m
}

func key(label, counter string) string {
	return fmt.Sprintf("%s.%s.%s", managersLabel, label, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)).String())
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
