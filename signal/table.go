package signal

import (
	"math"
	"sync"
)

const (
	sineTableSize       = 4096
	equalPowerTableSize = 1024
)

// WaveTable is one period of a waveform. Tables are never mutated after
// construction and are shared between nodes without locking.
type WaveTable struct {
	samples []float64
}

// NewWaveTable creates a wave table of size samples, where fn maps a phase
// in [0, 1) to a sample value.
func NewWaveTable(size int, fn func(phase float64) float64) *WaveTable {
	samples := make([]float64, size+1)
	for i := 0; i < size; i++ {
		samples[i] = fn(float64(i) / float64(size))
	}
	// guard sample for interpolation
	samples[size] = samples[0]
	return &WaveTable{samples: samples}
}

// Size returns the number of samples in one period.
func (t *WaveTable) Size() int {
	return len(t.samples) - 1
}

// At returns the linear interpolated value at phase. Phase is wrapped into
// [0, 1).
func (t *WaveTable) At(phase float64) float64 {
	phase -= math.Floor(phase)
	pos := phase * float64(t.Size())
	i := int(pos)
	frac := pos - float64(i)
	return t.samples[i] + (t.samples[i+1]-t.samples[i])*frac
}

// EqualPower maps a pan position to the gains of the left and right
// channels so that their summed power is constant.
type EqualPower struct {
	gains []float64
}

// Gains returns the gains for pan in [-1, 1]: -1 is hard left, 1 is hard
// right. Values out of range are clipped.
func (t *EqualPower) Gains(pan float64) (left, right float64) {
	pos := (clip(pan) + 1) / 2 * float64(len(t.gains)-1)
	i := int(pos)
	if i >= len(t.gains)-1 {
		return t.gains[0], t.gains[len(t.gains)-1]
	}
	frac := pos - float64(i)
	right = t.gains[i] + (t.gains[i+1]-t.gains[i])*frac
	j := len(t.gains) - 1 - i
	left = t.gains[j] + (t.gains[j-1]-t.gains[j])*frac
	return left, right
}

var (
	sineOnce       sync.Once
	sine           *WaveTable
	equalPowerOnce sync.Once
	equalPower     *EqualPower
)

// SineTable returns the shared sine wave table.
func SineTable() *WaveTable {
	sineOnce.Do(func() {
		sine = NewWaveTable(sineTableSize, func(phase float64) float64 {
			return math.Sin(2 * math.Pi * phase)
		})
	})
	return sine
}

// EqualPowerTable returns the shared equal power curve.
func EqualPowerTable() *EqualPower {
	equalPowerOnce.Do(func() {
		gains := make([]float64, equalPowerTableSize+1)
		for i := range gains {
			gains[i] = math.Sin(float64(i) / equalPowerTableSize * math.Pi / 2)
		}
		equalPower = &EqualPower{gains: gains}
	})
	return equalPower
}
