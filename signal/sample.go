package signal

// Sample is an audio clip shared read-only between players. It's never
// mutated after construction.
type Sample struct {
	data       Float64
	sampleRate float64
}

// NewSample takes ownership of data. Callers must not mutate data after
// this call.
func NewSample(data Float64, sampleRate float64) *Sample {
	return &Sample{data: data, sampleRate: sampleRate}
}

// Channels returns the number of channels.
func (s *Sample) Channels() int {
	return s.data.NumChannels()
}

// Len returns the number of samples per channel.
func (s *Sample) Len() int {
	return s.data.Size()
}

// SampleRate returns the sample rate the clip was recorded with.
func (s *Sample) SampleRate() float64 {
	return s.sampleRate
}

// At returns the linear interpolated value of channel ch at position pos.
// Positions outside of the clip are silent.
func (s *Sample) At(ch int, pos float64) float64 {
	if ch < 0 || ch >= len(s.data) || pos < 0 {
		return 0
	}
	data := s.data[ch]
	i := int(pos)
	if i >= len(data) {
		return 0
	}
	frac := pos - float64(i)
	if frac == 0 || i+1 >= len(data) {
		return data[i]
	}
	return data[i] + (data[i+1]-data[i])*frac
}

// Slice returns a copy of the clip from start with defined length. If
// start is out of range, nil is returned. Length is decreased till the
// end of the clip.
func (s *Sample) Slice(start, length int) *Sample {
	data := s.data.Slice(start, length)
	if data == nil {
		return nil
	}
	return NewSample(data, s.sampleRate)
}
