package source

import "io"

// SliceSource serves samples from memory. Rewind restarts it.
type SliceSource struct {
	samples    []float32
	sampleRate int
	channels   int
	pos        int
}

func NewSliceSource(samples []float32, sampleRate, channels int) *SliceSource {
	if channels <= 0 {
		channels = 1
	}
	return &SliceSource{samples: samples, sampleRate: sampleRate, channels: channels}
}

func (s *SliceSource) SampleRate() int { return s.sampleRate }
func (s *SliceSource) Channels() int   { return s.channels }
func (s *SliceSource) Close() error    { return nil }

func (s *SliceSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

// Rewind restarts playback from the first sample.
func (s *SliceSource) Rewind() error {
	s.pos = 0
	return nil
}
