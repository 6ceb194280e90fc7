package source

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

// pcmReader is the shared surface of the go-audio wav and aiff decoders.
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// intSource converts go-audio integer PCM to float32.
type intSource struct {
	dec        pcmReader
	sampleRate int
	channels   int
	scale      float32
	buf        *goaudio.IntBuffer
}

func newIntSource(dec pcmReader, format *goaudio.Format, bitDepth int) (*intSource, error) {
	if format == nil || format.NumChannels <= 0 {
		return nil, ErrNoChannels
	}
	scale, err := fullScale(bitDepth)
	if err != nil {
		return nil, err
	}
	return &intSource{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      scale,
		buf:        &goaudio.IntBuffer{Format: format, Data: make([]int, 4096), SourceBitDepth: bitDepth},
	}, nil
}

func (s *intSource) SampleRate() int { return s.sampleRate }
func (s *intSource) Channels() int   { return s.channels }
func (s *intSource) Close() error    { return nil }

func (s *intSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("read PCM: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	inv := 1 / s.scale
	for i := range n {
		dst[i] = float32(s.buf.Data[i]) * inv
	}
	return n, nil
}

// fullScale is the magnitude of the most negative value at bitDepth.
func fullScale(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 128, nil
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedDepth, bitDepth)
	}
}
