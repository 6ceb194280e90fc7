// SPDX-License-Identifier: MIT
package effect

import "fmt"

// Encoding is the sample encoding of a stream.
type Encoding int

const (
	EncodingInt Encoding = iota
	EncodingFloat
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingInt:
		return "int"
	case EncodingFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Format describes a PCM stream as negotiated between the host and an effect.
type Format struct {
	SampleRate    int
	ChannelCount  int
	BitsPerSample int
	Encoding      Encoding
}

// FloatPCM returns a 32-bit float PCM format.
func FloatPCM(sampleRate, channels int) Format {
	return Format{
		SampleRate:    sampleRate,
		ChannelCount:  channels,
		BitsPerSample: 32,
		Encoding:      EncodingFloat,
	}
}

// String renders the format as "48000Hz/1ch/32-bit float".
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%d-bit %s", f.SampleRate, f.ChannelCount, f.BitsPerSample, f.Encoding)
}

// Supports reports whether f is one of formats.
func Supports(formats []Format, f Format) bool {
	for _, candidate := range formats {
		if candidate == f {
			return true
		}
	}
	return false
}
