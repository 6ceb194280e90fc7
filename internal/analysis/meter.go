// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync/atomic"
)

// Meter tracks peak and RMS of the most recent quantum. The audio callback
// writes; any goroutine may read a Level snapshot.
type Meter struct {
	peak atomic.Uint64 // math.Float64bits
	rms  atomic.Uint64
}

// Level is a meter reading.
type Level struct {
	Type string  `json:"type"`
	Peak float64 `json:"peak"`
	RMS  float64 `json:"rms"`
}

var _ AudioProcessor = (*Meter)(nil)

// Process measures buffer.
func (m *Meter) Process(buffer []float32) {
	peak, rms := Measure(buffer)
	m.peak.Store(math.Float64bits(peak))
	m.rms.Store(math.Float64bits(rms))
}

// Level returns the latest reading.
func (m *Meter) Level() Level {
	return Level{
		Type: "level",
		Peak: math.Float64frombits(m.peak.Load()),
		RMS:  math.Float64frombits(m.rms.Load()),
	}
}

// Measure returns the absolute peak and RMS of buffer.
func Measure(buffer []float32) (peak, rms float64) {
	if len(buffer) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range buffer {
		v := float64(s)
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak, math.Sqrt(sum / float64(len(buffer)))
}
