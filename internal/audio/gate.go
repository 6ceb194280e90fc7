// SPDX-License-Identifier: MIT
package audio

import "math"

const signMask = 1 << 31

func (e *Engine) EnableGate() {
	e.gateEnabled = true
}

func (e *Engine) DisableGate() {
	e.gateEnabled = false
}

// SetGateThreshold adjusts the analysis gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	e.gateThreshold = float32(threshold)
}

// GetGateThreshold returns the current gate threshold as a float64.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.gateThreshold)
}

// gateOpen reports whether the peak of buffer exceeds the threshold.
// The absolute value clears the IEEE sign bit instead of branching.
func (e *Engine) gateOpen(buffer []float32) bool {
	return peak(buffer) > e.gateThreshold
}

func peak(buffer []float32) float32 {
	var maxAmplitude float32
	for _, sample := range buffer {
		amplitude := math.Float32frombits(math.Float32bits(sample) &^ signMask)
		maxAmplitude = max(maxAmplitude, amplitude)
	}
	return maxAmplitude
}
