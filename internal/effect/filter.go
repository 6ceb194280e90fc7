// SPDX-License-Identifier: MIT
package effect

// Third-order Butterworth low-pass. GAIN normalizes the pass band to unity
// for the fixed feed-forward (1, 3, 3, 1) and feedback taps below.
const (
	filterGain = 5.631380800e+06

	feedback3 = 0.9859857072
	feedback2 = -2.9717213683
	feedback1 = 2.9857342405

	// MemoryLength is the size of each history window.
	MemoryLength = 5
)

// lowPass holds the input and output history of the filter. The newest
// sample lives at index newest; older samples sit at lower indices.
type lowPass struct {
	x [MemoryLength]float64
	y [MemoryLength]float64
}

const newest = 3

// step pushes one input sample through the filter and returns the output.
func (f *lowPass) step(in float32) float32 {
	x, y := &f.x, &f.y

	x[0], x[1], x[2] = x[1], x[2], x[3]
	x[newest] = float64(in) / filterGain

	y[0], y[1], y[2] = y[1], y[2], y[3]
	y[newest] = (x[0] + x[3]) + 3*(x[1]+x[2]) +
		feedback3*y[0] + feedback2*y[1] + feedback1*y[2]

	return float32(y[newest])
}

// reset zeroes both windows.
func (f *lowPass) reset() {
	f.x = [MemoryLength]float64{}
	f.y = [MemoryLength]float64{}
}
