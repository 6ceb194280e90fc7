// SPDX-License-Identifier: MIT
package analysis

// AudioProcessor is implemented by components that inspect processed audio
// quanta. Process is called from the real-time callback and must not block
// or allocate.
type AudioProcessor interface {
	Process(buffer []float32)
}

// ClosableProcessor combines AudioProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	AudioProcessor
	Close() error
}

// FFTResultProvider decouples consumers such as BandEnergyProcessor from the
// FFT implementation.
type FFTResultProvider interface {
	GetMagnitudes() []float64                // Copy of the latest magnitude spectrum.
	GetFrequencyForBin(binIndex int) float64 // Center frequency (Hz) of a bin.
	GetFFTSize() int
	GetSampleRate() float64
}
