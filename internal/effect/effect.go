// SPDX-License-Identifier: MIT
/*
Package effect defines the contract between a host audio engine and a
streaming effect, and implements the echo effect: a fixed-coefficient IIR
low-pass filter with a one second delay line.

Call sequence expected from the host:
- SupportedFormats, then SetFormat with one of them (control path)
- Process once per quantum (real-time path, never concurrent with control)
- Reset on seek or loop, Close on teardown (control path)

Process must never block, lock or allocate. Shared tunables reach the
effect through a PropertySet, which the real-time path reads lock-free.
*/
package effect

// CloseReason tells the effect why the host is tearing it down.
type CloseReason int

const (
	CloseReasonDone CloseReason = iota
	CloseReasonUnknownError
	CloseReasonUnsupportedFormat
	CloseReasonShutdown
)

// String returns the close reason name.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonDone:
		return "done"
	case CloseReasonUnknownError:
		return "unknown error"
	case CloseReasonUnsupportedFormat:
		return "unsupported format"
	case CloseReasonShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// StreamEffect is a stateful effect driven by a host engine one quantum at a
// time. Implementations are not safe for concurrent use; the host serializes
// control calls against Process.
type StreamEffect interface {
	// SupportedFormats lists the formats the effect accepts, in preference order.
	SupportedFormats() []Format
	// SetFormat (re)initializes the effect for f. It fails with
	// ErrUnsupportedFormat when f is not advertised.
	SetFormat(f Format) error
	// Process filters in into out. Both slices hold the same number of
	// samples and may share memory.
	Process(in, out []float32) error
	// Reset clears all signal history while keeping the negotiated format.
	Reset()
	// Close releases resources. Process fails after Close.
	Close(reason CloseReason) error
	// UsesInputFrameForOutput reports whether the effect writes in place into
	// the input buffer.
	UsesInputFrameForOutput() bool
}
