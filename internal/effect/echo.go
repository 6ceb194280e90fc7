// SPDX-License-Identifier: MIT
package effect

import (
	"fmt"

	"echofx/pkg/ringbuffer"
)

const (
	// MixKey is the property read for the dry/wet mix.
	MixKey = "Mix"
	// DefaultMix is used when the property is absent or not a float.
	DefaultMix float32 = 0.5
)

// Echo is the echo effect: every sample runs through a low-pass IIR filter
// while the dry input is kept in a one second delay line.
type Echo struct {
	formats   []Format
	active    Format
	formatSet bool
	closed    bool

	filter lowPass

	props *PropertySet

	useDelay bool
	delay    *ringbuffer.RingBuffer
}

// Compile-time check that Echo satisfies the host contract.
var _ StreamEffect = (*Echo)(nil)

// NewEcho creates an echo effect supporting 44.1kHz and 48kHz mono float.
// props may be nil, in which case Mix always reports DefaultMix. When
// delayLine is set, a one second delay line is allocated on SetFormat.
func NewEcho(props *PropertySet, delayLine bool) *Echo {
	return &Echo{
		formats: []Format{
			FloatPCM(44100, 1),
			FloatPCM(48000, 1),
		},
		props:    props,
		useDelay: delayLine,
	}
}

// SupportedFormats returns a copy of the advertised formats.
func (e *Echo) SupportedFormats() []Format {
	formats := make([]Format, len(e.formats))
	copy(formats, e.formats)
	return formats
}

// SetFormat negotiates f and reinitializes all signal state.
func (e *Echo) SetFormat(f Format) error {
	if e.closed {
		return ErrClosed
	}
	if !Supports(e.formats, f) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	e.active = f
	e.formatSet = true
	e.filter.reset()

	if e.useDelay {
		// Exactly one second of history at the negotiated rate.
		e.delay = ringbuffer.New(f.SampleRate)
	}

	return nil
}

// Format returns the negotiated format and whether one is set.
func (e *Echo) Format() (Format, bool) {
	return e.active, e.formatSet
}

// SetProperties hands the effect the shared property set.
func (e *Echo) SetProperties(props *PropertySet) {
	e.props = props
}

// Mix reads the current mix from the property set. It is not cached.
func (e *Echo) Mix() float32 {
	return e.props.Float(MixKey, DefaultMix)
}

// UsesInputFrameForOutput is false: Echo writes a separate output buffer.
func (e *Echo) UsesInputFrameForOutput() bool {
	return false
}

// Process filters one quantum. in and out must have the same length and may
// alias; each input sample is read before its output slot is written.
func (e *Echo) Process(in, out []float32) error {
	if e.closed {
		return ErrClosed
	}
	if !e.formatSet {
		return ErrFormatNotSet
	}
	if len(in) != len(out) {
		return fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(in), len(out))
	}

	mix := e.Mix()

	for i := range in {
		dry := in[i]
		if err := e.pushDelay(dry); err != nil {
			return err
		}
		out[i] = applyMix(e.filter.step(dry), dry, mix)
	}

	return nil
}

// DelayLen returns the number of samples held by the delay line.
func (e *Echo) DelayLen() int {
	if e.delay == nil {
		return 0
	}
	return e.delay.Count()
}

// Reset clears filter history and the delay line. The format is kept.
func (e *Echo) Reset() {
	e.filter.reset()
	if e.delay != nil {
		e.delay.Reset()
	}
}

// Close releases the delay line. Process fails afterwards.
func (e *Echo) Close(reason CloseReason) error {
	e.closed = true
	e.delay = nil
	return nil
}

// pushDelay appends dry to the delay line, dropping the oldest sample once
// a full second is buffered.
func (e *Echo) pushDelay(dry float32) error {
	if e.delay == nil {
		return nil
	}
	if e.delay.Count() == e.delay.Capacity() {
		if _, err := e.delay.Remove(); err != nil {
			return err
		}
	}
	return e.delay.Add(dry)
}

// applyMix is where a dry/wet blend would go. The mix is read but not
// applied; the effect outputs the filtered signal only.
func applyMix(wet, dry, mix float32) float32 {
	return wet
}
