// SPDX-License-Identifier: MIT
package effect

import (
	"math"
	"testing"

	"echofx/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSampleRate = 44100
	testFrameSize  = 512
)

func newTestEcho(t *testing.T) *Echo {
	t.Helper()
	e := NewEcho(nil, true)
	require.NoError(t, e.SetFormat(FloatPCM(testSampleRate, 1)))
	return e
}

func processAll(t *testing.T, e *Echo, input []float32) []float32 {
	t.Helper()
	output := make([]float32, len(input))
	for start := 0; start < len(input); start += testFrameSize {
		end := min(start+testFrameSize, len(input))
		require.NoError(t, e.Process(input[start:end], output[start:end]))
	}
	return output
}

func TestSupportedFormats(t *testing.T) {
	e := NewEcho(nil, false)

	formats := e.SupportedFormats()
	require.Len(t, formats, 2)
	assert.Equal(t, Format{SampleRate: 44100, ChannelCount: 1, BitsPerSample: 32, Encoding: EncodingFloat}, formats[0])
	assert.Equal(t, Format{SampleRate: 48000, ChannelCount: 1, BitsPerSample: 32, Encoding: EncodingFloat}, formats[1])

	// The returned slice is a copy.
	formats[0].SampleRate = 1
	assert.Equal(t, 44100, e.SupportedFormats()[0].SampleRate)
}

func TestSetFormatRejectsUnsupported(t *testing.T) {
	tests := []struct {
		desc   string
		format Format
	}{
		{"Stereo", FloatPCM(44100, 2)},
		{"Rate 96k", FloatPCM(96000, 1)},
		{"Int encoding", Format{SampleRate: 48000, ChannelCount: 1, BitsPerSample: 32, Encoding: EncodingInt}},
		{"16 bit", Format{SampleRate: 48000, ChannelCount: 1, BitsPerSample: 16, Encoding: EncodingFloat}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			e := NewEcho(nil, true)
			err := e.SetFormat(tt.format)
			require.ErrorIs(t, err, ErrUnsupportedFormat)
			assert.Contains(t, err.Error(), tt.format.String())

			_, ok := e.Format()
			assert.False(t, ok, "rejected format must not become active")
		})
	}
}

func TestSetFormatSizesDelayLine(t *testing.T) {
	for _, rate := range []int{44100, 48000} {
		e := NewEcho(nil, true)
		require.NoError(t, e.SetFormat(FloatPCM(rate, 1)))
		require.NotNil(t, e.delay)
		assert.Equal(t, rate, e.delay.Capacity())
		assert.Equal(t, 0, e.DelayLen())

		active, ok := e.Format()
		assert.True(t, ok)
		assert.Equal(t, rate, active.SampleRate)
	}
}

func TestSetFormatWithoutDelayLine(t *testing.T) {
	e := NewEcho(nil, false)
	require.NoError(t, e.SetFormat(FloatPCM(48000, 1)))
	assert.Nil(t, e.delay)

	out := processAll(t, e, utils.GenerateSineWave(1024, 48000, 100))
	assert.Len(t, out, 1024)
	assert.Zero(t, e.DelayLen())
}

func TestProcessBeforeSetFormat(t *testing.T) {
	e := NewEcho(nil, true)
	buf := make([]float32, 16)

	require.ErrorIs(t, e.Process(buf, buf), ErrFormatNotSet)
}

func TestProcessLengthMismatch(t *testing.T) {
	e := newTestEcho(t)
	in := []float32{1, 2, 3, 4}
	out := []float32{9, 9, 9}

	err := e.Process(in, out)
	require.ErrorIs(t, err, ErrLengthMismatch)
	assert.Equal(t, []float32{9, 9, 9}, out, "output must not be touched on a precondition failure")
	assert.Zero(t, e.DelayLen())
}

func TestProcessAfterClose(t *testing.T) {
	e := newTestEcho(t)
	require.NoError(t, e.Close(CloseReasonShutdown))

	buf := make([]float32, 8)
	require.ErrorIs(t, e.Process(buf, buf), ErrClosed)
	require.ErrorIs(t, e.SetFormat(FloatPCM(testSampleRate, 1)), ErrClosed)
}

func TestProcessEmptyQuantum(t *testing.T) {
	e := newTestEcho(t)
	require.NoError(t, e.Process(nil, nil))
}

func TestImpulseResponseStart(t *testing.T) {
	e := newTestEcho(t)
	in := []float32{1, 0, 0}
	out := make([]float32, 3)
	require.NoError(t, e.Process(in, out))

	x := 1.0 / filterGain
	y0 := x
	y1 := 3*x + feedback1*y0
	y2 := 3*x + feedback1*y1 + feedback2*y0

	assert.InDelta(t, y0, out[0], 1e-12)
	assert.InDelta(t, y1, out[1], 1e-12)
	assert.InDelta(t, y2, out[2], 1e-12)
}

func TestZeroInputProducesZeroOutput(t *testing.T) {
	e := newTestEcho(t)
	processAll(t, e, utils.GenerateSineWave(4096, testSampleRate, 440))
	e.Reset()

	out := processAll(t, e, make([]float32, 2048))
	for i, v := range out {
		require.Zerof(t, v, "sample %d", i)
	}
}

func TestDeterminism(t *testing.T) {
	input := utils.GenerateComplexWave(10000, testSampleRate)

	first := processAll(t, newTestEcho(t), input)
	second := processAll(t, newTestEcho(t), input)

	assert.Equal(t, first, second)
}

func TestResetReproducesFreshOutput(t *testing.T) {
	input := utils.GenerateComplexWave(6000, testSampleRate)

	fresh := processAll(t, newTestEcho(t), input)

	e := newTestEcho(t)
	processAll(t, e, utils.GenerateSineWave(3000, testSampleRate, 1000))
	e.Reset()
	assert.Zero(t, e.DelayLen())

	active, ok := e.Format()
	require.True(t, ok, "reset must keep the active format")
	assert.Equal(t, testSampleRate, active.SampleRate)

	assert.Equal(t, fresh, processAll(t, e, input))
}

func TestSetFormatClearsHistory(t *testing.T) {
	input := utils.GenerateSineWave(2048, 48000, 220)

	fresh := NewEcho(nil, true)
	require.NoError(t, fresh.SetFormat(FloatPCM(48000, 1)))
	want := processAll(t, fresh, input)

	e := newTestEcho(t)
	processAll(t, e, utils.GenerateSineWave(2048, testSampleRate, 50))
	require.NoError(t, e.SetFormat(FloatPCM(48000, 1)))

	assert.Equal(t, want, processAll(t, e, input))
}

func TestQuantumSizeDoesNotChangeOutput(t *testing.T) {
	input := utils.GenerateComplexWave(5000, testSampleRate)

	whole := newTestEcho(t)
	wantOut := make([]float32, len(input))
	require.NoError(t, whole.Process(input, wantOut))

	chunked := newTestEcho(t)
	got := make([]float32, len(input))
	for start := 0; start < len(input); start += 37 {
		end := min(start+37, len(input))
		require.NoError(t, chunked.Process(input[start:end], got[start:end]))
	}

	assert.Equal(t, wantOut, got)
}

func TestInPlaceProcessing(t *testing.T) {
	input := utils.GenerateComplexWave(4096, testSampleRate)

	separate := processAll(t, newTestEcho(t), input)

	buf := make([]float32, len(input))
	copy(buf, input)
	e := newTestEcho(t)
	for start := 0; start < len(buf); start += testFrameSize {
		end := min(start+testFrameSize, len(buf))
		require.NoError(t, e.Process(buf[start:end], buf[start:end]))
	}

	assert.Equal(t, separate, buf)
}

func TestDCGainIsUnity(t *testing.T) {
	e := newTestEcho(t)
	input := make([]float32, 8192)
	for i := range input {
		input[i] = 1
	}

	out := processAll(t, e, input)
	assert.InDelta(t, 1.0, out[len(out)-1], 1e-3)
}

func TestLowPassAttenuatesHighFrequency(t *testing.T) {
	e := newTestEcho(t)
	out := processAll(t, e, utils.GenerateSineWave(8192, testSampleRate, 5000))

	var peak float64
	for _, v := range out[4096:] {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	assert.Less(t, peak, 0.01, "5kHz should be well outside the pass band")
}

func TestDelayLineHoldsLastSecond(t *testing.T) {
	e := newTestEcho(t)

	processAll(t, e, make([]float32, 1000))
	assert.Equal(t, 1000, e.DelayLen())

	processAll(t, e, make([]float32, testSampleRate))
	assert.Equal(t, testSampleRate, e.DelayLen(), "delay line is capped at one second")

	// Oldest retained sample is the first of the most recent second.
	input := make([]float32, testSampleRate)
	for i := range input {
		input[i] = float32(i)
	}
	processAll(t, e, input)
	oldest, err := e.delay.Remove()
	require.NoError(t, err)
	assert.Equal(t, float32(0), oldest)
}

func TestMixDefaultsAndLiveRead(t *testing.T) {
	e := NewEcho(nil, false)
	assert.Equal(t, DefaultMix, e.Mix())

	props := NewPropertySet()
	e.SetProperties(props)
	assert.Equal(t, DefaultMix, e.Mix())

	props.Set(MixKey, "loud")
	assert.Equal(t, DefaultMix, e.Mix(), "wrong type falls back to default")

	props.Set(MixKey, float32(0.2))
	assert.Equal(t, float32(0.2), e.Mix())

	props.Set(MixKey, 0.8)
	assert.Equal(t, float32(0.8), e.Mix())
}

func TestMixDoesNotAffectOutput(t *testing.T) {
	input := utils.GenerateComplexWave(4096, testSampleRate)

	props := NewPropertySet()
	e := NewEcho(props, true)
	require.NoError(t, e.SetFormat(FloatPCM(testSampleRate, 1)))

	props.Set(MixKey, float32(0.0))
	low := processAll(t, e, input)
	e.Reset()
	props.Set(MixKey, float32(1.0))
	high := processAll(t, e, input)

	assert.Equal(t, low, high)
}

func TestUsesInputFrameForOutput(t *testing.T) {
	assert.False(t, NewEcho(nil, true).UsesInputFrameForOutput())
}

func TestProcessZeroAllocs(t *testing.T) {
	props := NewPropertySet()
	props.Set(MixKey, float32(0.5))
	e := NewEcho(props, true)
	require.NoError(t, e.SetFormat(FloatPCM(testSampleRate, 1)))

	in := utils.GenerateComplexWave(testFrameSize, testSampleRate)
	out := make([]float32, testFrameSize)

	allocs := testing.AllocsPerRun(100, func() {
		_ = e.Process(in, out)
	})

	assert.Zero(t, allocs, "expected zero allocations in Process hot path")
}

func TestCloseReasonString(t *testing.T) {
	assert.Equal(t, "shutdown", CloseReasonShutdown.String())
	assert.Equal(t, "done", CloseReasonDone.String())
	assert.Equal(t, "unknown", CloseReason(99).String())
}

func BenchmarkProcess(b *testing.B) {
	e := NewEcho(NewPropertySet(), true)
	if err := e.SetFormat(FloatPCM(testSampleRate, 1)); err != nil {
		b.Fatal(err)
	}
	in := utils.GenerateComplexWave(testFrameSize, testSampleRate)
	out := make([]float32, testFrameSize)

	b.ReportAllocs()

	for b.Loop() {
		_ = e.Process(in, out)
	}
}
