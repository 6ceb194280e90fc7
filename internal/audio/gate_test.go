// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"testing"
)

var (
	quietBuffer = makeBuffer(1024, 0.001)
	loudBuffer  = makeBuffer(1024, 0.8)
)

func makeBuffer(size int, amplitude float32) []float32 {
	buf := make([]float32, size)
	for i := range buf {
		buf[i] = amplitude * float32(math.Sin(2*math.Pi*float64(i)/64))
	}
	return buf
}

func TestGateEnableHotPath(t *testing.T) {
	engine := &Engine{}

	engine.EnableGate()
	engine.EnableGate() // Multiple calls should be idempotent
	if !engine.gateEnabled {
		t.Error("Gate should be enabled after EnableGate()")
	}

	engine.DisableGate()
	engine.DisableGate()
	if engine.gateEnabled {
		t.Error("Gate should be disabled after DisableGate()")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
	}

	engine := &Engine{}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.input), func(t *testing.T) {
			engine.SetGateThreshold(tt.input)
			if got := engine.GetGateThreshold(); math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("Gate threshold: got %.3f, want %.3f", got, tt.expected)
			}
		})
	}
}

func TestPeakClearsSignBit(t *testing.T) {
	tests := []struct {
		buffer []float32
		want   float32
	}{
		{nil, 0},
		{[]float32{0, 0}, 0},
		{[]float32{0.25, -0.75, 0.5}, 0.75},
		{[]float32{-1}, 1},
		{[]float32{float32(math.Copysign(0, -1))}, 0},
	}
	for _, tt := range tests {
		if got := peak(tt.buffer); got != tt.want {
			t.Errorf("peak(%v) = %f, want %f", tt.buffer, got, tt.want)
		}
	}
}

func TestGateDetectionHotPath(t *testing.T) {
	tests := []struct {
		desc          string
		buffer        []float32
		threshold     float64
		shouldTrigger bool
	}{
		{"Quiet signal/Low threshold", quietBuffer, 0.0001, true},
		{"Quiet signal/Mid threshold", quietBuffer, 0.1, false},
		{"Loud signal/Mid threshold", loudBuffer, 0.1, true},
		{"Loud signal/High threshold", loudBuffer, 0.999, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			engine := &Engine{gateEnabled: true}
			engine.SetGateThreshold(tt.threshold)

			if got := engine.gateOpen(tt.buffer); got != tt.shouldTrigger {
				t.Errorf("gateOpen = %v, want %v (peak=%f)", got, tt.shouldTrigger, peak(tt.buffer))
			}
		})
	}
}

func TestGateNoAllocsHotPath(t *testing.T) {
	engine := &Engine{gateEnabled: true, gateThreshold: 0.1}
	allocs := testing.AllocsPerRun(100, func() {
		_ = engine.gateOpen(loudBuffer)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in gate, got %.1f", allocs)
	}
}

func BenchmarkGateProcessingHotPath(b *testing.B) {
	engine := &Engine{gateEnabled: true, gateThreshold: 0.1}
	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		_ = engine.gateOpen(loudBuffer)
	}
}
