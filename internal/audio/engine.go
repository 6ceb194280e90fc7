// SPDX-License-Identifier: MIT
/*
Package audio hosts a StreamEffect, either live on a PortAudio duplex
stream or offline over a decoded file.

Thread Safety:
- The audio callback never blocks, locks or allocates on the success path
- Failures in the callback are reported through atomics and a channel
- SetFormat, Reset and Close on the effect only run while the stream is stopped
- Locks OS thread during audio processing
*/
package audio

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"echofx/internal/analysis"
	"echofx/internal/config"
	"echofx/internal/effect"
	applog "echofx/internal/log"
	"echofx/internal/transport"
	"echofx/pkg/bitint"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

var (
	ErrNilEffect        = errors.New("engine requires an effect")
	ErrNilConfig        = errors.New("engine requires a configuration")
	ErrNotNegotiated    = errors.New("format has not been negotiated")
	ErrStreamRunning    = errors.New("stream already running")
	ErrAlreadyRecording = errors.New("already recording")
)

// Option configures an Engine.
type Option func(*Engine)

// WithTransport sets where analysis frames are published. The engine
// closes it on Close.
func WithTransport(t transport.Transport) Option {
	return func(e *Engine) { e.transport = t }
}

// WithFFT replaces the spectrum analyser built from the configuration.
func WithFFT(p *analysis.FFTProcessor) Option {
	return func(e *Engine) { e.fftProcessor = p }
}

type Engine struct {
	// Core configuration and state.
	config *config.Config
	fx     effect.StreamEffect
	format effect.Format
	ready  bool // format negotiated

	// Device stream, owned by the control path.
	stream *portaudio.Stream

	// Set once by the callback when the effect fails.
	failErr  atomic.Pointer[error]
	failed   chan struct{}
	failOnce sync.Once

	// Analysis of the processed output.
	fftProcessor *analysis.FFTProcessor
	meter        analysis.Meter
	transport    transport.Transport
	pubDone      chan struct{}
	pubWG        sync.WaitGroup

	// Noise gate for analysis.
	gateEnabled   bool
	gateThreshold float32 // Peak amplitude threshold, 0..1.

	// Recording state and buffers.
	isRecording int32      // Atomic flag for thread-safe state
	recMu       sync.Mutex // Held by the callback while writing; TryLock only there.
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	sampleScale float64
	recErr      atomic.Pointer[error]
}

// NewEngine builds an engine around fx. No device is touched until
// StartStream.
func NewEngine(cfg *config.Config, fx effect.StreamEffect, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if fx == nil {
		return nil, ErrNilEffect
	}

	e := &Engine{
		config:        cfg,
		fx:            fx,
		failed:        make(chan struct{}),
		gateEnabled:   true,
		gateThreshold: float32(cfg.Analysis.GateThreshold),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.fftProcessor == nil && cfg.Analysis.Enabled {
		window, err := analysis.ParseWindowFunc(cfg.Analysis.FFTWindow)
		if err != nil {
			return nil, err
		}
		size := bitint.NextPowerOfTwo(cfg.Audio.FramesPerBuffer)
		e.fftProcessor, err = analysis.NewFFTProcessor(size, cfg.Audio.SampleRate, window)
		if err != nil {
			return nil, fmt.Errorf("failed to create spectrum analyser: %w", err)
		}
	}

	return e, nil
}

// Negotiate asks the effect to accept the configured rate as mono 32-bit
// float. A rejection is returned as is.
func (e *Engine) Negotiate() (effect.Format, error) {
	want := effect.FloatPCM(int(e.config.Audio.SampleRate), 1)
	for _, f := range e.fx.SupportedFormats() {
		applog.Debugf("Engine: effect supports %s", f)
	}

	if err := e.fx.SetFormat(want); err != nil {
		e.ready = false
		return effect.Format{}, err
	}
	e.format = want
	e.ready = true
	applog.Infof("Engine: negotiated %s", want)
	return want, nil
}

// Format returns the negotiated format.
func (e *Engine) Format() (effect.Format, bool) {
	return e.format, e.ready
}

// Effect returns the hosted effect.
func (e *Engine) Effect() effect.StreamEffect {
	return e.fx
}

// Failed is closed when the effect fails inside the audio callback.
func (e *Engine) Failed() <-chan struct{} {
	return e.failed
}

// Err returns the error that failed the engine, if any.
func (e *Engine) Err() error {
	if p := e.failErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Level returns the meter reading of the latest processed quantum.
func (e *Engine) Level() analysis.Level {
	return e.meter.Level()
}

// Spectrum returns the analyser, nil when analysis is disabled.
func (e *Engine) Spectrum() *analysis.FFTProcessor {
	return e.fftProcessor
}

func (e *Engine) StartStream() error {
	if !e.ready {
		return ErrNotNegotiated
	}
	if e.stream != nil {
		return ErrStreamRunning
	}

	inputDevice, err := InputDevice(e.config.Audio.InputDevice)
	if err != nil {
		return err
	}
	outputDevice, err := OutputDevice(e.config.Audio.OutputDevice)
	if err != nil {
		return err
	}

	inputLatency, outputLatency := inputDevice.DefaultHighInputLatency, outputDevice.DefaultHighOutputLatency
	if e.config.Audio.LowLatency {
		inputLatency, outputLatency = inputDevice.DefaultLowInputLatency, outputDevice.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.format.ChannelCount,
			Device:   inputDevice,
			Latency:  inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: e.format.ChannelCount,
			Device:   outputDevice,
			Latency:  outputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      float64(e.format.SampleRate),
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}
	e.stream = stream

	applog.Infof("Engine: streaming %s -> %s (%d frames, %s in / %s out)",
		inputDevice.Name, outputDevice.Name, params.FramesPerBuffer,
		inputLatency.Round(time.Microsecond), outputLatency.Round(time.Microsecond))
	return nil
}

func (e *Engine) StopStream() error {
	if e.stream == nil {
		return nil
	}
	stream := e.stream
	e.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

// Reset quiesces the stream, clears the effect's state and resumes.
func (e *Engine) Reset() error {
	running := e.stream != nil
	if err := e.StopStream(); err != nil {
		return err
	}

	e.fx.Reset()
	applog.Debugf("Engine: effect reset")

	if running {
		return e.StartStream()
	}
	return nil
}

// Close stops everything and closes the effect for shutdown.
func (e *Engine) Close() error {
	var errs []error
	errs = append(errs, e.StopRecording())
	errs = append(errs, e.StopStream())
	e.StopPublishing()

	if e.transport != nil {
		errs = append(errs, e.transport.Close())
	}
	if e.fftProcessor != nil {
		errs = append(errs, e.fftProcessor.Close())
	}

	reason := effect.CloseReasonShutdown
	if e.Err() != nil {
		reason = effect.CloseReasonUnknownError
	}
	errs = append(errs, e.fx.Close(reason))
	return errors.Join(errs...)
}

// processStream is the duplex callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processStream(in, out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if e.failErr.Load() != nil {
		clear(out)
		return
	}
	if err := e.processQuantum(in, out); err != nil {
		clear(out)
		e.fail(err)
	}
}

// processQuantum runs the effect and feeds every consumer of its output.
func (e *Engine) processQuantum(in, out []float32) error {
	if err := e.fx.Process(in, out); err != nil {
		return err
	}

	e.meter.Process(out)
	e.writeRecording(out)

	if e.fftProcessor != nil && (!e.gateEnabled || e.gateOpen(out)) {
		e.fftProcessor.Process(out)
	}
	return nil
}

func (e *Engine) fail(err error) {
	if e.failErr.CompareAndSwap(nil, &err) {
		e.failOnce.Do(func() { close(e.failed) })
	}
}
