package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"echofx/internal/config"
	applog "echofx/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StartRecording writes the processed output to a WAV file at the
// configured bit depth (16 or 32).
func (e *Engine) StartRecording(filename string) error {
	if !e.ready {
		return ErrNotNegotiated
	}
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return ErrAlreadyRecording
	}

	bitDepth := e.config.Recording.BitDepth
	if bitDepth == 0 {
		bitDepth = config.DefaultBitDepth
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}

	e.recMu.Lock()
	e.outputFile = file
	e.wavEncoder = wav.NewEncoder(file, e.format.SampleRate, bitDepth, e.format.ChannelCount, 1)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.format.ChannelCount,
			SampleRate:  e.format.SampleRate,
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer*e.format.ChannelCount),
		SourceBitDepth: bitDepth,
	}
	e.sampleScale = float64(int64(1)<<(bitDepth-1) - 1)
	e.recMu.Unlock()

	atomic.StoreInt32(&e.isRecording, 1)
	applog.Infof("Engine: recording to %s (%d-bit)", filename, bitDepth)

	return nil
}

// StopRecording finalises the file. It also reports a write error that
// stopped the recording early.
func (e *Engine) StopRecording() error {
	atomic.StoreInt32(&e.isRecording, 0)

	// Waits for an in-flight callback write to finish.
	e.recMu.Lock()
	defer e.recMu.Unlock()

	var writeErr error
	if p := e.recErr.Swap(nil); p != nil {
		writeErr = *p
	}

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return errors.Join(writeErr, err)
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return errors.Join(writeErr, err)
		}
		e.outputFile = nil
	}

	return writeErr
}

// IsRecording reports whether output is being captured.
func (e *Engine) IsRecording() bool {
	return atomic.LoadInt32(&e.isRecording) == 1
}

// writeRecording runs on the audio callback. A quantum is dropped rather
// than waiting for StopRecording.
func (e *Engine) writeRecording(out []float32) {
	if atomic.LoadInt32(&e.isRecording) == 0 || !e.recMu.TryLock() {
		return
	}
	defer e.recMu.Unlock()
	if e.wavEncoder == nil {
		return
	}

	if cap(e.sampleBuf.Data) < len(out) {
		// Host delivered a larger quantum than configured.
		e.sampleBuf.Data = make([]int, len(out))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(out)]
	floatToInt(e.sampleBuf.Data, out, e.sampleScale)

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		// Recording stops; audio keeps flowing.
		err = fmt.Errorf("recording: %w", err)
		e.recErr.Store(&err)
		atomic.StoreInt32(&e.isRecording, 0)
	}
}

// floatToInt scales samples in [-1, 1] to integers, clamping overs.
func floatToInt(dst []int, src []float32, scale float64) {
	for i, s := range src {
		v := math.Round(float64(s) * scale)
		v = min(max(v, -scale-1), scale)
		dst[i] = int(v)
	}
}
