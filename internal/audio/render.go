package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	applog "echofx/internal/log"
	"echofx/internal/source"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const renderBitDepth = 16

var ErrRateMismatch = errors.New("source sample rate does not match the negotiated format")

// RenderStats summarises an offline render.
type RenderStats struct {
	Frames int     // Output frames written.
	Quanta int     // Process calls.
	Loops  int     // Completed passes over the source.
	Peak   float64 // Absolute output peak.
}

// Render runs src through the effect and writes 16-bit PCM WAV to w.
// The source is played loops times (at least once); the effect is reset
// before every pass after the first. Cancellation is checked between
// quanta.
func (e *Engine) Render(ctx context.Context, src source.Source, w io.WriteSeeker, loops int) (RenderStats, error) {
	var stats RenderStats
	if !e.ready {
		return stats, ErrNotNegotiated
	}
	if src.SampleRate() != e.format.SampleRate {
		return stats, fmt.Errorf("%w: %d Hz, want %d Hz", ErrRateMismatch, src.SampleRate(), e.format.SampleRate)
	}
	if src.Channels() != 1 {
		src = source.NewMonoMixer(src)
	}
	if loops < 1 {
		loops = 1
	}
	rewinder, canRewind := src.(source.Rewinder)
	if loops > 1 && !canRewind {
		return stats, source.ErrNotRewindable
	}

	frames := e.config.Audio.FramesPerBuffer
	in := make([]float32, frames)
	out := make([]float32, frames)
	scale := float64(int64(1)<<(renderBitDepth-1) - 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: e.format.SampleRate},
		Data:           make([]int, frames),
		SourceBitDepth: renderBitDepth,
	}
	enc := wav.NewEncoder(w, e.format.SampleRate, renderBitDepth, 1, 1)

	err := func() error {
		for pass := range loops {
			if pass > 0 {
				if err := rewinder.Rewind(); err != nil {
					return err
				}
				e.fx.Reset()
			}

			for {
				if err := ctx.Err(); err != nil {
					return err
				}

				n, readErr := src.ReadSamples(in)
				if n > 0 {
					if err := e.processQuantum(in[:n], out[:n]); err != nil {
						return err
					}
					stats.Quanta++
					stats.Frames += n
					stats.Peak = max(stats.Peak, float64(peak(out[:n])))

					buf.Data = buf.Data[:n]
					floatToInt(buf.Data, out[:n], scale)
					if err := enc.Write(buf); err != nil {
						return fmt.Errorf("failed to write output: %w", err)
					}
				}
				if errors.Is(readErr, io.EOF) || (n == 0 && readErr == nil) {
					break
				}
				if readErr != nil {
					return fmt.Errorf("failed to read source: %w", readErr)
				}
			}
			stats.Loops++
		}
		return nil
	}()

	if closeErr := enc.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to finalise output: %w", closeErr)
	}
	applog.Infof("Engine: rendered %d frames in %d quanta over %d loop(s), peak %.3f",
		stats.Frames, stats.Quanta, stats.Loops, stats.Peak)
	return stats, err
}
