package audio

import (
	"time"

	"echofx/internal/analysis"
	applog "echofx/internal/log"
)

// DefaultPublishInterval is used when StartPublishing gets a non-positive interval.
const DefaultPublishInterval = 33 * time.Millisecond

// StatusFrame is sent once when the effect fails in the callback.
type StatusFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// StartPublishing periodically sends band energies and the output level
// through the engine's transport. Calling it again while running is a no-op.
func (e *Engine) StartPublishing(interval time.Duration) error {
	if e.transport == nil || e.pubDone != nil {
		return nil
	}
	if interval <= 0 {
		interval = DefaultPublishInterval
	}

	var bands *analysis.BandEnergyProcessor
	if e.fftProcessor != nil {
		var err error
		bands, err = analysis.NewBandEnergyProcessor(e.transport, e.fftProcessor)
		if err != nil {
			return err
		}
	}

	done := make(chan struct{})
	e.pubDone = done
	e.pubWG.Add(1)
	go e.publishLoop(interval, bands, done)
	applog.Debugf("Engine: publishing analysis every %s", interval)
	return nil
}

// StopPublishing stops the goroutine started by StartPublishing and waits for it.
func (e *Engine) StopPublishing() {
	if e.pubDone == nil {
		return
	}
	close(e.pubDone)
	e.pubWG.Wait()
	e.pubDone = nil
}

func (e *Engine) publishLoop(interval time.Duration, bands *analysis.BandEnergyProcessor, done <-chan struct{}) {
	defer e.pubWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failed := e.failed
	for {
		select {
		case <-done:
			return
		case <-failed:
			failed = nil // report once
			if err := e.transport.Send(StatusFrame{Type: "error", Error: e.Err().Error()}); err != nil {
				applog.Warnf("Engine: failed to publish status: %v", err)
			}
		case <-ticker.C:
			if bands != nil {
				bands.Process()
			}
			if err := e.transport.Send(e.meter.Level()); err != nil {
				applog.Debugf("Engine: failed to publish level: %v", err)
			}
		}
	}
}
