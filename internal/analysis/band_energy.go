package analysis

import (
	"errors"
	"math"

	applog "echofx/internal/log"
	"echofx/internal/transport"
)

var ErrNilProvider = errors.New("band energy requires a non-nil FFTResultProvider")

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name    string
	LowHz   float64
	HighHz  float64
	Energy  float64 // Energy for the current frame.
	numBins int
}

// BandEnergyFrame is the message sent for each analysed frame.
type BandEnergyFrame struct {
	Type  string             `json:"type"`
	Bands map[string]float64 `json:"bands"`
}

// BandEnergyProcessor reduces an FFT spectrum to a handful of named bands
// and sends them through a transport. It runs on the publishing goroutine,
// not in the audio callback.
type BandEnergyProcessor struct {
	transport   transport.Transport
	bands       []*FrequencyBand
	fftProvider FFTResultProvider
}

// NewBandEnergyProcessor creates the processor with the default bands.
func NewBandEnergyProcessor(t transport.Transport, fftProvider FFTResultProvider) (*BandEnergyProcessor, error) {
	if fftProvider == nil {
		return nil, ErrNilProvider
	}

	nyquist := fftProvider.GetSampleRate() / 2
	bands := []*FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: nyquist},
	}
	applog.Debugf("Analysis: Initializing BandEnergyProcessor with %d bands.", len(bands))

	return &BandEnergyProcessor{
		transport:   t,
		bands:       bands,
		fftProvider: fftProvider,
	}, nil
}

// Bands returns the configured bands with their last computed energies.
func (p *BandEnergyProcessor) Bands() []FrequencyBand {
	out := make([]FrequencyBand, len(p.bands))
	for i, b := range p.bands {
		out[i] = *b
	}
	return out
}

// Process computes band energies from the latest spectrum and sends them.
func (p *BandEnergyProcessor) Process() BandEnergyFrame {
	magnitudes := p.fftProvider.GetMagnitudes()

	for _, band := range p.bands {
		band.Energy = 0
		band.numBins = 0
	}

	for i, mag := range magnitudes {
		freq := p.fftProvider.GetFrequencyForBin(i)
		for _, band := range p.bands {
			if freq >= band.LowHz && freq < band.HighHz {
				band.Energy += mag * mag
				band.numBins++
				break
			}
		}
	}

	frame := BandEnergyFrame{Type: "band_energy", Bands: make(map[string]float64, len(p.bands))}
	for _, band := range p.bands {
		avg := 0.0
		if band.numBins > 0 {
			avg = band.Energy / float64(band.numBins)
		}
		frame.Bands[band.Name] = math.Min(1.0, math.Sqrt(avg)*50.0)
	}

	if p.transport != nil {
		if err := p.transport.Send(frame); err != nil {
			applog.Warnf("BandEnergyProcessor: Error sending band energy data: %v", err)
		}
	}
	return frame
}
