// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	applog "echofx/internal/log"
)

const headerSize = 4 + 8 + 2

var (
	ErrNilSender   = errors.New("UDP sender cannot be nil")
	ErrNilSpectrum = errors.New("spectrum source cannot be nil")
	ErrShortPacket = errors.New("packet too short")
)

// SpectrumSource is what the publisher reads magnitudes from.
type SpectrumSource interface {
	GetMagnitudesInto(dest []float64) error
	GetFFTSize() int
}

// PacketSender transmits one encoded packet.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher periodically snapshots a spectrum and sends it as one binary
// packet per tick. Start and Stop may be called repeatedly.
type Publisher struct {
	sender   PacketSender
	spectrum SpectrumSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan.

	sequenceNum uint32

	// Reused on every tick.
	magBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher. A non-positive interval defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender PacketSender, spectrum SpectrumSource) (*Publisher, error) {
	if sender == nil {
		return nil, ErrNilSender
	}
	if spectrum == nil {
		return nil, ErrNilSpectrum
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	bins := spectrum.GetFFTSize()/2 + 1
	applog.Infof("UDPPublisher: Initializing (Interval: %s, FFT Bins: %d)", interval, bins)

	return &Publisher{
		sender:       sender,
		spectrum:     spectrum,
		interval:     interval,
		magBuffer:    make([]float64, bins),
		f32Buffer:    make([]float32, bins),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker != nil {
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, done := p.ticker, p.doneChan

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				if err := p.publish(); err != nil {
					applog.Debugf("UDPPublisher: %v", err)
				}
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it. Calling Stop while stopped is a no-op.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error {
	return p.Stop()
}

/*
Packet layout (BigEndian):

	|<-- 4 bytes -->|<-- 8 bytes -->|<-- 2 bytes -->|<-- N * 4 bytes -->|
	| sequence      | timestamp ns  | count N       | magnitudes        |
	| uint32        | int64         | uint16        | []float32         |
*/

// publish snapshots the spectrum and sends one packet.
func (p *Publisher) publish() error {
	if err := p.spectrum.GetMagnitudesInto(p.magBuffer); err != nil {
		return fmt.Errorf("error getting magnitudes: %w", err)
	}
	for i, v := range p.magBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	if err := EncodePacket(p.packetBuffer, p.sequenceNum, time.Now().UnixNano(), p.f32Buffer); err != nil {
		return err
	}
	return p.sender.Send(p.packetBuffer.Bytes())
}

// EncodePacket writes one spectrum packet to w.
func EncodePacket(w io.Writer, seq uint32, timestamp int64, magnitudes []float32) error {
	if len(magnitudes) > math.MaxUint16 {
		return fmt.Errorf("too many magnitudes for one packet: %d", len(magnitudes))
	}

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:4], seq)
	binary.BigEndian.PutUint64(header[4:12], uint64(timestamp))
	binary.BigEndian.PutUint16(header[12:14], uint16(len(magnitudes)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("error packing header: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, magnitudes); err != nil {
		return fmt.Errorf("error packing magnitudes: %w", err)
	}
	return nil
}

// Packet is a decoded spectrum packet.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Magnitudes []float32
}

// DecodePacket parses a packet produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, ErrShortPacket
	}
	count := int(binary.BigEndian.Uint16(data[12:14]))
	if len(data) < headerSize+count*4 {
		return Packet{}, ErrShortPacket
	}

	pkt := Packet{
		Sequence:   binary.BigEndian.Uint32(data[0:4]),
		Timestamp:  int64(binary.BigEndian.Uint64(data[4:12])),
		Magnitudes: make([]float32, count),
	}
	for i := range count {
		off := headerSize + i*4
		pkt.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(data[off : off+4]))
	}
	return pkt, nil
}
