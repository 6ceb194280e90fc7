// SPDX-License-Identifier: MIT

// Package source decodes audio files into float32 sample streams for the
// offline renderer.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Source is a stream of interleaved float32 samples in [-1, 1].
type Source interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst and returns the number of values written (not
	// frames). io.EOF marks the end of the stream.
	ReadSamples(dst []float32) (int, error)
	Close() error
}

// Rewinder is implemented by sources that can restart from the beginning.
type Rewinder interface {
	Rewind() error
}

// Decoder constructs a Source from a seekable reader.
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

// Registry maps lower-case file extensions (".wav") to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// Register adds or replaces the decoder for ext.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[normalizeExt(ext)] = d
}

func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Open decodes the file at path using the decoder registered for its
// extension. Closing the returned Source closes the file.
func (r *Registry) Open(path string) (Source, error) {
	ext := filepath.Ext(path)
	dec, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &fileSource{Source: src, file: f, dec: dec}, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the shared registry with every built-in decoder.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		r.Register(".wav", WAVDecoder{})
		r.Register(".aiff", AIFFDecoder{})
		r.Register(".aif", AIFFDecoder{})
		r.Register(".mp3", MP3Decoder{})
		r.Register(".ogg", VorbisDecoder{})
		defaultRegistry = r
	})
	return defaultRegistry
}

// Open is DefaultRegistry().Open(path).
func Open(path string) (Source, error) {
	return DefaultRegistry().Open(path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

type fileSource struct {
	Source
	file *os.File
	dec  Decoder
}

// Rewind seeks the file back to the start and decodes it again.
func (s *fileSource) Rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", s.file.Name(), err)
	}
	src, err := s.dec.Decode(s.file)
	if err != nil {
		return fmt.Errorf("rewind %s: %w", s.file.Name(), err)
	}
	s.Source.Close()
	s.Source = src
	return nil
}

func (s *fileSource) Close() error {
	srcErr := s.Source.Close()
	fileErr := s.file.Close()
	if srcErr != nil {
		return srcErr
	}
	return fileErr
}
