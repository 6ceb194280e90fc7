package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"echofx/pkg/utils"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance16 = 1.0 / 32768

func readAll(t *testing.T, src Source, chunk int) []float32 {
	t.Helper()
	var out []float32
	buf := make([]float32, chunk)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		if n == 0 {
			return out
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("WAV", WAVDecoder{})
	r.Register(".ogg", VorbisDecoder{})

	_, ok := r.Get(".wav")
	assert.True(t, ok)
	_, ok = r.Get("wav")
	assert.True(t, ok)
	_, ok = r.Get(".flac")
	assert.False(t, ok)

	assert.Equal(t, []string{".ogg", ".wav"}, r.Extensions())
}

func TestDefaultRegistryExtensions(t *testing.T) {
	assert.Equal(t,
		[]string{".aif", ".aiff", ".mp3", ".ogg", ".wav"},
		DefaultRegistry().Extensions())
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestOpenUnknownFormat(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "track.flac"))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpenWAVMono(t *testing.T) {
	samples := utils.GenerateSineWave(1000, 44100, 440)
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, utils.WriteWAV16(path, 44100, 1, samples))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	got := readAll(t, src, 256)
	require.Len(t, got, len(samples))
	for i := range samples {
		assert.InDelta(t, samples[i], got[i], tolerance16, "sample %d", i)
	}
}

func TestOpenWAVStereoThroughMonoMixer(t *testing.T) {
	frames := 300
	interleaved := make([]float32, frames*2)
	for i := range frames {
		interleaved[2*i] = 0.5
		interleaved[2*i+1] = -0.25
	}
	path := filepath.Join(t.TempDir(), "stereo.wav")
	require.NoError(t, utils.WriteWAV16(path, 48000, 2, interleaved))

	src, err := Open(path)
	require.NoError(t, err)
	mono := NewMonoMixer(src)
	defer mono.Close()

	assert.Equal(t, 2, src.Channels())
	assert.Equal(t, 1, mono.Channels())
	assert.Equal(t, 48000, mono.SampleRate())

	got := readAll(t, mono, 64)
	require.Len(t, got, frames)
	for _, v := range got {
		assert.InDelta(t, 0.125, v, 2*tolerance16)
	}
}

func TestFileSourceRewind(t *testing.T) {
	samples := []float32{0.25, -0.25, 0.5}
	path := filepath.Join(t.TempDir(), "short.wav")
	require.NoError(t, utils.WriteWAV16(path, 44100, 1, samples))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	first := readAll(t, src, 2)
	require.Len(t, first, 3)

	rw, ok := src.(Rewinder)
	require.True(t, ok)
	require.NoError(t, rw.Rewind())
	assert.Equal(t, first, readAll(t, src, 2))
}

func TestMonoMixerRewind(t *testing.T) {
	mono := NewMonoMixer(NewSliceSource([]float32{1, 1}, 44100, 2))
	assert.Equal(t, []float32{1}, readAll(t, mono, 4))
	require.NoError(t, mono.Rewind())
	assert.Equal(t, []float32{1}, readAll(t, mono, 4))

	stub := NewMonoMixer(&vorbisSource{dec: &fakeOgg{channels: 2}})
	require.ErrorIs(t, stub.Rewind(), ErrNotRewindable)
}

func TestWAVDecoderRejectsGarbage(t *testing.T) {
	_, err := WAVDecoder{}.Decode(bytes.NewReader([]byte("definitely not a riff header")))
	require.Error(t, err)
}

func TestAIFFRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.aiff")
	f, err := os.Create(path)
	require.NoError(t, err)

	data := []int{0, 16384, -16384, 32767, -32768, 100}
	enc := aiff.NewEncoder(f, 44100, 16, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 44100, src.SampleRate())
	got := readAll(t, src, 4)
	require.Len(t, got, len(data))
	for i, v := range data {
		assert.InDelta(t, float32(v)/32768, got[i], 1e-6)
	}
}

func TestFullScale(t *testing.T) {
	for depth, want := range map[int]float32{8: 128, 16: 32768, 24: 8388608, 32: 2147483648} {
		got, err := fullScale(depth)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := fullScale(12)
	require.ErrorIs(t, err, ErrUnsupportedDepth)
}

type fakeMP3 struct {
	r    *bytes.Reader
	rate int
}

func (f *fakeMP3) Read(p []byte) (int, error) { return f.r.Read(p) }
func (f *fakeMP3) SampleRate() int            { return f.rate }

func TestMP3SourceConvertsPCM(t *testing.T) {
	// Two stereo frames: (16384, -16384), (0, 32767).
	raw := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x00, 0xFF, 0x7F}
	src := &mp3Source{dec: &fakeMP3{r: bytes.NewReader(raw), rate: 44100}}

	assert.Equal(t, 2, src.Channels())
	assert.Equal(t, 44100, src.SampleRate())

	got := readAll(t, src, 3)
	require.Len(t, got, 4)
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, -0.5, got[1], 1e-6)
	assert.InDelta(t, 0, got[2], 1e-6)
	assert.InDelta(t, 32767.0/32768, got[3], 1e-6)
}

type fakeOgg struct {
	data     []float32
	channels int
}

func (f *fakeOgg) SampleRate() int { return 48000 }
func (f *fakeOgg) Channels() int   { return f.channels }
func (f *fakeOgg) Read(p []float32) (int, error) {
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestVorbisSourceKeepsFramesAligned(t *testing.T) {
	src := &vorbisSource{dec: &fakeOgg{data: []float32{1, 2, 3, 4, 5, 6}, channels: 2}}

	buf := make([]float32, 3)
	n, err := src.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{1, 2}, buf[:n])

	_, err = src.ReadSamples(buf[:1])
	require.ErrorIs(t, err, ErrDstNotFrameSized)

	rest := readAll(t, src, 4)
	assert.Equal(t, []float32{3, 4, 5, 6}, rest)
}

func TestMonoMixerGenericChannels(t *testing.T) {
	src := NewSliceSource([]float32{0.3, 0.6, 0.9, -0.3, -0.6, -0.9}, 44100, 3)
	mono := NewMonoMixer(src)

	got := readAll(t, mono, 8)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, -0.6, got[1], 1e-6)
}

func TestMonoMixerPassThrough(t *testing.T) {
	src := NewSliceSource([]float32{1, 2, 3}, 44100, 1)
	got := readAll(t, NewMonoMixer(src), 2)
	assert.Equal(t, []float32{1, 2, 3}, got)
}

func TestSliceSourceRewind(t *testing.T) {
	src := NewSliceSource([]float32{1, 2, 3}, 48000, 0)
	assert.Equal(t, 1, src.Channels())

	assert.Equal(t, []float32{1, 2, 3}, readAll(t, src, 2))
	n, err := src.ReadSamples(make([]float32, 2))
	assert.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, src.Rewind())
	assert.Equal(t, []float32{1, 2, 3}, readAll(t, src, 5))
}
