package assets

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeWav writes ints as a PCM wav file and returns its bytes.
func encodeWav(t *testing.T, data []int, sampleRate, bitDepth, channels int) []byte {
	t.Helper()
	return encodeWavFormat(t, data, sampleRate, bitDepth, channels, 1)
}

// encodeFloatWav writes samples as a 32 bit IEEE float wav file.
func encodeFloatWav(t *testing.T, samples []float32, sampleRate, channels int) []byte {
	t.Helper()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(int32(math.Float32bits(s)))
	}
	return encodeWavFormat(t, data, sampleRate, 32, channels, 3)
}

func encodeWavFormat(t *testing.T, data []int, sampleRate, bitDepth, channels, audioFormat int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, audioFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return out
}

func TestLoadBundledClicks(t *testing.T) {
	m, err := Load()
	require.NoError(t, err)

	// 60ms at 44.1kHz, mono 16 bit
	assert.Len(t, m.Normal, 2646)
	assert.Len(t, m.Emphasis, 2646)
	assert.Equal(t, Format{SampleRate: 44100, Channels: 1, BitDepth: 16}, m.Format)

	for _, s := range m.Normal {
		require.True(t, s >= -1 && s < 1, "sample out of range: %f", s)
	}
}

func TestMustLoadDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { MustLoad() })
}

func TestDecodeRoundTrip16Bit(t *testing.T) {
	data := []int{0, 1, -1, 32767, -32768, 1234, -4321, 0, 16384}
	raw := encodeWav(t, data, 48000, 16, 1)

	samples, format, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, Format{SampleRate: 48000, Channels: 1, BitDepth: 16}, format)
	require.Len(t, samples, len(data))
	for i, v := range data {
		assert.Equal(t, float32(v)/32768, samples[i], "sample %d", i)
	}
}

func TestDecodeKeepsInterleavedStereo(t *testing.T) {
	data := []int{100, -100, 200, -200, 300, -300}
	raw := encodeWav(t, data, 44100, 16, 2)

	samples, format, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, format.Channels)
	require.Len(t, samples, 6)
	assert.Equal(t, float32(-200)/32768, samples[3])
}

func TestDecodeRoundTrip24Bit(t *testing.T) {
	data := []int{8388607, -8388608, 42, -42}
	raw := encodeWav(t, data, 44100, 24, 1)

	samples, _, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, samples, len(data))
	for i, v := range data {
		assert.Equal(t, float32(v)/8388608, samples[i], "sample %d", i)
	}
}

func TestDecodeRoundTripFloat(t *testing.T) {
	data := []float32{0, 0.5, -0.5, 1, -1, 0.123456789, -0.987654321, 1e-7, float32(math.SmallestNonzeroFloat32)}
	raw := encodeFloatWav(t, data, 44100, 1)

	samples, format, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, Format{SampleRate: 44100, Channels: 1, BitDepth: 32}, format)
	assert.Equal(t, data, samples)
}

func TestDecodeRejectsUnsupportedFormats(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "32 bit integer", data: encodeWav(t, []int{2147483647, 123456789}, 44100, 32, 1)},
		{name: "8 bit integer", data: encodeWav(t, []int{1, 2, 3}, 44100, 8, 1)},
		{name: "16 bit float", data: encodeWavFormat(t, []int{1, 2, 3}, 44100, 16, 1, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, _, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
			assert.Nil(t, samples)
		})
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	valid := encodeWav(t, make([]int, 512), 44100, 16, 1)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("definitely not a riff container")},
		{name: "header only", data: valid[:20]},
		{name: "truncated samples", data: valid[:len(valid)-200]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, _, err := Decode(tt.data)
			assert.Error(t, err)
			assert.Nil(t, samples)
		})
	}
}

func TestLoadRejectsMismatchedFormats(t *testing.T) {
	a := encodeWav(t, []int{1, 2, 3}, 44100, 16, 1)
	b := encodeWav(t, []int{1, 2, 3}, 48000, 16, 1)

	_, err := load(a, b)
	assert.Error(t, err)
}

func TestLoadRejectsBrokenClick(t *testing.T) {
	good := encodeWav(t, []int{1, 2, 3}, 44100, 16, 1)

	_, err := load(good, []byte("broken"))
	assert.ErrorContains(t, err, "emphasis")
}
