// Package assets holds the metronome click sounds bundled into the binary.
package assets

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math"

	"github.com/go-audio/wav"
)

// Metronome click sounds, embedded so that a plain `go install` gives a
// working binary.
var (
	//go:embed resources/sine_normal.wav
	sineNormal []byte

	//go:embed resources/sine_emphasis.wav
	sineEmphasis []byte
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

var (
	// ErrTruncated is returned when the data chunk holds fewer samples than it declares.
	ErrTruncated = errors.New("truncated sample data")
	// ErrUnsupportedFormat is returned for anything other than 16 or 24 bit
	// integer PCM and 32 bit IEEE float. 32 bit integer PCM does not fit a
	// float32 without loss, so it is refused too.
	ErrUnsupportedFormat = errors.New("unsupported wav format")
)

// Format describes the layout the samples were authored in. Decoding never
// resamples, so callers must drive the audio device at this format.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Metronome is the pair of decoded click sounds handed to the audio backend.
type Metronome struct {
	Normal   []float32
	Emphasis []float32
	Format   Format
}

// Load decodes both bundled clicks.
func Load() (Metronome, error) {
	return load(sineNormal, sineEmphasis)
}

// MustLoad is like Load but panics on failure. The clicks are fixed at build
// time, so a decode failure means a broken build rather than a runtime
// condition.
func MustLoad() Metronome {
	m, err := Load()
	if err != nil {
		panic(fmt.Sprintf("assets: %v", err))
	}
	return m
}

func load(normalData, emphasisData []byte) (Metronome, error) {
	normal, nf, err := Decode(normalData)
	if err != nil {
		return Metronome{}, fmt.Errorf("failed to decode normal click: %w", err)
	}
	emphasis, ef, err := Decode(emphasisData)
	if err != nil {
		return Metronome{}, fmt.Errorf("failed to decode emphasis click: %w", err)
	}
	if nf.SampleRate != ef.SampleRate || nf.Channels != ef.Channels {
		return Metronome{}, fmt.Errorf("click formats differ: %+v vs %+v", nf, ef)
	}

	return Metronome{Normal: normal, Emphasis: emphasis, Format: nf}, nil
}

// Decode extracts every sample of a WAV container, in file order, as float32.
// Integer PCM lands in [-1, 1); float data is returned bit for bit.
// Interleaved channels are kept interleaved.
func Decode(data []byte) ([]float32, Format, error) {
	if len(data) == 0 {
		return nil, Format{}, errors.New("empty wav data")
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, Format{}, fmt.Errorf("invalid wav file: %w", err)
		}
		return nil, Format{}, errors.New("invalid wav file")
	}

	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	switch {
	case dec.WavAudioFormat == wavFormatPCM && (format.BitDepth == 16 || format.BitDepth == 24):
	case dec.WavAudioFormat == wavFormatFloat && format.BitDepth == 32:
	default:
		return nil, format, fmt.Errorf("%w: audio format %d, %d bit", ErrUnsupportedFormat, dec.WavAudioFormat, format.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, format, fmt.Errorf("failed to read pcm data: %w", err)
	}

	declared := int(dec.PCMLen() / int64(format.BitDepth/8))
	if len(buf.Data) != declared {
		return nil, format, fmt.Errorf("%w: got %d of %d samples", ErrTruncated, len(buf.Data), declared)
	}
	if declared == 0 {
		return nil, format, errors.New("wav file has no samples")
	}

	samples := make([]float32, len(buf.Data))
	if dec.WavAudioFormat == wavFormatFloat {
		// The decoder hands back the raw 32 bit words.
		for i, v := range buf.Data {
			samples[i] = math.Float32frombits(uint32(v))
		}
		return samples, format, nil
	}

	scale := float32(int64(1) << (format.BitDepth - 1))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	return samples, format, nil
}
