package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/petems/loopers/internal/engine"
)

const (
	otoChannels   = 2
	otoBufferSize = 20 * time.Millisecond
	// Upper bound on samples rendered per Read; larger requests get a short
	// read, which io.Reader allows.
	otoMaxSamples = 4096
)

// otoStream renders the engine into oto's pull-based player.
type otoStream struct {
	ctx      *oto.Context
	player   *oto.Player
	engine   *engine.Engine
	buf      []float32
	channels int

	// frame holds one rendered frame for reads shorter than a frame;
	// pending is the part of it not yet returned.
	frame   []byte
	pending []byte
}

func openOto(e *engine.Engine) (stream, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   e.SampleRate(),
		ChannelCount: otoChannels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	s := newOtoStream(e, otoChannels)
	s.ctx = ctx
	s.player = ctx.NewPlayer(s)
	return s, nil
}

func newOtoStream(e *engine.Engine, channels int) *otoStream {
	return &otoStream{
		engine:   e,
		buf:      make([]float32, otoMaxSamples),
		channels: channels,
		frame:    make([]byte, 4*channels),
	}
}

// Read is called from oto's mixing goroutine. It must not allocate.
func (s *otoStream) Read(p []byte) (int, error) {
	written := copy(p, s.pending)
	s.pending = s.pending[written:]
	p = p[written:]
	if len(p) == 0 {
		return written, nil
	}

	n := len(p) / 4
	if n > len(s.buf) {
		n = len(s.buf)
	}
	n -= n % s.channels
	if n > 0 {
		s.render(p, s.buf[:n])
		return written + n*4, nil
	}
	if written > 0 {
		return written, nil
	}

	// p is shorter than a frame: render one and hand it out in pieces.
	s.render(s.frame, s.buf[:s.channels])
	c := copy(p, s.frame)
	s.pending = s.frame[c:]
	return c, nil
}

func (s *otoStream) render(dst []byte, samples []float32) {
	s.engine.Process(nil, samples, s.channels)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

func (s *otoStream) Start() error {
	s.player.Play()
	return nil
}

func (s *otoStream) Stop() error {
	s.player.Pause()
	return nil
}

func (s *otoStream) Close() error {
	return s.player.Close()
}
