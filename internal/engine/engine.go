// Package engine is the realtime side of the looper: it runs inside the audio
// callback, keeps the transport and plays the metronome.
//
// Nothing in Process allocates, locks or blocks. Commands are polled with
// TryRecv and updates are published with TrySend.
package engine

import (
	"github.com/petems/loopers/internal/assets"
	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/config"
)

// MaxCommandsPerCycle bounds the work one callback spends on commands so a
// burst from the control plane cannot overrun the audio deadline.
const MaxCommandsPerCycle = 32

const (
	MinTempo       = 30.0
	MaxTempo       = 300.0
	MaxBeatsPerBar = 16
)

type Engine struct {
	normal     []float32
	emphasis   []float32
	sampleRate float64

	cmds    *bridge.CommandReceiver[Command]
	updates *bridge.GuiSender[Update]

	playing     bool
	tempo       float64
	beatsPerBar int
	metronome   bool
	volume      float32

	samplesPerBeat float64
	beatPhase      float64
	beat           int
	bar            int
	click          []float32
	clickPos       int
	inputPeak      float32
}

// New takes ownership of the metronome clicks, the command receiver and the
// update sender.
func New(m assets.Metronome, cmds *bridge.CommandReceiver[Command], updates *bridge.GuiSender[Update]) *Engine {
	e := &Engine{
		normal:     m.Normal,
		emphasis:   m.Emphasis,
		sampleRate: float64(m.Format.SampleRate),
		cmds:       cmds,
		updates:    updates,
	}
	if e.sampleRate <= 0 {
		e.sampleRate = 44100
	}
	e.Apply(config.DefaultSession())
	return e
}

// SampleRate is the rate the engine expects Process to be driven at.
func (e *Engine) SampleRate() int {
	return int(e.sampleRate)
}

// Apply loads transport settings. Call it only while no stream is running.
func (e *Engine) Apply(s config.Session) {
	e.setTempo(s.Tempo)
	e.setSignature(s.BeatsPerBar)
	e.metronome = s.MetronomeOn
	e.setVolume(s.MetronomeVolume)
}

// Snapshot returns the settings worth persisting. Call it only while no
// stream is running.
func (e *Engine) Snapshot() config.Session {
	return config.Session{
		Tempo:           e.tempo,
		BeatsPerBar:     e.beatsPerBar,
		MetronomeOn:     e.metronome,
		MetronomeVolume: e.volume,
	}
}

// Process renders one callback worth of audio. out is interleaved with the
// given channel count; in is the (possibly empty) captured input.
func (e *Engine) Process(in, out []float32, channels int) {
	if channels < 1 {
		channels = 1
	}

	changed := false
	for i := 0; i < MaxCommandsPerCycle; i++ {
		c, ok := e.cmds.TryRecv()
		if !ok {
			break
		}
		if e.handle(c) {
			changed = true
		}
	}

	e.inputPeak = 0
	for _, s := range in {
		if s < 0 {
			s = -s
		}
		if s > e.inputPeak {
			e.inputPeak = s
		}
	}

	if changed {
		e.updates.TrySend(e.update(UpdateState))
	}

	frames := len(out) / channels
	for f := 0; f < frames; f++ {
		if e.playing {
			if e.beatPhase >= e.samplesPerBeat {
				e.beatPhase -= e.samplesPerBeat
				e.nextBeat()
			}
			e.beatPhase++
		}

		var s float32
		if e.clickPos < len(e.click) {
			if e.metronome {
				s = e.click[e.clickPos] * e.volume
			}
			e.clickPos++
		}

		base := f * channels
		for c := 0; c < channels; c++ {
			out[base+c] = s
		}
	}
	for i := frames * channels; i < len(out); i++ {
		out[i] = 0
	}
}

func (e *Engine) handle(c Command) bool {
	switch c.Kind {
	case CmdStart:
		if e.playing {
			return false
		}
		e.start()
	case CmdStop:
		if !e.playing {
			return false
		}
		e.playing = false
	case CmdToggle:
		if e.playing {
			e.playing = false
		} else {
			e.start()
		}
	case CmdTempo:
		e.setTempo(c.Value)
	case CmdMetronome:
		e.metronome = c.Value != 0
	case CmdVolume:
		e.setVolume(float32(c.Value))
	case CmdSignature:
		e.setSignature(int(c.Value))
	default:
		return false
	}
	return true
}

// start arms the transport so the first rendered frame begins bar 0, beat 0.
func (e *Engine) start() {
	e.playing = true
	e.beat = e.beatsPerBar - 1
	e.bar = -1
	e.beatPhase = e.samplesPerBeat
}

func (e *Engine) nextBeat() {
	e.beat++
	if e.beat >= e.beatsPerBar {
		e.beat = 0
		e.bar++
	}

	if e.beat == 0 {
		e.click = e.emphasis
	} else {
		e.click = e.normal
	}
	e.clickPos = 0

	e.updates.TrySend(e.update(UpdateBeat))
}

func (e *Engine) update(kind UpdateKind) Update {
	return Update{
		Kind:        kind,
		Playing:     e.playing,
		Tempo:       e.tempo,
		BeatsPerBar: e.beatsPerBar,
		Beat:        e.beat,
		Bar:         e.bar,
		Metronome:   e.metronome,
		Volume:      e.volume,
		InputPeak:   e.inputPeak,
	}
}

func (e *Engine) setTempo(bpm float64) {
	switch {
	case bpm != bpm || bpm < MinTempo: // NaN included
		bpm = MinTempo
	case bpm > MaxTempo:
		bpm = MaxTempo
	}
	e.tempo = bpm
	e.samplesPerBeat = e.sampleRate * 60 / bpm
	if e.beatPhase > e.samplesPerBeat {
		e.beatPhase = e.samplesPerBeat
	}
}

func (e *Engine) setSignature(beats int) {
	switch {
	case beats < 1:
		beats = 1
	case beats > MaxBeatsPerBar:
		beats = MaxBeatsPerBar
	}
	e.beatsPerBar = beats
	if e.beat >= beats {
		e.beat %= beats
	}
}

func (e *Engine) setVolume(v float32) {
	switch {
	case v != v || v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	e.volume = v
}
