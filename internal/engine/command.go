package engine

import (
	"fmt"
	"strings"
)

// CommandKind names an operation the control plane asks of the engine.
type CommandKind uint8

const (
	CmdStart CommandKind = iota + 1
	CmdStop
	CmdToggle
	CmdTempo
	CmdMetronome
	CmdVolume
	CmdSignature
)

var commandNames = map[CommandKind]string{
	CmdStart:     "start",
	CmdStop:      "stop",
	CmdToggle:    "toggle",
	CmdTempo:     "tempo",
	CmdMetronome: "metronome",
	CmdVolume:    "volume",
	CmdSignature: "signature",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", uint8(k))
}

// ParseCommandKind maps a command name (case-insensitive) to its kind.
func ParseCommandKind(s string) (CommandKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range commandNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", s)
}

func (k CommandKind) MarshalText() ([]byte, error) {
	if _, ok := commandNames[k]; !ok {
		return nil, fmt.Errorf("unknown command kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *CommandKind) UnmarshalText(b []byte) error {
	parsed, err := ParseCommandKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Command is a single request from the control plane. Value carries the
// argument for tempo (BPM), metronome (non-zero enables), volume (0..1) and
// signature (beats per bar).
type Command struct {
	Kind  CommandKind `json:"command"`
	Value float64     `json:"value,omitempty"`
}

// UpdateKind tells the control surface what changed.
type UpdateKind uint8

const (
	// UpdateState follows any command that changed transport settings.
	UpdateState UpdateKind = iota
	// UpdateBeat marks the start of a beat while playing.
	UpdateBeat
)

// Update is a snapshot of the engine sent to the control surface. It holds no
// pointers, so sending one never allocates.
type Update struct {
	Kind        UpdateKind
	Playing     bool
	Tempo       float64
	BeatsPerBar int
	Beat        int
	Bar         int
	Metronome   bool
	Volume      float32
	InputPeak   float32
}
