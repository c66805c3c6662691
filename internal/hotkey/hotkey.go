package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// ErrUnsupported is returned by New on platforms without a hotkey backend.
var ErrUnsupported = errors.New("global hotkeys not supported on this platform")

// Modifier flags, independent of any windowing system.
const (
	ModShift = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// Accelerator is a parsed key combination such as "Alt+Space".
type Accelerator struct {
	Modifiers int
	Key       string
}

// ParseAccelerator parses "Mod+Mod+Key". Modifier names are
// case-insensitive; the key keeps its case ("Space", "F5", "r").
func ParseAccelerator(accel string) (Accelerator, error) {
	parts := strings.Split(accel, "+")
	var a Accelerator
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q", accel)
		}
		if i == len(parts)-1 {
			a.Key = p
			break
		}
		switch strings.ToLower(p) {
		case "shift":
			a.Modifiers |= ModShift
		case "ctrl", "control":
			a.Modifiers |= ModCtrl
		case "alt", "option":
			a.Modifiers |= ModAlt
		case "super", "cmd", "command", "meta":
			a.Modifiers |= ModSuper
		default:
			return Accelerator{}, fmt.Errorf("unknown modifier %q in %q", p, accel)
		}
	}
	return a, nil
}
