// Package driver selects the audio backend and hands it everything it needs
// to run the engine.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/petems/loopers/internal/assets"
	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/engine"
)

var (
	// ErrUnknownDriver is returned for a name outside the known set.
	ErrUnknownDriver = errors.New("unknown driver")
	// ErrUnsupportedDriver is returned for a known driver this platform lacks.
	ErrUnsupportedDriver = errors.New("driver not supported on this system")
	// ErrAlreadyDispatched is returned when Dispatch is called a second time.
	ErrAlreadyDispatched = errors.New("backend already dispatched")
)

// Surface is a control surface that runs on the main thread until the user
// quits or ctx ends.
type Surface interface {
	Run(ctx context.Context) error
}

// Resources is everything a backend takes ownership of. Surface is nil in
// headless mode, in which case Updates is disconnected.
type Resources struct {
	Surface   Surface
	Updates   *bridge.GuiSender[engine.Update]
	Commands  *bridge.CommandReceiver[engine.Command]
	Metronome assets.Metronome
	Restore   bool
}

// EntryPoint runs a backend until shutdown. A returned error is fatal.
type EntryPoint func(ctx context.Context, res Resources) error

// Backend describes one audio integration.
type Backend struct {
	Name string
	// Available is false for backends known to the build but missing on
	// this platform.
	Available bool
	Main      EntryPoint
}

// State tracks how far a Dispatcher has got.
type State int

const (
	Unselected State = iota
	Resolved
	Dispatched
)

func (s State) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case Resolved:
		return "resolved"
	case Dispatched:
		return "dispatched"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Dispatcher makes a single call into one backend. It is not safe for
// concurrent use; the bootstrap owns it.
type Dispatcher struct {
	backends map[string]Backend
	state    State
	selected string
}

func NewDispatcher(backends ...Backend) *Dispatcher {
	d := &Dispatcher{backends: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		d.backends[b.Name] = b
	}
	return d
}

// Names lists the known drivers, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.backends))
	for name := range d.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available lists the drivers usable on this platform, sorted.
func (d *Dispatcher) Available() []string {
	var names []string
	for _, name := range d.Names() {
		if d.backends[name].Available {
			names = append(names, name)
		}
	}
	return names
}

func (d *Dispatcher) State() State {
	return d.state
}

// Selected returns the resolved driver name, if any.
func (d *Dispatcher) Selected() string {
	return d.selected
}

// Resolve matches name against the known backends. It constructs nothing.
func (d *Dispatcher) Resolve(name string) (Backend, error) {
	if d.state == Dispatched {
		return Backend{}, ErrAlreadyDispatched
	}

	b, ok := d.backends[name]
	if !ok {
		return Backend{}, fmt.Errorf("%w '%s' (known drivers: %s)", ErrUnknownDriver, name, strings.Join(d.Names(), ", "))
	}
	if !b.Available || b.Main == nil {
		return Backend{}, fmt.Errorf("%s: %w; choose another driver", name, ErrUnsupportedDriver)
	}

	d.state = Resolved
	d.selected = name
	return b, nil
}

// Dispatch resolves name and hands res to that backend. It returns when the
// backend does; there is no retry and no fallback to another driver.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, res Resources) error {
	b, err := d.Resolve(name)
	if err != nil {
		return err
	}

	d.state = Dispatched
	if err := b.Main(ctx, res); err != nil {
		return fmt.Errorf("backend %s: %w", name, err)
	}
	return nil
}
