// Package tray is the system tray control surface. It sends transport
// commands to the engine and shows the engine's updates in the tray title.
package tray

import (
	"context"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/engine"
	"github.com/petems/loopers/internal/hotkey"
)

const tempoStep = 5

type action int

const (
	actionToggle action = iota
	actionMetronome
	actionTempoUp
	actionTempoDown
	actionCopyStatus
)

type Config struct {
	Commands *bridge.CommandSender[engine.Command]
	Updates  *bridge.GuiReceiver[engine.Update]
	Hotkeys  hotkey.Manager // Optional - can be nil
	Hotkey   string
	Logger   zerolog.Logger
	Version  string
	Commit   string
}

type UI struct {
	cmds    *bridge.CommandSender[engine.Command]
	updates *bridge.GuiReceiver[engine.Update]
	hotkeys hotkey.Manager
	hotkey  string
	log     zerolog.Logger
	version string
	commit  string
	copy    func(string) error

	ctx context.Context

	hotkeyRegistered bool

	mu    sync.Mutex
	state engine.Update
	ready bool

	// Menu items
	mPlay      *systray.MenuItem
	mMetronome *systray.MenuItem
	mTempo     *systray.MenuItem
	mTempoUp   *systray.MenuItem
	mTempoDown *systray.MenuItem
	mCopy      *systray.MenuItem
	mAbout     *systray.MenuItem
	mQuit      *systray.MenuItem
}

func New(cfg Config) *UI {
	return &UI{
		cmds:    cfg.Commands,
		updates: cfg.Updates,
		hotkeys: cfg.Hotkeys,
		hotkey:  cfg.Hotkey,
		log:     cfg.Logger,
		version: cfg.Version,
		commit:  cfg.Commit,
		copy:    clipboard.WriteAll,
		ctx:     context.Background(),
	}
}

// Run shows the tray and blocks until Quit is clicked or ctx ends. It must be
// called from the main goroutine.
func (u *UI) Run(ctx context.Context) error {
	u.ctx = ctx

	go func() {
		<-ctx.Done()
		systray.Quit()
	}()

	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Loopers live looper")

	u.mPlay = systray.AddMenuItem("Play", "Start or stop the transport")
	systray.AddSeparator()

	u.mMetronome = systray.AddMenuItemCheckbox("Metronome", "Toggle the click", true)
	u.mTempo = systray.AddMenuItem("", "Current tempo")
	u.mTempoUp = u.mTempo.AddSubMenuItem(fmt.Sprintf("+%d BPM", tempoStep), "Faster")
	u.mTempoDown = u.mTempo.AddSubMenuItem(fmt.Sprintf("-%d BPM", tempoStep), "Slower")

	systray.AddSeparator()
	u.mCopy = systray.AddMenuItem("Copy Status", "Copy tempo and position to the clipboard")
	u.mAbout = systray.AddMenuItem("About", "About Loopers")
	u.mQuit = systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	u.mu.Unlock()
	u.render()

	u.registerHotkey()

	go u.consumeUpdates()
	go u.handleEvents()
}

func (u *UI) registerHotkey() {
	if u.hotkeys == nil || u.hotkey == "" {
		return
	}
	err := u.hotkeys.Register(u.hotkey, func(pressed bool) {
		if pressed {
			u.handle(actionToggle)
		}
	})
	if err != nil {
		u.log.Warn().Err(err).Str("hotkey", u.hotkey).Msg("Failed to register hotkey")
		return
	}
	u.hotkeyRegistered = true
	u.log.Info().Str("hotkey", u.hotkey).Msg("Transport hotkey registered")
}

func (u *UI) handleEvents() {
	for {
		select {
		case <-u.mPlay.ClickedCh:
			u.handle(actionToggle)
		case <-u.mMetronome.ClickedCh:
			u.handle(actionMetronome)
		case <-u.mTempoUp.ClickedCh:
			u.handle(actionTempoUp)
		case <-u.mTempoDown.ClickedCh:
			u.handle(actionTempoDown)
		case <-u.mCopy.ClickedCh:
			u.handle(actionCopyStatus)
		case <-u.mAbout.ClickedCh:
			u.showAbout()
		case <-u.mQuit.ClickedCh:
			systray.Quit()
			return
		case <-u.ctx.Done():
			return
		}
	}
}

func (u *UI) consumeUpdates() {
	for {
		select {
		case <-u.ctx.Done():
			return
		case up, ok := <-u.updates.Updates():
			if !ok {
				return
			}
			u.setState(up)
			u.render()
		}
	}
}

// handle turns a user action into an engine command. Sending may wait while
// the command queue is full; that only stalls the UI goroutine.
func (u *UI) handle(a action) {
	state := u.State()

	var cmd engine.Command
	switch a {
	case actionToggle:
		cmd = engine.Command{Kind: engine.CmdToggle}
	case actionMetronome:
		cmd = engine.Command{Kind: engine.CmdMetronome, Value: boolValue(!state.Metronome)}
	case actionTempoUp:
		cmd = engine.Command{Kind: engine.CmdTempo, Value: state.Tempo + tempoStep}
	case actionTempoDown:
		cmd = engine.Command{Kind: engine.CmdTempo, Value: state.Tempo - tempoStep}
	case actionCopyStatus:
		if err := u.copy(statusLine(state)); err != nil {
			u.log.Error().Err(err).Msg("Failed to copy status")
		}
		return
	default:
		return
	}

	if err := u.cmds.Send(u.ctx, cmd); err != nil {
		u.log.Error().Err(err).Stringer("command", cmd.Kind).Msg("Failed to send command")
		return
	}
	u.log.Debug().Stringer("command", cmd.Kind).Float64("value", cmd.Value).Msg("Sent command")
}

// State returns the last update received from the engine.
func (u *UI) State() engine.Update {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *UI) setState(up engine.Update) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state = up
}

func (u *UI) render() {
	u.mu.Lock()
	state, ready := u.state, u.ready
	u.mu.Unlock()
	if !ready {
		return
	}

	systray.SetTitle(title(state))
	if state.Playing {
		u.mPlay.SetTitle("Stop")
	} else {
		u.mPlay.SetTitle("Play")
	}
	if state.Metronome {
		u.mMetronome.Check()
	} else {
		u.mMetronome.Uncheck()
	}
	u.mTempo.SetTitle(fmt.Sprintf("Tempo: %.0f BPM", state.Tempo))
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("Loopers live looper")
}

func (u *UI) onExit() {
	if u.hotkeys == nil {
		return
	}
	if u.hotkeyRegistered {
		if err := u.hotkeys.Unregister(u.hotkey); err != nil {
			u.log.Warn().Err(err).Str("hotkey", u.hotkey).Msg("Failed to unregister hotkey")
		}
		u.hotkeyRegistered = false
	}
	if err := u.hotkeys.Close(); err != nil {
		u.log.Warn().Err(err).Msg("Failed to close hotkey manager")
	}
}

// title renders the tray title: transport emoji, then bar.beat while playing
func title(s engine.Update) string {
	if !s.Playing {
		return fmt.Sprintf("%s %.0f", emojiForState(s), s.Tempo)
	}
	return fmt.Sprintf("%s %d.%d", emojiForState(s), s.Bar+1, s.Beat+1)
}

func statusLine(s engine.Update) string {
	state := "stopped"
	if s.Playing {
		state = "playing"
	}
	return fmt.Sprintf("%s at %.1f BPM in %d/4, bar %d beat %d", state, s.Tempo, s.BeatsPerBar, s.Bar+1, s.Beat+1)
}

// emojiForState returns the transport indicator
func emojiForState(s engine.Update) string {
	switch {
	case s.Playing && s.Beat == 0:
		return "🔴" // Red - downbeat
	case s.Playing:
		return "🟢" // Green - playing
	default:
		return "⏹" // stopped
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
