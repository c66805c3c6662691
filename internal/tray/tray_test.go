package tray

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/engine"
)

func newTestUI(t *testing.T) (*UI, *bridge.CommandReceiver[engine.Command], *[]string) {
	t.Helper()
	tx, rx := bridge.NewControlChannel[engine.Command](bridge.ControlCapacity)
	_, updates := bridge.NewGuiSender[engine.Update](bridge.UpdateCapacity)

	u := New(Config{Commands: tx, Updates: updates, Logger: zerolog.Nop()})
	var copied []string
	u.copy = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	return u, rx, &copied
}

func TestHandleSendsCommands(t *testing.T) {
	u, rx, _ := newTestUI(t)
	u.setState(engine.Update{Tempo: 120, Metronome: true})

	tests := []struct {
		name string
		a    action
		want engine.Command
	}{
		{name: "toggle", a: actionToggle, want: engine.Command{Kind: engine.CmdToggle}},
		{name: "metronome off", a: actionMetronome, want: engine.Command{Kind: engine.CmdMetronome, Value: 0}},
		{name: "tempo up", a: actionTempoUp, want: engine.Command{Kind: engine.CmdTempo, Value: 125}},
		{name: "tempo down", a: actionTempoDown, want: engine.Command{Kind: engine.CmdTempo, Value: 115}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u.handle(tt.a)
			got, ok := rx.TryRecv()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleCopyStatusSendsNoCommand(t *testing.T) {
	u, rx, copied := newTestUI(t)
	u.setState(engine.Update{Playing: true, Tempo: 96, BeatsPerBar: 3, Bar: 1, Beat: 2})

	u.handle(actionCopyStatus)

	_, ok := rx.TryRecv()
	assert.False(t, ok)
	require.Len(t, *copied, 1)
	assert.Equal(t, "playing at 96.0 BPM in 3/4, bar 2 beat 3", (*copied)[0])
}

func TestHandleCopyFailureIsLogged(t *testing.T) {
	u, _, _ := newTestUI(t)
	u.copy = func(string) error { return errors.New("no clipboard") }
	assert.NotPanics(t, func() { u.handle(actionCopyStatus) })
}

func TestHandleGivesUpWhenContextEnds(t *testing.T) {
	tx, rx := bridge.NewControlChannel[engine.Command](1)
	_, updates := bridge.NewGuiSender[engine.Update](1)
	u := New(Config{Commands: tx, Updates: updates, Logger: zerolog.Nop()})
	require.NoError(t, tx.TrySend(engine.Command{Kind: engine.CmdStop}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u.ctx = ctx

	u.handle(actionToggle)
	got, ok := rx.TryRecv()
	require.True(t, ok)
	assert.Equal(t, engine.CmdStop, got.Kind, "queued command is kept, new one is not enqueued")
	_, ok = rx.TryRecv()
	assert.False(t, ok)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "⏹ 120", title(engine.Update{Tempo: 120}))
	assert.Equal(t, "🔴 3.1", title(engine.Update{Playing: true, Bar: 2, Beat: 0}))
	assert.Equal(t, "🟢 1.4", title(engine.Update{Playing: true, Bar: 0, Beat: 3}))
}

func TestRenderBeforeReadyIsNoop(t *testing.T) {
	u, _, _ := newTestUI(t)
	u.setState(engine.Update{Playing: true})
	assert.NotPanics(t, u.render)
}

type mockHotkeys struct {
	registerErr error
	callbacks   map[string]func(bool)
	calls       []string
}

func (m *mockHotkeys) Register(accel string, callback func(pressed bool)) error {
	m.calls = append(m.calls, "register "+accel)
	if m.registerErr != nil {
		return m.registerErr
	}
	if m.callbacks == nil {
		m.callbacks = make(map[string]func(bool))
	}
	m.callbacks[accel] = callback
	return nil
}

func (m *mockHotkeys) Unregister(accel string) error {
	m.calls = append(m.calls, "unregister "+accel)
	delete(m.callbacks, accel)
	return nil
}

func (m *mockHotkeys) Close() error {
	m.calls = append(m.calls, "close")
	return nil
}

func TestHotkeyTogglesTransportAndIsReleasedOnExit(t *testing.T) {
	u, rx, _ := newTestUI(t)
	hk := &mockHotkeys{}
	u.hotkeys = hk
	u.hotkey = "Alt+Space"

	u.registerHotkey()
	require.Contains(t, hk.callbacks, "Alt+Space")

	hk.callbacks["Alt+Space"](true)
	hk.callbacks["Alt+Space"](false)

	got, ok := rx.TryRecv()
	require.True(t, ok)
	assert.Equal(t, engine.CmdToggle, got.Kind)
	_, ok = rx.TryRecv()
	assert.False(t, ok, "release does not toggle")

	u.onExit()
	assert.Equal(t, []string{"register Alt+Space", "unregister Alt+Space", "close"}, hk.calls)
	assert.Empty(t, hk.callbacks)
}

func TestFailedHotkeyIsNotUnregistered(t *testing.T) {
	u, _, _ := newTestUI(t)
	hk := &mockHotkeys{registerErr: errors.New("grab failed")}
	u.hotkeys = hk
	u.hotkey = "Alt+Space"

	u.registerHotkey()
	u.onExit()

	assert.Equal(t, []string{"register Alt+Space", "close"}, hk.calls)
}
