package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/loopers/internal/assets"
	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/config"
	"github.com/petems/loopers/internal/driver"
	"github.com/petems/loopers/internal/engine"
)

type recordingBackend struct {
	calls int
	res   driver.Resources
	err   error
}

func (b *recordingBackend) main(ctx context.Context, res driver.Resources) error {
	b.calls++
	b.res = res
	return b.err
}

type mockSurface struct {
	cmds    *bridge.CommandSender[engine.Command]
	updates *bridge.GuiReceiver[engine.Update]
}

func (m *mockSurface) Run(ctx context.Context) error { return nil }

type mockCloser struct{ closed int }

func (m *mockCloser) Close() error {
	m.closed++
	return nil
}

func testMetronome() assets.Metronome {
	return assets.Metronome{
		Normal:   []float32{0.1, 0.2},
		Emphasis: []float32{0.3, 0.4},
		Format:   assets.Format{SampleRate: 44100, Channels: 1, BitDepth: 16},
	}
}

type fixture struct {
	jack, coreaudio *recordingBackend
	loads           int
	surfaces        []*mockSurface
	opts            Options
}

func newFixture() *fixture {
	f := &fixture{jack: &recordingBackend{}, coreaudio: &recordingBackend{}}
	f.opts = Options{
		Backends: []driver.Backend{
			{Name: "jack", Available: true, Main: f.jack.main},
			{Name: "coreaudio", Available: false, Main: f.coreaudio.main},
		},
		NewSurface: func(cmds *bridge.CommandSender[engine.Command], updates *bridge.GuiReceiver[engine.Update]) driver.Surface {
			s := &mockSurface{cmds: cmds, updates: updates}
			f.surfaces = append(f.surfaces, s)
			return s
		},
		LoadAssets: func() assets.Metronome {
			f.loads++
			return testMetronome()
		},
		Logger:  zerolog.Nop(),
		Remotes: []RemoteStarter{},
	}
	return f
}

func TestRunHeadlessJack(t *testing.T) {
	f := newFixture()

	err := Run(context.Background(), config.Startup{Driver: "jack", Headless: true}, f.opts)
	require.NoError(t, err)

	assert.Equal(t, 1, f.jack.calls)
	assert.Equal(t, 0, f.coreaudio.calls)
	assert.Empty(t, f.surfaces, "no surface is built when headless")

	res := f.jack.res
	assert.Nil(t, res.Surface)
	assert.False(t, res.Restore)
	assert.False(t, res.Updates.Connected())
	assert.Equal(t, testMetronome(), res.Metronome)
	assert.Equal(t, 0, res.Commands.Len())
	assert.Equal(t, 1, f.loads)
}

func TestRunWithSurface(t *testing.T) {
	f := newFixture()

	err := Run(context.Background(), config.Startup{Driver: "jack", Restore: true}, f.opts)
	require.NoError(t, err)

	require.Len(t, f.surfaces, 1)
	s := f.surfaces[0]
	res := f.jack.res
	assert.Same(t, s, res.Surface)
	assert.True(t, res.Restore)
	require.True(t, res.Updates.Connected())

	// The surface and the backend hold the two ends of both channels.
	require.NoError(t, s.cmds.Send(context.Background(), engine.Command{Kind: engine.CmdStart}))
	got, ok := res.Commands.TryRecv()
	require.True(t, ok)
	assert.Equal(t, engine.CmdStart, got.Kind)
	assert.Equal(t, bridge.ControlCapacity, s.cmds.Cap())

	res.Updates.Send(engine.Update{Tempo: 99})
	up := <-s.updates.Updates()
	assert.Equal(t, 99.0, up.Tempo)
}

func TestRunUnknownDriver(t *testing.T) {
	f := newFixture()

	err := Run(context.Background(), config.Startup{Driver: "alsa"}, f.opts)
	require.ErrorIs(t, err, driver.ErrUnknownDriver)
	assert.Contains(t, err.Error(), "alsa")

	assert.Zero(t, f.jack.calls)
	assert.Zero(t, f.coreaudio.calls)
	assert.Zero(t, f.loads, "assets are not decoded for a bad driver")
	assert.Empty(t, f.surfaces)
}

func TestRunUnsupportedDriver(t *testing.T) {
	f := newFixture()

	err := Run(context.Background(), config.Startup{Driver: "coreaudio"}, f.opts)
	require.ErrorIs(t, err, driver.ErrUnsupportedDriver)
	assert.Contains(t, err.Error(), "choose another driver")
	assert.Zero(t, f.coreaudio.calls)
	assert.Zero(t, f.loads)
}

func TestRunBackendFailure(t *testing.T) {
	f := newFixture()
	boom := errors.New("device busy")
	f.jack.err = boom

	err := Run(context.Background(), config.Startup{Driver: "jack", Headless: true}, f.opts)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "backend jack")
	assert.Equal(t, 1, f.jack.calls)
}

func TestRunRemotes(t *testing.T) {
	f := newFixture()
	c := &mockCloser{}
	var started *bridge.CommandSender[engine.Command]
	f.opts.Remotes = []RemoteStarter{
		func(ctx context.Context, cmds *bridge.CommandSender[engine.Command]) (io.Closer, error) {
			started = cmds
			return c, nil
		},
	}

	err := Run(context.Background(), config.Startup{Driver: "jack", Headless: true}, f.opts)
	require.NoError(t, err)

	require.NotNil(t, started)
	require.NoError(t, started.TrySend(engine.Command{Kind: engine.CmdToggle}))
	got, ok := f.jack.res.Commands.TryRecv()
	require.True(t, ok)
	assert.Equal(t, engine.CmdToggle, got.Kind)
	assert.Equal(t, 1, c.closed, "remotes are closed once the backend returns")
}

func TestRunRemoteFailureSkipsBackend(t *testing.T) {
	f := newFixture()
	first := &mockCloser{}
	f.opts.Remotes = []RemoteStarter{
		func(context.Context, *bridge.CommandSender[engine.Command]) (io.Closer, error) { return first, nil },
		func(context.Context, *bridge.CommandSender[engine.Command]) (io.Closer, error) {
			return nil, errors.New("address in use")
		},
	}

	err := Run(context.Background(), config.Startup{Driver: "jack", Headless: true}, f.opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Zero(t, f.jack.calls)
	assert.Equal(t, 1, first.closed)
}

func TestRemotesFromConfig(t *testing.T) {
	assert.Empty(t, Remotes(config.Startup{}, zerolog.Nop()))
	assert.Len(t, Remotes(config.Startup{NATSURL: "nats://127.0.0.1:4222"}, zerolog.Nop()), 1)
	assert.Len(t, Remotes(config.Startup{NATSURL: "nats://127.0.0.1:4222", OSCAddr: ":9000"}, zerolog.Nop()), 2)
}

func TestRunStartsOSCFromConfig(t *testing.T) {
	f := newFixture()
	f.opts.Remotes = nil

	err := Run(context.Background(), config.Startup{Driver: "jack", Headless: true, OSCAddr: "127.0.0.1:0"}, f.opts)
	require.NoError(t, err)
	assert.Equal(t, 1, f.jack.calls)
}
