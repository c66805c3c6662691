package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/loopers/internal/audio"
	"github.com/petems/loopers/internal/config"
	"github.com/petems/loopers/internal/remote"
)

func execute(t *testing.T, args ...string) (config.Startup, error) {
	t.Helper()
	var got config.Startup
	cmd := newRootCmd(func(ctx context.Context, cfg config.Startup) error {
		require.NotNil(t, ctx)
		got = cfg
		return nil
	})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return got, err
}

func TestRootCmdDefaults(t *testing.T) {
	cfg, err := execute(t)
	require.NoError(t, err)

	assert.Equal(t, config.Startup{
		Driver:      audio.DefaultDriver(),
		NATSSubject: remote.DefaultSubject,
	}, cfg)
}

func TestRootCmdFlags(t *testing.T) {
	cfg, err := execute(t,
		"--restore",
		"--no-gui",
		"--driver", "jack",
		"--debug",
		"--log-path", "/tmp/loopers.log",
		"--nats-url", "nats://localhost:4222",
		"--nats-subject", "studio.a",
		"--osc-addr", ":9000",
	)
	require.NoError(t, err)

	assert.Equal(t, config.Startup{
		Restore:     true,
		Headless:    true,
		Driver:      "jack",
		Debug:       true,
		LogPath:     "/tmp/loopers.log",
		NATSURL:     "nats://localhost:4222",
		NATSSubject: "studio.a",
		OSCAddr:     ":9000",
	}, cfg)
}

func TestRootCmdRejectsArgs(t *testing.T) {
	_, err := execute(t, "extra")
	assert.Error(t, err)
}

func TestRootCmdReturnsRunError(t *testing.T) {
	boom := errors.New("backend jack: no server")
	cmd := newRootCmd(func(context.Context, config.Startup) error { return boom })
	cmd.SetArgs([]string{"--no-gui"})
	assert.ErrorIs(t, cmd.Execute(), boom)
}
