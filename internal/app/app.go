// Package app is the startup sequence: resolve the backend, load the click
// assets, build the channels between the control plane and the audio plane,
// then hand everything to the backend.
package app

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/petems/loopers/internal/assets"
	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/config"
	"github.com/petems/loopers/internal/driver"
	"github.com/petems/loopers/internal/engine"
	"github.com/petems/loopers/internal/remote"
)

// SurfaceFactory builds the control surface from the producing half of the
// command queue and the consuming half of the update channel.
type SurfaceFactory func(cmds *bridge.CommandSender[engine.Command], updates *bridge.GuiReceiver[engine.Update]) driver.Surface

// RemoteStarter starts a command producer that runs alongside the surface.
type RemoteStarter func(ctx context.Context, cmds *bridge.CommandSender[engine.Command]) (io.Closer, error)

type Options struct {
	Backends   []driver.Backend
	NewSurface SurfaceFactory // Not called when headless
	LoadAssets func() assets.Metronome
	Logger     zerolog.Logger

	// Remotes override the producers derived from the startup config.
	Remotes []RemoteStarter
}

// Run performs the startup sequence and blocks inside the selected backend
// until it returns. Driver errors are reported before anything is allocated.
func Run(ctx context.Context, cfg config.Startup, opts Options) error {
	log := opts.Logger

	d := driver.NewDispatcher(opts.Backends...)
	if _, err := d.Resolve(cfg.Driver); err != nil {
		return err
	}

	if cfg.Restore {
		log.Info().Msg("Restoring previous session")
	}

	load := opts.LoadAssets
	if load == nil {
		load = assets.MustLoad
	}
	metronome := load()

	cmdTx, cmdRx := bridge.NewControlChannel[engine.Command](bridge.ControlCapacity)

	var (
		updates *bridge.GuiSender[engine.Update]
		surface driver.Surface
	)
	if cfg.Headless || opts.NewSurface == nil {
		updates = bridge.Disconnected[engine.Update]()
	} else {
		var rx *bridge.GuiReceiver[engine.Update]
		updates, rx = bridge.NewGuiSender[engine.Update](bridge.UpdateCapacity)
		surface = opts.NewSurface(cmdTx, rx)
	}

	remotes := opts.Remotes
	if remotes == nil {
		remotes = Remotes(cfg, log)
	}
	closers, err := startRemotes(ctx, remotes, cmdTx)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close remote")
			}
		}
	}()

	log.Debug().
		Str("driver", cfg.Driver).
		Bool("gui", surface != nil).
		Int("remotes", len(closers)).
		Msg("Dispatching to backend")

	return d.Dispatch(ctx, cfg.Driver, driver.Resources{
		Surface:   surface,
		Updates:   updates,
		Commands:  cmdRx,
		Metronome: metronome,
		Restore:   cfg.Restore,
	})
}

// Remotes returns the producers enabled by the startup config.
func Remotes(cfg config.Startup, log zerolog.Logger) []RemoteStarter {
	var rs []RemoteStarter
	if cfg.NATSURL != "" {
		rs = append(rs, func(ctx context.Context, cmds *bridge.CommandSender[engine.Command]) (io.Closer, error) {
			return remote.DialNATS(ctx, cfg.NATSURL, cfg.NATSSubject, cmds, log)
		})
	}
	if cfg.OSCAddr != "" {
		rs = append(rs, func(ctx context.Context, cmds *bridge.CommandSender[engine.Command]) (io.Closer, error) {
			return remote.ListenOSC(ctx, cfg.OSCAddr, cmds, log)
		})
	}
	return rs
}

func startRemotes(ctx context.Context, starters []RemoteStarter, cmds *bridge.CommandSender[engine.Command]) ([]io.Closer, error) {
	var closers []io.Closer
	for _, start := range starters {
		c, err := start(ctx, cmds)
		if err != nil {
			var errs []error
			errs = append(errs, err)
			for _, prev := range closers {
				errs = append(errs, prev.Close())
			}
			return nil, errors.Join(errs...)
		}
		closers = append(closers, c)
	}
	return closers, nil
}
