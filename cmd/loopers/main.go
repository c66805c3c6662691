package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petems/loopers/internal/app"
	"github.com/petems/loopers/internal/audio"
	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/config"
	"github.com/petems/loopers/internal/driver"
	"github.com/petems/loopers/internal/engine"
	"github.com/petems/loopers/internal/hotkey"
	"github.com/petems/loopers/internal/logging"
	"github.com/petems/loopers/internal/permissions"
	"github.com/petems/loopers/internal/remote"
	"github.com/petems/loopers/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

// transportHotkey toggles play/stop from anywhere.
const transportHotkey = "Alt+Space"

func newRootCmd(run func(ctx context.Context, cfg config.Startup) error) *cobra.Command {
	var cfg config.Startup

	cmd := &cobra.Command{
		Use:           "loopers",
		Short:         "A live looper for JACK, CoreAudio and native output",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&cfg.Restore, "restore", false, "Restore the previous session")
	flags.BoolVar(&cfg.Headless, "no-gui", false, "Run without a control surface")
	flags.StringVar(&cfg.Driver, "driver", audio.DefaultDriver(),
		fmt.Sprintf("Audio driver (%s, %s or %s)", audio.DriverJack, audio.DriverCoreAudio, audio.DriverOto))
	flags.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flags.StringVar(&cfg.LogPath, "log-path", "", "Also write logs to this file")
	flags.StringVar(&cfg.NATSURL, "nats-url", "", "Accept commands from this NATS server")
	flags.StringVar(&cfg.NATSSubject, "nats-subject", remote.DefaultSubject, "NATS subject to read commands from")
	flags.StringVar(&cfg.OSCAddr, "osc-addr", "", "Accept OSC commands on this UDP address, e.g. :9000")

	return cmd
}

func run(ctx context.Context, cfg config.Startup) error {
	log, err := logging.Setup(cfg.Debug, cfg.LogPath)
	if err != nil {
		logging.New().Warn().Err(err).Msg("Failed to set up logging, continuing with console output only")
	}

	log.Info().Str("version", Version).Str("driver", cfg.Driver).Msg("Loopers starting...")

	err = app.Run(ctx, cfg, app.Options{
		Backends: audio.Backends(log),
		NewSurface: func(cmds *bridge.CommandSender[engine.Command], updates *bridge.GuiReceiver[engine.Update]) driver.Surface {
			hk, err := hotkey.New()
			if err != nil {
				log.Warn().Err(err).Msg("Global hotkeys unavailable")
			} else if !permissions.CheckAccessibility() {
				log.Warn().Msg("Accessibility permission not granted; the hotkey may not fire")
			}
			return tray.New(tray.Config{
				Commands: cmds,
				Updates:  updates,
				Hotkeys:  hk,
				Hotkey:   transportHotkey,
				Logger:   log,
				Version:  Version,
				Commit:   Commit,
			})
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	log.Info().Msg("Shut down")
	return nil
}

func main() {
	if err := newRootCmd(run).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
