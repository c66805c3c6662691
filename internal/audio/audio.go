// Package audio holds the backend integrations. Each one owns the realtime
// callback that drives the engine and runs until the process shuts down.
package audio

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/loopers/internal/config"
	"github.com/petems/loopers/internal/driver"
	"github.com/petems/loopers/internal/engine"
)

// Driver names accepted by --driver.
const (
	DriverJack      = "jack"
	DriverCoreAudio = "coreaudio"
	DriverOto       = "oto"
)

// stream is the part of an audio stream the runner needs.
type stream interface {
	Start() error
	Stop() error
	Close() error
}

// opener builds a stream whose callback drives e.
type opener func(e *engine.Engine) (stream, error)

// DefaultDriver is the driver used when --driver is not given.
func DefaultDriver() string {
	if runtime.GOOS == "darwin" {
		return DriverCoreAudio
	}
	return DriverJack
}

// Backends returns every integration known to this build, with availability
// set for the current platform.
func Backends(log zerolog.Logger) []driver.Backend {
	return []driver.Backend{
		{
			Name:      DriverJack,
			Available: runtime.GOOS != "windows",
			Main:      hostAPIMain(DriverJack, portaudio.JACK, log),
		},
		{
			Name:      DriverCoreAudio,
			Available: runtime.GOOS == "darwin",
			Main:      coreAudioMain(log),
		},
		{
			Name:      DriverOto,
			Available: true,
			Main: func(ctx context.Context, res driver.Resources) error {
				log.Warn().Msg("oto driver is playback only; input is not captured")
				return run(ctx, DriverOto, res, openOto, log)
			},
		},
	}
}

// run is the common body of every backend: build the engine, start the
// stream, hand the main thread to the control surface (or wait for shutdown
// when headless), then stop and persist the session.
func run(ctx context.Context, name string, res driver.Resources, open opener, log zerolog.Logger) error {
	e := engine.New(res.Metronome, res.Commands, res.Updates)

	if res.Restore {
		s, err := config.LoadSession()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to restore session, using defaults")
		} else {
			log.Info().Float64("tempo", s.Tempo).Int("beats_per_bar", s.BeatsPerBar).Msg("Restored session")
		}
		e.Apply(s)
	}

	st, err := open(e)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Start(); err != nil {
		return fmt.Errorf("failed to start %s stream: %w", name, err)
	}

	log.Info().
		Str("driver", name).
		Int("sample_rate", e.SampleRate()).
		Bool("gui", res.Surface != nil).
		Msg("Audio running")

	var runErr error
	if res.Surface != nil {
		runErr = res.Surface.Run(ctx)
	} else {
		<-ctx.Done()
	}

	if err := st.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop audio stream")
	}
	if dropped := res.Updates.Dropped(); dropped > 0 {
		log.Debug().Uint64("dropped", dropped).Msg("GUI updates dropped")
	}

	// The callback has stopped, so the engine state is ours again.
	if err := e.Snapshot().Save(); err != nil {
		log.Error().Err(err).Msg("Failed to save session")
	}

	return runErr
}
