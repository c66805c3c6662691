package audio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/loopers/internal/driver"
	"github.com/petems/loopers/internal/engine"
	"github.com/petems/loopers/internal/permissions"
)

const (
	framesPerBuffer = 256
	maxOutChannels  = 2
)

type portAudioStream struct {
	stream *portaudio.Stream
}

func hostAPIMain(name string, api portaudio.HostApiType, log zerolog.Logger) driver.EntryPoint {
	return func(ctx context.Context, res driver.Resources) error {
		return run(ctx, name, res, openHostAPI(name, api, log), log)
	}
}

func coreAudioMain(log zerolog.Logger) driver.EntryPoint {
	return func(ctx context.Context, res driver.Resources) error {
		// macOS refuses input without explicit microphone approval
		if err := permissions.EnsureMicrophone(); err != nil {
			return err
		}
		return run(ctx, DriverCoreAudio, res, openHostAPI(DriverCoreAudio, portaudio.CoreAudio, log), log)
	}
}

// openHostAPI opens a duplex stream on the default devices of one PortAudio
// host API (JACK, CoreAudio).
func openHostAPI(name string, api portaudio.HostApiType, log zerolog.Logger) opener {
	return func(e *engine.Engine) (stream, error) {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
		}

		s, err := openDuplex(name, api, e, log)
		if err != nil {
			portaudio.Terminate()
			return nil, err
		}
		return s, nil
	}
}

func openDuplex(name string, api portaudio.HostApiType, e *engine.Engine, log zerolog.Logger) (*portAudioStream, error) {
	info, err := portaudio.HostApi(api)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s host api: %w", name, err)
	}
	if info.DefaultOutputDevice == nil {
		return nil, fmt.Errorf("%s has no output device", name)
	}
	logDevices(info, log)

	params := portaudio.LowLatencyParameters(info.DefaultInputDevice, info.DefaultOutputDevice)
	params.SampleRate = float64(e.SampleRate())
	params.FramesPerBuffer = framesPerBuffer
	params.Output.Channels = min(maxOutChannels, info.DefaultOutputDevice.MaxOutputChannels)
	outChannels := params.Output.Channels

	var callback interface{}
	if info.DefaultInputDevice != nil && info.DefaultInputDevice.MaxInputChannels > 0 {
		params.Input.Channels = 1
		callback = func(in, out []float32) {
			e.Process(in, out, outChannels)
		}
	} else {
		log.Warn().Str("driver", name).Msg("No input device, running playback only")
		params.Input.Device = nil
		params.Input.Channels = 0
		callback = func(out []float32) {
			e.Process(nil, out, outChannels)
		}
	}

	s, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s stream: %w", name, err)
	}

	return &portAudioStream{stream: s}, nil
}

func logDevices(info *portaudio.HostApiInfo, log zerolog.Logger) {
	for _, d := range info.Devices {
		log.Debug().
			Str("api", info.Name).
			Str("device", d.Name).
			Int("inputs", d.MaxInputChannels).
			Int("outputs", d.MaxOutputChannels).
			Float64("default_rate", d.DefaultSampleRate).
			Msg("Audio device")
	}
}

func (p *portAudioStream) Start() error {
	return p.stream.Start()
}

func (p *portAudioStream) Stop() error {
	return p.stream.Stop()
}

func (p *portAudioStream) Close() error {
	err := p.stream.Close()
	portaudio.Terminate()
	return err
}
