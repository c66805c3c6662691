package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"
	"github.com/rs/zerolog"

	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/engine"
)

// AddressPrefix is prepended to every command name, e.g. /loopers/tempo.
const AddressPrefix = "/loopers/"

var oscCommands = []engine.CommandKind{
	engine.CmdStart,
	engine.CmdStop,
	engine.CmdToggle,
	engine.CmdTempo,
	engine.CmdMetronome,
	engine.CmdVolume,
	engine.CmdSignature,
}

// OSC serves engine commands over UDP.
type OSC struct {
	conn    net.PacketConn
	closing atomic.Bool
	done    chan struct{}
	err     error
}

// ListenOSC binds addr (for example ":9000") and serves until ctx ends or
// Close is called.
func ListenOSC(ctx context.Context, addr string, cmds *bridge.CommandSender[engine.Command], log zerolog.Logger) (*OSC, error) {
	log = log.With().Str("remote", "osc").Logger()

	d, err := newDispatcher(ctx, cmds, log)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for OSC on %s: %w", addr, err)
	}

	o := &OSC{conn: conn, done: make(chan struct{})}

	go func() {
		defer close(o.done)
		err := serve(conn, d, log)
		if err != nil && !o.closing.Load() && !errors.Is(err, net.ErrClosed) {
			o.err = err
			log.Error().Err(err).Msg("OSC server stopped")
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			o.closing.Store(true)
			conn.Close()
		case <-o.done:
		}
	}()

	log.Info().Str("addr", conn.LocalAddr().String()).Msg("Listening for OSC commands")
	return o, nil
}

// maxPacketSize is the largest UDP payload.
const maxPacketSize = 65535

// serve reads packets on one goroutine and dispatches each synchronously, so
// commands reach the queue in the order they arrived. osc.Server hands every
// packet to its own goroutine and cannot promise that.
func serve(conn net.PacketConn, d osc.Dispatcher, log zerolog.Logger) error {
	buf := make([]byte, maxPacketSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return err
		}
		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			log.Warn().Err(err).Stringer("from", from).Msg("Ignoring malformed OSC packet")
			continue
		}
		dispatchInOrder(d, packet)
	}
}

// dispatchInOrder flattens bundles depth first. Bundle time tags are not
// honoured; their messages run immediately.
func dispatchInOrder(d osc.Dispatcher, p osc.Packet) {
	b, ok := p.(*osc.Bundle)
	if !ok {
		d.Dispatch(p)
		return
	}
	for _, m := range b.Messages {
		d.Dispatch(m)
	}
	for _, inner := range b.Bundles {
		dispatchInOrder(d, inner)
	}
}

// Addr returns the bound address.
func (o *OSC) Addr() net.Addr {
	return o.conn.LocalAddr()
}

// Close stops the server and waits for it to exit.
func (o *OSC) Close() error {
	o.closing.Store(true)
	err := o.conn.Close()
	<-o.done
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	if o.err != nil {
		return o.err
	}
	return err
}

func newDispatcher(ctx context.Context, cmds *bridge.CommandSender[engine.Command], log zerolog.Logger) (*osc.StandardDispatcher, error) {
	d := osc.NewStandardDispatcher()
	for _, kind := range oscCommands {
		kind := kind
		err := d.AddMsgHandler(AddressPrefix+kind.String(), func(msg *osc.Message) {
			cmd, err := commandFromOSC(kind, msg)
			if err != nil {
				log.Warn().Err(err).Str("address", msg.Address).Msg("Ignoring OSC message")
				return
			}
			if err := cmds.Send(ctx, cmd); err != nil {
				log.Error().Err(err).Stringer("command", kind).Msg("Failed to queue command")
				return
			}
			log.Debug().Stringer("command", kind).Float64("value", cmd.Value).Msg("Queued command")
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register OSC handler for %s: %w", kind, err)
		}
	}
	return d, nil
}

// commandFromOSC maps a message's arguments onto a command. Transport
// commands take no argument; metronome defaults to on when sent bare.
func commandFromOSC(kind engine.CommandKind, msg *osc.Message) (engine.Command, error) {
	cmd := engine.Command{Kind: kind}
	switch kind {
	case engine.CmdStart, engine.CmdStop, engine.CmdToggle:
		return cmd, nil
	case engine.CmdMetronome:
		if len(msg.Arguments) == 0 {
			cmd.Value = 1
			return cmd, nil
		}
	}

	if len(msg.Arguments) != 1 {
		return engine.Command{}, fmt.Errorf("%s expects one argument, got %d", kind, len(msg.Arguments))
	}
	v, err := oscNumber(msg.Arguments[0])
	if err != nil {
		return engine.Command{}, fmt.Errorf("%s: %w", kind, err)
	}
	cmd.Value = v
	return cmd, nil
}

func oscNumber(arg interface{}) (float64, error) {
	switch v := arg.(type) {
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		switch strings.ToLower(v) {
		case "on", "true":
			return 1, nil
		case "off", "false":
			return 0, nil
		}
	}
	return 0, fmt.Errorf("unsupported argument %v (%T)", arg, arg)
}
