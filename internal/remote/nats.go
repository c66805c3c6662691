// Package remote feeds engine commands from outside the process: a NATS
// subject and an OSC server. Both are ordinary control-plane producers and
// use the blocking Send, so a full command queue slows them down instead of
// losing commands.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/petems/loopers/internal/bridge"
	"github.com/petems/loopers/internal/engine"
)

// DefaultSubject is the NATS subject commands are read from.
const DefaultSubject = "loopers.commands"

// Conn is the part of *nats.Conn the subscriber needs.
type Conn interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subject string, data []byte) error
	Drain() error
}

// reply is published to the request's reply subject, if any.
type reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NATS forwards JSON commands published on a subject to the engine.
type NATS struct {
	ctx     context.Context
	conn    Conn
	subject string
	cmds    *bridge.CommandSender[engine.Command]
	log     zerolog.Logger
}

// DialNATS connects to url and subscribes to subject. Commands are forwarded
// until ctx ends or Close is called.
func DialNATS(ctx context.Context, url, subject string, cmds *bridge.CommandSender[engine.Command], log zerolog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("loopers"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	n, err := newNATS(ctx, nc, subject, cmds, log)
	if err != nil {
		nc.Close()
		return nil, err
	}
	log.Info().Str("url", url).Str("subject", n.subject).Msg("Listening for NATS commands")
	return n, nil
}

func newNATS(ctx context.Context, conn Conn, subject string, cmds *bridge.CommandSender[engine.Command], log zerolog.Logger) (*NATS, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	n := &NATS{
		ctx:     ctx,
		conn:    conn,
		subject: subject,
		cmds:    cmds,
		log:     log.With().Str("remote", "nats").Logger(),
	}
	if _, err := conn.Subscribe(subject, n.handle); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return n, nil
}

func (n *NATS) handle(m *nats.Msg) {
	err := n.forward(m.Data)
	if err != nil {
		n.log.Warn().Err(err).Str("payload", string(m.Data)).Msg("Ignoring NATS command")
	}
	if m.Reply == "" {
		return
	}

	r := reply{OK: err == nil}
	if err != nil {
		r.Error = err.Error()
	}
	data, _ := json.Marshal(r)
	if err := n.conn.Publish(m.Reply, data); err != nil {
		n.log.Error().Err(err).Msg("Failed to reply")
	}
}

func (n *NATS) forward(data []byte) error {
	cmd, err := decodeCommand(data)
	if err != nil {
		return err
	}
	if err := n.cmds.Send(n.ctx, cmd); err != nil {
		return fmt.Errorf("failed to queue %s: %w", cmd.Kind, err)
	}
	n.log.Debug().Stringer("command", cmd.Kind).Float64("value", cmd.Value).Msg("Queued command")
	return nil
}

var (
	errMissingCommand = errors.New("missing command")
	errMissingValue   = errors.New("missing value")
)

// wireCommand tells an absent value apart from an explicit zero.
type wireCommand struct {
	Kind  engine.CommandKind `json:"command"`
	Value *float64           `json:"value"`
}

// decodeCommand parses a JSON command. Tempo, volume and signature need a
// value; metronome without one switches the click on.
func decodeCommand(data []byte) (engine.Command, error) {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return engine.Command{}, fmt.Errorf("invalid command payload: %w", err)
	}
	if w.Kind == 0 {
		return engine.Command{}, errMissingCommand
	}

	cmd := engine.Command{Kind: w.Kind}
	switch w.Kind {
	case engine.CmdStart, engine.CmdStop, engine.CmdToggle:
	case engine.CmdMetronome:
		cmd.Value = 1
		if w.Value != nil {
			cmd.Value = *w.Value
		}
	default:
		if w.Value == nil {
			return engine.Command{}, fmt.Errorf("%s: %w", w.Kind, errMissingValue)
		}
		cmd.Value = *w.Value
	}
	return cmd, nil
}

// Close drains the subscription and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
