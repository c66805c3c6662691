// Package bridge carries values between the control plane (tray, remotes)
// and the realtime audio plane.
//
// Commands travel on a bounded queue that never drops: producers block (or get
// ErrControlFull from TrySend) when it is full. Updates travel the other way on
// a GuiSender, which the realtime side only ever uses through TrySend.
package bridge

import (
	"context"
	"errors"
)

// ControlCapacity is the number of in-flight commands allowed between the
// control surface and the audio engine.
const ControlCapacity = 100

// ErrControlFull is returned by TrySend when the command queue is at capacity.
var ErrControlFull = errors.New("control channel full")

// CommandSender is the producing half of the control channel. It is safe for
// use by several goroutines at once.
type CommandSender[C any] struct {
	ch chan C
}

// CommandReceiver is the consuming half of the control channel. Only the
// audio backend holds one.
type CommandReceiver[C any] struct {
	ch chan C
}

// NewControlChannel builds a command queue holding at most capacity values.
func NewControlChannel[C any](capacity int) (*CommandSender[C], *CommandReceiver[C]) {
	if capacity < 1 {
		capacity = 1
	}
	ch := make(chan C, capacity)
	return &CommandSender[C]{ch: ch}, &CommandReceiver[C]{ch: ch}
}

// Send enqueues c, waiting for space while the queue is full. It returns
// ctx.Err() if the context ends first; the command is then not enqueued.
func (s *CommandSender[C]) Send(ctx context.Context, c C) error {
	select {
	case s.ch <- c:
		return nil
	default:
	}

	select {
	case s.ch <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues c without waiting.
func (s *CommandSender[C]) TrySend(c C) error {
	select {
	case s.ch <- c:
		return nil
	default:
		return ErrControlFull
	}
}

// Cap returns the queue capacity.
func (s *CommandSender[C]) Cap() int {
	return cap(s.ch)
}

// TryRecv polls for the next command. It never blocks and never allocates,
// so it is the only receive used from the audio callback.
func (r *CommandReceiver[C]) TryRecv() (C, bool) {
	select {
	case c := <-r.ch:
		return c, true
	default:
		var zero C
		return zero, false
	}
}

// Recv waits for the next command or for ctx to end.
func (r *CommandReceiver[C]) Recv(ctx context.Context) (C, error) {
	select {
	case c := <-r.ch:
		return c, nil
	case <-ctx.Done():
		var zero C
		return zero, ctx.Err()
	}
}

// Len returns the number of queued commands.
func (r *CommandReceiver[C]) Len() int {
	return len(r.ch)
}
