package bridge

import "sync/atomic"

// UpdateCapacity is the buffer between the engine and a connected control
// surface. Updates that do not fit are dropped by TrySend; they are
// snapshots, so a newer one supersedes a lost one.
const UpdateCapacity = 1024

// GuiSender delivers engine updates to the control surface. It is either
// connected to a GuiReceiver or disconnected, in which case every send is a
// no-op. The variant is fixed when the sender is built.
type GuiSender[U any] struct {
	ch      chan U
	dropped atomic.Uint64
}

// GuiReceiver is the control surface's end of a connected GuiSender.
type GuiReceiver[U any] struct {
	ch chan U
}

// NewGuiSender returns a connected sender and the receiver draining it.
func NewGuiSender[U any](capacity int) (*GuiSender[U], *GuiReceiver[U]) {
	if capacity < 1 {
		capacity = 1
	}
	ch := make(chan U, capacity)
	return &GuiSender[U]{ch: ch}, &GuiReceiver[U]{ch: ch}
}

// Disconnected returns a sender with no consumer. Sends cost a nil check.
func Disconnected[U any]() *GuiSender[U] {
	return &GuiSender[U]{}
}

// Connected reports whether a receiver exists.
func (s *GuiSender[U]) Connected() bool {
	return s.ch != nil
}

// Send delivers u, waiting for the receiver if the buffer is full. Never call
// it from the audio callback.
func (s *GuiSender[U]) Send(u U) {
	if s.ch == nil {
		return
	}
	s.ch <- u
}

// TrySend delivers u if there is room and reports whether it was accepted.
// A full buffer drops u and bumps the drop counter. The disconnected sender
// always reports true.
func (s *GuiSender[U]) TrySend(u U) bool {
	if s.ch == nil {
		return true
	}
	select {
	case s.ch <- u:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped returns how many updates TrySend discarded.
func (s *GuiSender[U]) Dropped() uint64 {
	return s.dropped.Load()
}

// Updates returns the channel the control surface reads from.
func (r *GuiReceiver[U]) Updates() <-chan U {
	return r.ch
}
