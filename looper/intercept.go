package looper

import (
	"time"

	"bloopgo/midi"
)

// Action is the disposition an Interceptor chooses for an outgoing message.
type Action int

const (
	// ActionForward sends the message unchanged, immediately.
	ActionForward Action = iota
	// ActionDrop discards the message entirely.
	ActionDrop
	// ActionDelay asks for the message to be sent after the returned
	// duration. Bloop.send ignores the duration and sends the message
	// immediately.
	ActionDelay
)

// Interceptor is the extension seam between a bloop's internal scheduling
// decisions and what actually reaches the output port. It is intentionally
// thin: it sees one message at a time, immediately before send, and may
// mutate it in place, drop it, or ask for a delay. It does not see or
// influence recording/playback timing, key accounting, or tempo — those
// stay entirely inside Bloop.Tick.
//
// This is scaffolding only. No scripting host is implemented here.
type Interceptor interface {
	Intercept(at time.Time, msg *midi.Message) (Action, time.Duration)
}

// NopInterceptor forwards every message unchanged.
type NopInterceptor struct{}

func (NopInterceptor) Intercept(time.Time, *midi.Message) (Action, time.Duration) {
	return ActionForward, 0
}
