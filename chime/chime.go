// Package chime provides the completion alert: a stateless "play a
// notification" capability invoked once when a countdown completes.
//
// Playback failures must never affect the countdown's correctness, so the
// session layer swallows and logs any error returned from a [Player].
package chime

import (
	"io"
	"os"

	"braces.dev/errtrace"
)

// Player plays a single notification sound.
type Player interface {
	Play() error
}

// PlayerFunc adapts a function to the [Player] interface.
type PlayerFunc func() error

func (f PlayerFunc) Play() error { return errtrace.Wrap(f()) }

// Nop is a [Player] that does nothing.
var Nop Player = PlayerFunc(func() error { return nil })

// TerminalBell is a [Player] that rings the terminal bell.
type TerminalBell struct {
	// Out is the writer the bell character is sent to.
	// If nil, [os.Stdout] is used.
	Out io.Writer
}

func (b *TerminalBell) out() io.Writer {
	if b == nil || b.Out == nil {
		return os.Stdout
	}
	return b.Out
}

// Play rings the bell.
func (b *TerminalBell) Play() error {
	_, err := b.out().Write([]byte{'\a'})
	return errtrace.Wrap(err)
}
