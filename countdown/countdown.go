// Package countdown implements a pause/resume-capable countdown engine that
// stays correct on hosts that throttle or suspend timer delivery.
//
// The engine never counts ticks. On start it computes an absolute deadline
// and every wake-up re-derives the remaining time from that deadline and the
// wall clock, so missed or delayed wake-ups cannot skew the result. Wake-ups
// are aligned to whole-second boundaries relative to the deadline, and a
// host visibility signal triggers an immediate re-synchronization after the
// surface was hidden.
package countdown

import (
	"github.com/tickdown/tickdown/internal/errorutil"
)

// State is the lifecycle state of an [Engine].
type State string

const (
	// StateIdle is the initial state: the countdown holds its full duration.
	StateIdle State = "idle"
	// StateRunning means a deadline is set and wake-ups are scheduled.
	StateRunning State = "running"
	// StatePaused means the remaining time is frozen until the next start.
	StatePaused State = "paused"
	// StateCompleted means the countdown reached zero. It is terminal until
	// the engine is stopped.
	StateCompleted State = "completed"
)

func (s State) String() string { return string(s) }

// Engine triggers.
const (
	evtStart  = "start"
	evtPause  = "pause"
	evtStop   = "stop"
	evtExpire = "expire"
)

// Error represents a countdown error.
// See [errorutil.Error].
type Error = errorutil.Error

// ErrInvalidArgument is returned on constructor precondition violations,
// such as a non-positive duration.
const ErrInvalidArgument = errorutil.ErrInvalidArgument

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...)
}
