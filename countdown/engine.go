package countdown

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/tickdown/tickdown/internal/types"
	"github.com/tickdown/tickdown/log"
	"github.com/tickdown/tickdown/timing"
	"github.com/tickdown/tickdown/visibility"
)

// TickHandler is called with the freshly computed remaining time after every
// observable change.
type TickHandler = func(remaining time.Duration)

// StateHandler is called after every state transition.
type StateHandler = func(from, to State)

// EngineOptions contains options for a countdown engine.
type EngineOptions struct {
	// OnComplete is invoked exactly once per cycle when the countdown
	// reaches zero. Optional.
	OnComplete func()
	// AutoStart starts the countdown immediately on construction.
	AutoStart bool
	// Visibility is the host visibility provider used for
	// re-synchronization. If nil, the engine degrades to pure scheduled
	// wake-up timing.
	Visibility visibility.Provider
	// Log is the logger that will be used with the engine.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
}

func (o *EngineOptions) onComplete() func() {
	if o == nil {
		return nil
	}
	return o.OnComplete
}

func (o *EngineOptions) autoStart() bool {
	return o != nil && o.AutoStart
}

func (o *EngineOptions) visibility() visibility.Provider {
	if o == nil {
		return nil
	}
	return o.Visibility
}

func (o *EngineOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// Engine is a single countdown with an immutable total duration.
//
// All transitions are serialized by an internal mutex; wake-up and
// visibility callbacks re-check state under the lock, so a stale wake-up can
// never act after a transition. User callbacks (ticks, state changes,
// completion) are invoked synchronously from the mutating call's goroutine
// but outside the lock, so they may call back into the engine.
type Engine struct {
	mu  sync.Mutex
	fsm *stateless.StateMachine
	log *slog.Logger

	total time.Duration
	// deadline is non-zero only while running.
	deadline time.Time
	// remaining is the last computed observable value.
	remaining time.Duration
	// pausedRemaining is valid only while hasPausedRemaining is set.
	pausedRemaining    time.Duration
	hasPausedRemaining bool

	// wake is the single pending wake-up; wakeGen invalidates stale ones.
	wake    timing.Timer
	wakeGen uint64

	onComplete    func()
	completeFired bool

	unsubVis func()
	closed   bool

	onTick  types.CallbackManager[TickHandler]
	onState types.CallbackManager[StateHandler]

	// effects accumulated under the lock, delivered after release.
	pendTrans    []stateChange
	pendTicks    []time.Duration
	pendComplete bool
}

type stateChange struct{ from, to State }

// NewEngine creates a countdown engine with the given total duration.
func NewEngine(total time.Duration, opts *EngineOptions) (*Engine, error) {
	if total <= 0 {
		return nil, errtrace.Wrap(NewInvalidArgumentError("non-positive duration %v", total))
	}

	e := &Engine{
		log:        opts.log(),
		total:      total,
		remaining:  total,
		onComplete: opts.onComplete(),
	}
	e.initFSM()

	if vis := opts.visibility(); vis != nil {
		e.unsubVis = vis.OnChange(func(visible bool) {
			if visible {
				e.resync()
			}
		})
	}

	e.log.LogAttrs(context.Background(), slog.LevelDebug, "engine created",
		slog.Duration("total", total),
	)

	if opts.autoStart() {
		e.Start()
	}
	return e, nil
}

func (e *Engine) initFSM() {
	e.fsm = stateless.NewStateMachine(StateIdle)

	e.fsm.Configure(StateIdle).
		OnEntry(e.actReset).
		Permit(evtStart, StateRunning).
		Ignore(evtPause).
		Ignore(evtStop)

	e.fsm.Configure(StateRunning).
		OnEntry(e.actRun).
		Ignore(evtStart).
		Permit(evtPause, StatePaused).
		Permit(evtStop, StateIdle).
		Permit(evtExpire, StateCompleted)

	e.fsm.Configure(StatePaused).
		OnEntry(e.actPause).
		Permit(evtStart, StateRunning).
		Ignore(evtPause).
		Permit(evtStop, StateIdle)

	// Completed is terminal until the engine is stopped: restarting without
	// an explicit Stop is ignored.
	e.fsm.Configure(StateCompleted).
		OnEntry(e.actComplete).
		Ignore(evtStart).
		Ignore(evtPause).
		Permit(evtStop, StateIdle)

	e.fsm.OnTransitioned(func(_ context.Context, tr stateless.Transition) {
		from, _ := tr.Source.(State)
		to, _ := tr.Destination.(State)
		e.pendTrans = append(e.pendTrans, stateChange{from, to})
	})
}

// Total returns the configured full duration.
func (e *Engine) Total() time.Duration {
	if e == nil {
		return 0
	}
	return e.total
}

// State returns the current engine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	return e.fsm.MustState().(State) //nolint:forcetypeassert
}

// IsRunning reports whether the countdown is currently running.
func (e *Engine) IsRunning() bool { return e.State() == StateRunning }

// IsPaused reports whether the countdown is currently paused.
func (e *Engine) IsPaused() bool { return e.State() == StatePaused }

// Remaining returns the remaining time, always >= 0. While running it is
// derived from the deadline and the current wall clock, never from
// accumulated ticks.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stateLocked() == StateRunning {
		if left := e.deadline.Sub(timing.Now()); left > 0 {
			return left
		}
		return 0
	}
	return e.remaining
}

// OnTick registers a callback invoked with the remaining time after every
// observable change. The returned function removes the callback.
func (e *Engine) OnTick(fn TickHandler) (remove func()) {
	return e.onTick.Add(fn)
}

// OnStateChange registers a callback invoked after every state transition.
// The returned function removes the callback.
func (e *Engine) OnStateChange(fn StateHandler) (remove func()) {
	return e.onState.Add(fn)
}

// Start starts the countdown, or resumes it when paused. It is a no-op
// while running or completed.
func (e *Engine) Start() { e.fireEvt(evtStart) }

// Pause freezes the remaining time. It is a no-op unless running.
func (e *Engine) Pause() { e.fireEvt(evtPause) }

// Stop cancels any pending wake-up and resets the countdown to its full
// duration. It is idempotent from every state.
func (e *Engine) Stop() { e.fireEvt(evtStop) }

func (e *Engine) fireEvt(evt string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if err := e.fsm.Fire(evt); err != nil {
		state := e.stateLocked()
		e.mu.Unlock()
		panic(fmt.Errorf("fire %q in state %q: %w", evt, state, err))
	}
	e.deliverEffects()
}

// Close tears the engine down: it cancels the pending wake-up and
// unsubscribes from the visibility provider. The engine must not be used
// afterwards. Close is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cancelWake()
	unsub := e.unsubVis
	e.unsubVis = nil
	e.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	e.log.LogAttrs(context.Background(), slog.LevelDebug, "engine closed")
}

func (e *Engine) actRun(ctx context.Context, _ ...any) error {
	left := e.total
	if e.hasPausedRemaining {
		left = e.pausedRemaining
		e.pausedRemaining = 0
		e.hasPausedRemaining = false
	}

	e.deadline = timing.Now().Add(left)
	e.remaining = left
	e.pendTicks = append(e.pendTicks, left)
	e.scheduleWake(left)

	e.log.LogAttrs(ctx, slog.LevelDebug, "countdown running",
		slog.Duration("remaining", left),
		slog.Time("deadline", e.deadline),
	)
	return nil
}

func (e *Engine) actPause(ctx context.Context, _ ...any) error {
	e.cancelWake()

	left := e.deadline.Sub(timing.Now())
	if left < 0 {
		left = 0
	}
	e.deadline = time.Time{}
	e.pausedRemaining = left
	e.hasPausedRemaining = true
	e.remaining = left
	e.pendTicks = append(e.pendTicks, left)

	e.log.LogAttrs(ctx, slog.LevelDebug, "countdown paused",
		slog.Duration("remaining", left),
	)
	return nil
}

func (e *Engine) actReset(ctx context.Context, _ ...any) error {
	e.cancelWake()

	e.deadline = time.Time{}
	e.pausedRemaining = 0
	e.hasPausedRemaining = false
	e.remaining = e.total
	e.completeFired = false
	e.pendTicks = append(e.pendTicks, e.total)

	e.log.LogAttrs(ctx, slog.LevelDebug, "countdown reset",
		slog.Duration("remaining", e.total),
	)
	return nil
}

func (e *Engine) actComplete(ctx context.Context, _ ...any) error {
	e.cancelWake()

	e.deadline = time.Time{}
	e.remaining = 0
	e.pendTicks = append(e.pendTicks, 0)
	if !e.completeFired {
		e.completeFired = true
		e.pendComplete = true
	}

	e.log.LogAttrs(ctx, slog.LevelDebug, "countdown completed")
	return nil
}

// scheduleWake arms the next wake-up aligned to a whole-second boundary
// relative to the deadline. Caller must hold the mutex.
func (e *Engine) scheduleWake(left time.Duration) {
	e.cancelWake()

	next := left % time.Second
	if next == 0 {
		next = time.Second
	}

	e.wakeGen++
	gen := e.wakeGen
	e.wake = timing.AfterFunc(next, func() { e.onWake(gen) })
}

// cancelWake disarms the pending wake-up and invalidates any wake-up
// callback already in flight. Caller must hold the mutex.
func (e *Engine) cancelWake() {
	if e.wake != nil {
		e.wake.Stop()
		e.wake = nil
	}
	e.wakeGen++
}

func (e *Engine) onWake(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.wakeGen || e.stateLocked() != StateRunning {
		e.mu.Unlock()
		return
	}
	e.wake = nil
	e.recompute()
	e.deliverEffects()
}

// resync recomputes the remaining time immediately after the host surface
// became visible, correcting drift accumulated while hidden.
func (e *Engine) resync() {
	e.mu.Lock()
	if e.closed || e.stateLocked() != StateRunning {
		e.mu.Unlock()
		return
	}

	e.log.LogAttrs(context.Background(), slog.LevelDebug, "visibility resync",
		slog.Time("deadline", e.deadline),
	)
	e.recompute()
	e.deliverEffects()
}

// recompute re-derives the remaining time from the deadline, completing the
// countdown when it is due and re-arming the wake-up otherwise. It is
// idempotent and safe to run from the wake-up and the visibility path in any
// order. Caller must hold the mutex.
func (e *Engine) recompute() {
	left := e.deadline.Sub(timing.Now())
	if left <= 0 {
		if err := e.fsm.Fire(evtExpire); err != nil {
			panic(fmt.Errorf("fire %q in state %q: %w", evtExpire, e.stateLocked(), err))
		}
		return
	}

	e.remaining = left
	e.pendTicks = append(e.pendTicks, left)
	e.scheduleWake(left)
}

// deliverEffects flushes accumulated callbacks after releasing the mutex.
// Caller must hold the mutex; it is released on return.
func (e *Engine) deliverEffects() {
	trans := e.pendTrans
	ticks := e.pendTicks
	complete := e.pendComplete
	e.pendTrans = nil
	e.pendTicks = nil
	e.pendComplete = false
	onComplete := e.onComplete
	e.mu.Unlock()

	for _, tr := range trans {
		for fn := range e.onState.All() {
			fn(tr.from, tr.to)
		}
	}
	for _, left := range ticks {
		for fn := range e.onTick.All() {
			fn(left)
		}
	}
	if complete && onComplete != nil {
		onComplete()
	}
}
