package countdown_test

// The engine tests drive the countdown on the mock clock: Elapse delivers
// wake-ups, Skip models a host that suspends timer delivery. The mock clock
// is package-global state, so none of these tests run in parallel.

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/tickdown/tickdown/countdown"
	"github.com/tickdown/tickdown/internal/testutil/visibilitymock"
	"github.com/tickdown/tickdown/log"
	"github.com/tickdown/tickdown/timing"
	"github.com/tickdown/tickdown/visibility"
)

func TestMain(m *testing.M) {
	timing.MockMode = true
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, total time.Duration, opts *countdown.EngineOptions) *countdown.Engine {
	t.Helper()

	if opts == nil {
		opts = &countdown.EngineOptions{}
	}
	if opts.Log == nil {
		opts.Log = log.Noop
	}
	e, err := countdown.NewEngine(total, opts)
	if err != nil {
		t.Fatalf("countdown.NewEngine(%v) error = %v", total, err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestNewEngine_InvalidDuration(t *testing.T) {
	for _, total := range []time.Duration{0, -time.Second} {
		_, got := countdown.NewEngine(total, &countdown.EngineOptions{Log: log.Noop})
		want := countdown.ErrInvalidArgument
		if diff := cmp.Diff(got, want, cmpopts.EquateErrors()); diff != "" {
			t.Fatalf("countdown.NewEngine(%v) error = %v, want %v\ndiff (-got +want):\n%v",
				total, got, want, diff,
			)
		}
	}
}

func TestEngine_StartSetsDeadline(t *testing.T) {
	e := newEngine(t, 10*time.Second, nil)

	if got := e.State(); got != countdown.StateIdle {
		t.Fatalf("State() = %v, want %v", got, countdown.StateIdle)
	}

	e.Start()
	if !e.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}

	timing.Elapse(1 * time.Second)
	if got, want := e.Remaining(), 9*time.Second; got != want {
		t.Fatalf("Remaining() = %v, want %v", got, want)
	}

	// Start while running is a no-op and must not move the deadline.
	e.Start()
	if got, want := e.Remaining(), 9*time.Second; got != want {
		t.Fatalf("Remaining() after redundant Start = %v, want %v", got, want)
	}
}

func TestEngine_TickMonotonicity(t *testing.T) {
	e := newEngine(t, 5*time.Second, nil)

	var ticks []time.Duration
	unsub := e.OnTick(func(remaining time.Duration) {
		ticks = append(ticks, remaining)
	})
	defer unsub()

	e.Start()
	timing.Elapse(5 * time.Second)

	if len(ticks) == 0 {
		t.Fatal("no ticks observed")
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] > ticks[i-1] {
			t.Fatalf("ticks not monotonically non-increasing: %v", ticks)
		}
	}
	if last := ticks[len(ticks)-1]; last != 0 {
		t.Fatalf("last tick = %v, want 0", last)
	}
}

func TestEngine_RemainingDerivedFromDeadline(t *testing.T) {
	e := newEngine(t, 10*time.Second, nil)
	e.Start()

	// The host suspends: the clock moves but no wake-up fires. The observable
	// value is derived from the deadline, so it is correct regardless.
	timing.Skip(7 * time.Second)
	if got, want := e.Remaining(), 3*time.Second; got != want {
		t.Fatalf("Remaining() after skipped wake-ups = %v, want %v", got, want)
	}

	// The overdue wake-up arriving late completes nothing and re-aligns.
	timing.Elapse(0)
	if got, want := e.Remaining(), 3*time.Second; got != want {
		t.Fatalf("Remaining() after late wake-up = %v, want %v", got, want)
	}
	if got := e.State(); got != countdown.StateRunning {
		t.Fatalf("State() = %v, want %v", got, countdown.StateRunning)
	}
}

func TestEngine_PauseResumeRoundTrip(t *testing.T) {
	var completed atomic.Int32
	e := newEngine(t, 10*time.Second, &countdown.EngineOptions{
		OnComplete: func() { completed.Add(1) },
	})

	e.Start()
	timing.Elapse(3 * time.Second)

	e.Pause()
	if !e.IsPaused() {
		t.Fatal("IsPaused() = false after Pause")
	}
	if got, want := e.Remaining(), 7*time.Second; got != want {
		t.Fatalf("Remaining() after Pause = %v, want %v", got, want)
	}

	// An arbitrarily long pause must not eat into the remaining time.
	timing.Skip(time.Hour)
	if got, want := e.Remaining(), 7*time.Second; got != want {
		t.Fatalf("Remaining() during pause = %v, want %v", got, want)
	}

	e.Start()
	if got, want := e.Remaining(), 7*time.Second; got != want {
		t.Fatalf("Remaining() after resume = %v, want %v", got, want)
	}

	timing.Elapse(6 * time.Second)
	if got := completed.Load(); got != 0 {
		t.Fatal("completed before the remaining time elapsed")
	}

	timing.Elapse(1 * time.Second)
	if got := completed.Load(); got != 1 {
		t.Fatalf("completion callback fired %d times, want 1", got)
	}
	if got := e.State(); got != countdown.StateCompleted {
		t.Fatalf("State() = %v, want %v", got, countdown.StateCompleted)
	}
}

func TestEngine_StopIdempotent(t *testing.T) {
	const total = 10 * time.Second

	tests := []struct {
		state countdown.State
		setup func(e *countdown.Engine)
	}{
		{countdown.StateIdle, func(e *countdown.Engine) {}},
		{countdown.StateRunning, func(e *countdown.Engine) {
			e.Start()
			timing.Elapse(2 * time.Second)
		}},
		{countdown.StatePaused, func(e *countdown.Engine) {
			e.Start()
			timing.Elapse(2 * time.Second)
			e.Pause()
		}},
		{countdown.StateCompleted, func(e *countdown.Engine) {
			e.Start()
			timing.Elapse(total)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			e := newEngine(t, total, nil)
			tt.setup(e)
			if got := e.State(); got != tt.state {
				t.Fatalf("setup State() = %v, want %v", got, tt.state)
			}

			e.Stop()
			e.Stop()

			if got := e.State(); got != countdown.StateIdle {
				t.Fatalf("State() after Stop = %v, want %v", got, countdown.StateIdle)
			}
			if got := e.Remaining(); got != total {
				t.Fatalf("Remaining() after Stop = %v, want %v", got, total)
			}
			if e.IsRunning() || e.IsPaused() {
				t.Fatal("IsRunning or IsPaused after Stop")
			}
		})
	}
}

func TestEngine_CompletionAtMostOnce(t *testing.T) {
	vis := visibility.NewManualProvider()

	var completed atomic.Int32
	e := newEngine(t, 2*time.Second, &countdown.EngineOptions{
		OnComplete: func() { completed.Add(1) },
		Visibility: vis,
	})

	e.Start()
	vis.Set(false)

	// Well past the deadline with no wake-ups delivered, then the late
	// wake-up and a visibility resync both arrive.
	timing.Skip(5 * time.Second)
	timing.Elapse(0)
	vis.Set(true)

	if got := completed.Load(); got != 1 {
		t.Fatalf("completion callback fired %d times, want 1", got)
	}
	if got := e.Remaining(); got != 0 {
		t.Fatalf("Remaining() = %v, want 0", got)
	}

	// Completed is terminal until Stop: a bare Start changes nothing.
	e.Start()
	if got := e.State(); got != countdown.StateCompleted {
		t.Fatalf("State() after Start on completed engine = %v, want %v",
			got, countdown.StateCompleted,
		)
	}
}

func TestEngine_PauseDuringHiddenTab(t *testing.T) {
	// 30 minute pomodoro: one second elapses, the countdown is paused, the
	// tab spends five real seconds in the background, then resumes. The
	// deadline must be now+29m59s, not now+29m54s.
	e := newEngine(t, 30*time.Minute, nil)

	e.Start()
	timing.Elapse(1 * time.Second)
	if got, want := e.Remaining(), 30*time.Minute-time.Second; got != want {
		t.Fatalf("Remaining() = %v, want %v", got, want)
	}

	e.Pause()
	timing.Skip(5 * time.Second)

	e.Start()
	if got, want := e.Remaining(), 30*time.Minute-time.Second; got != want {
		t.Fatalf("Remaining() after resume = %v, want %v", got, want)
	}
}

func TestEngine_VisibilityResync(t *testing.T) {
	vis := visibility.NewManualProvider()

	var completed atomic.Int32
	e := newEngine(t, 5*time.Second, &countdown.EngineOptions{
		OnComplete: func() { completed.Add(1) },
		Visibility: vis,
	})

	var lastTick atomic.Int64
	unsub := e.OnTick(func(remaining time.Duration) {
		lastTick.Store(int64(remaining))
	})
	defer unsub()

	e.Start()
	vis.Set(false)

	// Hidden for four seconds with zero wake-ups fired.
	timing.Skip(4 * time.Second)

	// Becoming visible recomputes immediately instead of waiting for the
	// next scheduled wake-up.
	vis.Set(true)
	if got, want := time.Duration(lastTick.Load()), 1*time.Second; got != want {
		t.Fatalf("tick after resync = %v, want %v", got, want)
	}
	if got := e.State(); got != countdown.StateRunning {
		t.Fatalf("State() = %v, want %v", got, countdown.StateRunning)
	}

	timing.Elapse(1 * time.Second)
	if got := completed.Load(); got != 1 {
		t.Fatalf("completion callback fired %d times, want 1", got)
	}
}

func TestEngine_ResyncIgnoredUnlessRunning(t *testing.T) {
	vis := visibility.NewManualProvider()

	e := newEngine(t, 5*time.Second, &countdown.EngineOptions{Visibility: vis})

	e.Start()
	timing.Elapse(2 * time.Second)
	e.Pause()

	vis.Set(false)
	timing.Skip(10 * time.Second)
	vis.Set(true)

	if got, want := e.Remaining(), 3*time.Second; got != want {
		t.Fatalf("Remaining() = %v, want %v", got, want)
	}
	if !e.IsPaused() {
		t.Fatal("IsPaused() = false, resync must not resume a paused countdown")
	}
}

func TestEngine_StateChanges(t *testing.T) {
	e := newEngine(t, 3*time.Second, nil)

	type change struct{ from, to countdown.State }
	var changes []change
	unsub := e.OnStateChange(func(from, to countdown.State) {
		changes = append(changes, change{from, to})
	})
	defer unsub()

	e.Start()
	e.Pause()
	e.Start()
	timing.Elapse(3 * time.Second)
	e.Stop()

	want := []change{
		{countdown.StateIdle, countdown.StateRunning},
		{countdown.StateRunning, countdown.StatePaused},
		{countdown.StatePaused, countdown.StateRunning},
		{countdown.StateRunning, countdown.StateCompleted},
		{countdown.StateCompleted, countdown.StateIdle},
	}
	if diff := cmp.Diff(changes, want, cmp.AllowUnexported(change{})); diff != "" {
		t.Fatalf("state changes mismatch (-got +want):\n%v", diff)
	}
}

func TestEngine_AutoStart(t *testing.T) {
	e := newEngine(t, 5*time.Second, &countdown.EngineOptions{AutoStart: true})

	if !e.IsRunning() {
		t.Fatal("IsRunning() = false for an auto-started engine")
	}
}

func TestEngine_CloseUnsubscribesVisibility(t *testing.T) {
	ctrl := gomock.NewController(t)

	var unsubscribed atomic.Bool
	vis := visibilitymock.NewMockProvider(ctrl)
	vis.EXPECT().
		OnChange(gomock.Any()).
		Return(func() { unsubscribed.Store(true) }).
		Times(1)

	e := newEngine(t, 5*time.Second, &countdown.EngineOptions{Visibility: vis})

	e.Close()
	if !unsubscribed.Load() {
		t.Fatal("Close did not unsubscribe from the visibility provider")
	}

	// Close is idempotent.
	e.Close()
}
