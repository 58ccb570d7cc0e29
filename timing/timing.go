// Package timing provides a shim over the system clock and one-shot timers
// that can be swapped for a controllable mock in tests.
//
// In mock mode the clock only moves when [Elapse] or [Skip] is called.
// Elapse fires timers that come due; Skip advances the clock without firing
// anything, which models a host that suspends or throttles timer delivery.
// Timers skipped over stay scheduled and fire on the next Elapse.
package timing

import (
	"sync"
	"time"
)

// MockMode enables the mock clock. It must be set before any timers are
// created and is intended for tests only.
var MockMode = false

// Timer is a one-shot timer created through this package.
type Timer interface {
	// C returns the channel the expiry time is delivered on.
	// It returns nil for timers created with [AfterFunc].
	C() <-chan time.Time
	// Reset re-arms the timer to expire after d from now.
	Reset(d time.Duration)
	// Stop disarms the timer. It reports whether the timer was still armed.
	Stop() bool
}

// Now returns the current time of the active clock.
func Now() time.Time {
	if MockMode {
		mock.mu.Lock()
		defer mock.mu.Unlock()
		return mock.now
	}
	return time.Now()
}

// NewTimer creates a timer that delivers the current time on its channel
// after duration d.
func NewTimer(d time.Duration) Timer {
	if MockMode {
		return mock.newTimer(d, nil)
	}
	t := time.NewTimer(d)
	return &realTimer{t: t, c: t.C}
}

// After waits for the duration to elapse and then delivers the current time
// on the returned channel.
func After(d time.Duration) <-chan time.Time {
	return NewTimer(d).C()
}

// AfterFunc creates a timer that calls fn in its own goroutine after
// duration d.
func AfterFunc(d time.Duration, fn func()) Timer {
	if MockMode {
		return mock.newTimer(d, fn)
	}
	return &realTimer{t: time.AfterFunc(d, fn)}
}

// Elapse advances the mock clock by d, firing every timer that comes due,
// including timers already overdue after a previous [Skip]. Each fired
// callback runs to completion before the clock advances further, so timers
// scheduled by a callback fire within the same Elapse when they come due.
// It panics unless [MockMode] is enabled.
func Elapse(d time.Duration) {
	requireMockMode()
	mock.elapse(d)
}

// Skip advances the mock clock by d without firing any timers.
// It panics unless [MockMode] is enabled.
func Skip(d time.Duration) {
	requireMockMode()
	mock.skip(d)
}

func requireMockMode() {
	if !MockMode {
		panic("timing: mock clock manipulation requires MockMode")
	}
}

type realTimer struct {
	t *time.Timer
	c <-chan time.Time
}

func (t *realTimer) C() <-chan time.Time { return t.c }

func (t *realTimer) Reset(d time.Duration) { t.t.Reset(d) }

func (t *realTimer) Stop() bool { return t.t.Stop() }

var mock = &mockClock{}

type mockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
}

type mockTimer struct {
	clk   *mockClock
	end   time.Time
	ch    chan time.Time
	fn    func()
	armed bool
}

func (c *mockClock) newTimer(d time.Duration, fn func()) *mockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTimer{
		clk:   c,
		end:   c.now.Add(d),
		ch:    make(chan time.Time, 1),
		fn:    fn,
		armed: true,
	}
	c.timers = append(c.timers, t)
	return t
}

func (c *mockClock) elapse(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	// Fire timers in deadline order, moving the clock along with them so a
	// callback that reads Now or schedules a new timer sees consistent time.
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		if next.end.After(c.now) {
			c.now = next.end
		}
		next.armed = false
		fire := next.fn
		select {
		case next.ch <- c.now:
		default:
		}
		if fire != nil {
			c.mu.Unlock()
			done := make(chan struct{})
			go func() {
				defer close(done)
				fire()
			}()
			<-done
			c.mu.Lock()
		}
	}

	c.now = target
	c.mu.Unlock()
}

// nextDue returns the armed timer with the earliest deadline not after
// target. Caller must hold the mutex.
func (c *mockClock) nextDue(target time.Time) *mockTimer {
	var due *mockTimer
	for _, t := range c.timers {
		if !t.armed || t.end.After(target) {
			continue
		}
		if due == nil || t.end.Before(due.end) {
			due = t
		}
	}
	return due
}

func (c *mockClock) skip(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (t *mockTimer) C() <-chan time.Time { return t.ch }

func (t *mockTimer) Reset(d time.Duration) {
	t.clk.mu.Lock()
	t.end = t.clk.now.Add(d)
	t.armed = true
	t.clk.mu.Unlock()
}

func (t *mockTimer) Stop() bool {
	t.clk.mu.Lock()
	armed := t.armed
	t.armed = false
	t.clk.mu.Unlock()
	return armed
}
