// Package scheduler is the relay's opaque cron-like tick source (spec §1
// treats the scheduler as an out-of-scope external collaborator; spec §5/§6
// name only its observable surface: a periodic tick and the
// set_fetch_period(a, b) admin operation that reconfigures it).
//
// Grounded on the original canister's heartbeat: init() calls
// cron_enqueue(Task::FetchRoots, SchedulingOptions{delay_nano, interval_nano,
// iterations: Infinite}), and a #[heartbeat] handler drains ready tasks each
// block and dispatches them. Ticker reproduces that delay-then-interval
// shape with a time.NewTimer followed by a time.Ticker, in the style of the
// teacher's BackupManager loop (core/fault_tolerance.go).
package scheduler

import (
	"sync"
	"time"
)

// Ticker drives one named task (e.g. the root-fetch flow or the
// events-fetch flow) on a delay-then-interval schedule, mirroring
// SchedulingOptions{delay_nano, interval_nano, iterations: Infinite}.
type Ticker struct {
	mu       sync.Mutex
	delay    time.Duration
	interval time.Duration
	onTick   func()

	stop    chan struct{}
	done    chan struct{}
	started bool
}

// NewTicker returns a Ticker that, once Start is called, fires onTick once
// after delay and then every interval thereafter, until Stop is called.
// onTick must not block for long: it runs on the ticker's own goroutine,
// and a slow tick delays the next one (spec: "exactly one step per tick;
// no step blocks" — callers should hand onTick a single Machine.Tick call).
func NewTicker(delay, interval time.Duration, onTick func()) *Ticker {
	return &Ticker{
		delay:    delay,
		interval: interval,
		onTick:   onTick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the schedule. Calling Start while the schedule is running
// is a no-op; Start after Stop launches it again.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true

	delay, interval := t.delay, t.interval
	go func() {
		defer close(t.done)

		wait := time.NewTimer(delay)
		defer wait.Stop()
		select {
		case <-wait.C:
		case <-t.stop:
			return
		}
		t.onTick()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.onTick()
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop terminates the schedule. Safe to call at most once; safe to call
// even if Start was never called.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	stop, done := t.stop, t.done
	t.mu.Unlock()

	select {
	case <-stop:
	default:
		close(stop)
	}
	<-done

	t.mu.Lock()
	t.started = false
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.mu.Unlock()
}

// SetPeriod reconfigures delay and interval for the next Start call (the
// admin surface's set_fetch_period(a, b), spec §6). It does not affect a
// schedule already running; callers reconfigure by Stop, SetPeriod, Start.
func (t *Ticker) SetPeriod(delay, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = delay
	t.interval = interval
}

// Period returns the currently configured delay and interval.
func (t *Ticker) Period() (delay, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay, t.interval
}
