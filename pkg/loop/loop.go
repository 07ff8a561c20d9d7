// Package loop provides the single logical thread of control a session runs on.
//
// A [Loop] executes posted callbacks one at a time on one goroutine. State
// owned by the session is only touched from inside callbacks, so it needs no
// locking. Blocking work (network, disk) runs through [Async], whose
// continuation is posted back onto the loop.
//
// # Running
//
// Interactive programs call [Loop.Run] on a dedicated goroutine. Tests and
// headless commands drive the loop from the caller instead:
//
//	l := loop.New(loop.WithClock(clock))
//	l.Post(func() { ... })
//	l.Settle() // runs callbacks and waits for async work until idle
//
// Run and Settle must not be used at the same time.
//
// # Timers
//
// [Loop.AfterFunc] schedules a callback through the loop's [Clock]; the
// callback itself runs on the loop. [Debouncer] builds a cancellable delayed
// task on top of it.
//
// # Failure
//
// A panicking callback is recovered and logged. The loop keeps running.
package loop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Loop runs posted callbacks sequentially.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	inflight atomic.Int64
	clock    Clock
	logger   *log.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used by [Loop.AfterFunc].
func WithClock(c Clock) Option { return func(l *Loop) { l.clock = c } }

// WithLogger sets the logger for recovered panics.
func WithLogger(lg *log.Logger) Option { return func(l *Loop) { l.logger = lg } }

// New creates a loop. It does not start a goroutine.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		clock:  RealClock{},
		logger: log.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Clock returns the loop's clock.
func (l *Loop) Clock() Clock { return l.clock }

// Logger returns the loop's logger.
func (l *Loop) Logger() *log.Logger { return l.logger }

// Post queues fn to run on the loop. It never blocks and is safe to call
// from any goroutine, including from inside a callback.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to return. It must not be called
// from inside a callback.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunPending executes every queued callback, including callbacks queued while
// draining, and returns how many ran.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.exec(fn)
		n++
	}
}

// Settle runs callbacks on the calling goroutine until the queue is empty and
// no [Async] work is in flight. Pending timers are not waited for.
func (l *Loop) Settle() {
	for {
		l.RunPending()
		// Async work leaves the in-flight count inside its continuation,
		// so a zero count with an empty queue means nothing can post.
		if l.inflight.Load() == 0 && l.Len() == 0 {
			return
		}
		<-l.wake
	}
}

// Len returns the number of queued callbacks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Inflight returns the number of [Async] tasks whose continuation has not
// run yet.
func (l *Loop) Inflight() int { return int(l.inflight.Load()) }

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop callback panicked", "panic", r)
		}
	}()
	fn()
}

// AfterFunc runs fn on the loop once d has elapsed on the loop's clock.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return l.clock.AfterFunc(d, func() { l.Post(fn) })
}

// Async runs work on a new goroutine and posts done with its result back onto
// the loop. A panic in work is reported to done as an error.
func Async[T any](l *Loop, work func() (T, error), done func(T, error)) {
	l.inflight.Add(1)
	go func() {
		v, err := protect(work)
		l.Post(func() {
			l.inflight.Add(-1)
			done(v, err)
		})
	}()
}

func protect[T any](work func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("async work panicked: %v", r)
		}
	}()
	return work()
}
