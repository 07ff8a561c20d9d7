package loop

import "time"

// Debouncer is a cancellable delayed task owned by a [Loop]. Every
// [Debouncer.Schedule] restarts the delay; the task runs once the delay
// passes without another Schedule.
//
// A Debouncer is loop-confined: call its methods only from loop callbacks.
// Each schedule carries a generation number, so a timer that fired while a
// newer schedule or a cancel was queued does nothing.
type Debouncer struct {
	loop  *Loop
	delay time.Duration
	fn    func()

	timer   Timer
	gen     uint64
	pending bool
}

// NewDebouncer returns a debouncer that runs fn on l after delay.
func NewDebouncer(l *Loop, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{loop: l, delay: delay, fn: fn}
}

// Delay returns the debounce window.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Schedule cancels any pending run and starts the delay again.
func (d *Debouncer) Schedule() {
	d.stop()
	d.pending = true
	gen := d.gen
	d.timer = d.loop.AfterFunc(d.delay, func() {
		if gen != d.gen || !d.pending {
			return
		}
		d.pending = false
		d.timer = nil
		d.fn()
	})
}

// Cancel drops the pending run. It reports whether a run was pending.
func (d *Debouncer) Cancel() bool {
	was := d.pending
	d.stop()
	return was
}

// FlushNow runs a pending task immediately. It reports whether a task ran.
func (d *Debouncer) FlushNow() bool {
	if !d.pending {
		return false
	}
	d.stop()
	d.fn()
	return true
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool { return d.pending }

func (d *Debouncer) stop() {
	d.gen++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
