// Package debounce coalesces bursts of triggers into a single callback after
// a quiet period. The finder uses it to hold off re-matching while a query is
// being typed rapidly and to fold file-watch event storms into one reload.
package debounce

import (
	"sync"
	"time"
)

// Debouncer groups rapid successive calls into one callback invocation after
// no new call has arrived for the configured delay.
//
// All methods are safe for concurrent use. The callback never runs
// concurrently with itself from the debouncer's own timer.
type Debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	pending  bool
	seq      uint64 // invalidates stale timer callbacks
	callback func()
}

// New creates a debouncer. A delay of zero or less makes Call invoke the
// callback synchronously, which keeps call sites free of special cases when
// debouncing is disabled.
func New(delay time.Duration, callback func()) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
	}
}

// Call schedules the callback after the quiet period, restarting the clock
// if a call is already pending.
func (d *Debouncer) Call() {
	if d.delay <= 0 {
		if d.callback != nil {
			d.callback()
		}
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	d.seq++
	currentSeq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending && d.seq == currentSeq && d.callback != nil {
			d.pending = false
			d.mu.Unlock()
			d.callback()
			return
		}
		d.mu.Unlock()
	})
}

// Flush runs the callback immediately if a call is pending, cancelling the
// scheduled one.
func (d *Debouncer) Flush() {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++

	if d.pending && d.callback != nil {
		d.pending = false
		d.mu.Unlock()
		d.callback()
		return
	}
	d.mu.Unlock()
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}

// Pending reports whether a call is waiting for its quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
