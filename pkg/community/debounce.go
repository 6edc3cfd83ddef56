package community

import (
	"sync"
	"time"
)

// Debouncer runs only the last function handed to it once the quiet period has elapsed
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	pending  func()
}

func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Debounce schedules fn, replacing any call still waiting. It reports whether one was replaced.
func (d *Debouncer) Debounce(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	replaced := d.pending != nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	d.timer = time.AfterFunc(d.duration, d.fire)
	return replaced
}

// Cancel drops the pending call
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush runs the pending call now, if there is one
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.fire()
}

// Pending reports whether a call is waiting for the quiet period
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}
