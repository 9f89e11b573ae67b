package lorefile

import (
	"sync"
	"time"
)

// DefaultDebounce is the trailing-edge window for coalesced saves.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces bursts of triggers into a single save after the
// window elapses following the last trigger. The tracker can fire on every
// keystroke; persisting each one would mean constant I/O, so only the
// final state of a burst reaches disk.
//
// A save failure goes to onErr, never back to the caller that triggered
// the window. Each new trigger reschedules the pending save, which is also
// the retry path after a failed save.
type Debouncer struct {
	delay time.Duration
	save  func() error
	onErr func(error)

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer wraps save with a trailing-edge debounce of delay
// (DefaultDebounce when delay <= 0). onErr may be nil.
func NewDebouncer(delay time.Duration, save func() error, onErr func(error)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, save: save, onErr: onErr}
}

// Trigger schedules a save after the debounce window, replacing any save
// already pending.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
	} else {
		d.timer.Reset(d.delay)
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	if err := d.save(); err != nil && d.onErr != nil {
		d.onErr(err)
	}
}

// Flush runs a pending save immediately, if any. Used at shutdown so the
// last burst is not lost to the window.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	pending := d.timer != nil && d.timer.Stop()
	d.timer = nil
	d.mu.Unlock()

	if pending {
		if err := d.save(); err != nil && d.onErr != nil {
			d.onErr(err)
		}
	}
}

// Stop cancels any pending save and rejects future triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
