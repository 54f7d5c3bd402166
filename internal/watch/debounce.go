package watch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Trigger is one coalesced batch of source changes ready to build.
type Trigger struct {
	FirstChange time.Time
	LastChange  time.Time
	Changes     int
	// Cause records which timer released the batch: "quiet" after the
	// change stream went silent, "max_delay" when coalescing hit its cap.
	Cause string
}

// Debouncer coalesces bursts of change notifications into single build
// triggers: a build starts once changes have been quiet for the quiet
// window, and a steady stream of changes cannot postpone it past the max
// delay.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration

	requests chan time.Time
	triggers chan Trigger

	mu      sync.Mutex
	pending bool
	first   time.Time
	last    time.Time
	count   int
}

// NewDebouncer creates a debouncer. Both durations must be positive.
func NewDebouncer(quiet, maxDelay time.Duration) (*Debouncer, error) {
	if quiet <= 0 {
		return nil, errors.New("quiet window must be > 0")
	}
	if maxDelay <= 0 {
		return nil, errors.New("max delay must be > 0")
	}
	return &Debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		requests: make(chan time.Time, 256),
		triggers: make(chan Trigger, 1),
	}, nil
}

// Notify records one source change. It never blocks; under backpressure
// the change collapses into the batch already pending.
func (d *Debouncer) Notify() {
	select {
	case d.requests <- time.Now():
	default:
	}
}

// Triggers delivers coalesced build triggers. The channel holds at most
// one queued trigger; further batches fold into it until it is consumed.
func (d *Debouncer) Triggers() <-chan Trigger {
	return d.triggers
}

// Run processes notifications until the context ends. Safe to run as a
// single goroutine.
func (d *Debouncer) Run(ctx context.Context) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var quietC, maxC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case at := <-d.requests:
			starting := d.record(at)
			resetTimer(quietTimer, d.quiet)
			quietC = quietTimer.C
			if starting {
				resetTimer(maxTimer, d.maxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			d.emit("quiet")
			quietC, maxC = nil, nil

		case <-maxC:
			d.emit("max_delay")
			quietC, maxC = nil, nil
		}
	}
}

// record notes one change and reports whether it opened a new batch.
func (d *Debouncer) record(at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	starting := !d.pending
	if starting {
		d.pending = true
		d.first = at
		d.count = 0
	}
	d.last = at
	d.count++
	return starting
}

func (d *Debouncer) emit(cause string) {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	trigger := Trigger{FirstChange: d.first, LastChange: d.last, Changes: d.count, Cause: cause}
	d.pending = false
	d.mu.Unlock()

	select {
	case d.triggers <- trigger:
	default:
		// A build is already queued; its scan will pick these changes up.
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, after time.Duration) {
	stopTimer(t)
	t.Reset(after)
}
