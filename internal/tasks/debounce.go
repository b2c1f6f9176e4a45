package tasks

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultDebounce is the pause after the last keystroke before a search runs.
const DefaultDebounce = 400 * time.Millisecond

// debouncer runs at most the most recently armed callback.
//
// Stopping a timer can race with it firing, so every arm and stop bumps a generation;
// callbacks receive the generation they were armed with and must check [debouncer.live].
type debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu    sync.Mutex
	gen   uint64
	timer *clock.Timer
}

func newDebouncer(c clock.Clock, delay time.Duration) *debouncer {
	if c == nil {
		c = clock.New()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &debouncer{clock: c, delay: delay}
}

// arm replaces any pending timer with one that calls fn after the delay.
func (d *debouncer) arm(fn func(gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { fn(gen) })
	return gen
}

// stop cancels the pending timer and invalidates anything already running.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *debouncer) live(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}
