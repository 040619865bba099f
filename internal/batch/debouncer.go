// Package batch turns bursts of upload events into committed artifacts: a
// per-owner trailing debounce coalesces the burst, and an assembler persists
// and replicates the result.
package batch

import (
	"sync"
	"time"

	"github.com/mzolotarev/filekeeper/internal/media"
)

// FlushFunc receives the detached buffer for one owner once their quiet
// period elapses. It runs on the timer goroutine, off the intake path.
type FlushFunc func(ownerID int64, events []media.UploadEvent)

// Debouncer buffers upload events per owner and hands each buffer to the
// flush function after a quiet period with no new events. Re-arming cancels
// the previous timer: this is a trailing debounce, not a fixed-rate batch.
type Debouncer struct {
	mu      sync.Mutex
	pending map[int64]*pendingBatch
	delay   time.Duration
	flush   FlushFunc
}

type pendingBatch struct {
	events []media.UploadEvent
	timer  *time.Timer
	// gen identifies the currently armed timer for this buffer. A timer that
	// fires after being superseded sees a newer generation and does nothing.
	// gen alone is not enough: an owner's entry is deleted on flush and a
	// later burst starts a fresh one whose counter restarts, so fire also
	// checks that the map still holds the very buffer the timer was armed
	// for.
	gen uint64
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration, flush FlushFunc) *Debouncer {
	return &Debouncer{
		pending: make(map[int64]*pendingBatch),
		delay:   delay,
		flush:   flush,
	}
}

// Submit appends the event to its owner's buffer and re-arms the owner's
// timer. Events without extractable media are ignored. Owners are
// independent: submitting for one owner never blocks another beyond the map
// lock.
func (d *Debouncer) Submit(ev media.UploadEvent) {
	if ev.Item.Zero() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[ev.OwnerID]
	if !ok {
		p = &pendingBatch{}
		d.pending[ev.OwnerID] = p
	}
	p.events = append(p.events, ev)

	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	ownerID := ev.OwnerID
	p.timer = time.AfterFunc(d.delay, func() {
		d.fire(ownerID, p, gen)
	})
}

// fire detaches the owner's buffer and flushes it, unless the buffer was
// detached or the timer re-armed since this one was scheduled.
func (d *Debouncer) fire(ownerID int64, armed *pendingBatch, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[ownerID]
	if !ok || p != armed || p.gen != gen {
		d.mu.Unlock()
		return
	}
	events := p.events
	delete(d.pending, ownerID)
	d.mu.Unlock()

	if len(events) == 0 {
		return
	}
	d.flush(ownerID, events)
}
