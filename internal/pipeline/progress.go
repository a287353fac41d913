package pipeline

import (
	"sync"
	"time"
)

// DefaultProgressInterval is the coalescing window applied when no interval
// is configured.
const DefaultProgressInterval = 120 * time.Millisecond

// ProgressEmitter coalesces frequent batch snapshots into at most one
// delivery per throttle window. Snapshots are complete values, so merging is
// last-writer-wins; the final snapshot before Flush is always delivered even
// when it arrived inside an open window.
type ProgressEmitter struct {
	mu       sync.Mutex
	sink     ProgressSink
	interval time.Duration

	pending   *ProgressSnapshot
	timer     *time.Timer
	lastSent  time.Time
	delivered ProgressSnapshot
}

// NewProgressEmitter constructs an emitter delivering to sink. A zero or
// negative interval falls back to DefaultProgressInterval.
func NewProgressEmitter(sink ProgressSink, interval time.Duration) *ProgressEmitter {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &ProgressEmitter{sink: sink, interval: interval}
}

// Emit buffers a snapshot and schedules delivery. Calls arriving within the
// throttle window replace the buffered snapshot; one timer delivers whatever
// is buffered when the window closes.
func (e *ProgressEmitter) Emit(snap ProgressSnapshot) {
	if e == nil || e.sink == nil {
		return
	}
	e.mu.Lock()
	now := time.Now()
	if e.lastSent.IsZero() || now.Sub(e.lastSent) >= e.interval {
		e.deliverLocked(snap, now)
		e.mu.Unlock()
		return
	}
	e.pending = &snap
	if e.timer == nil {
		wait := e.interval - now.Sub(e.lastSent)
		e.timer = time.AfterFunc(wait, e.deliverPending)
	}
	e.mu.Unlock()
}

// Flush delivers any buffered snapshot immediately, bypassing the throttle.
// It is called on task completion, task failure, and batch end so consumers
// never observe a stale snapshot after a terminal event.
func (e *ProgressEmitter) Flush() {
	if e == nil || e.sink == nil {
		return
	}
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.pending == nil {
		e.mu.Unlock()
		return
	}
	snap := *e.pending
	e.deliverLocked(snap, time.Now())
	e.mu.Unlock()
}

// Last returns the most recently delivered snapshot.
func (e *ProgressEmitter) Last() ProgressSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delivered
}

func (e *ProgressEmitter) deliverPending() {
	e.mu.Lock()
	e.timer = nil
	if e.pending == nil {
		e.mu.Unlock()
		return
	}
	snap := *e.pending
	e.deliverLocked(snap, time.Now())
	e.mu.Unlock()
}

// deliverLocked must be called with e.mu held.
func (e *ProgressEmitter) deliverLocked(snap ProgressSnapshot, now time.Time) {
	e.pending = nil
	e.lastSent = now
	e.delivered = snap
	e.sink.BatchUpdate(snap)
}
