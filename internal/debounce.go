package internal

import (
	"sync"
	"time"
)

// AlertDebouncer suppresses repeat alerts of the same threat level
// inside a cooldown window. Each level runs its own independent clock:
// a CRITICAL alert never delays a later MEDIUM one.
//
// ShouldSend and RecordSent together form a check-then-act sequence;
// callers that share a debouncer across sessions must hold them under
// one lock, which the internal mutex provides for single calls.
type AlertDebouncer struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastSent map[ThreatLevel]time.Time
	now      func() time.Time
}

// NewAlertDebouncer creates a debouncer with the given cooldown shared
// by all levels.
func NewAlertDebouncer(cooldown time.Duration) *AlertDebouncer {
	return &AlertDebouncer{
		cooldown: cooldown,
		lastSent: make(map[ThreatLevel]time.Time),
		now:      time.Now,
	}
}

// NewAlertDebouncerWithClock creates a debouncer with an injected
// clock so the cooldown window can be tested without sleeping.
func NewAlertDebouncerWithClock(cooldown time.Duration, clock func() time.Time) *AlertDebouncer {
	d := NewAlertDebouncer(cooldown)
	d.now = clock
	return d
}

// ShouldSend reports whether an alert of this level may go out now:
// true when no alert of the level was ever sent, or when the cooldown
// has fully elapsed since the last confirmed send.
func (d *AlertDebouncer) ShouldSend(level ThreatLevel) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	last, ok := d.lastSent[level]
	if !ok {
		return true
	}
	return d.now().Sub(last) >= d.cooldown
}

// RecordSent anchors the level's cooldown window to now. Call exactly
// once per successful dispatch, after the send is confirmed.
func (d *AlertDebouncer) RecordSent(level ThreatLevel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSent[level] = d.now()
}

// Reset clears all recorded send times. It is independent of the
// stream-restart reset: it touches neither gate state nor stats.
func (d *AlertDebouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSent = make(map[ThreatLevel]time.Time)
}
