// Package status implements the single-message status banner. A banner
// holds at most one message; a new message replaces the previous one and
// every message expires after a fixed delay.
package status

import (
	"sync"
	"time"

	"github.com/vocdoni/prodeposit-dapp/types"
)

// DefaultTTL is how long a message stays visible.
const DefaultTTL = 5 * time.Second

// Banner is safe for concurrent use.
type Banner struct {
	mu       sync.Mutex
	ttl      time.Duration
	current  *types.StatusMessage
	timer    *time.Timer
	seq      uint64
	onChange func()
}

// NewBanner creates a banner whose messages expire after ttl. The optional
// onChange callback is called (outside the lock) every time the visible
// message changes, including expirations.
func NewBanner(ttl time.Duration, onChange func()) *Banner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Banner{ttl: ttl, onChange: onChange}
}

// Post replaces the current message and schedules its expiry.
func (b *Banner) Post(kind types.Severity, text string) {
	b.mu.Lock()
	b.stopTimer()
	b.seq++
	seq := b.seq
	b.current = &types.StatusMessage{Kind: kind, Text: text, Time: time.Now()}
	b.timer = time.AfterFunc(b.ttl, func() { b.expire(seq) })
	b.mu.Unlock()
	b.changed()
}

// Clear removes the current message, if any.
func (b *Banner) Clear() {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return
	}
	b.stopTimer()
	b.seq++
	b.current = nil
	b.mu.Unlock()
	b.changed()
}

// Current returns a copy of the visible message or nil.
func (b *Banner) Current() *types.StatusMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	msg := *b.current
	return &msg
}

// expire clears the message only if it is still the one the timer was
// created for.
func (b *Banner) expire(seq uint64) {
	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		return
	}
	b.current = nil
	b.timer = nil
	b.mu.Unlock()
	b.changed()
}

func (b *Banner) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Banner) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}
