package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penflow/penflow/models"
)

const defaultThinkingCap = 200

// ThinkingLog is the bounded append-only reasoning-trace log.
type ThinkingLog struct {
	mu      sync.Mutex
	entries []models.ThinkingEvent
	cap     int
}

// NewThinkingLog creates a log holding at most cap entries. Cap <= 0 uses
// the default.
func NewThinkingLog(cap int) *ThinkingLog {
	if cap <= 0 {
		cap = defaultThinkingCap
	}
	return &ThinkingLog{cap: cap}
}

// Append records a trace entry, evicting the oldest past the cap.
func (t *ThinkingLog) Append(kind models.ThinkingKind, title, body string) models.ThinkingEvent {
	ev := models.ThinkingEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Body:      body,
		Timestamp: time.Now(),
	}
	t.mu.Lock()
	t.entries = append(t.entries, ev)
	if len(t.entries) > t.cap {
		t.entries = t.entries[len(t.entries)-t.cap:]
	}
	t.mu.Unlock()
	return ev
}

// Entries returns a snapshot copy in append order.
func (t *ThinkingLog) Entries() []models.ThinkingEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.ThinkingEvent, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries held.
func (t *ThinkingLog) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Reset discards all entries.
func (t *ThinkingLog) Reset() {
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
}
