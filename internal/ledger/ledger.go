package ledger

import (
	"errors"
	"sync"

	"github.com/penflow/penflow/models"
)

// ErrNothingToUndo is returned when the undo stack is empty.
var ErrNothingToUndo = errors.New("nothing to undo")

const defaultUndoDepth = 50

// Ledger collects suggestions for one session. Suggestions are append-only
// and de-duplicated by identity key; the applied set and undo stack track
// what has been written into the host document.
type Ledger struct {
	mu sync.Mutex

	order       []string
	suggestions map[string]models.Suggestion
	applied     map[string]bool

	undoStack []models.UndoSnapshot
	undoDepth int

	subscribers []func()
}

// New creates a ledger with the given undo depth. Depth <= 0 uses the default.
func New(undoDepth int) *Ledger {
	if undoDepth <= 0 {
		undoDepth = defaultUndoDepth
	}
	return &Ledger{
		suggestions: make(map[string]models.Suggestion),
		applied:     make(map[string]bool),
		undoDepth:   undoDepth,
	}
}

// Subscribe registers a change-notification callback. Callbacks fire after
// every mutation, outside the ledger lock.
func (l *Ledger) Subscribe(fn func()) {
	l.mu.Lock()
	l.subscribers = append(l.subscribers, fn)
	l.mu.Unlock()
}

func (l *Ledger) notify() {
	l.mu.Lock()
	subs := make([]func(), len(l.subscribers))
	copy(subs, l.subscribers)
	l.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Add appends one suggestion. A suggestion whose key is already present is
// ignored; nothing in the ledger is ever mutated after creation.
func (l *Ledger) Add(s models.Suggestion) {
	l.mu.Lock()
	added := l.addLocked(s)
	l.mu.Unlock()
	if added {
		l.notify()
	}
}

// AddBatch appends a bulk suggestion load, de-duplicating against both the
// existing ledger and the batch itself. Used for plan_ready payloads.
func (l *Ledger) AddBatch(batch []models.Suggestion) {
	l.mu.Lock()
	added := false
	for _, s := range batch {
		if l.addLocked(s) {
			added = true
		}
	}
	l.mu.Unlock()
	if added {
		l.notify()
	}
}

func (l *Ledger) addLocked(s models.Suggestion) bool {
	key := s.Key()
	if _, ok := l.suggestions[key]; ok {
		return false
	}
	l.suggestions[key] = s
	l.order = append(l.order, key)
	return true
}

// Suggestions returns a snapshot copy in arrival order.
func (l *Ledger) Suggestions() []models.Suggestion {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Suggestion, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.suggestions[key])
	}
	return out
}

// Get returns the suggestion for a key.
func (l *Ledger) Get(key string) (models.Suggestion, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.suggestions[key]
	return s, ok
}

// Len returns the number of suggestions collected.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// MarkApplied records that a suggestion's edit now lives in the document.
func (l *Ledger) MarkApplied(key string) {
	l.mu.Lock()
	l.applied[key] = true
	l.mu.Unlock()
	l.notify()
}

// IsApplied reports whether the suggestion has been applied.
func (l *Ledger) IsApplied(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applied[key]
}

// AppliedCount returns how many suggestions have been applied.
func (l *Ledger) AppliedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.applied)
}

// PushUndo records the pre-apply document snapshot. Oldest entries are
// evicted past the configured depth.
func (l *Ledger) PushUndo(snap models.UndoSnapshot) {
	l.mu.Lock()
	l.undoStack = append(l.undoStack, snap)
	if len(l.undoStack) > l.undoDepth {
		excess := len(l.undoStack) - l.undoDepth
		l.undoStack = l.undoStack[excess:]
	}
	l.mu.Unlock()
	l.notify()
}

// PopUndo removes and returns the most recent snapshot, un-marking its
// suggestion as applied. Undo is strictly last-in-first-out; there is no redo.
func (l *Ledger) PopUndo() (models.UndoSnapshot, error) {
	l.mu.Lock()
	if len(l.undoStack) == 0 {
		l.mu.Unlock()
		return models.UndoSnapshot{}, ErrNothingToUndo
	}
	snap := l.undoStack[len(l.undoStack)-1]
	l.undoStack = l.undoStack[:len(l.undoStack)-1]
	delete(l.applied, snap.Key)
	l.mu.Unlock()
	l.notify()
	return snap, nil
}

// CanUndo reports whether an undo snapshot is available.
func (l *Ledger) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undoStack) > 0
}

// UndoCount returns the number of undo snapshots held.
func (l *Ledger) UndoCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undoStack)
}

// Reset discards all suggestions, applied marks and undo snapshots. Called
// on context switch so nothing leaks between documents.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.order = nil
	l.suggestions = make(map[string]models.Suggestion)
	l.applied = make(map[string]bool)
	l.undoStack = nil
	l.mu.Unlock()
	l.notify()
}
