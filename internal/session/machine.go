package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/penflow/penflow/models"
)

// Machine tracks the lifecycle of one optimization session. Transitions are
// driven exclusively by inbound protocol events; the only local transition
// is the stuck-start guard, which compensates for silently-dropped start
// requests on a one-directional event transport.
type Machine struct {
	mu          sync.Mutex
	session     models.Session
	lastError   string
	subscribers []func(models.Session)
	startTimer  *time.Timer
}

// NewMachine creates a state machine in the idle state.
func NewMachine() *Machine {
	return &Machine{session: models.Session{Status: models.StatusIdle}}
}

// Session returns a snapshot of the current session record.
func (m *Machine) Session() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// LastError returns the message of the most recent error transition.
func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Subscribe registers a change-notification callback invoked with a session
// snapshot after every transition, outside the machine lock.
func (m *Machine) Subscribe(fn func(models.Session)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

func (m *Machine) notify(snapshot models.Session) {
	m.mu.Lock()
	subs := make([]func(models.Session), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}
}

// StartWatch arms the stuck-start guard: if no state-advancing event
// arrives within timeout, the machine forces itself back to idle and calls
// onStuck. Any handled event disarms the guard.
func (m *Machine) StartWatch(timeout time.Duration, onStuck func()) {
	m.mu.Lock()
	if m.startTimer != nil {
		m.startTimer.Stop()
	}
	m.startTimer = time.AfterFunc(timeout, func() {
		m.mu.Lock()
		stuck := m.session.Status == models.StatusIdle && m.session.ID == ""
		if stuck {
			m.session = models.Session{Status: models.StatusIdle}
		}
		snapshot := m.session
		m.mu.Unlock()
		if stuck {
			slog.Warn("optimization session did not start within timeout", "timeout", timeout)
			m.notify(snapshot)
			if onStuck != nil {
				onStuck()
			}
		}
	})
	m.mu.Unlock()
}

func (m *Machine) disarmLocked() {
	if m.startTimer != nil {
		m.startTimer.Stop()
		m.startTimer = nil
	}
}

// Handle applies one protocol event to the session. Events carrying a
// session id that no longer matches the bound session are dropped, as are
// events arriving after a terminal state. Out-of-order progress events keep
// the machine in a valid state; counters clamp instead of going negative.
func (m *Machine) Handle(ev Event) {
	m.mu.Lock()

	if m.session.ID != "" && ev.SessionID != "" && ev.SessionID != m.session.ID {
		m.mu.Unlock()
		slog.Debug("dropping event for stale session", "type", ev.Type, "session", ev.SessionID)
		return
	}
	if m.session.Status.Terminal() {
		m.mu.Unlock()
		return
	}

	m.disarmLocked()

	switch ev.Type {
	case EventWorkflowStart:
		m.session.ID = ev.SessionID
		m.session.Status = models.StatusRunning
		m.session.TotalUnits = ev.TotalParagraphs
		m.session.CurrentUnit = 0

	case EventParagraphStart:
		m.session.CurrentUnit = clamp(ev.Index, 0, m.session.TotalUnits)

	case EventParagraphComplete:
		m.session.CurrentUnit = clamp(ev.Index+1, 0, m.session.TotalUnits)

	case EventPlanReady:
		if ev.SessionID != "" {
			m.session.ID = ev.SessionID
		}
		m.session.Status = models.StatusPaused
		if ev.CanResume != nil {
			m.session.CanResume = *ev.CanResume
		} else {
			m.session.CanResume = true
		}

	case EventWorkflowPaused:
		m.session.Status = models.StatusPaused
		if ev.CanResume != nil {
			m.session.CanResume = *ev.CanResume
		}

	case EventWorkflowResumed:
		m.session.Status = models.StatusRunning

	case EventWorkflowComplete:
		m.session.Status = models.StatusCompleted
		m.session.TotalUnits = 0
		m.session.CurrentUnit = 0
		m.session.CanResume = false

	case EventError:
		m.session.Status = models.StatusError
		m.lastError = ev.ErrorText()

	case EventThinking, EventAction, EventObservation, EventSuggestion:
		// Trace and ledger events; no lifecycle transition.

	default:
		slog.Debug("ignoring unknown event type", "type", ev.Type)
	}

	snapshot := m.session
	m.mu.Unlock()
	m.notify(snapshot)
}

// MarkCancelled records a locally-initiated cancellation.
func (m *Machine) MarkCancelled() {
	m.mu.Lock()
	m.disarmLocked()
	m.session.Status = models.StatusCancelled
	snapshot := m.session
	m.mu.Unlock()
	m.notify(snapshot)
}

// Fail forces the session into the error state with a local message, used
// for transport failures where no protocol error event will arrive.
func (m *Machine) Fail(message string) {
	m.mu.Lock()
	m.disarmLocked()
	m.session.Status = models.StatusError
	m.lastError = message
	snapshot := m.session
	m.mu.Unlock()
	m.notify(snapshot)
}

// Reset returns the machine to a fresh idle session. Called on context
// switch and before starting a new session.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.disarmLocked()
	m.session = models.Session{Status: models.StatusIdle}
	m.lastError = ""
	snapshot := m.session
	m.mu.Unlock()
	m.notify(snapshot)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
