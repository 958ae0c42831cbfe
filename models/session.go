package models

import "time"

// SessionStatus represents the lifecycle state of an optimization session.
type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusRunning   SessionStatus = "running"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
	StatusError     SessionStatus = "error"
)

// Terminal reports whether the status permits no further server-driven
// transitions.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusError
}

// Session is the mutable workflow record for one remote optimization run.
// ID is empty until the first workflow_start event binds it.
type Session struct {
	ID          string        `json:"id,omitempty"`
	Status      SessionStatus `json:"status" validate:"required,oneof=idle running paused completed cancelled error"`
	TotalUnits  int           `json:"totalUnits,omitempty"`
	CurrentUnit int           `json:"currentUnit,omitempty"`
	CanResume   bool          `json:"canResume"`
}

// ThinkingKind classifies a trace entry from the remote agent.
type ThinkingKind string

const (
	ThinkingThought     ThinkingKind = "thinking"
	ThinkingAction      ThinkingKind = "action"
	ThinkingObservation ThinkingKind = "observation"
	ThinkingProgress    ThinkingKind = "progress"
	ThinkingError       ThinkingKind = "error"
)

// ThinkingEvent is one entry in the bounded reasoning-trace log. It exists
// purely for observability; nothing downstream depends on it.
type ThinkingEvent struct {
	ID        string       `json:"id" validate:"required"`
	Kind      ThinkingKind `json:"kind" validate:"required,oneof=thinking action observation progress error"`
	Title     string       `json:"title"`
	Body      string       `json:"body,omitempty"`
	Timestamp time.Time    `json:"timestamp" validate:"required"`
}
