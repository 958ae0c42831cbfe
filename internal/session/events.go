package session

import (
	"encoding/json"
	"fmt"

	"github.com/penflow/penflow/models"
)

// EventType identifies a server-pushed workflow event.
type EventType string

// Protocol event types pushed by the analysis service.
const (
	EventWorkflowStart     EventType = "workflow_start"
	EventParagraphStart    EventType = "paragraph_start"
	EventThinking          EventType = "thinking"
	EventAction            EventType = "action"
	EventObservation       EventType = "observation"
	EventSuggestion        EventType = "suggestion"
	EventParagraphComplete EventType = "paragraph_complete"
	EventPlanReady         EventType = "plan_ready"
	EventWorkflowPaused    EventType = "workflow_paused"
	EventWorkflowResumed   EventType = "workflow_resumed"
	EventWorkflowComplete  EventType = "workflow_complete"
	EventError             EventType = "error"
)

// SuggestionPayload is the wire form of one suggestion.
type SuggestionPayload struct {
	ParagraphIndex int    `json:"paragraph_index"`
	OriginalText   string `json:"original_text"`
	SuggestedText  string `json:"suggested_text"`
	Reason         string `json:"reason,omitempty"`
	Category       string `json:"category,omitempty"`
	Priority       string `json:"priority,omitempty"`
}

// Model converts the payload to a models.Suggestion. An unknown or missing
// priority defaults to medium rather than rejecting the event.
func (p SuggestionPayload) Model() models.Suggestion {
	priority := models.Priority(p.Priority)
	switch priority {
	case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
	default:
		priority = models.PriorityMedium
	}
	return models.Suggestion{
		ParagraphIndex: p.ParagraphIndex,
		OriginalText:   p.OriginalText,
		SuggestedText:  p.SuggestedText,
		Reason:         p.Reason,
		Category:       p.Category,
		Priority:       priority,
	}
}

// Event is one decoded protocol event. The payload is a union across event
// types; only the fields relevant to Type are populated.
type Event struct {
	Type EventType `json:"type"`

	SessionID       string   `json:"session_id,omitempty"`
	TotalParagraphs int      `json:"total_paragraphs,omitempty"`
	Dimensions      []string `json:"dimensions,omitempty"`
	Mode            string   `json:"mode,omitempty"`

	Index       int    `json:"index,omitempty"`
	TextPreview string `json:"text_preview,omitempty"`

	Step        string `json:"step,omitempty"`
	Action      string `json:"action,omitempty"`
	Result      string `json:"result,omitempty"`
	Content     string `json:"content,omitempty"`
	Description string `json:"description,omitempty"`

	SuggestionPayload

	SuggestionsCount int                 `json:"suggestions_count,omitempty"`
	Suggestions      []SuggestionPayload `json:"suggestions,omitempty"`

	TotalSuggestions int    `json:"total_suggestions,omitempty"`
	Summary          string `json:"summary,omitempty"`

	Message   string `json:"message,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CanResume *bool  `json:"can_resume,omitempty"`
}

// ParseEvent decodes one JSON event payload.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event missing type tag")
	}
	return ev, nil
}

// ErrorText returns the human-readable failure text of an error event.
func (e Event) ErrorText() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Detail
}

// TraceKind maps trace-bearing event types onto thinking-log kinds.
func (e Event) TraceKind() (models.ThinkingKind, bool) {
	switch e.Type {
	case EventThinking:
		return models.ThinkingThought, true
	case EventAction:
		return models.ThinkingAction, true
	case EventObservation:
		return models.ThinkingObservation, true
	case EventParagraphStart, EventParagraphComplete:
		return models.ThinkingProgress, true
	case EventError:
		return models.ThinkingError, true
	default:
		return "", false
	}
}
