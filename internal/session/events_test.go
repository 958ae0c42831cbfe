package session

import (
	"testing"

	"github.com/penflow/penflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	data := []byte(`{"type":"suggestion","paragraph_index":2,"original_text":"old","suggested_text":"new","reason":"clarity","category":"style","priority":"high"}`)

	ev, err := ParseEvent(data)
	require.NoError(t, err)
	assert.Equal(t, EventSuggestion, ev.Type)

	s := ev.Model()
	assert.Equal(t, 2, s.ParagraphIndex)
	assert.Equal(t, "old", s.OriginalText)
	assert.Equal(t, models.PriorityHigh, s.Priority)
}

func TestParseEventMissingType(t *testing.T) {
	_, err := ParseEvent([]byte(`{"session_id":"s1"}`))
	assert.Error(t, err)
}

func TestParseEventBadJSON(t *testing.T) {
	_, err := ParseEvent([]byte(`{not json`))
	assert.Error(t, err)
}

func TestSuggestionPayloadDefaultPriority(t *testing.T) {
	p := SuggestionPayload{OriginalText: "a", SuggestedText: "b", Priority: "critical"}
	assert.Equal(t, models.PriorityMedium, p.Model().Priority)

	p.Priority = ""
	assert.Equal(t, models.PriorityMedium, p.Model().Priority)
}

func TestParsePlanReadyBulkSuggestions(t *testing.T) {
	data := []byte(`{"type":"plan_ready","session_id":"s1","suggestions":[
		{"paragraph_index":0,"original_text":"a","suggested_text":"b","priority":"low"},
		{"paragraph_index":1,"original_text":"c","suggested_text":"d"}
	]}`)

	ev, err := ParseEvent(data)
	require.NoError(t, err)
	require.Len(t, ev.Suggestions, 2)
	assert.Equal(t, models.PriorityLow, ev.Suggestions[0].Model().Priority)
}

func TestEventTraceKind(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      models.ThinkingKind
		ok        bool
	}{
		{EventThinking, models.ThinkingThought, true},
		{EventAction, models.ThinkingAction, true},
		{EventObservation, models.ThinkingObservation, true},
		{EventParagraphStart, models.ThinkingProgress, true},
		{EventError, models.ThinkingError, true},
		{EventSuggestion, "", false},
	}
	for _, tt := range tests {
		kind, ok := Event{Type: tt.eventType}.TraceKind()
		assert.Equal(t, tt.ok, ok, string(tt.eventType))
		assert.Equal(t, tt.want, kind, string(tt.eventType))
	}
}
