package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestionKeyDeterministic(t *testing.T) {
	s := Suggestion{
		ParagraphIndex: 3,
		OriginalText:   "The rain fell softly.",
		SuggestedText:  "Rain hammered the roof.",
		Category:       "imagery",
		Priority:       PriorityHigh,
	}

	assert.Equal(t, s.Key(), s.Key())
	assert.Len(t, s.Key(), 16)

	// Key survives fields it does not hash.
	reworded := s
	reworded.SuggestedText = "different replacement"
	reworded.Reason = "different reason"
	assert.Equal(t, s.Key(), reworded.Key())

	// Any hashed field changing changes the key.
	moved := s
	moved.ParagraphIndex = 4
	assert.NotEqual(t, s.Key(), moved.Key())

	recategorized := s
	recategorized.Category = "pacing"
	assert.NotEqual(t, s.Key(), recategorized.Key())
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, Priority("bogus").Rank(), PriorityLow.Rank())
}

func TestSuggestionLabelTruncates(t *testing.T) {
	s := Suggestion{ParagraphIndex: 1, OriginalText: strings.Repeat("x", 100)}
	label := s.Label()
	assert.Contains(t, label, "paragraph 2")
	assert.Contains(t, label, "…")
	assert.Less(t, len(label), 60)
}

func TestValidateSuggestion(t *testing.T) {
	valid := Suggestion{
		OriginalText:  "a",
		SuggestedText: "b",
		Priority:      PriorityMedium,
	}
	assert.NoError(t, ValidateStruct(valid))

	invalid := valid
	invalid.Priority = "urgent"
	assert.Error(t, ValidateStruct(invalid))

	invalid = valid
	invalid.OriginalText = ""
	assert.Error(t, ValidateStruct(invalid))
}

func TestSessionStatusTerminal(t *testing.T) {
	for _, s := range []SessionStatus{StatusCompleted, StatusCancelled, StatusError} {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range []SessionStatus{StatusIdle, StatusRunning, StatusPaused} {
		assert.False(t, s.Terminal(), string(s))
	}
}
